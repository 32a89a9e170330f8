// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package api

import (
	"math/big"
	"time"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/campaign"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/chain"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/escrow"
)

// Caller is the part of every write request naming the sender and the
// attached value. Amounts are decimal strings in the smallest unit. TxID is a
// client chosen uuid, unique per call.
type Caller struct {
	TxID  string `json:"txID,omitempty"`
	From  string `json:"from"`
	Value string `json:"value,omitempty"`
}

func (c *Caller) toCall() (chain.Call, error) {
	from, err := crowdfund.ParsePrincipal(c.From)
	if err != nil {
		return chain.Call{}, err
	}
	value, err := crowdfund.ParseAmount(c.Value)
	if err != nil {
		return chain.Call{}, err
	}
	return chain.Call{ID: c.TxID, From: from, Value: value}, nil
}

type caller interface {
	toCall() (chain.Call, error)
}

type CallRequest struct {
	Caller
}

type SetPlatformFeeRequest struct {
	Caller
	Fee uint64 `json:"fee"`
}

type CreateCampaignRequest struct {
	Caller
	Goal            string    `json:"goal"`
	Deadline        time.Time `json:"deadline"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Image           string    `json:"image"`
	FlexibleFunding bool      `json:"flexibleFunding"`
}

type CreateRequestRequest struct {
	Caller
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Recipient   string `json:"recipient"`
}

type AddApproverRequest struct {
	Caller
	Approver string `json:"approver"`
}

type EventResponse struct {
	Name     string            `json:"name"`
	Contract string            `json:"contract"`
	Args     map[string]string `json:"args"`
}

type ReceiptResponse struct {
	TxID      string          `json:"txID"`
	Block     uint64          `json:"block"`
	Method    string          `json:"method"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Value     string          `json:"value"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	Events    []EventResponse `json:"events"`
	Timestamp int64           `json:"timestamp"`
}

// ErrorResponse is ErrorMessage plus the receipt of the rejected call.
type ErrorResponse struct {
	ErrorMessage
	Receipt *ReceiptResponse `json:"receipt,omitempty"`
}

type PlatformResponse struct {
	Factory       string `json:"factory"`
	Escrow        string `json:"escrow"`
	Owner         string `json:"owner"`
	FeePercent    uint64 `json:"feePercent"`
	CampaignCount int    `json:"campaignCount"`
	Height        uint64 `json:"height"`
	Policy        string `json:"approverPolicy"`
}

type CampaignsResponse struct {
	Campaigns []string `json:"campaigns"`
}

type RequestResponse struct {
	Index         int      `json:"index"`
	Description   string   `json:"description"`
	Amount        string   `json:"amount"`
	Recipient     string   `json:"recipient"`
	ApprovalCount int      `json:"approvalCount"`
	Approvers     []string `json:"approvers"`
	Complete      bool     `json:"complete"`
}

type CampaignResponse struct {
	Address           string            `json:"address"`
	Index             uint64            `json:"index"`
	Creator           string            `json:"creator"`
	Goal              string            `json:"goal"`
	Deadline          int64             `json:"deadline"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Image             string            `json:"image"`
	FlexibleFunding   bool              `json:"flexibleFunding"`
	State             string            `json:"state"`
	CurrentAmount     string            `json:"currentAmount"`
	EscrowDeposited   string            `json:"escrowDeposited"`
	TotalRaised       string            `json:"totalRaised"`
	ContributorsCount int               `json:"contributorsCount"`
	Votes             int               `json:"votes"`
	Withdrawn         bool              `json:"withdrawn"`
	Balance           string            `json:"balance"`
	Requests          []RequestResponse `json:"requests"`
}

type EscrowResponse struct {
	Campaign          string   `json:"campaign"`
	Status            string   `json:"status"`
	TotalDeposited    string   `json:"totalDeposited"`
	RequiredApprovals int      `json:"requiredApprovals"`
	ApprovalCount     int      `json:"approvalCount"`
	Approvers         []string `json:"approvers"`
}

type ApproverResponse struct {
	Approver bool   `json:"approver"`
	Deposit  string `json:"deposit"`
}

type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

func hexes(ps []crowdfund.Principal) []string {
	res := make([]string, 0, len(ps))
	for _, p := range ps {
		res = append(res, p.Hex())
	}
	return res
}

func ReceiptToAPI(r *crowdfund.Receipt) *ReceiptResponse {
	if r == nil {
		return nil
	}
	res := &ReceiptResponse{
		TxID:      r.TxID,
		Block:     r.Block,
		Method:    r.Method,
		From:      r.From.Hex(),
		To:        r.To.Hex(),
		Value:     crowdfund.Copy(r.Value).String(),
		Status:    string(r.Status),
		Error:     r.Error,
		Events:    make([]EventResponse, 0, len(r.Events)),
		Timestamp: r.Timestamp.Unix(),
	}
	for _, e := range r.Events {
		res.Events = append(res.Events, EventResponse{
			Name:     e.Name,
			Contract: e.Contract.Hex(),
			Args:     e.Args,
		})
	}
	return res
}

func PlatformToAPI(p chain.PlatformInfo) PlatformResponse {
	return PlatformResponse{
		Factory:       p.Factory.Hex(),
		Escrow:        p.Escrow.Hex(),
		Owner:         p.Owner.Hex(),
		FeePercent:    p.FeePercent,
		CampaignCount: p.CampaignCount,
		Height:        p.Height,
		Policy:        string(p.Policy),
	}
}

// CampaignToAPI reports contract and escrow donations separately and summed.
func CampaignToAPI(c campaign.Snapshot, e escrow.Snapshot) CampaignResponse {
	current := crowdfund.Copy(c.CurrentAmount)
	deposited := crowdfund.Copy(e.TotalDeposited)
	res := CampaignResponse{
		Address:           c.Address.Hex(),
		Index:             c.Index,
		Creator:           c.Creator.Hex(),
		Goal:              crowdfund.Copy(c.Params.Goal).String(),
		Deadline:          c.Params.Deadline.Unix(),
		Title:             c.Params.Title,
		Description:       c.Params.Description,
		Image:             c.Params.Image,
		FlexibleFunding:   c.Params.FlexibleFunding,
		State:             c.State.String(),
		CurrentAmount:     current.String(),
		EscrowDeposited:   deposited.String(),
		TotalRaised:       new(big.Int).Add(deposited, current).String(),
		ContributorsCount: c.ContributorsCount,
		Votes:             c.Votes,
		Withdrawn:         c.Withdrawn,
		Balance:           crowdfund.Copy(c.Balance).String(),
		Requests:          make([]RequestResponse, 0, len(c.Requests)),
	}
	for _, r := range c.Requests {
		res.Requests = append(res.Requests, RequestResponse{
			Index:         r.Index,
			Description:   r.Description,
			Amount:        r.Amount.String(),
			Recipient:     r.Recipient.Hex(),
			ApprovalCount: r.ApprovalCount,
			Approvers:     hexes(r.Approvers),
			Complete:      r.Complete,
		})
	}
	return res
}

func EscrowToAPI(s escrow.Snapshot) EscrowResponse {
	return EscrowResponse{
		Campaign:          s.Campaign.Hex(),
		Status:            s.Status.String(),
		TotalDeposited:    crowdfund.Copy(s.TotalDeposited).String(),
		RequiredApprovals: s.RequiredApprovals,
		ApprovalCount:     s.ApprovalCount,
		Approvers:         hexes(s.Approvers),
	}
}
