// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package chain

import (
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/campaign"
)

const (
	MethodCreateCampaign      = "createCampaign"
	MethodSetPlatformFee      = "setPlatformFee"
	MethodContribute          = "contribute"
	MethodCreateRequest       = "createRequest"
	MethodApproveRequest      = "approveRequest"
	MethodFinalizeRequest     = "finalizeRequest"
	MethodVoteForRelease      = "voteForRelease"
	MethodWithdrawFunds       = "withdrawFunds"
	MethodDeposit             = "deposit"
	MethodAddApprover         = "addApprover"
	MethodRequestReleaseFunds = "requestReleaseFunds"
	MethodApproveReleaseFunds = "approveReleaseFunds"
	MethodReleaseFunds        = "releaseFunds"
	MethodEnableRefunds       = "enableRefunds"
	MethodClaimRefund         = "claimRefund"
)

const (
	argGoal            = "goal"
	argDeadline        = "deadline"
	argTitle           = "title"
	argDescription     = "description"
	argImage           = "image"
	argFlexibleFunding = "flexibleFunding"
	argFee             = "fee"
	argCampaign        = "campaign"
	argAmount          = "amount"
	argRecipient       = "recipient"
	argIndex           = "index"
	argApprover        = "approver"
)

type handler func(c *Chain, tx crowdfund.Tx, to crowdfund.Principal, args map[string]string) (crowdfund.Outcome, error)

type method struct {
	payable bool
	handle  handler
}

var methods = map[string]method{
	MethodCreateCampaign:      {handle: (*Chain).doCreateCampaign},
	MethodSetPlatformFee:      {handle: (*Chain).doSetPlatformFee},
	MethodContribute:          {payable: true, handle: onCampaign((*campaign.Campaign).Contribute)},
	MethodCreateRequest:       {handle: (*Chain).doCreateRequest},
	MethodApproveRequest:      {handle: onRequest((*campaign.Campaign).ApproveRequest)},
	MethodFinalizeRequest:     {handle: onRequest((*campaign.Campaign).FinalizeRequest)},
	MethodVoteForRelease:      {handle: onCampaign((*campaign.Campaign).VoteForRelease)},
	MethodWithdrawFunds:       {handle: onCampaign((*campaign.Campaign).WithdrawFunds)},
	MethodDeposit:             {payable: true, handle: onEscrow(escrowDeposit)},
	MethodAddApprover:         {handle: (*Chain).doAddApprover},
	MethodRequestReleaseFunds: {handle: onEscrow(escrowRequestRelease)},
	MethodApproveReleaseFunds: {handle: onEscrow(escrowApproveRelease)},
	MethodReleaseFunds:        {handle: onEscrow(escrowRelease)},
	MethodEnableRefunds:       {handle: onEscrow(escrowEnableRefunds)},
	MethodClaimRefund:         {handle: onEscrow(escrowClaimRefund)},
}

// execute is shared by live calls and journal replay.
func (c *Chain) execute(tx crowdfund.Tx, name string, to crowdfund.Principal, args map[string]string) (crowdfund.Outcome, error) {
	m, ok := methods[name]
	if !ok {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrInvalidParameter, "unknown method %q", name)
	}
	if !m.payable && crowdfund.IsPositive(tx.Value) {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrInvalidParameter, "method %s is not payable", name)
	}
	return m.handle(c, tx, to, args)
}

func onCampaign(fn func(*campaign.Campaign, crowdfund.Tx) (crowdfund.Outcome, error)) handler {
	return func(c *Chain, tx crowdfund.Tx, to crowdfund.Principal, _ map[string]string) (crowdfund.Outcome, error) {
		target, err := c.factory.Campaign(to)
		if err != nil {
			return crowdfund.Outcome{}, err
		}
		return fn(target, tx)
	}
}

func onRequest(fn func(*campaign.Campaign, crowdfund.Tx, int) (crowdfund.Outcome, error)) handler {
	return func(c *Chain, tx crowdfund.Tx, to crowdfund.Principal, args map[string]string) (crowdfund.Outcome, error) {
		target, err := c.factory.Campaign(to)
		if err != nil {
			return crowdfund.Outcome{}, err
		}
		index, err := strconv.Atoi(args[argIndex])
		if err != nil {
			return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrInvalidParameter, "bad request index %q", args[argIndex])
		}
		return fn(target, tx, index)
	}
}

type escrowOp func(c *Chain, tx crowdfund.Tx, campaign crowdfund.Principal) (crowdfund.Outcome, error)

func onEscrow(fn escrowOp) handler {
	return func(c *Chain, tx crowdfund.Tx, _ crowdfund.Principal, args map[string]string) (crowdfund.Outcome, error) {
		target, err := crowdfund.ParsePrincipal(args[argCampaign])
		if err != nil {
			return crowdfund.Outcome{}, err
		}
		return fn(c, tx, target)
	}
}

func escrowDeposit(c *Chain, tx crowdfund.Tx, campaign crowdfund.Principal) (crowdfund.Outcome, error) {
	return c.escrow.Deposit(tx, campaign)
}

func escrowRequestRelease(c *Chain, tx crowdfund.Tx, campaign crowdfund.Principal) (crowdfund.Outcome, error) {
	return c.escrow.RequestReleaseFunds(tx, campaign)
}

func escrowApproveRelease(c *Chain, tx crowdfund.Tx, campaign crowdfund.Principal) (crowdfund.Outcome, error) {
	return c.escrow.ApproveReleaseFunds(tx, campaign)
}

func escrowRelease(c *Chain, tx crowdfund.Tx, campaign crowdfund.Principal) (crowdfund.Outcome, error) {
	return c.escrow.ReleaseFunds(tx, campaign)
}

func escrowEnableRefunds(c *Chain, tx crowdfund.Tx, campaign crowdfund.Principal) (crowdfund.Outcome, error) {
	return c.escrow.EnableRefunds(tx, campaign)
}

func escrowClaimRefund(c *Chain, tx crowdfund.Tx, campaign crowdfund.Principal) (crowdfund.Outcome, error) {
	return c.escrow.ClaimRefund(tx, campaign)
}

func (c *Chain) doCreateCampaign(tx crowdfund.Tx, _ crowdfund.Principal, args map[string]string) (crowdfund.Outcome, error) {
	goal, err := crowdfund.ParseAmount(args[argGoal])
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	deadline, err := strconv.ParseInt(args[argDeadline], 10, 64)
	if err != nil {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrInvalidParameter, "bad deadline %q", args[argDeadline])
	}
	flexible, err := parseBool(args[argFlexibleFunding])
	if err != nil {
		return crowdfund.Outcome{}, err
	}

	created, out, err := c.factory.CreateCampaign(tx, campaign.Params{
		Goal:            goal,
		Deadline:        time.Unix(deadline, 0).UTC(),
		Title:           args[argTitle],
		Description:     args[argDescription],
		Image:           args[argImage],
		FlexibleFunding: flexible,
	})
	if err != nil {
		return crowdfund.Outcome{}, err
	}

	registered, err := c.escrow.Register(created.Address(), c.requiredApprovals)
	if err != nil {
		return crowdfund.Outcome{}, errors.Wrapf(err, "failed to open escrow for %s", created.Address().Hex())
	}
	out.Events = append(out.Events, registered)
	return out, nil
}

func (c *Chain) doSetPlatformFee(tx crowdfund.Tx, _ crowdfund.Principal, args map[string]string) (crowdfund.Outcome, error) {
	fee, err := strconv.ParseUint(args[argFee], 10, 64)
	if err != nil {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrInvalidParameter, "bad fee %q", args[argFee])
	}
	return c.factory.SetPlatformFee(tx, fee)
}

func (c *Chain) doCreateRequest(tx crowdfund.Tx, to crowdfund.Principal, args map[string]string) (crowdfund.Outcome, error) {
	target, err := c.factory.Campaign(to)
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	amount, err := crowdfund.ParseAmount(args[argAmount])
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	recipient, err := crowdfund.ParsePrincipal(args[argRecipient])
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	return target.CreateRequest(tx, args[argDescription], amount, recipient)
}

func (c *Chain) doAddApprover(tx crowdfund.Tx, _ crowdfund.Principal, args map[string]string) (crowdfund.Outcome, error) {
	target, err := crowdfund.ParsePrincipal(args[argCampaign])
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	approver, err := crowdfund.ParsePrincipal(args[argApprover])
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	return c.escrow.AddApprover(tx, target, approver)
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.Wrapf(crowdfund.ErrInvalidParameter, "bad flag %q", s)
	}
	return v, nil
}
