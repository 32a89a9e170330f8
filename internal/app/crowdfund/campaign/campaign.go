// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

// Package campaign implements a single fundraising effort: contributions,
// creator withdrawal requests approved by contributors, and the majority
// vote gating the final withdrawal.
package campaign

import (
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/quorum"
)

type State int

const (
	StateActive State = iota
	StateExpired
	StateGoalMet
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	case StateGoalMet:
		return "goal_met"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const (
	EventContributionReceived = "ContributionReceived"
	EventRequestCreated       = "RequestCreated"
	EventRequestApproved      = "RequestApproved"
	EventRequestFinalized     = "RequestFinalized"
	EventVotedForRelease      = "VotedForRelease"
	EventFundsWithdrawn       = "FundsWithdrawn"
)

type Params struct {
	Goal            *big.Int
	Deadline        time.Time
	Title           string
	Description     string
	Image           string
	FlexibleFunding bool
}

type Campaign struct {
	index    uint64
	address  crowdfund.Principal
	creator  crowdfund.Principal
	params   Params
	bank     crowdfund.Bank
	platform crowdfund.Platform

	mu            sync.RWMutex
	currentAmount *big.Int
	contributors  *quorum.ApprovalSet
	requests      []*request
	votes         *quorum.ApprovalSet
	withdrawn     bool
}

type request struct {
	description string
	amount      *big.Int
	recipient   crowdfund.Principal
	approvers   *quorum.ApprovalSet
	complete    bool
}

// New is called by the factory, which validates params.
func New(
	index uint64,
	address, creator crowdfund.Principal,
	params Params,
	bank crowdfund.Bank,
	platform crowdfund.Platform,
) *Campaign {
	params.Goal = crowdfund.Copy(params.Goal)
	return &Campaign{
		index:         index,
		address:       address,
		creator:       creator,
		params:        params,
		bank:          bank,
		platform:      platform,
		currentAmount: new(big.Int),
		contributors:  quorum.NewApprovalSet(),
		votes:         quorum.NewApprovalSet(),
	}
}

func (c *Campaign) Index() uint64                 { return c.index }
func (c *Campaign) Address() crowdfund.Principal { return c.address }
func (c *Campaign) Creator() crowdfund.Principal { return c.creator }
func (c *Campaign) Goal() *big.Int               { return crowdfund.Copy(c.params.Goal) }
func (c *Campaign) Deadline() time.Time          { return c.params.Deadline }
func (c *Campaign) Title() string                { return c.params.Title }
func (c *Campaign) Description() string          { return c.params.Description }
func (c *Campaign) Image() string                { return c.params.Image }
func (c *Campaign) FlexibleFunding() bool        { return c.params.FlexibleFunding }

func (c *Campaign) Info() crowdfund.CampaignInfo {
	return crowdfund.CampaignInfo{
		Address:  c.address,
		Creator:  c.creator,
		Goal:     c.Goal(),
		Deadline: c.params.Deadline,
		Flexible: c.params.FlexibleFunding,
	}
}

func (c *Campaign) CurrentAmount() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return crowdfund.Copy(c.currentAmount)
}

func (c *Campaign) ContributorsCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.contributors.Len()
}

func (c *Campaign) IsContributor(p crowdfund.Principal) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.contributors.Has(p)
}

func (c *Campaign) Votes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.votes.Len()
}

func (c *Campaign) HasVoted(p crowdfund.Principal) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.votes.Has(p)
}

func (c *Campaign) Withdrawn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.withdrawn
}

// Balance is what the campaign account currently holds.
func (c *Campaign) Balance() *big.Int {
	return c.bank.BalanceOf(c.address)
}

// State is derived from now, the deadline and the amount raised.
func (c *Campaign) State(now time.Time) State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state(now)
}

func (c *Campaign) state(now time.Time) State {
	switch {
	case c.withdrawn:
		return StateClosed
	case c.goalMet():
		return StateGoalMet
	case !now.Before(c.params.Deadline):
		return StateExpired
	}
	return StateActive
}

func (c *Campaign) goalMet() bool {
	return c.currentAmount.Cmp(c.params.Goal) >= 0
}

func (c *Campaign) open(now time.Time) bool {
	return !c.withdrawn && now.Before(c.params.Deadline)
}

func (c *Campaign) Contribute(tx crowdfund.Tx) (crowdfund.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !crowdfund.IsPositive(tx.Value) {
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrInvalidParameter, "contribution must be > 0")
	}
	if !c.open(tx.Time) {
		return crowdfund.Outcome{}, crowdfund.ErrCampaignNotActive
	}

	block, err := c.bank.Commit(crowdfund.Transfer{From: tx.From, To: c.address, Amount: tx.Value})
	if err != nil {
		return crowdfund.Outcome{}, err
	}

	c.contributors.Add(tx.From)
	c.currentAmount.Add(c.currentAmount, tx.Value)

	return crowdfund.Outcome{
		Block: block,
		Events: []crowdfund.Event{crowdfund.NewEvent(EventContributionReceived, c.address,
			"contributor", tx.From.Hex(),
			"amount", tx.Value.String(),
		)},
	}, nil
}

func (c *Campaign) CreateRequest(tx crowdfund.Tx, description string, amount *big.Int, recipient crowdfund.Principal) (crowdfund.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tx.From != c.creator {
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrUnauthorized, "only creator can create requests")
	}
	if !crowdfund.IsPositive(amount) {
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrInvalidParameter, "request amount must be > 0")
	}
	if recipient == crowdfund.ZeroPrincipal {
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrInvalidParameter, "recipient is required")
	}

	block, err := c.bank.Commit()
	if err != nil {
		return crowdfund.Outcome{}, err
	}

	index := len(c.requests)
	c.requests = append(c.requests, &request{
		description: description,
		amount:      crowdfund.Copy(amount),
		recipient:   recipient,
		approvers:   quorum.NewApprovalSet(),
	})

	return crowdfund.Outcome{
		Block: block,
		Events: []crowdfund.Event{crowdfund.NewEvent(EventRequestCreated, c.address,
			"request", strconv.Itoa(index),
			"amount", amount.String(),
			"recipient", recipient.Hex(),
		)},
	}, nil
}

func (c *Campaign) ApproveRequest(tx crowdfund.Tx, index int) (crowdfund.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.request(index)
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	if !c.contributors.Has(tx.From) {
		return crowdfund.Outcome{}, crowdfund.ErrNotContributor
	}
	if r.complete {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrAlreadyComplete, "request %d", index)
	}
	if r.approvers.Has(tx.From) {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrAlreadyApproved, "request %d", index)
	}

	block, err := c.bank.Commit()
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	r.approvers.Add(tx.From)

	return crowdfund.Outcome{
		Block: block,
		Events: []crowdfund.Event{crowdfund.NewEvent(EventRequestApproved, c.address,
			"request", strconv.Itoa(index),
			"approver", tx.From.Hex(),
		)},
	}, nil
}

func (c *Campaign) FinalizeRequest(tx crowdfund.Tx, index int) (crowdfund.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.request(index)
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	if tx.From != c.creator {
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrUnauthorized, "only creator can finalize requests")
	}
	if r.complete {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrAlreadyComplete, "request %d", index)
	}
	if !quorum.Majority(r.approvers.Len(), c.contributors.Len()) {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrQuorumNotMet, "%d approvals of %d contributors", r.approvers.Len(), c.contributors.Len())
	}

	block, err := c.bank.Commit(crowdfund.Transfer{From: c.address, To: r.recipient, Amount: r.amount})
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	r.complete = true

	return crowdfund.Outcome{
		Block: block,
		Events: []crowdfund.Event{crowdfund.NewEvent(EventRequestFinalized, c.address,
			"request", strconv.Itoa(index),
			"amount", r.amount.String(),
			"recipient", r.recipient.Hex(),
		)},
	}, nil
}

// VoteForRelease accepts repeated votes but counts each contributor once.
func (c *Campaign) VoteForRelease(tx crowdfund.Tx) (crowdfund.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.contributors.Has(tx.From) {
		return crowdfund.Outcome{}, crowdfund.ErrNotContributor
	}

	block, err := c.bank.Commit()
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	c.votes.Add(tx.From)

	return crowdfund.Outcome{
		Block:  block,
		Events: []crowdfund.Event{crowdfund.NewEvent(EventVotedForRelease, c.address, "voter", tx.From.Hex())},
	}, nil
}

// WithdrawFunds sends the whole campaign balance, less the platform fee, to
// the creator.
func (c *Campaign) WithdrawFunds(tx crowdfund.Tx) (crowdfund.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tx.From != c.creator {
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrUnauthorized, "only creator can withdraw")
	}
	if c.withdrawn {
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrAlreadyComplete, "funds already withdrawn")
	}
	if !c.goalMet() {
		flexibleAfterDeadline := c.params.FlexibleFunding && !tx.Time.Before(c.params.Deadline)
		if !flexibleAfterDeadline {
			return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrGoalNotMet, "raised %s of %s", c.currentAmount, c.params.Goal)
		}
	}
	if !quorum.Majority(c.votes.Len(), c.contributors.Len()) {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrQuorumNotMet, "%d votes of %d contributors", c.votes.Len(), c.contributors.Len())
	}

	var out crowdfund.Outcome
	err := c.platform.WithPlatformFee(func(owner crowdfund.Principal, percent uint64) error {
		balance := c.bank.BalanceOf(c.address)
		fee, rest := crowdfund.SplitFee(balance, percent)
		block, err := c.bank.Commit(
			crowdfund.Transfer{From: c.address, To: owner, Amount: fee},
			crowdfund.Transfer{From: c.address, To: c.creator, Amount: rest},
		)
		if err != nil {
			return err
		}
		out = crowdfund.Outcome{
			Block: block,
			Events: []crowdfund.Event{crowdfund.NewEvent(EventFundsWithdrawn, c.address,
				"creator", c.creator.Hex(),
				"amount", rest.String(),
				"fee", fee.String(),
			)},
		}
		return nil
	})
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	c.withdrawn = true
	return out, nil
}

func (c *Campaign) request(index int) (*request, error) {
	if index < 0 || index >= len(c.requests) {
		return nil, errors.Wrapf(crowdfund.ErrNotFound, "request %d", index)
	}
	return c.requests[index], nil
}
