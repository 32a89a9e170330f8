// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

// Package escrow custodies deposits per campaign and governs their release to
// the creator, gated by a named-approver quorum, or their refund to depositors.
package escrow

import (
	"math/big"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/quorum"
)

type Status int

const (
	StatusActive Status = iota
	StatusPendingRelease
	StatusReleased
	StatusRefunded
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusPendingRelease:
		return "PENDING_RELEASE"
	case StatusReleased:
		return "RELEASED"
	case StatusRefunded:
		return "REFUNDED"
	}
	return "UNKNOWN"
}

func (s Status) Terminal() bool {
	return s == StatusReleased || s == StatusRefunded
}

// Policy decides who may approve a release.
type Policy string

const (
	// PolicyDepositors registers every depositor as approver on the first deposit.
	PolicyDepositors Policy = "depositors"
	// PolicyAllowlist only accepts approvers added by the campaign creator.
	PolicyAllowlist Policy = "allowlist"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyDepositors, PolicyAllowlist:
		return p, nil
	}
	return "", errors.Wrapf(crowdfund.ErrInvalidParameter, "unknown approver policy %q", s)
}

const (
	EventEscrowRegistered = "EscrowRegistered"
	EventDeposited        = "Deposited"
	EventApproverAdded    = "ApproverAdded"
	EventReleaseRequested = "ReleaseRequested"
	EventReleaseApproved  = "ReleaseApproved"
	EventFundsReleased    = "FundsReleased"
	EventRefundsEnabled   = "RefundsEnabled"
	EventRefundClaimed    = "RefundClaimed"
)

type Manager struct {
	address   crowdfund.Principal
	bank      crowdfund.Bank
	platform  crowdfund.Platform
	directory crowdfund.Directory
	policy    Policy

	mu      sync.RWMutex
	entries map[crowdfund.Principal]*entry
}

type entry struct {
	mu        sync.Mutex
	info      crowdfund.CampaignInfo
	status    Status
	total     *big.Int
	required  int
	approvals *quorum.ApprovalSet
	approvers *quorum.ApprovalSet
	deposits  map[crowdfund.Principal]*big.Int
	claimed   *quorum.ApprovalSet
}

func NewManager(
	address crowdfund.Principal,
	bank crowdfund.Bank,
	platform crowdfund.Platform,
	directory crowdfund.Directory,
	policy Policy,
) *Manager {
	return &Manager{
		address:   address,
		bank:      bank,
		platform:  platform,
		directory: directory,
		policy:    policy,
		entries:   make(map[crowdfund.Principal]*entry),
	}
}

func (m *Manager) Address() crowdfund.Principal {
	return m.address
}

func (m *Manager) Policy() Policy {
	return m.policy
}

// Register opens an ACTIVE entry for a campaign known to the directory.
func (m *Manager) Register(campaign crowdfund.Principal, requiredApprovals int) (crowdfund.Event, error) {
	if requiredApprovals < 1 {
		return crowdfund.Event{}, errors.Wrap(crowdfund.ErrInvalidParameter, "required approvals must be >= 1")
	}
	info, err := m.directory.CampaignInfo(campaign)
	if err != nil {
		return crowdfund.Event{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[campaign]; ok {
		return crowdfund.Event{}, errors.Wrapf(crowdfund.ErrInvalidParameter, "escrow for %s already registered", campaign.Hex())
	}
	m.entries[campaign] = &entry{
		info:      info,
		status:    StatusActive,
		total:     new(big.Int),
		required:  requiredApprovals,
		approvals: quorum.NewApprovalSet(),
		approvers: quorum.NewApprovalSet(),
		deposits:  make(map[crowdfund.Principal]*big.Int),
		claimed:   quorum.NewApprovalSet(),
	}
	return crowdfund.NewEvent(EventEscrowRegistered, m.address,
		"campaign", campaign.Hex(),
		"requiredApprovals", strconv.Itoa(requiredApprovals),
	), nil
}

func (m *Manager) entry(campaign crowdfund.Principal) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[campaign]
	if !ok {
		return nil, errors.Wrapf(crowdfund.ErrNotFound, "escrow for %s", campaign.Hex())
	}
	return e, nil
}

func (m *Manager) Deposit(tx crowdfund.Tx, campaign crowdfund.Principal) (crowdfund.Outcome, error) {
	e, err := m.entry(campaign)
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !crowdfund.IsPositive(tx.Value) {
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrInvalidParameter, "deposit must be > 0")
	}
	if e.status != StatusActive {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrInvalidStatus, "escrow is %s", e.status)
	}
	if !tx.Time.Before(e.info.Deadline) {
		return crowdfund.Outcome{}, crowdfund.ErrCampaignNotActive
	}

	block, err := m.bank.Commit(crowdfund.Transfer{From: tx.From, To: m.address, Amount: tx.Value})
	if err != nil {
		return crowdfund.Outcome{}, err
	}

	e.total.Add(e.total, tx.Value)
	d, ok := e.deposits[tx.From]
	if !ok {
		d = new(big.Int)
		e.deposits[tx.From] = d
	}
	d.Add(d, tx.Value)

	events := []crowdfund.Event{crowdfund.NewEvent(EventDeposited, m.address,
		"campaign", campaign.Hex(),
		"depositor", tx.From.Hex(),
		"amount", tx.Value.String(),
	)}
	if m.policy == PolicyDepositors && e.approvers.Add(tx.From) {
		events = append(events, crowdfund.NewEvent(EventApproverAdded, m.address,
			"campaign", campaign.Hex(),
			"approver", tx.From.Hex(),
		))
	}
	return crowdfund.Outcome{Block: block, Events: events}, nil
}

// AddApprover lets the creator curate the approver registry.
func (m *Manager) AddApprover(tx crowdfund.Tx, campaign, approver crowdfund.Principal) (crowdfund.Outcome, error) {
	e, err := m.entry(campaign)
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if tx.From != e.info.Creator {
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrUnauthorized, "only creator can add approvers")
	}
	if e.status.Terminal() {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrInvalidStatus, "escrow is %s", e.status)
	}
	if approver == crowdfund.ZeroPrincipal {
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrInvalidParameter, "approver is required")
	}
	if e.approvers.Has(approver) {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrInvalidParameter, "%s is already an approver", approver.Hex())
	}

	block, err := m.bank.Commit()
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	e.approvers.Add(approver)

	return crowdfund.Outcome{
		Block: block,
		Events: []crowdfund.Event{crowdfund.NewEvent(EventApproverAdded, m.address,
			"campaign", campaign.Hex(),
			"approver", approver.Hex(),
		)},
	}, nil
}

func (m *Manager) RequestReleaseFunds(tx crowdfund.Tx, campaign crowdfund.Principal) (crowdfund.Outcome, error) {
	e, err := m.entry(campaign)
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if tx.From != e.info.Creator {
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrUnauthorized, "only creator can request release")
	}
	if e.status != StatusActive {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrInvalidStatus, "escrow is %s", e.status)
	}

	block, err := m.bank.Commit()
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	e.status = StatusPendingRelease

	return crowdfund.Outcome{
		Block:  block,
		Events: []crowdfund.Event{crowdfund.NewEvent(EventReleaseRequested, m.address, "campaign", campaign.Hex())},
	}, nil
}

// ApproveReleaseFunds records an approval. Reaching the quorum does not release.
func (m *Manager) ApproveReleaseFunds(tx crowdfund.Tx, campaign crowdfund.Principal) (crowdfund.Outcome, error) {
	e, err := m.entry(campaign)
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusPendingRelease {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrInvalidStatus, "escrow is %s", e.status)
	}
	if !e.approvers.Has(tx.From) {
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrUnauthorized, "not an approver")
	}
	if e.approvals.Has(tx.From) {
		return crowdfund.Outcome{}, crowdfund.ErrAlreadyApproved
	}

	block, err := m.bank.Commit()
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	e.approvals.Add(tx.From)

	return crowdfund.Outcome{
		Block: block,
		Events: []crowdfund.Event{crowdfund.NewEvent(EventReleaseApproved, m.address,
			"campaign", campaign.Hex(),
			"approver", tx.From.Hex(),
			"approvals", strconv.Itoa(e.approvals.Len()),
		)},
	}, nil
}

func (m *Manager) ReleaseFunds(tx crowdfund.Tx, campaign crowdfund.Principal) (crowdfund.Outcome, error) {
	e, err := m.entry(campaign)
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if tx.From != e.info.Creator {
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrUnauthorized, "only creator can release funds")
	}
	if e.status != StatusPendingRelease {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrInvalidStatus, "escrow is %s", e.status)
	}
	if !quorum.Threshold(e.approvals.Len(), e.required) {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrQuorumNotMet, "%d of %d approvals", e.approvals.Len(), e.required)
	}

	var out crowdfund.Outcome
	err = m.platform.WithPlatformFee(func(owner crowdfund.Principal, percent uint64) error {
		fee, rest := crowdfund.SplitFee(e.total, percent)
		block, err := m.bank.Commit(
			crowdfund.Transfer{From: m.address, To: owner, Amount: fee},
			crowdfund.Transfer{From: m.address, To: e.info.Creator, Amount: rest},
		)
		if err != nil {
			return err
		}
		out = crowdfund.Outcome{
			Block: block,
			Events: []crowdfund.Event{crowdfund.NewEvent(EventFundsReleased, m.address,
				"campaign", campaign.Hex(),
				"creator", e.info.Creator.Hex(),
				"amount", rest.String(),
				"fee", fee.String(),
			)},
		}
		return nil
	})
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	e.status = StatusReleased
	return out, nil
}

// EnableRefunds moves a failed campaign's escrow to REFUNDED. Anyone may call
// it once the deadline passed without the escrow reaching the goal.
func (m *Manager) EnableRefunds(tx crowdfund.Tx, campaign crowdfund.Principal) (crowdfund.Outcome, error) {
	e, err := m.entry(campaign)
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.status.Terminal():
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrInvalidStatus, "escrow is %s", e.status)
	case tx.Time.Before(e.info.Deadline):
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrInvalidStatus, "campaign deadline has not passed")
	case e.info.Flexible:
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrInvalidStatus, "flexible funding campaigns are not refunded")
	case e.total.Cmp(e.info.Goal) >= 0:
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrInvalidStatus, "campaign goal was met")
	}

	block, err := m.bank.Commit()
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	e.status = StatusRefunded

	return crowdfund.Outcome{
		Block:  block,
		Events: []crowdfund.Event{crowdfund.NewEvent(EventRefundsEnabled, m.address, "campaign", campaign.Hex())},
	}, nil
}

// ClaimRefund returns exactly what the caller deposited, once.
func (m *Manager) ClaimRefund(tx crowdfund.Tx, campaign crowdfund.Principal) (crowdfund.Outcome, error) {
	e, err := m.entry(campaign)
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusRefunded {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrInvalidStatus, "escrow is %s", e.status)
	}
	amount, ok := e.deposits[tx.From]
	if !ok {
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrNotContributor, "no deposit to refund")
	}
	if e.claimed.Has(tx.From) {
		return crowdfund.Outcome{}, crowdfund.ErrAlreadyClaimed
	}

	block, err := m.bank.Commit(crowdfund.Transfer{From: m.address, To: tx.From, Amount: amount})
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	e.claimed.Add(tx.From)

	return crowdfund.Outcome{
		Block: block,
		Events: []crowdfund.Event{crowdfund.NewEvent(EventRefundClaimed, m.address,
			"campaign", campaign.Hex(),
			"depositor", tx.From.Hex(),
			"amount", amount.String(),
		)},
	}, nil
}
