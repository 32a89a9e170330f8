// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package escrow

import (
	"math/big"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
)

// Snapshot is a consistent copy of one escrow entry.
type Snapshot struct {
	Campaign          crowdfund.Principal
	Status            Status
	TotalDeposited    *big.Int
	RequiredApprovals int
	ApprovalCount     int
	Approvers         []crowdfund.Principal
}

func (m *Manager) Snapshot(campaign crowdfund.Principal) (Snapshot, error) {
	e, err := m.entry(campaign)
	if err != nil {
		return Snapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Campaign:          campaign,
		Status:            e.status,
		TotalDeposited:    crowdfund.Copy(e.total),
		RequiredApprovals: e.required,
		ApprovalCount:     e.approvals.Len(),
		Approvers:         e.approvers.Members(),
	}, nil
}

func (m *Manager) Status(campaign crowdfund.Principal) (Status, error) {
	s, err := m.Snapshot(campaign)
	return s.Status, err
}

func (m *Manager) TotalDeposited(campaign crowdfund.Principal) (*big.Int, error) {
	s, err := m.Snapshot(campaign)
	if err != nil {
		return nil, err
	}
	return s.TotalDeposited, nil
}

func (m *Manager) RequiredApprovals(campaign crowdfund.Principal) (int, error) {
	s, err := m.Snapshot(campaign)
	return s.RequiredApprovals, err
}

func (m *Manager) ApprovalCount(campaign crowdfund.Principal) (int, error) {
	s, err := m.Snapshot(campaign)
	return s.ApprovalCount, err
}

func (m *Manager) IsApprover(campaign, p crowdfund.Principal) (bool, error) {
	e, err := m.entry(campaign)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.approvers.Has(p), nil
}

// DepositOf is zero for principals that never deposited.
func (m *Manager) DepositOf(campaign, p crowdfund.Principal) (*big.Int, error) {
	e, err := m.entry(campaign)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return crowdfund.Copy(e.deposits[p]), nil
}
