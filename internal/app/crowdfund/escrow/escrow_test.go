// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package escrow

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/campaign"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/factory"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/ledger"
)

var (
	factoryAddress = common.HexToAddress("0x0000000000000000000000000000000000fac701")
	escrowAddress  = common.HexToAddress("0x00000000000000000000000000000000000e5c20")
	owner          = common.HexToAddress("0x0000000000000000000000000000000000000a00")
	creator        = common.HexToAddress("0x0000000000000000000000000000000000000c00")
	alice          = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob            = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol          = common.HexToAddress("0x0000000000000000000000000000000000000ca1")

	t0       = time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline = t0.Add(24 * time.Hour)
)

type env struct {
	ledger   *ledger.Ledger
	factory  *factory.Factory
	manager  *Manager
	campaign crowdfund.Principal
}

func newEnv(t *testing.T, policy Policy, required int, goal int64, flexible bool) *env {
	l := ledger.New()
	for _, p := range []crowdfund.Principal{alice, bob, carol} {
		require.NoError(t, l.Mint(p, big.NewInt(1000)))
	}
	f, err := factory.New(factoryAddress, owner, 5, l)
	require.NoError(t, err)
	c, _, err := f.CreateCampaign(crowdfund.Tx{From: creator, Time: t0}, campaign.Params{
		Goal:            big.NewInt(goal),
		Deadline:        deadline,
		FlexibleFunding: flexible,
	})
	require.NoError(t, err)

	m := NewManager(escrowAddress, l, f, f, policy)
	ev, err := m.Register(c.Address(), required)
	require.NoError(t, err)
	require.Equal(t, EventEscrowRegistered, ev.Name)

	return &env{ledger: l, factory: f, manager: m, campaign: c.Address()}
}

func at(from crowdfund.Principal, value int64, when time.Time) crowdfund.Tx {
	return crowdfund.Tx{From: from, Value: big.NewInt(value), Time: when}
}

func TestManager_Register(t *testing.T) {
	e := newEnv(t, PolicyDepositors, 2, 100, false)

	_, err := e.manager.Register(e.campaign, 2)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidParameter))
	_, err = e.manager.Register(alice, 2)
	require.True(t, crowdfund.Is(err, crowdfund.ErrNotFound))
	_, err = e.manager.Register(e.campaign, 0)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidParameter))

	s, err := e.manager.Snapshot(e.campaign)
	require.NoError(t, err)
	require.Equal(t, StatusActive, s.Status)
	require.Equal(t, 2, s.RequiredApprovals)
	require.Equal(t, "0", s.TotalDeposited.String())

	_, err = e.manager.Status(alice)
	require.True(t, crowdfund.Is(err, crowdfund.ErrNotFound))
}

func TestManager_ReleaseScenario(t *testing.T) {
	e := newEnv(t, PolicyDepositors, 2, 100, false)
	m := e.manager

	for _, p := range []crowdfund.Principal{alice, bob, carol} {
		out, err := m.Deposit(at(p, 40, t0), e.campaign)
		require.NoError(t, err)
		require.Equal(t, EventDeposited, out.Events[0].Name)
		require.Equal(t, EventApproverAdded, out.Events[1].Name)
	}
	out, err := m.Deposit(at(alice, 10, t0), e.campaign)
	require.NoError(t, err)
	require.Len(t, out.Events, 1, "approver registered once")

	total, err := m.TotalDeposited(e.campaign)
	require.NoError(t, err)
	require.Equal(t, "130", total.String())
	require.Equal(t, "130", e.ledger.BalanceOf(escrowAddress).String())

	ok, err := m.IsApprover(e.campaign, bob)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = m.ApproveReleaseFunds(at(alice, 0, t0), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidStatus))

	_, err = m.RequestReleaseFunds(at(alice, 0, t0), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrUnauthorized))
	_, err = m.RequestReleaseFunds(at(creator, 0, t0), e.campaign)
	require.NoError(t, err)
	status, err := m.Status(e.campaign)
	require.NoError(t, err)
	require.Equal(t, StatusPendingRelease, status)

	_, err = m.RequestReleaseFunds(at(creator, 0, t0), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidStatus))
	_, err = m.Deposit(at(bob, 1, t0), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidStatus))

	_, err = m.ApproveReleaseFunds(at(owner, 0, t0), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrUnauthorized))

	_, err = m.ApproveReleaseFunds(at(alice, 0, t0), e.campaign)
	require.NoError(t, err)
	_, err = m.ApproveReleaseFunds(at(alice, 0, t0), e.campaign)
	require.Equal(t, crowdfund.ErrAlreadyApproved, err)
	count, err := m.ApprovalCount(e.campaign)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = m.ReleaseFunds(at(creator, 0, t0), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrQuorumNotMet))

	_, err = m.ApproveReleaseFunds(at(bob, 0, t0), e.campaign)
	require.NoError(t, err)
	status, err = m.Status(e.campaign)
	require.NoError(t, err)
	require.Equal(t, StatusPendingRelease, status, "quorum alone does not release")

	_, err = m.ReleaseFunds(at(alice, 0, t0), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrUnauthorized))

	out, err = m.ReleaseFunds(at(creator, 0, t0), e.campaign)
	require.NoError(t, err)
	require.Equal(t, EventFundsReleased, out.Events[0].Name)
	require.Equal(t, "6", out.Events[0].Args["fee"])
	require.Equal(t, "124", e.ledger.BalanceOf(creator).String())
	require.Equal(t, "6", e.ledger.BalanceOf(owner).String())
	require.Equal(t, "0", e.ledger.BalanceOf(escrowAddress).String())

	status, err = m.Status(e.campaign)
	require.NoError(t, err)
	require.Equal(t, StatusReleased, status)

	_, err = m.ReleaseFunds(at(creator, 0, t0), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidStatus))
	_, err = m.EnableRefunds(at(alice, 0, deadline), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidStatus))
	_, err = m.AddApprover(at(creator, 0, t0), e.campaign, owner)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidStatus))
}

func TestManager_Deposit(t *testing.T) {
	e := newEnv(t, PolicyDepositors, 1, 100, false)
	m := e.manager

	_, err := m.Deposit(at(alice, 0, t0), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidParameter))

	_, err = m.Deposit(at(alice, 5000, t0), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInsufficientFunds))
	ok, err := m.IsApprover(e.campaign, alice)
	require.NoError(t, err)
	require.False(t, ok, "failed deposit grants nothing")

	_, err = m.Deposit(at(alice, 1, deadline), e.campaign)
	require.Equal(t, crowdfund.ErrCampaignNotActive, err)

	_, err = m.Deposit(at(alice, 1, t0), alice)
	require.True(t, crowdfund.Is(err, crowdfund.ErrNotFound))
}

func TestManager_AllowlistPolicy(t *testing.T) {
	e := newEnv(t, PolicyAllowlist, 1, 100, false)
	m := e.manager

	out, err := m.Deposit(at(alice, 10, t0), e.campaign)
	require.NoError(t, err)
	require.Len(t, out.Events, 1)
	ok, err := m.IsApprover(e.campaign, alice)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = m.AddApprover(at(alice, 0, t0), e.campaign, carol)
	require.True(t, crowdfund.Is(err, crowdfund.ErrUnauthorized))
	_, err = m.AddApprover(at(creator, 0, t0), e.campaign, crowdfund.ZeroPrincipal)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidParameter))

	out, err = m.AddApprover(at(creator, 0, t0), e.campaign, carol)
	require.NoError(t, err)
	require.Equal(t, EventApproverAdded, out.Events[0].Name)
	_, err = m.AddApprover(at(creator, 0, t0), e.campaign, carol)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidParameter))

	_, err = m.RequestReleaseFunds(at(creator, 0, t0), e.campaign)
	require.NoError(t, err)
	_, err = m.ApproveReleaseFunds(at(alice, 0, t0), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrUnauthorized))
	_, err = m.ApproveReleaseFunds(at(carol, 0, t0), e.campaign)
	require.NoError(t, err)
	_, err = m.ReleaseFunds(at(creator, 0, t0), e.campaign)
	require.NoError(t, err)
}

func TestManager_Refunds(t *testing.T) {
	e := newEnv(t, PolicyDepositors, 1, 100, false)
	m := e.manager

	_, err := m.Deposit(at(alice, 30, t0), e.campaign)
	require.NoError(t, err)
	_, err = m.Deposit(at(bob, 20, t0), e.campaign)
	require.NoError(t, err)

	_, err = m.ClaimRefund(at(alice, 0, t0), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidStatus))
	_, err = m.EnableRefunds(at(carol, 0, t0), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidStatus))

	out, err := m.EnableRefunds(at(carol, 0, deadline), e.campaign)
	require.NoError(t, err)
	require.Equal(t, EventRefundsEnabled, out.Events[0].Name)
	_, err = m.EnableRefunds(at(carol, 0, deadline), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidStatus))

	_, err = m.ClaimRefund(at(carol, 0, deadline), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrNotContributor))

	out, err = m.ClaimRefund(at(alice, 0, deadline), e.campaign)
	require.NoError(t, err)
	require.Equal(t, "30", out.Events[0].Args["amount"])
	require.Equal(t, "1000", e.ledger.BalanceOf(alice).String())

	_, err = m.ClaimRefund(at(alice, 0, deadline), e.campaign)
	require.Equal(t, crowdfund.ErrAlreadyClaimed, err)
	require.Equal(t, "1000", e.ledger.BalanceOf(alice).String())

	_, err = m.ClaimRefund(at(bob, 0, deadline), e.campaign)
	require.NoError(t, err)
	require.Equal(t, "1000", e.ledger.BalanceOf(bob).String())
	require.Equal(t, "0", e.ledger.BalanceOf(escrowAddress).String())

	d, err := m.DepositOf(e.campaign, alice)
	require.NoError(t, err)
	require.Equal(t, "30", d.String())
}

func TestManager_EnableRefundsGuards(t *testing.T) {
	t.Run("goal met", func(t *testing.T) {
		e := newEnv(t, PolicyDepositors, 1, 50, false)
		_, err := e.manager.Deposit(at(alice, 50, t0), e.campaign)
		require.NoError(t, err)
		_, err = e.manager.EnableRefunds(at(alice, 0, deadline), e.campaign)
		require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidStatus))
		require.Contains(t, err.Error(), "goal was met")
	})

	t.Run("flexible funding", func(t *testing.T) {
		e := newEnv(t, PolicyDepositors, 1, 50, true)
		_, err := e.manager.Deposit(at(alice, 10, t0), e.campaign)
		require.NoError(t, err)
		_, err = e.manager.EnableRefunds(at(alice, 0, deadline), e.campaign)
		require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidStatus))
		require.Contains(t, err.Error(), "flexible")
	})

	t.Run("pending release can still be refunded", func(t *testing.T) {
		e := newEnv(t, PolicyDepositors, 3, 50, false)
		_, err := e.manager.Deposit(at(alice, 10, t0), e.campaign)
		require.NoError(t, err)
		_, err = e.manager.RequestReleaseFunds(at(creator, 0, t0), e.campaign)
		require.NoError(t, err)
		_, err = e.manager.EnableRefunds(at(bob, 0, deadline.Add(time.Hour)), e.campaign)
		require.NoError(t, err)
		status, err := e.manager.Status(e.campaign)
		require.NoError(t, err)
		require.Equal(t, StatusRefunded, status)
	})
}

func TestManager_ConcurrentApprovalsCountedOnce(t *testing.T) {
	e := newEnv(t, PolicyDepositors, 3, 100, false)
	m := e.manager
	for _, p := range []crowdfund.Principal{alice, bob, carol} {
		_, err := m.Deposit(at(p, 1, t0), e.campaign)
		require.NoError(t, err)
	}
	_, err := m.RequestReleaseFunds(at(creator, 0, t0), e.campaign)
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted = make(map[crowdfund.Principal]int)
	)
	for i := 0; i < 10; i++ {
		for _, p := range []crowdfund.Principal{alice, bob} {
			wg.Add(1)
			go func(p crowdfund.Principal) {
				defer wg.Done()
				_, err := m.ApproveReleaseFunds(at(p, 0, t0), e.campaign)
				if err == nil {
					mu.Lock()
					accepted[p]++
					mu.Unlock()
					return
				}
				assert.Equal(t, crowdfund.ErrAlreadyApproved, err)
			}(p)
		}
	}
	wg.Wait()

	require.Equal(t, 1, accepted[alice])
	require.Equal(t, 1, accepted[bob])
	count, err := m.ApprovalCount(e.campaign)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	_, err = m.ReleaseFunds(at(creator, 0, t0), e.campaign)
	require.True(t, crowdfund.Is(err, crowdfund.ErrQuorumNotMet))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("allowlist")
	require.NoError(t, err)
	require.Equal(t, PolicyAllowlist, p)
	_, err = ParsePolicy("everyone")
	require.Error(t, err)
	require.Equal(t, "PENDING_RELEASE", StatusPendingRelease.String())
}
