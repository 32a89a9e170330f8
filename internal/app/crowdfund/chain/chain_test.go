// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package chain

import (
	"context"
	"io"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insolar/crowdfunding/configuration"
	"github.com/insolar/crowdfunding/internal/app/crowdfund"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/campaign"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/escrow"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/events"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/factory"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/journal"
	"github.com/insolar/crowdfunding/observability"
)

var (
	owner   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	creator = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	alice   = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	bob     = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	carol   = common.HexToAddress("0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65")

	t0 = time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func chainConfig(policy string, required int) configuration.Chain {
	cfg := configuration.Default().Chain
	cfg.ApproverPolicy = policy
	cfg.RequiredApprovals = required
	cfg.Genesis = map[string]*big.Int{
		alice.Hex(): ether(100),
		bob.Hex():   ether(100),
		carol.Hex(): ether(100),
	}
	return cfg
}

type env struct {
	chain     *Chain
	clock     *testClock
	journal   *journal.MemoryJournal
	publisher *events.MemoryPublisher
	obs       *observability.Observability
}

func newEnv(t *testing.T, cfg configuration.Chain) *env {
	obs := observability.Make(configuration.Default())
	obs.Log().SetOutput(io.Discard)
	e := &env{
		clock:     &testClock{now: t0},
		journal:   journal.NewMemoryJournal(),
		publisher: events.NewMemoryPublisher(),
		obs:       obs,
	}
	c, err := New(cfg, e.clock, obs, e.journal, e.publisher)
	require.NoError(t, err)
	e.chain = c
	return e
}

func (e *env) createCampaign(t *testing.T, goal *big.Int, flexible bool) crowdfund.Principal {
	r, err := e.chain.CreateCampaign(context.Background(), Call{From: creator}, campaign.Params{
		Goal:            goal,
		Deadline:        e.clock.Now().Add(24 * time.Hour),
		Title:           "Clean water",
		FlexibleFunding: flexible,
	})
	require.NoError(t, err)
	address, ok := CreatedCampaign(r)
	require.True(t, ok)
	return address
}

func TestNew(t *testing.T) {
	obs := observability.Make(configuration.Default())

	cfg := chainConfig("everyone", 1)
	_, err := New(cfg, &testClock{}, obs, journal.NewMemoryJournal(), events.NewMemoryPublisher())
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidParameter))

	cfg = chainConfig("depositors", 0)
	_, err = New(cfg, &testClock{}, obs, journal.NewMemoryJournal(), events.NewMemoryPublisher())
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidParameter))

	cfg = chainConfig("depositors", 1)
	cfg.PlatformFee = 11
	_, err = New(cfg, &testClock{}, obs, journal.NewMemoryJournal(), events.NewMemoryPublisher())
	require.True(t, crowdfund.Is(err, crowdfund.ErrOutOfRange))

	e := newEnv(t, chainConfig("depositors", 1))
	require.Equal(t, ether(100).String(), e.chain.BalanceOf(alice).String())
	p := e.chain.Platform()
	require.Equal(t, uint64(5), p.FeePercent)
	require.Equal(t, owner, p.Owner)
	require.Equal(t, uint64(0), p.Height)
}

func TestChain_CampaignScenario(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, chainConfig("depositors", 1))
	c := e.chain

	address := e.createCampaign(t, ether(10), false)
	require.Equal(t, []crowdfund.Principal{address}, c.UserCampaigns(creator))
	require.Equal(t, []string{factory.EventCampaignCreated, escrow.EventEscrowRegistered}, e.publisher.Names())

	_, err := c.Contribute(ctx, Call{From: alice, Value: ether(1)}, address)
	require.NoError(t, err)

	e.clock.Set(t0.Add(25 * time.Hour))
	r, err := c.Contribute(ctx, Call{From: bob, Value: ether(9)}, address)
	require.Equal(t, crowdfund.ErrCampaignNotActive, err)
	require.False(t, r.Succeeded())
	require.Equal(t, uint64(0), r.Block)
	require.Equal(t, "campaign is not active", r.Error)

	e.clock.Set(t0.Add(time.Hour))
	_, err = c.Contribute(ctx, Call{From: bob, Value: ether(9)}, address)
	require.NoError(t, err)

	_, err = c.VoteForRelease(ctx, Call{From: alice}, address)
	require.NoError(t, err)
	_, err = c.VoteForRelease(ctx, Call{From: bob}, address)
	require.NoError(t, err)

	before := c.BalanceOf(creator)
	r, err = c.WithdrawFunds(ctx, Call{From: creator}, address)
	require.NoError(t, err)
	require.True(t, r.Succeeded())
	require.True(t, c.BalanceOf(creator).Cmp(before) > 0)

	got, err := c.Campaign(address)
	require.NoError(t, err)
	require.Equal(t, campaign.StateClosed, got.State(e.clock.Now()))

	stored, err := c.Receipt(ctx, r.TxID)
	require.NoError(t, err)
	require.Equal(t, r, stored)
}

func TestChain_PlatformFeeScenario(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, chainConfig("depositors", 1))
	c := e.chain

	_, err := c.SetPlatformFee(ctx, Call{From: owner}, 11)
	require.True(t, crowdfund.Is(err, crowdfund.ErrOutOfRange))
	_, err = c.SetPlatformFee(ctx, Call{From: alice}, 3)
	require.True(t, crowdfund.Is(err, crowdfund.ErrUnauthorized))

	r, err := c.SetPlatformFee(ctx, Call{From: owner}, 3)
	require.NoError(t, err)
	require.Equal(t, factory.EventPlatformFeeChanged, r.Events[0].Name)
	require.Equal(t, "3", r.Events[0].Args["fee"])
	require.Equal(t, uint64(3), c.Platform().FeePercent)
}

func TestChain_EscrowScenario(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, chainConfig("depositors", 2))
	c := e.chain
	address := e.createCampaign(t, ether(10), false)

	for _, p := range []crowdfund.Principal{alice, bob, carol} {
		_, err := c.Deposit(ctx, Call{From: p, Value: ether(4)}, address)
		require.NoError(t, err)
	}
	ok, err := c.IsApprover(address, carol)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = c.RequestReleaseFunds(ctx, Call{From: creator}, address)
	require.NoError(t, err)
	s, err := c.Escrow(address)
	require.NoError(t, err)
	require.Equal(t, escrow.StatusPendingRelease, s.Status)

	_, err = c.ApproveReleaseFunds(ctx, Call{From: alice}, address)
	require.NoError(t, err)
	_, err = c.ReleaseFunds(ctx, Call{From: creator}, address)
	require.True(t, crowdfund.Is(err, crowdfund.ErrQuorumNotMet))

	_, err = c.ApproveReleaseFunds(ctx, Call{From: bob}, address)
	require.NoError(t, err)
	_, err = c.ReleaseFunds(ctx, Call{From: creator}, address)
	require.NoError(t, err)
	s, err = c.Escrow(address)
	require.NoError(t, err)
	require.Equal(t, escrow.StatusReleased, s.Status)

	_, err = c.ReleaseFunds(ctx, Call{From: creator}, address)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidStatus))

	// 12 ether less 5%
	want := new(big.Int).Sub(ether(12), new(big.Int).Quo(ether(12), big.NewInt(20)))
	require.Equal(t, want.String(), c.BalanceOf(creator).String())
}

func TestChain_RefundRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, chainConfig("allowlist", 1))
	c := e.chain
	address := e.createCampaign(t, ether(10), false)

	_, err := c.Deposit(ctx, Call{From: alice, Value: ether(3)}, address)
	require.NoError(t, err)
	_, err = c.AddApprover(ctx, Call{From: creator}, address, carol)
	require.NoError(t, err)

	e.clock.Set(t0.Add(48 * time.Hour))
	_, err = c.EnableRefunds(ctx, Call{From: carol}, address)
	require.NoError(t, err)

	_, err = c.ClaimRefund(ctx, Call{From: alice}, address)
	require.NoError(t, err)
	require.Equal(t, ether(100).String(), c.BalanceOf(alice).String())
	_, err = c.ClaimRefund(ctx, Call{From: alice}, address)
	require.Equal(t, crowdfund.ErrAlreadyClaimed, err)
	require.Equal(t, ether(100).String(), c.BalanceOf(alice).String())

	d, err := c.DepositOf(address, alice)
	require.NoError(t, err)
	require.Equal(t, ether(3).String(), d.String())
}

func TestChain_Requests(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, chainConfig("depositors", 1))
	c := e.chain
	address := e.createCampaign(t, ether(10), false)

	_, err := c.Contribute(ctx, Call{From: alice, Value: ether(5)}, address)
	require.NoError(t, err)
	_, err = c.CreateRequest(ctx, Call{From: creator}, address, "seeds", ether(2), carol)
	require.NoError(t, err)
	_, err = c.ApproveRequest(ctx, Call{From: alice}, address, 0)
	require.NoError(t, err)
	_, err = c.FinalizeRequest(ctx, Call{From: creator}, address, 0)
	require.NoError(t, err)
	_, err = c.FinalizeRequest(ctx, Call{From: creator}, address, 0)
	require.True(t, crowdfund.Is(err, crowdfund.ErrAlreadyComplete))
	require.Equal(t, ether(102).String(), c.BalanceOf(carol).String())
}

func TestChain_RejectedCalls(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, chainConfig("depositors", 1))
	c := e.chain
	address := e.createCampaign(t, ether(10), false)

	t.Run("value on a non-payable method", func(t *testing.T) {
		r, err := c.VoteForRelease(ctx, Call{From: alice, Value: big.NewInt(1)}, address)
		require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidParameter))
		require.Equal(t, crowdfund.TxStatusFailed, r.Status)
		require.Empty(t, r.Events)
	})

	t.Run("unknown campaign", func(t *testing.T) {
		_, err := c.Contribute(ctx, Call{From: alice, Value: big.NewInt(1)}, bob)
		require.True(t, crowdfund.Is(err, crowdfund.ErrNotFound))
		_, err = c.Deposit(ctx, Call{From: alice, Value: big.NewInt(1)}, bob)
		require.True(t, crowdfund.Is(err, crowdfund.ErrNotFound))
	})

	t.Run("bad create params", func(t *testing.T) {
		r, err := c.CreateCampaign(ctx, Call{From: creator}, campaign.Params{Goal: big.NewInt(0), Deadline: t0.Add(time.Hour)})
		require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidParameter))
		_, ok := CreatedCampaign(r)
		require.False(t, ok)
		_, err = c.CreateCampaign(ctx, Call{From: creator}, campaign.Params{Deadline: t0.Add(time.Hour)})
		require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidParameter))
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := c.execute(crowdfund.Tx{From: alice}, "selfdestruct", address, nil)
		require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidParameter))
	})

	// failed receipts are journaled but never published
	require.Equal(t, 6, e.journal.Len())
	require.Equal(t, []string{factory.EventCampaignCreated, escrow.EventEscrowRegistered}, e.publisher.Names())
	require.Equal(t, float64(5), testutil.ToFloat64(e.chain.metrics.Failures))
	require.Equal(t, float64(6), testutil.ToFloat64(e.chain.metrics.Transactions))
	require.Equal(t, float64(1), testutil.ToFloat64(e.chain.metrics.BlockHeight))
}

// flakyJournal fails the next append or finalize once when told to.
type flakyJournal struct {
	*journal.MemoryJournal
	failAppend   bool
	failFinalize bool
}

func (j *flakyJournal) Append(ctx context.Context, r *crowdfund.Receipt) error {
	if j.failAppend {
		j.failAppend = false
		return errors.New("disk full")
	}
	return j.MemoryJournal.Append(ctx, r)
}

func (j *flakyJournal) Finalize(ctx context.Context, r *crowdfund.Receipt) error {
	if j.failFinalize {
		j.failFinalize = false
		return errors.New("disk full")
	}
	return j.MemoryJournal.Finalize(ctx, r)
}

func TestChain_JournalAppendFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	obs := observability.Make(configuration.Default())
	obs.Log().SetOutput(io.Discard)
	j := &flakyJournal{MemoryJournal: journal.NewMemoryJournal()}
	publisher := events.NewMemoryPublisher()
	c, err := New(chainConfig("depositors", 1), &testClock{now: t0}, obs, j, publisher)
	require.NoError(t, err)

	j.failAppend = true
	r, err := c.SetPlatformFee(ctx, Call{From: owner}, 2)
	require.Error(t, err)
	require.Nil(t, r)
	require.Equal(t, uint64(5), c.Platform().FeePercent)
	require.Equal(t, uint64(0), c.Platform().Height)
	require.Equal(t, 0, j.Len())
	require.Empty(t, publisher.Names())
	require.Equal(t, float64(1), testutil.ToFloat64(c.metrics.JournalErrors))
	require.Equal(t, float64(0), testutil.ToFloat64(c.metrics.Transactions))

	_, err = c.SetPlatformFee(ctx, Call{From: owner}, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), c.Platform().FeePercent)
}

func TestChain_RestartAfterFinalizeFailure(t *testing.T) {
	ctx := context.Background()
	obs := observability.Make(configuration.Default())
	obs.Log().SetOutput(io.Discard)
	j := &flakyJournal{MemoryJournal: journal.NewMemoryJournal()}
	c, err := New(chainConfig("depositors", 1), &testClock{now: t0}, obs, j, events.NewMemoryPublisher())
	require.NoError(t, err)

	_, err = c.SetPlatformFee(ctx, Call{From: owner}, 1)
	require.NoError(t, err)

	j.failFinalize = true
	r, err := c.SetPlatformFee(ctx, Call{From: owner}, 2)
	require.NoError(t, err)
	require.True(t, r.Succeeded())
	require.Equal(t, uint64(2), r.Block)
	require.Equal(t, float64(1), testutil.ToFloat64(c.metrics.JournalErrors))

	stored, err := j.Receipt(ctx, r.TxID)
	require.NoError(t, err)
	require.Equal(t, crowdfund.TxStatusPending, stored.Status)

	_, err = c.SetPlatformFee(ctx, Call{From: owner}, 3)
	require.NoError(t, err)
	_, err = c.SetPlatformFee(ctx, Call{From: alice}, 4)
	require.True(t, crowdfund.Is(err, crowdfund.ErrUnauthorized))

	publisher := events.NewMemoryPublisher()
	restored, err := New(chainConfig("depositors", 1), &testClock{now: t0}, obs, j, publisher)
	require.NoError(t, err)
	n, err := restored.Restore(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, c.Platform(), restored.Platform())
	require.Equal(t, []string{factory.EventPlatformFeeChanged}, publisher.Names())

	stored, err = j.Receipt(ctx, r.TxID)
	require.NoError(t, err)
	require.True(t, stored.Succeeded())
	require.Equal(t, r.Block, stored.Block)
	require.Equal(t, r.Events, stored.Events)

	// a second restart finds nothing left to repair
	again, err := New(chainConfig("depositors", 1), &testClock{now: t0}, obs, j, events.NewMemoryPublisher())
	require.NoError(t, err)
	_, err = again.Restore(ctx)
	require.NoError(t, err)
	require.Equal(t, c.Platform(), again.Platform())
}

func TestChain_CancelledContextStillJournals(t *testing.T) {
	e := newEnv(t, chainConfig("depositors", 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := e.chain.SetPlatformFee(ctx, Call{From: owner}, 2)
	require.NoError(t, err)
	stored, err := e.journal.Receipt(context.Background(), r.TxID)
	require.NoError(t, err)
	require.True(t, stored.Succeeded())
}

func TestChain_ClientTxID(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, chainConfig("depositors", 1))
	c := e.chain
	address := e.createCampaign(t, ether(10), false)

	id := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	r, err := c.Contribute(ctx, Call{ID: id, From: alice, Value: ether(1)}, address)
	require.NoError(t, err)
	require.Equal(t, id, r.TxID)

	for _, again := range []string{id, strings.ToUpper(id), "{" + id + "}"} {
		r, err = c.Contribute(ctx, Call{ID: again, From: alice, Value: ether(1)}, address)
		require.True(t, crowdfund.Is(err, crowdfund.ErrDuplicateTx), again)
		require.Nil(t, r)
	}
	require.Equal(t, ether(99).String(), c.BalanceOf(alice).String())

	_, err = c.Contribute(ctx, Call{ID: "not-a-uuid", From: alice, Value: ether(1)}, address)
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidParameter))

	// a rejected call burns its ID too
	failed := "6ba7b811-9dad-11d1-80b4-00c04fd430c8"
	_, err = c.Contribute(ctx, Call{ID: failed, From: alice, Value: ether(1000)}, bob)
	require.Error(t, err)
	_, err = c.Contribute(ctx, Call{ID: failed, From: alice, Value: ether(1)}, address)
	require.True(t, crowdfund.Is(err, crowdfund.ErrDuplicateTx))
}

func TestChain_FarDeadline(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, chainConfig("depositors", 1))
	deadline := time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)

	r, err := e.chain.CreateCampaign(ctx, Call{From: creator}, campaign.Params{
		Goal:     ether(1),
		Deadline: deadline,
		Title:    "Generation ship",
	})
	require.NoError(t, err)
	address, ok := CreatedCampaign(r)
	require.True(t, ok)

	got, err := e.chain.Campaign(address)
	require.NoError(t, err)
	require.True(t, deadline.Equal(got.Deadline()))
	require.Equal(t, campaign.StateActive, got.State(e.clock.Now()))

	restored, err := New(chainConfig("depositors", 1), &testClock{now: t0}, e.obs, e.journal, events.NewMemoryPublisher())
	require.NoError(t, err)
	_, err = restored.Restore(ctx)
	require.NoError(t, err)
	got, err = restored.Campaign(address)
	require.NoError(t, err)
	require.True(t, deadline.Equal(got.Deadline()))
}

// workload runs a mixed set of calls, partly concurrent, and returns the
// created campaigns.
func workload(t *testing.T, e *env) []crowdfund.Principal {
	ctx := context.Background()
	c := e.chain

	var campaigns []crowdfund.Principal
	for i := 0; i < 3; i++ {
		campaigns = append(campaigns, e.createCampaign(t, big.NewInt(100), i == 2))
	}

	var wg sync.WaitGroup
	for _, address := range campaigns {
		for _, p := range []crowdfund.Principal{alice, bob, carol} {
			wg.Add(1)
			go func(address, p crowdfund.Principal) {
				defer wg.Done()
				for i := 0; i < 5; i++ {
					_, _ = c.Contribute(ctx, Call{From: p, Value: big.NewInt(int64(i + 1))}, address)
					_, _ = c.Deposit(ctx, Call{From: p, Value: big.NewInt(int64(10 * (i + 1)))}, address)
				}
				_, _ = c.VoteForRelease(ctx, Call{From: p}, address)
			}(address, p)
		}
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for fee := uint64(0); fee <= 10; fee++ {
			_, err := c.SetPlatformFee(ctx, Call{From: owner}, fee)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	_, err := c.CreateRequest(ctx, Call{From: creator}, campaigns[0], "tools", big.NewInt(20), carol)
	require.NoError(t, err)
	_, err = c.ApproveRequest(ctx, Call{From: alice}, campaigns[0], 0)
	require.NoError(t, err)
	_, err = c.ApproveRequest(ctx, Call{From: bob}, campaigns[0], 0)
	require.NoError(t, err)
	_, err = c.FinalizeRequest(ctx, Call{From: creator}, campaigns[0], 0)
	require.NoError(t, err)

	_, err = c.RequestReleaseFunds(ctx, Call{From: creator}, campaigns[1])
	require.NoError(t, err)
	_, err = c.ApproveReleaseFunds(ctx, Call{From: bob}, campaigns[1])
	require.NoError(t, err)
	_, err = c.ReleaseFunds(ctx, Call{From: creator}, campaigns[1])
	require.NoError(t, err)

	e.clock.Set(t0.Add(30 * time.Hour))
	_, err = c.WithdrawFunds(ctx, Call{From: creator}, campaigns[2])
	require.NoError(t, err)
	_, err = c.EnableRefunds(ctx, Call{From: alice}, campaigns[0])
	require.True(t, crowdfund.Is(err, crowdfund.ErrInvalidStatus), "escrow of campaign 0 reached its goal")
	return campaigns
}

func TestChain_RestoreReproducesState(t *testing.T) {
	ctx := context.Background()
	live := newEnv(t, chainConfig("depositors", 1))
	campaigns := workload(t, live)

	obs := observability.Make(configuration.Default())
	obs.Log().SetOutput(io.Discard)
	restored, err := New(chainConfig("depositors", 1), &testClock{now: t0}, obs, live.journal, events.NewMemoryPublisher())
	require.NoError(t, err)
	n, err := restored.Restore(ctx)
	require.NoError(t, err)

	require.Equal(t, live.journal.Len(), n)

	require.Equal(t, live.chain.Platform(), restored.Platform())
	for _, p := range []crowdfund.Principal{owner, creator, alice, bob, carol, live.chain.escrow.Address()} {
		require.Equal(t, live.chain.BalanceOf(p).String(), restored.BalanceOf(p).String(), p.Hex())
	}
	require.Equal(t, live.chain.AllCampaigns(), restored.AllCampaigns())
	for _, address := range campaigns {
		require.Equal(t, live.chain.BalanceOf(address).String(), restored.BalanceOf(address).String())

		a, err := live.chain.Campaign(address)
		require.NoError(t, err)
		b, err := restored.Campaign(address)
		require.NoError(t, err)
		require.Equal(t, a.CurrentAmount().String(), b.CurrentAmount().String())
		require.Equal(t, a.ContributorsCount(), b.ContributorsCount())
		require.Equal(t, a.Votes(), b.Votes())
		require.Equal(t, a.Withdrawn(), b.Withdrawn())
		require.Equal(t, a.Requests(), b.Requests())

		ea, err := live.chain.Escrow(address)
		require.NoError(t, err)
		eb, err := restored.Escrow(address)
		require.NoError(t, err)
		require.Equal(t, ea.Status, eb.Status)
		require.Equal(t, ea.TotalDeposited.String(), eb.TotalDeposited.String())
		require.Equal(t, ea.Approvers, eb.Approvers)
	}
}

func TestChain_RestoreDetectsDivergence(t *testing.T) {
	ctx := context.Background()
	live := newEnv(t, chainConfig("depositors", 1))
	first, err := live.chain.SetPlatformFee(ctx, Call{From: owner}, 1)
	require.NoError(t, err)
	second, err := live.chain.SetPlatformFee(ctx, Call{From: owner}, 2)
	require.NoError(t, err)
	rejected, err := live.chain.SetPlatformFee(ctx, Call{From: alice}, 3)
	require.Error(t, err)

	obs := observability.Make(configuration.Default())
	obs.Log().SetOutput(io.Discard)
	restore := func(receipts ...*crowdfund.Receipt) error {
		j := journal.NewMemoryJournal()
		for _, r := range receipts {
			require.NoError(t, j.Append(ctx, r))
		}
		c, err := New(chainConfig("depositors", 1), &testClock{now: t0}, obs, j, events.NewMemoryPublisher())
		require.NoError(t, err)
		_, err = c.Restore(ctx)
		return err
	}

	require.NoError(t, restore(first, second, rejected))

	err = restore(second)
	require.Error(t, err)
	require.Contains(t, err.Error(), "instead of 2")

	forged := rejected.Clone()
	forged.Status = crowdfund.TxStatusSuccess
	forged.Block = 3
	err = restore(first, second, forged)
	require.Error(t, err)
	require.Contains(t, err.Error(), "recorded as successful")

	flipped := first.Clone()
	flipped.Status = crowdfund.TxStatusFailed
	err = restore(flipped)
	require.Error(t, err)
	require.Contains(t, err.Error(), "recorded as failed")
}
