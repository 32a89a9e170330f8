// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

// Package chain executes calls against the factory, campaign and escrow
// contracts. Every call becomes a transaction with a receipt. Calls are
// journaled before they run and replayed on start.
package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfunding/configuration"
	"github.com/insolar/crowdfunding/internal/app/crowdfund"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/escrow"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/events"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/factory"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/journal"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/ledger"
	"github.com/insolar/crowdfunding/observability"
)

// Call carries the caller and the value attached to a call. ID is an optional
// client chosen uuid; a call reusing the ID of a journaled one is rejected.
type Call struct {
	ID    string
	From  crowdfund.Principal
	Value *big.Int
}

type Chain struct {
	// mu serializes submissions and restore
	mu sync.Mutex

	clock     crowdfund.Clock
	log       *logrus.Logger
	metrics   *observability.ChainMetrics
	journal   journal.Journal
	publisher events.Publisher

	ledger            *ledger.Ledger
	factory           *factory.Factory
	escrow            *escrow.Manager
	requiredApprovals int
}

func New(
	cfg configuration.Chain,
	clock crowdfund.Clock,
	obs *observability.Observability,
	j journal.Journal,
	publisher events.Publisher,
) (*Chain, error) {
	policy, err := escrow.ParsePolicy(cfg.ApproverPolicy)
	if err != nil {
		return nil, err
	}
	if cfg.RequiredApprovals < 1 {
		return nil, errors.Wrap(crowdfund.ErrInvalidParameter, "required approvals must be >= 1")
	}

	l := ledger.New()
	for account, amount := range cfg.Genesis {
		to, err := crowdfund.ParsePrincipal(account)
		if err != nil {
			return nil, errors.Wrap(err, "bad genesis account")
		}
		if err := l.Mint(to, amount); err != nil {
			return nil, errors.Wrapf(err, "failed to mint genesis balance of %s", account)
		}
	}

	f, err := factory.New(cfg.FactoryAddress, cfg.Owner, cfg.PlatformFee, l)
	if err != nil {
		return nil, err
	}

	return &Chain{
		clock:             clock,
		log:               obs.Log(),
		metrics:           observability.MakeChainMetrics(obs),
		journal:           j,
		publisher:         publisher,
		ledger:            l,
		factory:           f,
		escrow:            escrow.NewManager(cfg.EscrowAddress, l, f, f, policy),
		requiredApprovals: cfg.RequiredApprovals,
	}, nil
}

// Restore rebuilds contract state from the journal. It must run before the
// chain accepts calls.
func (c *Chain) Restore(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := journal.Replay(ctx, c.journal, func(r *crowdfund.Receipt) error {
		return c.replay(ctx, r)
	})
	if err != nil {
		return n, err
	}
	c.metrics.BlockHeight.Set(float64(c.ledger.Height()))
	return n, nil
}

// replay re-executes a journaled call and checks it ends the way it was
// recorded. A pending call never got its outcome stored, so it is finalized
// here.
func (c *Chain) replay(ctx context.Context, r *crowdfund.Receipt) error {
	tx := crowdfund.Tx{
		ID:    r.TxID,
		From:  r.From,
		Value: crowdfund.Copy(r.Value),
		Time:  r.Timestamp,
	}
	out, err := c.execute(tx, r.Method, r.To, r.Args)
	switch r.Status {
	case crowdfund.TxStatusSuccess:
		if err != nil {
			return errors.Wrap(err, "recorded as successful")
		}
		if out.Block != r.Block {
			return errors.Errorf("replayed into block %d instead of %d", out.Block, r.Block)
		}
	case crowdfund.TxStatusFailed:
		if err == nil {
			return errors.Errorf("recorded as failed, replayed into block %d", out.Block)
		}
	case crowdfund.TxStatusPending:
		settle(r, out, err)
		if ferr := c.journal.Finalize(ctx, r); ferr != nil {
			return errors.Wrap(ferr, "failed to finalize pending tx")
		}
		c.log.WithFields(logrus.Fields{
			"tx":     r.TxID,
			"status": r.Status,
		}).Warn("Finalized pending tx")
		if r.Succeeded() {
			if perr := c.publisher.Publish(ctx, r); perr != nil {
				c.log.WithError(perr).Error("failed to publish events")
			}
		}
	default:
		return errors.Errorf("unknown status %q", r.Status)
	}
	return nil
}

func settle(receipt *crowdfund.Receipt, out crowdfund.Outcome, err error) {
	if err != nil {
		receipt.Status = crowdfund.TxStatusFailed
		receipt.Error = err.Error()
		return
	}
	receipt.Status = crowdfund.TxStatusSuccess
	receipt.Block = out.Block
	receipt.Events = out.Events
}

// txID returns the normalized client ID of a call or a fresh one.
func (c *Chain) txID(ctx context.Context, id string) (string, error) {
	if id == "" {
		return uuid.New().String(), nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", errors.Wrapf(crowdfund.ErrInvalidParameter, "tx id %q is not a uuid", id)
	}
	id = parsed.String()
	_, err = c.journal.Receipt(ctx, id)
	switch {
	case err == nil:
		return "", errors.Wrapf(crowdfund.ErrDuplicateTx, "tx %s", id)
	case errors.Cause(err) == journal.ErrNotFound:
		return id, nil
	}
	return "", errors.Wrap(err, "failed to look up tx")
}

// submit executes one call and records its receipt. The returned error is the
// rejection reason of a failed call. A call that could not be journaled is
// not executed and yields no receipt.
func (c *Chain) submit(ctx context.Context, method string, to crowdfund.Principal, call Call, args map[string]string) (*crowdfund.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// the journal must see both writes even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	id, err := c.txID(ctx, call.ID)
	if err != nil {
		return nil, err
	}
	tx := crowdfund.Tx{
		ID:    id,
		From:  call.From,
		Value: crowdfund.Copy(call.Value),
		Time:  c.clock.Now().UTC(),
	}
	receipt := &crowdfund.Receipt{
		TxID:      tx.ID,
		Method:    method,
		From:      tx.From,
		To:        to,
		Value:     tx.Value,
		Args:      args,
		Status:    crowdfund.TxStatusPending,
		Timestamp: tx.Time,
	}
	log := c.log.WithFields(logrus.Fields{
		"tx":     tx.ID,
		"method": method,
		"from":   tx.From.Hex(),
	})

	if jerr := c.journal.Append(ctx, receipt); jerr != nil {
		c.metrics.JournalErrors.Inc()
		log.WithError(jerr).Error("failed to journal call")
		return nil, errors.Wrap(jerr, "failed to journal call")
	}

	c.metrics.Transactions.Inc()
	out, err := c.execute(tx, method, to, args)
	settle(receipt, out, err)
	if err != nil {
		c.metrics.Failures.Inc()
		log.WithError(err).Debug("call rejected")
	} else {
		c.metrics.BlockHeight.Set(float64(c.ledger.Height()))
		log.WithField("block", out.Block).Debug("call executed")
	}

	// a pending entry left behind is finalized by the next restore
	if jerr := c.journal.Finalize(ctx, receipt); jerr != nil {
		c.metrics.JournalErrors.Inc()
		log.WithError(jerr).Error("failed to finalize receipt")
	}
	if receipt.Succeeded() {
		if perr := c.publisher.Publish(ctx, receipt); perr != nil {
			log.WithError(perr).Error("failed to publish events")
		}
	}
	return receipt, err
}

func (c *Chain) Now() time.Time {
	return c.clock.Now()
}
