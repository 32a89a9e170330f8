// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

// Package ledger keeps account balances and seals blocks. Every committed
// set of transfers becomes exactly one block.
package ledger

import (
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
)

type Ledger struct {
	mu       sync.Mutex
	balances map[crowdfund.Principal]*big.Int
	height   uint64
}

func New() *Ledger {
	return &Ledger{balances: make(map[crowdfund.Principal]*big.Int)}
}

// Mint credits genesis funds. It does not seal a block.
func (l *Ledger) Mint(to crowdfund.Principal, amount *big.Int) error {
	if !crowdfund.IsPositive(amount) {
		return errors.Wrap(crowdfund.ErrInvalidParameter, "mint amount must be > 0")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(to, amount)
	return nil
}

func (l *Ledger) BalanceOf(account crowdfund.Principal) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return crowdfund.Copy(l.balances[account])
}

func (l *Ledger) Height() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

// Commit applies the transfers in order or none of them.
func (l *Ledger) Commit(transfers ...crowdfund.Transfer) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	staged := make(map[crowdfund.Principal]*big.Int)
	balance := func(p crowdfund.Principal) *big.Int {
		b, ok := staged[p]
		if !ok {
			b = crowdfund.Copy(l.balances[p])
			staged[p] = b
		}
		return b
	}
	for _, t := range transfers {
		if t.Amount == nil || t.Amount.Sign() == 0 {
			continue
		}
		if t.Amount.Sign() < 0 {
			return 0, errors.Wrapf(crowdfund.ErrInvalidParameter, "negative transfer %s", t.Amount)
		}
		from := balance(t.From)
		if from.Cmp(t.Amount) < 0 {
			return 0, errors.Wrapf(crowdfund.ErrInsufficientFunds, "account %s has %s, needs %s", t.From.Hex(), from, t.Amount)
		}
		from.Sub(from, t.Amount)
		to := balance(t.To)
		to.Add(to, t.Amount)
	}

	for p, b := range staged {
		l.balances[p] = b
	}
	l.height++
	return l.height, nil
}

func (l *Ledger) credit(to crowdfund.Principal, amount *big.Int) {
	b, ok := l.balances[to]
	if !ok {
		b = new(big.Int)
		l.balances[to] = b
	}
	b.Add(b, amount)
}
