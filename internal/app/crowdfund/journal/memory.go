// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package journal

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
)

// MemoryJournal stores copies of the receipts it is given and hands out copies.
type MemoryJournal struct {
	mu       sync.RWMutex
	receipts []*crowdfund.Receipt
	byID     map[string]*crowdfund.Receipt
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		byID: make(map[string]*crowdfund.Receipt),
	}
}

func (j *MemoryJournal) Append(_ context.Context, receipt *crowdfund.Receipt) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.byID[receipt.TxID]; ok {
		return errors.Wrapf(ErrDuplicate, "tx %s", receipt.TxID)
	}
	r := receipt.Clone()
	j.receipts = append(j.receipts, r)
	j.byID[r.TxID] = r
	return nil
}

func (j *MemoryJournal) Finalize(_ context.Context, receipt *crowdfund.Receipt) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	r, ok := j.byID[receipt.TxID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "tx %s", receipt.TxID)
	}
	final := receipt.Clone()
	r.Block = final.Block
	r.Status = final.Status
	r.Error = final.Error
	r.Events = final.Events
	return nil
}

func (j *MemoryJournal) Receipt(_ context.Context, txID string) (*crowdfund.Receipt, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	r, ok := j.byID[txID]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (j *MemoryJournal) All(_ context.Context) ([]*crowdfund.Receipt, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	res := make([]*crowdfund.Receipt, 0, len(j.receipts))
	for _, r := range j.receipts {
		res = append(res, r.Clone())
	}
	return res, nil
}

// Len counts all receipts, failed and pending ones included.
func (j *MemoryJournal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.receipts)
}
