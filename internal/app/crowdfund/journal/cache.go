// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package journal

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
)

// CacheJournal keeps recently written and read receipts in memory.
type CacheJournal struct {
	backend Journal
	cache   *lru.Cache
}

func NewCacheJournal(backend Journal, size int) (*CacheJournal, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init cache")
	}
	return &CacheJournal{
		backend: backend,
		cache:   cache,
	}, nil
}

func (c *CacheJournal) Append(ctx context.Context, receipt *crowdfund.Receipt) error {
	err := c.backend.Append(ctx, receipt)
	if err != nil {
		return err
	}
	c.cache.Add(receipt.TxID, receipt.Clone())
	return nil
}

func (c *CacheJournal) Finalize(ctx context.Context, receipt *crowdfund.Receipt) error {
	err := c.backend.Finalize(ctx, receipt)
	if err != nil {
		return err
	}
	c.cache.Add(receipt.TxID, receipt.Clone())
	return nil
}

func (c *CacheJournal) Receipt(ctx context.Context, txID string) (*crowdfund.Receipt, error) {
	if val, ok := c.cache.Get(txID); ok {
		if r, ok := val.(*crowdfund.Receipt); ok {
			return r.Clone(), nil
		}
	}
	r, err := c.backend.Receipt(ctx, txID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(txID, r.Clone())
	return r, nil
}

func (c *CacheJournal) All(ctx context.Context) ([]*crowdfund.Receipt, error) {
	return c.backend.All(ctx)
}
