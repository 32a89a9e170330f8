// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

// Package journal keeps the append-only log of transaction receipts the
// contract state is rebuilt from.
package journal

import (
	"context"

	"github.com/pkg/errors"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
)

var (
	ErrNotFound  = errors.New("receipt not found")
	ErrDuplicate = errors.New("receipt already recorded")
)

// Journal is a write-ahead log of calls. A call is appended as pending before
// it touches any state and finalized with its outcome afterwards.
type Journal interface {
	Append(ctx context.Context, receipt *crowdfund.Receipt) error
	// Finalize overwrites the block, status, error and events of an
	// appended receipt.
	Finalize(ctx context.Context, receipt *crowdfund.Receipt) error
	Receipt(ctx context.Context, txID string) (*crowdfund.Receipt, error)
	// All returns every receipt in append order.
	All(ctx context.Context) ([]*crowdfund.Receipt, error)
}

// Replay feeds every receipt to apply in append order and returns how many
// were applied.
func Replay(ctx context.Context, j Journal, apply func(*crowdfund.Receipt) error) (int, error) {
	receipts, err := j.All(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read journal")
	}
	for i, r := range receipts {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := apply(r); err != nil {
			return i, errors.Wrapf(err, "failed to replay tx %s (block %d)", r.TxID, r.Block)
		}
	}
	return len(receipts), nil
}
