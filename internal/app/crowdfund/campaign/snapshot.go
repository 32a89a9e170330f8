// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package campaign

import (
	"math/big"
	"time"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
)

// Snapshot is a consistent copy of one campaign.
type Snapshot struct {
	Index             uint64
	Address           crowdfund.Principal
	Creator           crowdfund.Principal
	Params            Params
	State             State
	CurrentAmount     *big.Int
	ContributorsCount int
	Votes             int
	Withdrawn         bool
	Balance           *big.Int
	Requests          []Request
}

// Snapshot copies the campaign under a single read lock. State is derived
// from now.
func (c *Campaign) Snapshot(now time.Time) Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	params := c.params
	params.Goal = crowdfund.Copy(c.params.Goal)
	requests := make([]Request, 0, len(c.requests))
	for i, r := range c.requests {
		requests = append(requests, r.view(i))
	}
	return Snapshot{
		Index:             c.index,
		Address:           c.address,
		Creator:           c.creator,
		Params:            params,
		State:             c.state(now),
		CurrentAmount:     crowdfund.Copy(c.currentAmount),
		ContributorsCount: c.contributors.Len(),
		Votes:             c.votes.Len(),
		Withdrawn:         c.withdrawn,
		Balance:           c.bank.BalanceOf(c.address),
		Requests:          requests,
	}
}
