// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package campaign

import (
	"math/big"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
)

// Request is a read-only copy of a withdrawal request.
type Request struct {
	Index         int
	Description   string
	Amount        *big.Int
	Recipient     crowdfund.Principal
	ApprovalCount int
	Approvers     []crowdfund.Principal
	Complete      bool
}

func (c *Campaign) RequestCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.requests)
}

func (c *Campaign) Request(index int) (Request, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, err := c.request(index)
	if err != nil {
		return Request{}, err
	}
	return r.view(index), nil
}

func (c *Campaign) Requests() []Request {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := make([]Request, 0, len(c.requests))
	for i, r := range c.requests {
		res = append(res, r.view(i))
	}
	return res
}

func (r *request) view(index int) Request {
	return Request{
		Index:         index,
		Description:   r.description,
		Amount:        crowdfund.Copy(r.amount),
		Recipient:     r.recipient,
		ApprovalCount: r.approvers.Len(),
		Approvers:     r.approvers.Members(),
		Complete:      r.complete,
	}
}
