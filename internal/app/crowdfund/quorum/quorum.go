// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

// Package quorum contains the counting primitives used by both voting
// mechanisms. Callers own the locking.
package quorum

import (
	"bytes"
	"sort"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
)

// ApprovalSet is a set of distinct principals.
type ApprovalSet struct {
	members map[crowdfund.Principal]struct{}
}

func NewApprovalSet() *ApprovalSet {
	return &ApprovalSet{members: make(map[crowdfund.Principal]struct{})}
}

func (s *ApprovalSet) Has(p crowdfund.Principal) bool {
	_, ok := s.members[p]
	return ok
}

// Add returns false when p is already a member.
func (s *ApprovalSet) Add(p crowdfund.Principal) bool {
	if s.Has(p) {
		return false
	}
	s.members[p] = struct{}{}
	return true
}

func (s *ApprovalSet) Len() int {
	return len(s.members)
}

// Members are sorted by address.
func (s *ApprovalSet) Members() []crowdfund.Principal {
	res := make([]crowdfund.Principal, 0, len(s.members))
	for p := range s.members {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool {
		return bytes.Compare(res[i].Bytes(), res[j].Bytes()) < 0
	})
	return res
}

// Majority holds when at least one approval was cast and approvals make up at
// least half of the electorate.
func Majority(approvals, electorate int) bool {
	return approvals > 0 && approvals*2 >= electorate
}

// Threshold holds once approvals reach a positive required count.
func Threshold(approvals, required int) bool {
	return required > 0 && approvals >= required
}
