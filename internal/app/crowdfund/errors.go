// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package crowdfund

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrCampaignNotActive = errors.New("campaign is not active")
	ErrNotContributor    = errors.New("not a contributor")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyApproved   = errors.New("already approved")
	ErrAlreadyComplete   = errors.New("already complete")
	ErrAlreadyClaimed    = errors.New("already claimed")
	ErrQuorumNotMet      = errors.New("quorum not met")
	ErrGoalNotMet        = errors.New("goal not met")
	ErrOutOfRange        = errors.New("out of range")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateTx       = errors.New("transaction already submitted")
)

// Is reports whether err was caused by target.
func Is(err, target error) bool {
	return err != nil && errors.Cause(err) == target
}
