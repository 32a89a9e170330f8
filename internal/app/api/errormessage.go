// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package api

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/journal"
)

type ErrorMessage struct {
	Error []string `json:"error"`
}

func NewSingleMessageError(err string) ErrorMessage {
	return ErrorMessage{Error: []string{err}}
}

// httpStatus maps a rejection reason to the response code.
func httpStatus(err error) int {
	switch errors.Cause(err) {
	case crowdfund.ErrInvalidParameter, crowdfund.ErrOutOfRange:
		return http.StatusBadRequest
	case errBadSignature:
		return http.StatusUnauthorized
	case crowdfund.ErrUnauthorized, crowdfund.ErrNotContributor:
		return http.StatusForbidden
	case crowdfund.ErrNotFound, journal.ErrNotFound:
		return http.StatusNotFound
	case crowdfund.ErrInsufficientFunds:
		return http.StatusPaymentRequired
	case crowdfund.ErrInvalidStatus,
		crowdfund.ErrCampaignNotActive,
		crowdfund.ErrAlreadyApproved,
		crowdfund.ErrAlreadyComplete,
		crowdfund.ErrAlreadyClaimed,
		crowdfund.ErrQuorumNotMet,
		crowdfund.ErrGoalNotMet,
		crowdfund.ErrDuplicateTx:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
