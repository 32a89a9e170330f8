// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/campaign"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/chain"
)

const (
	HeaderDigest    = "Digest"
	HeaderSignature = "Signature"
)

type CrowdfundingServer struct {
	chain             *chain.Chain
	log               *logrus.Logger
	requireSignatures bool
}

func NewCrowdfundingServer(c *chain.Chain, log *logrus.Logger, requireSignatures bool) *CrowdfundingServer {
	return &CrowdfundingServer{chain: c, log: log, requireSignatures: requireSignatures}
}

// decode reads the body into dst and authenticates the caller it names. A
// signed request must carry a txID so it cannot be submitted twice.
func (s *CrowdfundingServer) decode(ctx echo.Context, dst caller) (chain.Call, error) {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return chain.Call{}, errors.Wrap(crowdfund.ErrInvalidParameter, "failed to read request body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return chain.Call{}, errors.Wrapf(crowdfund.ErrInvalidParameter, "failed to decode request body: %s", err)
	}
	call, err := dst.toCall()
	if err != nil {
		return chain.Call{}, err
	}
	if s.requireSignatures {
		req := ctx.Request()
		err := verifyCaller(req.Method, req.URL.Path, req.Header.Get(HeaderDigest), req.Header.Get(HeaderSignature), body, call.From)
		if err != nil {
			return chain.Call{}, err
		}
		if call.ID == "" {
			return chain.Call{}, errors.Wrap(crowdfund.ErrInvalidParameter, "txID is required for signed requests")
		}
	}
	return call, nil
}

func (s *CrowdfundingServer) fail(ctx echo.Context, err error) error {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	} else {
		s.log.WithError(err).Debug("bad request")
	}
	return ctx.JSON(status, NewSingleMessageError(err.Error()))
}

func (s *CrowdfundingServer) respond(ctx echo.Context, receipt *crowdfund.Receipt, err error) error {
	if err != nil {
		return ctx.JSON(httpStatus(err), ErrorResponse{
			ErrorMessage: NewSingleMessageError(err.Error()),
			Receipt:      ReceiptToAPI(receipt),
		})
	}
	return ctx.JSON(http.StatusOK, ReceiptToAPI(receipt))
}

// submit decodes the call and runs fn against the target contract.
func (s *CrowdfundingServer) submit(
	ctx echo.Context,
	address string,
	fn func(call chain.Call, target crowdfund.Principal) (*crowdfund.Receipt, error),
) error {
	target, err := crowdfund.ParsePrincipal(address)
	if err != nil {
		return s.fail(ctx, err)
	}
	var req CallRequest
	call, err := s.decode(ctx, &req)
	if err != nil {
		return s.fail(ctx, err)
	}
	receipt, err := fn(call, target)
	return s.respond(ctx, receipt, err)
}

func (s *CrowdfundingServer) GetPlatform(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, PlatformToAPI(s.chain.Platform()))
}

func (s *CrowdfundingServer) SetPlatformFee(ctx echo.Context) error {
	var req SetPlatformFeeRequest
	call, err := s.decode(ctx, &req)
	if err != nil {
		return s.fail(ctx, err)
	}
	receipt, err := s.chain.SetPlatformFee(ctx.Request().Context(), call, req.Fee)
	return s.respond(ctx, receipt, err)
}

func (s *CrowdfundingServer) GetCampaigns(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, CampaignsResponse{Campaigns: hexes(s.chain.AllCampaigns())})
}

func (s *CrowdfundingServer) CreateCampaign(ctx echo.Context) error {
	var req CreateCampaignRequest
	call, err := s.decode(ctx, &req)
	if err != nil {
		return s.fail(ctx, err)
	}
	goal, err := crowdfund.ParseAmount(req.Goal)
	if err != nil {
		return s.fail(ctx, err)
	}
	if req.Deadline.IsZero() {
		return s.fail(ctx, errors.Wrap(crowdfund.ErrInvalidParameter, "deadline is required"))
	}
	receipt, err := s.chain.CreateCampaign(ctx.Request().Context(), call, campaign.Params{
		Goal:            goal,
		Deadline:        req.Deadline,
		Title:           req.Title,
		Description:     req.Description,
		Image:           req.Image,
		FlexibleFunding: req.FlexibleFunding,
	})
	return s.respond(ctx, receipt, err)
}

func (s *CrowdfundingServer) GetCampaign(ctx echo.Context, address string) error {
	target, err := crowdfund.ParsePrincipal(address)
	if err != nil {
		return s.fail(ctx, err)
	}
	c, err := s.chain.Campaign(target)
	if err != nil {
		return s.fail(ctx, err)
	}
	snapshot, err := s.chain.Escrow(target)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, CampaignToAPI(c.Snapshot(s.chain.Now()), snapshot))
}

func (s *CrowdfundingServer) GetUserCampaigns(ctx echo.Context, address string) error {
	user, err := crowdfund.ParsePrincipal(address)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, CampaignsResponse{Campaigns: hexes(s.chain.UserCampaigns(user))})
}

func (s *CrowdfundingServer) Contribute(ctx echo.Context, address string) error {
	return s.submit(ctx, address, func(call chain.Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
		return s.chain.Contribute(ctx.Request().Context(), call, target)
	})
}

func (s *CrowdfundingServer) CreateRequest(ctx echo.Context, address string) error {
	target, err := crowdfund.ParsePrincipal(address)
	if err != nil {
		return s.fail(ctx, err)
	}
	var req CreateRequestRequest
	call, err := s.decode(ctx, &req)
	if err != nil {
		return s.fail(ctx, err)
	}
	amount, err := crowdfund.ParseAmount(req.Amount)
	if err != nil {
		return s.fail(ctx, err)
	}
	recipient, err := crowdfund.ParsePrincipal(req.Recipient)
	if err != nil {
		return s.fail(ctx, err)
	}
	receipt, err := s.chain.CreateRequest(ctx.Request().Context(), call, target, req.Description, amount, recipient)
	return s.respond(ctx, receipt, err)
}

func (s *CrowdfundingServer) ApproveRequest(ctx echo.Context, address string, index int) error {
	return s.submit(ctx, address, func(call chain.Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
		return s.chain.ApproveRequest(ctx.Request().Context(), call, target, index)
	})
}

func (s *CrowdfundingServer) FinalizeRequest(ctx echo.Context, address string, index int) error {
	return s.submit(ctx, address, func(call chain.Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
		return s.chain.FinalizeRequest(ctx.Request().Context(), call, target, index)
	})
}

func (s *CrowdfundingServer) VoteForRelease(ctx echo.Context, address string) error {
	return s.submit(ctx, address, func(call chain.Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
		return s.chain.VoteForRelease(ctx.Request().Context(), call, target)
	})
}

func (s *CrowdfundingServer) WithdrawFunds(ctx echo.Context, address string) error {
	return s.submit(ctx, address, func(call chain.Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
		return s.chain.WithdrawFunds(ctx.Request().Context(), call, target)
	})
}

func (s *CrowdfundingServer) GetEscrow(ctx echo.Context, address string) error {
	target, err := crowdfund.ParsePrincipal(address)
	if err != nil {
		return s.fail(ctx, err)
	}
	snapshot, err := s.chain.Escrow(target)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, EscrowToAPI(snapshot))
}

func (s *CrowdfundingServer) IsApprover(ctx echo.Context, address string, principal string) error {
	target, err := crowdfund.ParsePrincipal(address)
	if err != nil {
		return s.fail(ctx, err)
	}
	p, err := crowdfund.ParsePrincipal(principal)
	if err != nil {
		return s.fail(ctx, err)
	}
	approver, err := s.chain.IsApprover(target, p)
	if err != nil {
		return s.fail(ctx, err)
	}
	deposit, err := s.chain.DepositOf(target, p)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, ApproverResponse{Approver: approver, Deposit: deposit.String()})
}

func (s *CrowdfundingServer) Deposit(ctx echo.Context, address string) error {
	return s.submit(ctx, address, func(call chain.Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
		return s.chain.Deposit(ctx.Request().Context(), call, target)
	})
}

func (s *CrowdfundingServer) AddApprover(ctx echo.Context, address string) error {
	target, err := crowdfund.ParsePrincipal(address)
	if err != nil {
		return s.fail(ctx, err)
	}
	var req AddApproverRequest
	call, err := s.decode(ctx, &req)
	if err != nil {
		return s.fail(ctx, err)
	}
	approver, err := crowdfund.ParsePrincipal(req.Approver)
	if err != nil {
		return s.fail(ctx, err)
	}
	receipt, err := s.chain.AddApprover(ctx.Request().Context(), call, target, approver)
	return s.respond(ctx, receipt, err)
}

func (s *CrowdfundingServer) RequestReleaseFunds(ctx echo.Context, address string) error {
	return s.submit(ctx, address, func(call chain.Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
		return s.chain.RequestReleaseFunds(ctx.Request().Context(), call, target)
	})
}

func (s *CrowdfundingServer) ApproveReleaseFunds(ctx echo.Context, address string) error {
	return s.submit(ctx, address, func(call chain.Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
		return s.chain.ApproveReleaseFunds(ctx.Request().Context(), call, target)
	})
}

func (s *CrowdfundingServer) ReleaseFunds(ctx echo.Context, address string) error {
	return s.submit(ctx, address, func(call chain.Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
		return s.chain.ReleaseFunds(ctx.Request().Context(), call, target)
	})
}

func (s *CrowdfundingServer) EnableRefunds(ctx echo.Context, address string) error {
	return s.submit(ctx, address, func(call chain.Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
		return s.chain.EnableRefunds(ctx.Request().Context(), call, target)
	})
}

func (s *CrowdfundingServer) ClaimRefund(ctx echo.Context, address string) error {
	return s.submit(ctx, address, func(call chain.Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
		return s.chain.ClaimRefund(ctx.Request().Context(), call, target)
	})
}

func (s *CrowdfundingServer) GetBalance(ctx echo.Context, address string) error {
	account, err := crowdfund.ParsePrincipal(address)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, BalanceResponse{
		Address: account.Hex(),
		Balance: s.chain.BalanceOf(account).String(),
	})
}

func (s *CrowdfundingServer) GetTransaction(ctx echo.Context, txID string) error {
	receipt, err := s.chain.Receipt(ctx.Request().Context(), txID)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, ReceiptToAPI(receipt))
}
