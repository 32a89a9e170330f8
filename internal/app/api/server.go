// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package api

import (
	"fmt"
	"net/http"

	"github.com/deepmap/oapi-codegen/pkg/runtime"
	"github.com/labstack/echo/v4"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /api/platform)
	GetPlatform(ctx echo.Context) error
	// (POST /api/platform/fee)
	SetPlatformFee(ctx echo.Context) error

	// (GET /api/campaigns)
	GetCampaigns(ctx echo.Context) error
	// (POST /api/campaigns)
	CreateCampaign(ctx echo.Context) error
	// (GET /api/campaigns/{address})
	GetCampaign(ctx echo.Context, address string) error
	// (GET /api/users/{address}/campaigns)
	GetUserCampaigns(ctx echo.Context, address string) error
	// (POST /api/campaigns/{address}/contributions)
	Contribute(ctx echo.Context, address string) error
	// (POST /api/campaigns/{address}/requests)
	CreateRequest(ctx echo.Context, address string) error
	// (POST /api/campaigns/{address}/requests/{index}/approvals)
	ApproveRequest(ctx echo.Context, address string, index int) error
	// (POST /api/campaigns/{address}/requests/{index}/finalize)
	FinalizeRequest(ctx echo.Context, address string, index int) error
	// (POST /api/campaigns/{address}/votes)
	VoteForRelease(ctx echo.Context, address string) error
	// (POST /api/campaigns/{address}/withdraw)
	WithdrawFunds(ctx echo.Context, address string) error

	// (GET /api/escrow/{address})
	GetEscrow(ctx echo.Context, address string) error
	// (GET /api/escrow/{address}/approvers/{principal})
	IsApprover(ctx echo.Context, address string, principal string) error
	// (POST /api/escrow/{address}/deposits)
	Deposit(ctx echo.Context, address string) error
	// (POST /api/escrow/{address}/approvers)
	AddApprover(ctx echo.Context, address string) error
	// (POST /api/escrow/{address}/release-request)
	RequestReleaseFunds(ctx echo.Context, address string) error
	// (POST /api/escrow/{address}/release-approvals)
	ApproveReleaseFunds(ctx echo.Context, address string) error
	// (POST /api/escrow/{address}/release)
	ReleaseFunds(ctx echo.Context, address string) error
	// (POST /api/escrow/{address}/refunds)
	EnableRefunds(ctx echo.Context, address string) error
	// (POST /api/escrow/{address}/refunds/claim)
	ClaimRefund(ctx echo.Context, address string) error

	// (GET /api/accounts/{address})
	GetBalance(ctx echo.Context, address string) error
	// (GET /api/transactions/{txID})
	GetTransaction(ctx echo.Context, txID string) error
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

type addressHandler func(ctx echo.Context, address string) error

type requestHandler func(ctx echo.Context, address string, index int) error

func bindString(ctx echo.Context, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameter("simple", false, name, ctx.Param(name), &value)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
	}
	return value, nil
}

func (w *ServerInterfaceWrapper) withAddress(h addressHandler) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		// ------------- Path parameter "address" -------------
		address, err := bindString(ctx, "address")
		if err != nil {
			return err
		}
		return h(ctx, address)
	}
}

func (w *ServerInterfaceWrapper) withRequest(h requestHandler) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		// ------------- Path parameter "address" -------------
		address, err := bindString(ctx, "address")
		if err != nil {
			return err
		}

		// ------------- Path parameter "index" -------------
		var index int
		err = runtime.BindStyledParameter("simple", false, "index", ctx.Param("index"), &index)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter index: %s", err))
		}
		return h(ctx, address, index)
	}
}

// IsApprover converts echo context to params.
func (w *ServerInterfaceWrapper) IsApprover(ctx echo.Context) error {
	address, err := bindString(ctx, "address")
	if err != nil {
		return err
	}
	principal, err := bindString(ctx, "principal")
	if err != nil {
		return err
	}
	return w.Handler.IsApprover(ctx, address, principal)
}

// GetTransaction converts echo context to params.
func (w *ServerInterfaceWrapper) GetTransaction(ctx echo.Context) error {
	txID, err := bindString(ctx, "txID")
	if err != nil {
		return err
	}
	return w.Handler.GetTransaction(ctx, txID)
}

// RegisterHandlers adds each server route to the EchoRouter.
func RegisterHandlers(router runtime.EchoRouter, si ServerInterface) {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
	}

	router.GET("/api/platform", si.GetPlatform)
	router.POST("/api/platform/fee", si.SetPlatformFee)

	router.GET("/api/campaigns", si.GetCampaigns)
	router.POST("/api/campaigns", si.CreateCampaign)
	router.GET("/api/campaigns/:address", wrapper.withAddress(si.GetCampaign))
	router.GET("/api/users/:address/campaigns", wrapper.withAddress(si.GetUserCampaigns))
	router.POST("/api/campaigns/:address/contributions", wrapper.withAddress(si.Contribute))
	router.POST("/api/campaigns/:address/requests", wrapper.withAddress(si.CreateRequest))
	router.POST("/api/campaigns/:address/requests/:index/approvals", wrapper.withRequest(si.ApproveRequest))
	router.POST("/api/campaigns/:address/requests/:index/finalize", wrapper.withRequest(si.FinalizeRequest))
	router.POST("/api/campaigns/:address/votes", wrapper.withAddress(si.VoteForRelease))
	router.POST("/api/campaigns/:address/withdraw", wrapper.withAddress(si.WithdrawFunds))

	router.GET("/api/escrow/:address", wrapper.withAddress(si.GetEscrow))
	router.GET("/api/escrow/:address/approvers/:principal", wrapper.IsApprover)
	router.POST("/api/escrow/:address/deposits", wrapper.withAddress(si.Deposit))
	router.POST("/api/escrow/:address/approvers", wrapper.withAddress(si.AddApprover))
	router.POST("/api/escrow/:address/release-request", wrapper.withAddress(si.RequestReleaseFunds))
	router.POST("/api/escrow/:address/release-approvals", wrapper.withAddress(si.ApproveReleaseFunds))
	router.POST("/api/escrow/:address/release", wrapper.withAddress(si.ReleaseFunds))
	router.POST("/api/escrow/:address/refunds", wrapper.withAddress(si.EnableRefunds))
	router.POST("/api/escrow/:address/refunds/claim", wrapper.withAddress(si.ClaimRefund))

	router.GET("/api/accounts/:address", wrapper.withAddress(si.GetBalance))
	router.GET("/api/transactions/:txID", wrapper.GetTransaction)
}
