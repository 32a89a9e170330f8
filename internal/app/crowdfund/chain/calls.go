// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package chain

import (
	"context"
	"math/big"
	"strconv"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/campaign"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/factory"
)

func (c *Chain) CreateCampaign(ctx context.Context, call Call, p campaign.Params) (*crowdfund.Receipt, error) {
	goal := ""
	if p.Goal != nil {
		goal = p.Goal.String()
	}
	return c.submit(ctx, MethodCreateCampaign, c.factory.Address(), call, map[string]string{
		argGoal:            goal,
		argDeadline:        strconv.FormatInt(p.Deadline.Unix(), 10),
		argTitle:           p.Title,
		argDescription:     p.Description,
		argImage:           p.Image,
		argFlexibleFunding: strconv.FormatBool(p.FlexibleFunding),
	})
}

// CreatedCampaign extracts the address of the campaign a createCampaign call produced.
func CreatedCampaign(r *crowdfund.Receipt) (crowdfund.Principal, bool) {
	if r == nil || !r.Succeeded() {
		return crowdfund.ZeroPrincipal, false
	}
	for _, e := range r.Events {
		if e.Name == factory.EventCampaignCreated {
			p, err := crowdfund.ParsePrincipal(e.Args["campaign"])
			return p, err == nil
		}
	}
	return crowdfund.ZeroPrincipal, false
}

func (c *Chain) SetPlatformFee(ctx context.Context, call Call, fee uint64) (*crowdfund.Receipt, error) {
	return c.submit(ctx, MethodSetPlatformFee, c.factory.Address(), call, map[string]string{
		argFee: strconv.FormatUint(fee, 10),
	})
}

func (c *Chain) Contribute(ctx context.Context, call Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
	return c.submit(ctx, MethodContribute, target, call, map[string]string{})
}

func (c *Chain) CreateRequest(
	ctx context.Context,
	call Call,
	target crowdfund.Principal,
	description string,
	amount *big.Int,
	recipient crowdfund.Principal,
) (*crowdfund.Receipt, error) {
	return c.submit(ctx, MethodCreateRequest, target, call, map[string]string{
		argDescription: description,
		argAmount:      crowdfund.Copy(amount).String(),
		argRecipient:   recipient.Hex(),
	})
}

func (c *Chain) ApproveRequest(ctx context.Context, call Call, target crowdfund.Principal, index int) (*crowdfund.Receipt, error) {
	return c.submit(ctx, MethodApproveRequest, target, call, map[string]string{
		argIndex: strconv.Itoa(index),
	})
}

func (c *Chain) FinalizeRequest(ctx context.Context, call Call, target crowdfund.Principal, index int) (*crowdfund.Receipt, error) {
	return c.submit(ctx, MethodFinalizeRequest, target, call, map[string]string{
		argIndex: strconv.Itoa(index),
	})
}

func (c *Chain) VoteForRelease(ctx context.Context, call Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
	return c.submit(ctx, MethodVoteForRelease, target, call, map[string]string{})
}

func (c *Chain) WithdrawFunds(ctx context.Context, call Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
	return c.submit(ctx, MethodWithdrawFunds, target, call, map[string]string{})
}

func (c *Chain) Deposit(ctx context.Context, call Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
	return c.escrowCall(ctx, MethodDeposit, call, target)
}

func (c *Chain) AddApprover(ctx context.Context, call Call, target, approver crowdfund.Principal) (*crowdfund.Receipt, error) {
	return c.submit(ctx, MethodAddApprover, c.escrow.Address(), call, map[string]string{
		argCampaign: target.Hex(),
		argApprover: approver.Hex(),
	})
}

func (c *Chain) RequestReleaseFunds(ctx context.Context, call Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
	return c.escrowCall(ctx, MethodRequestReleaseFunds, call, target)
}

func (c *Chain) ApproveReleaseFunds(ctx context.Context, call Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
	return c.escrowCall(ctx, MethodApproveReleaseFunds, call, target)
}

func (c *Chain) ReleaseFunds(ctx context.Context, call Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
	return c.escrowCall(ctx, MethodReleaseFunds, call, target)
}

func (c *Chain) EnableRefunds(ctx context.Context, call Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
	return c.escrowCall(ctx, MethodEnableRefunds, call, target)
}

func (c *Chain) ClaimRefund(ctx context.Context, call Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
	return c.escrowCall(ctx, MethodClaimRefund, call, target)
}

func (c *Chain) escrowCall(ctx context.Context, method string, call Call, target crowdfund.Principal) (*crowdfund.Receipt, error) {
	return c.submit(ctx, method, c.escrow.Address(), call, map[string]string{
		argCampaign: target.Hex(),
	})
}
