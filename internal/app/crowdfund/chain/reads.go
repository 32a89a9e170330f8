// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package chain

import (
	"context"
	"math/big"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/campaign"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/escrow"
)

type PlatformInfo struct {
	Factory       crowdfund.Principal
	Escrow        crowdfund.Principal
	Owner         crowdfund.Principal
	FeePercent    uint64
	CampaignCount int
	Height        uint64
	Policy        escrow.Policy
}

func (c *Chain) Platform() PlatformInfo {
	return PlatformInfo{
		Factory:       c.factory.Address(),
		Escrow:        c.escrow.Address(),
		Owner:         c.factory.Owner(),
		FeePercent:    c.factory.PlatformFee(),
		CampaignCount: len(c.factory.AllCampaigns()),
		Height:        c.ledger.Height(),
		Policy:        c.escrow.Policy(),
	}
}

func (c *Chain) BalanceOf(account crowdfund.Principal) *big.Int {
	return c.ledger.BalanceOf(account)
}

func (c *Chain) Campaign(address crowdfund.Principal) (*campaign.Campaign, error) {
	return c.factory.Campaign(address)
}

func (c *Chain) CampaignAt(index uint64) (*campaign.Campaign, error) {
	return c.factory.CampaignAt(index)
}

func (c *Chain) AllCampaigns() []crowdfund.Principal {
	return c.factory.AllCampaigns()
}

func (c *Chain) UserCampaigns(creator crowdfund.Principal) []crowdfund.Principal {
	return c.factory.UserCampaigns(creator)
}

func (c *Chain) Escrow(campaign crowdfund.Principal) (escrow.Snapshot, error) {
	return c.escrow.Snapshot(campaign)
}

func (c *Chain) IsApprover(campaign, p crowdfund.Principal) (bool, error) {
	return c.escrow.IsApprover(campaign, p)
}

func (c *Chain) DepositOf(campaign, p crowdfund.Principal) (*big.Int, error) {
	return c.escrow.DepositOf(campaign, p)
}

func (c *Chain) Receipt(ctx context.Context, txID string) (*crowdfund.Receipt, error) {
	return c.journal.Receipt(ctx, txID)
}
