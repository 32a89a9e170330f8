// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

// Package factory creates and indexes campaigns and owns the platform fee.
package factory

import (
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/campaign"
)

const (
	EventCampaignCreated    = "CampaignCreated"
	EventPlatformFeeChanged = "PlatformFeeChanged"
)

type Factory struct {
	address crowdfund.Principal
	owner   crowdfund.Principal
	bank    crowdfund.Bank

	mu        sync.RWMutex
	fee       uint64
	nonce     uint64
	campaigns []*campaign.Campaign
	byAddress map[crowdfund.Principal]*campaign.Campaign
	byCreator map[crowdfund.Principal][]crowdfund.Principal
}

func New(address, owner crowdfund.Principal, feePercent uint64, bank crowdfund.Bank) (*Factory, error) {
	if feePercent > crowdfund.MaxPlatformFee {
		return nil, errors.Wrapf(crowdfund.ErrOutOfRange, "fee cannot exceed %d%%", crowdfund.MaxPlatformFee)
	}
	if owner == crowdfund.ZeroPrincipal {
		return nil, errors.Wrap(crowdfund.ErrInvalidParameter, "factory owner is required")
	}
	return &Factory{
		address:   address,
		owner:     owner,
		bank:      bank,
		fee:       feePercent,
		byAddress: make(map[crowdfund.Principal]*campaign.Campaign),
		byCreator: make(map[crowdfund.Principal][]crowdfund.Principal),
	}, nil
}

func (f *Factory) Address() crowdfund.Principal {
	return f.address
}

func (f *Factory) Owner() crowdfund.Principal {
	return f.owner
}

func (f *Factory) PlatformFee() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fee
}

func (f *Factory) WithPlatformFee(fn func(owner crowdfund.Principal, percent uint64) error) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return fn(f.owner, f.fee)
}

func (f *Factory) SetPlatformFee(tx crowdfund.Tx, feePercent uint64) (crowdfund.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if tx.From != f.owner {
		return crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrUnauthorized, "caller is not the owner")
	}
	if feePercent > crowdfund.MaxPlatformFee {
		return crowdfund.Outcome{}, errors.Wrapf(crowdfund.ErrOutOfRange, "fee cannot exceed %d%%", crowdfund.MaxPlatformFee)
	}

	block, err := f.bank.Commit()
	if err != nil {
		return crowdfund.Outcome{}, err
	}
	f.fee = feePercent

	return crowdfund.Outcome{
		Block: block,
		Events: []crowdfund.Event{crowdfund.NewEvent(EventPlatformFeeChanged, f.address,
			"fee", strconv.FormatUint(feePercent, 10),
		)},
	}, nil
}

func (f *Factory) CreateCampaign(tx crowdfund.Tx, params campaign.Params) (*campaign.Campaign, crowdfund.Outcome, error) {
	if !crowdfund.IsPositive(params.Goal) {
		return nil, crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrInvalidParameter, "goal must be > 0")
	}
	if !params.Deadline.After(tx.Time) {
		return nil, crowdfund.Outcome{}, errors.Wrap(crowdfund.ErrInvalidParameter, "deadline must be in the future")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	block, err := f.bank.Commit()
	if err != nil {
		return nil, crowdfund.Outcome{}, err
	}

	address := crypto.CreateAddress(f.address, f.nonce)
	f.nonce++
	c := campaign.New(uint64(len(f.campaigns)), address, tx.From, params, f.bank, f)
	f.campaigns = append(f.campaigns, c)
	f.byAddress[address] = c
	f.byCreator[tx.From] = append(f.byCreator[tx.From], address)

	return c, crowdfund.Outcome{
		Block: block,
		Events: []crowdfund.Event{crowdfund.NewEvent(EventCampaignCreated, f.address,
			"campaign", address.Hex(),
			"creator", tx.From.Hex(),
			"goal", params.Goal.String(),
			"deadline", strconv.FormatInt(params.Deadline.Unix(), 10),
		)},
	}, nil
}

func (f *Factory) Campaign(address crowdfund.Principal) (*campaign.Campaign, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.byAddress[address]
	if !ok {
		return nil, errors.Wrapf(crowdfund.ErrNotFound, "campaign %s", address.Hex())
	}
	return c, nil
}

func (f *Factory) CampaignAt(index uint64) (*campaign.Campaign, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if index >= uint64(len(f.campaigns)) {
		return nil, errors.Wrapf(crowdfund.ErrNotFound, "campaign #%d", index)
	}
	return f.campaigns[index], nil
}

func (f *Factory) CampaignInfo(address crowdfund.Principal) (crowdfund.CampaignInfo, error) {
	c, err := f.Campaign(address)
	if err != nil {
		return crowdfund.CampaignInfo{}, err
	}
	return c.Info(), nil
}

// AllCampaigns lists addresses in creation order.
func (f *Factory) AllCampaigns() []crowdfund.Principal {
	f.mu.RLock()
	defer f.mu.RUnlock()
	res := make([]crowdfund.Principal, 0, len(f.campaigns))
	for _, c := range f.campaigns {
		res = append(res, c.Address())
	}
	return res
}

func (f *Factory) UserCampaigns(creator crowdfund.Principal) []crowdfund.Principal {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]crowdfund.Principal(nil), f.byCreator[creator]...)
}
