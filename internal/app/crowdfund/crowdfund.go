// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

// Package crowdfund holds the types shared by the factory, campaign and escrow
// state machines: principals, amounts, transactions, events and receipts.
package crowdfund

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Principal identifies an account or a contract.
type Principal = common.Address

// ZeroPrincipal is never a valid caller or recipient.
var ZeroPrincipal = Principal{}

// MaxPlatformFee is the upper bound of the platform fee, in percent.
const MaxPlatformFee = 10

type Clock interface {
	Now() time.Time
}

type DefaultClock struct{}

func (c *DefaultClock) Now() time.Time {
	return time.Now()
}

// ParsePrincipal accepts a 0x-prefixed hex address.
func ParsePrincipal(s string) (Principal, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return ZeroPrincipal, errors.Wrapf(ErrInvalidParameter, "invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// ParseAmount parses a non-negative integer amount in the smallest currency unit.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidParameter, "invalid amount %q", s)
	}
	if v.Sign() < 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "negative amount %q", s)
	}
	return v, nil
}

func IsPositive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}

// Copy never returns nil.
func Copy(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// SplitFee returns the platform share of amount and the remainder.
func SplitFee(amount *big.Int, percent uint64) (fee *big.Int, rest *big.Int) {
	fee = new(big.Int).Mul(Copy(amount), new(big.Int).SetUint64(percent))
	fee.Quo(fee, big.NewInt(100))
	rest = new(big.Int).Sub(Copy(amount), fee)
	return fee, rest
}

// Tx is the execution context of one call: who sent it, the attached value and
// the timestamp stamped by the execution environment.
type Tx struct {
	ID    string
	From  Principal
	Value *big.Int
	Time  time.Time
}

// Transfer moves value between two ledger accounts.
type Transfer struct {
	From   Principal
	To     Principal
	Amount *big.Int
}

// Bank is the balance book contracts commit their transfers to. Commit is
// all-or-nothing and seals a new block even without transfers.
type Bank interface {
	BalanceOf(account Principal) *big.Int
	Commit(transfers ...Transfer) (uint64, error)
}

// Platform exposes the fee parameters owned by the factory. The callback runs
// while the fee cannot change.
type Platform interface {
	WithPlatformFee(fn func(owner Principal, percent uint64) error) error
}

// CampaignInfo is the immutable part of a campaign other components may rely on.
type CampaignInfo struct {
	Address  Principal
	Creator  Principal
	Goal     *big.Int
	Deadline time.Time
	Flexible bool
}

// Directory resolves campaigns by address.
type Directory interface {
	CampaignInfo(address Principal) (CampaignInfo, error)
}

type Event struct {
	Name     string            `json:"name"`
	Contract Principal         `json:"contract"`
	Args     map[string]string `json:"args"`
}

// NewEvent builds an event from alternating key/value pairs.
func NewEvent(name string, contract Principal, kv ...string) Event {
	args := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		args[kv[i]] = kv[i+1]
	}
	return Event{Name: name, Contract: contract, Args: args}
}

func (e Event) String() string {
	keys := make([]string, 0, len(e.Args))
	for k := range e.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, e.Args[k]))
	}
	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(parts, ", "))
}

// Outcome is what a successful state transition reports back.
type Outcome struct {
	Block  uint64
	Events []Event
}

type TxStatus string

const (
	TxStatusPending TxStatus = "pending"
	TxStatusSuccess TxStatus = "success"
	TxStatusFailed  TxStatus = "failed"
)

// Receipt is returned for every submitted call, failed or not.
type Receipt struct {
	TxID      string
	Block     uint64
	Method    string
	From      Principal
	To        Principal
	Value     *big.Int
	Args      map[string]string
	Status    TxStatus
	Error     string
	Events    []Event
	Timestamp time.Time
}

func (r *Receipt) Succeeded() bool {
	return r.Status == TxStatusSuccess
}

// Clone copies the receipt so the copy shares no maps or slices with r.
func (r *Receipt) Clone() *Receipt {
	if r == nil {
		return nil
	}
	res := *r
	res.Value = Copy(r.Value)
	if r.Args != nil {
		res.Args = make(map[string]string, len(r.Args))
		for k, v := range r.Args {
			res.Args[k] = v
		}
	}
	if r.Events != nil {
		res.Events = make([]Event, 0, len(r.Events))
		for _, e := range r.Events {
			args := make(map[string]string, len(e.Args))
			for k, v := range e.Args {
				args[k] = v
			}
			e.Args = args
			res.Events = append(res.Events, e)
		}
	}
	return &res
}
