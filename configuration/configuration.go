// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package configuration

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfunding/internal/pkg/cycle"
)

const (
	JournalMemory   = "memory"
	JournalPostgres = "postgres"

	EventsLog   = "log"
	EventsKafka = "kafka"
)

type Configuration struct {
	API     API
	DB      DB
	Log     Log
	Chain   Chain
	Journal Journal
	Events  Events
}

type API struct {
	Listen string
	// Write requests must be signed by the key of the caller.
	RequireSignatures bool
	// Health check and metrics.
	HealthListen     string
	GRPCHealthListen string
}

type DB struct {
	URL      string
	PoolSize int
	Attempts cycle.Limit
	// Interval between connection attempts
	AttemptInterval time.Duration
}

type Log struct {
	Level  string
	Format string
}

type Chain struct {
	FactoryAddress    common.Address
	EscrowAddress     common.Address
	Owner             common.Address
	PlatformFee       uint64
	RequiredApprovals int
	// depositors|allowlist
	ApproverPolicy string
	// Initial balances by address.
	Genesis map[string]*big.Int
}

type Journal struct {
	// memory|postgres
	Backend   string
	CacheSize int
}

type Events struct {
	// log|kafka
	Backend      string
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

func Default() *Configuration {
	return &Configuration{
		API: API{
			Listen:            ":8080",
			RequireSignatures: true,
			HealthListen:      ":8081",
			GRPCHealthListen:  ":8082",
		},
		DB: DB{
			URL:             "postgres://postgres@localhost/postgres?sslmode=disable",
			PoolSize:        20,
			Attempts:        5,
			AttemptInterval: 3 * time.Second,
		},
		Log: Log{
			Level:  logrus.DebugLevel.String(),
			Format: "text",
		},
		Chain: Chain{
			FactoryAddress:    common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
			EscrowAddress:     common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"),
			Owner:             common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
			PlatformFee:       5,
			RequiredApprovals: 1,
			ApproverPolicy:    "depositors",
			Genesis:           map[string]*big.Int{},
		},
		Journal: Journal{
			Backend:   JournalMemory,
			CacheSize: 10000,
		},
		Events: Events{
			Backend:      EventsLog,
			Brokers:      []string{"localhost:9092"},
			Topic:        "crowdfunding.events",
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}
