// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package component

import (
	"context"

	"github.com/pkg/errors"

	"github.com/insolar/crowdfunding/configuration"
	"github.com/insolar/crowdfunding/connectivity"
	"github.com/insolar/crowdfunding/internal/app/crowdfund"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/chain"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/events"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/journal"
	"github.com/insolar/crowdfunding/observability"
)

func makeJournal(cfg *configuration.Configuration, obs *observability.Observability, conn *connectivity.Connectivity) (journal.Journal, error) {
	var backend journal.Journal
	switch cfg.Journal.Backend {
	case configuration.JournalMemory:
		backend = journal.NewMemoryJournal()
	case configuration.JournalPostgres:
		if conn.PG() == nil {
			return nil, errors.New("postgres journal without a db connection")
		}
		backend = journal.NewPGJournal(obs, conn.PG())
	default:
		return nil, errors.Errorf("unknown journal backend %q", cfg.Journal.Backend)
	}
	if cfg.Journal.CacheSize <= 0 {
		return backend, nil
	}
	return journal.NewCacheJournal(backend, cfg.Journal.CacheSize)
}

func makePublisher(cfg *configuration.Configuration, obs *observability.Observability) (events.Publisher, error) {
	switch cfg.Events.Backend {
	case configuration.EventsLog:
		return events.NewLogPublisher(obs.Log()), nil
	case configuration.EventsKafka:
		return events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic, cfg.Events.BatchTimeout)
	}
	return nil, errors.Errorf("unknown events backend %q", cfg.Events.Backend)
}

// makeChain builds the contracts and replays the journal into them.
func makeChain(
	ctx context.Context,
	cfg *configuration.Configuration,
	clock crowdfund.Clock,
	obs *observability.Observability,
	j journal.Journal,
	publisher events.Publisher,
) (*chain.Chain, error) {
	logger := obs.Log()
	c, err := chain.New(cfg.Chain, clock, obs, j, publisher)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create chain")
	}
	n, err := c.Restore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to restore chain state from journal")
	}
	logger.WithField("transactions", n).Infof("State restored: %+v", c.Platform())
	return c, nil
}
