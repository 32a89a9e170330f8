// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package connectivity

import (
	"github.com/go-pg/pg"
	"github.com/pkg/errors"

	"github.com/insolar/crowdfunding/configuration"
	"github.com/insolar/crowdfunding/internal/dbconn"
	"github.com/insolar/crowdfunding/internal/pkg/cycle"
	"github.com/insolar/crowdfunding/observability"
)

// Make opens the connections the configured backends need. Postgres is only
// dialed for the postgres journal.
func Make(cfg *configuration.Configuration, obs *observability.Observability) (*Connectivity, error) {
	c := &Connectivity{}
	if cfg.Journal.Backend != configuration.JournalPostgres {
		return c, nil
	}

	log := obs.Log()
	db, err := dbconn.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}
	log.Infof("trying connect to postgres...")
	err = cycle.UntilConnectionError(func() error {
		_, err := db.Exec("select 1")
		return err
	}, cfg.DB.AttemptInterval, cfg.DB.Attempts, log)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to connect to postgres")
	}
	c.pg = db
	return c, nil
}

type Connectivity struct {
	pg *pg.DB
}

// PG is nil unless the postgres journal is configured.
func (c *Connectivity) PG() *pg.DB {
	return c.pg
}

func (c *Connectivity) Close() error {
	if c.pg == nil {
		return nil
	}
	return errors.Wrap(c.pg.Close(), "failed to close db")
}
