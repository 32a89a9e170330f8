// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package dbconn

import (
	"github.com/go-pg/migrations"
	"github.com/go-pg/pg"
	"github.com/pkg/errors"

	"github.com/insolar/crowdfunding/configuration"
)

func Connect(cfg configuration.DB) (*pg.DB, error) {
	opt, err := pg.ParseURL(cfg.URL)
	if err != nil {
		// pg.ParseURL uses url.Parse, which puts the password into the error text.
		return nil, errors.New("failed to parse cfg.DB.URL")
	}
	opt.PoolSize = cfg.PoolSize
	return pg.Connect(opt), nil
}

// Migrate applies every up migration found in dir. With init set it creates
// the migrations bookkeeping table first.
func Migrate(db migrations.DB, dir string, init bool) error {
	collection := migrations.NewCollection()
	if init {
		if _, _, err := collection.Run(db, "init"); err != nil {
			return errors.Wrap(err, "could not init migrations")
		}
	}
	if err := collection.DiscoverSQLMigrations(dir); err != nil {
		return errors.Wrap(err, "failed to read migrations")
	}
	if _, _, err := collection.Run(db, "up"); err != nil {
		return errors.Wrap(err, "could not migrate")
	}
	return nil
}
