// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package main

import (
	"flag"

	"github.com/insolar/crowdfunding/configuration"
	"github.com/insolar/crowdfunding/internal/dbconn"
	"github.com/insolar/crowdfunding/observability"
)

var migrationDir = flag.String("dir", "scripts/migrations", "directory with migrations")
var doInit = flag.Bool("init", false, "perform db init (for empty db)")

func main() {
	flag.Parse()
	cfg := configuration.Load()
	log := observability.MakeLogger(cfg.Log)

	db, err := dbconn.Connect(cfg.DB)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer db.Close()

	if err := dbconn.Migrate(db, *migrationDir, *doInit); err != nil {
		log.Fatal(err)
	}
	log.Info("migrated successfully!")
}
