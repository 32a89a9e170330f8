// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfunding/component"
	"github.com/insolar/crowdfunding/configuration"
	"github.com/insolar/crowdfunding/observability"
)

var stop = make(chan os.Signal, 1)
var Version string

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := configuration.Load()
	logger := observability.MakeLogger(cfg.Log)
	if len(Version) == 0 {
		Version = "dev"
	}
	logger.Infof("Crowdfunding version=%s", Version)

	manager, err := component.Prepare(context.Background(), cfg)
	if err != nil {
		logger.Fatal(err)
	}
	manager.Start()
	graceful(logger, func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		manager.Stop(ctx)
	})
}

func graceful(logger logrus.FieldLogger, that func()) {
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Infof("gracefully stopping...")
	that()
}
