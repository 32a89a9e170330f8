// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package component

import (
	"context"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/insolar/crowdfunding/connectivity"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/events"
	"github.com/insolar/crowdfunding/observability"
)

// makeStopper stops the servers before it closes the publisher and the database.
func makeStopper(
	obs *observability.Observability,
	conn *connectivity.Connectivity,
	publisher events.Publisher,
	router *Router,
	health *HealthServer,
	e *echo.Echo,
) func(ctx context.Context) {
	log := obs.Log()
	return func(ctx context.Context) {
		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			if err := e.Shutdown(ctx); err != nil {
				log.Error(errors.Wrapf(err, "api server shutdown"))
			}
		}()
		go func() {
			defer wg.Done()
			router.Stop(ctx)
		}()
		go func() {
			defer wg.Done()
			health.Stop()
		}()
		wg.Wait()

		if err := publisher.Close(); err != nil {
			log.Error(errors.Wrapf(err, "failed to close event publisher"))
		}
		if err := conn.Close(); err != nil {
			log.Error(err)
		}
	}
}
