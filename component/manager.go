// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package component

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfunding/configuration"
	"github.com/insolar/crowdfunding/connectivity"
	"github.com/insolar/crowdfunding/internal/app/api"
	"github.com/insolar/crowdfunding/internal/app/crowdfund"
	"github.com/insolar/crowdfunding/internal/app/crowdfund/chain"
	"github.com/insolar/crowdfunding/observability"
)

type Manager struct {
	cfg   *configuration.Configuration
	log   *logrus.Logger
	chain *chain.Chain

	api    *echo.Echo
	router *Router
	health *HealthServer
	stop   func(ctx context.Context)
}

func Prepare(ctx context.Context, cfg *configuration.Configuration) (*Manager, error) {
	return prepare(ctx, cfg, &crowdfund.DefaultClock{})
}

func prepare(ctx context.Context, cfg *configuration.Configuration, clock crowdfund.Clock) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	obs := observability.Make(cfg)
	conn, err := connectivity.Make(cfg, obs)
	if err != nil {
		return nil, err
	}
	j, err := makeJournal(cfg, obs, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	publisher, err := makePublisher(cfg, obs)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	c, err := makeChain(ctx, cfg, clock, obs, j, publisher)
	if err != nil {
		_ = publisher.Close()
		_ = conn.Close()
		return nil, err
	}
	health, err := NewHealthServer(cfg.API.GRPCHealthListen, obs.Log())
	if err != nil {
		_ = publisher.Close()
		_ = conn.Close()
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	api.RegisterHandlers(e, api.NewCrowdfundingServer(c, obs.Log(), cfg.API.RequireSignatures))

	router := NewRouter(cfg, obs)
	return &Manager{
		cfg:    cfg,
		log:    obs.Log(),
		chain:  c,
		api:    e,
		router: router,
		health: health,
		stop:   makeStopper(obs, conn, publisher, router, health, e),
	}, nil
}

func (m *Manager) Chain() *chain.Chain {
	return m.chain
}

func (m *Manager) Start() {
	m.router.Start()
	m.health.Start()
	go func() {
		err := m.api.Start(m.cfg.API.Listen)
		if err != nil && err != http.ErrServerClosed {
			m.log.Error(errors.Wrap(err, "api server"))
		}
	}()
	m.health.Serving()
	m.log.Infof("Crowdfunding API is listening on %s", m.cfg.API.Listen)
}

func (m *Manager) Stop(ctx context.Context) {
	m.stop(ctx)
}
