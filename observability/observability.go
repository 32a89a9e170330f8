// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfunding/configuration"
)

func Make(cfg *configuration.Configuration) *Observability {
	return &Observability{
		log:      MakeLogger(cfg.Log),
		metrics:  prometheus.NewRegistry(),
		counters: make(map[string]prometheus.Counter),
		gauges:   make(map[string]prometheus.Gauge),
	}
}

func MakeLogger(cfg configuration.Log) *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		log.WithField("level", cfg.Level).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

type Observability struct {
	log     *logrus.Logger
	metrics *prometheus.Registry

	mu       sync.Mutex
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
}

func (o *Observability) Log() *logrus.Logger {
	return o.log
}

func (o *Observability) Metrics() *prometheus.Registry {
	return o.metrics
}

func (o *Observability) Counter(opts prometheus.CounterOpts) prometheus.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.counters[opts.Name]
	if ok {
		return c
	}
	c = prometheus.NewCounter(opts)
	err := o.metrics.Register(c)
	if err != nil {
		o.log.WithField("metric_collector", opts.Name).
			Errorf("failed to register metric")
		return c
	}
	o.counters[opts.Name] = c
	return c
}

func (o *Observability) Gauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	o.mu.Lock()
	defer o.mu.Unlock()
	g, ok := o.gauges[opts.Name]
	if ok {
		return g
	}
	g = prometheus.NewGauge(opts)
	err := o.metrics.Register(g)
	if err != nil {
		o.log.WithField("metric_collector", opts.Name).
			Errorf("failed to register metric")
		return g
	}
	o.gauges[opts.Name] = g
	return g
}

type ChainMetrics struct {
	Transactions  prometheus.Counter
	Failures      prometheus.Counter
	JournalErrors prometheus.Counter
	BlockHeight   prometheus.Gauge
}

func MakeChainMetrics(obs *Observability) *ChainMetrics {
	return &ChainMetrics{
		Transactions: obs.Counter(prometheus.CounterOpts{
			Name: "crowdfunding_tx_total",
			Help: "Number of submitted transactions.",
		}),
		Failures: obs.Counter(prometheus.CounterOpts{
			Name: "crowdfunding_tx_failed_total",
			Help: "Number of rejected transactions.",
		}),
		JournalErrors: obs.Counter(prometheus.CounterOpts{
			Name: "crowdfunding_journal_errors_total",
			Help: "Number of receipts that could not be journaled.",
		}),
		BlockHeight: obs.Gauge(prometheus.GaugeOpts{
			Name: "crowdfunding_block_height",
			Help: "Number of the last sealed block.",
		}),
	}
}
