// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/insolar/crowdfunding/configuration"
)

func TestMakeChainMetrics(t *testing.T) {
	obs := Make(configuration.Default())
	metrics := MakeChainMetrics(obs)
	require.NotNil(t, metrics)

	metrics.Transactions.Inc()
	metrics.BlockHeight.Set(7)

	// second call returns the registered collectors
	again := MakeChainMetrics(obs)
	require.Equal(t, metrics.Transactions, again.Transactions)

	families, err := obs.Metrics().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["crowdfunding_tx_total"])
	require.True(t, names["crowdfunding_block_height"])
}

func TestObservability_Counter(t *testing.T) {
	obs := Make(configuration.Default())
	opts := prometheus.CounterOpts{Name: "crowdfunding_test_total"}
	require.Equal(t, obs.Counter(opts), obs.Counter(opts))
}

func TestMakeLogger(t *testing.T) {
	log := MakeLogger(configuration.Log{Level: "warn", Format: "json"})
	require.Equal(t, logrus.WarnLevel, log.Level)
	require.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = MakeLogger(configuration.Log{Level: "loud"})
	require.Equal(t, logrus.InfoLevel, log.Level)
}
