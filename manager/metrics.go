// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package manager

import (
	"github.com/luxfi/metric"
)

type managerMetrics struct {
	votesSubmitted  metric.Counter
	votesSuperseded metric.Counter
	staleResponses  metric.Counter
	pollsClosed     metric.Counter
	resultFetches   metric.Counter
	dataClamps      metric.Counter
	journalReplays  metric.Counter
}

func newMetrics(registerer metric.Registerer) (*managerMetrics, error) {
	m := &managerMetrics{
		votesSubmitted: metric.NewCounter(metric.CounterOpts{
			Name: "pollsync_votes_submitted",
			Help: "Number of vote submissions dispatched to the gateway",
		}),
		votesSuperseded: metric.NewCounter(metric.CounterOpts{
			Name: "pollsync_votes_superseded",
			Help: "Number of in-flight vote submissions superseded by a newer one",
		}),
		staleResponses: metric.NewCounter(metric.CounterOpts{
			Name: "pollsync_stale_responses",
			Help: "Number of responses dropped for generation mismatch",
		}),
		pollsClosed: metric.NewCounter(metric.CounterOpts{
			Name: "pollsync_polls_closed",
			Help: "Number of poll close operations dispatched",
		}),
		resultFetches: metric.NewCounter(metric.CounterOpts{
			Name: "pollsync_result_fetches",
			Help: "Number of background result fetches",
		}),
		dataClamps: metric.NewCounter(metric.CounterOpts{
			Name: "pollsync_data_clamps",
			Help: "Number of data-quality anomalies clamped during merge",
		}),
		journalReplays: metric.NewCounter(metric.CounterOpts{
			Name: "pollsync_journal_replays",
			Help: "Number of journal entries replayed at startup",
		}),
	}

	for _, collector := range []metric.Counter{
		m.votesSubmitted,
		m.votesSuperseded,
		m.staleResponses,
		m.pollsClosed,
		m.resultFetches,
		m.dataClamps,
		m.journalReplays,
	} {
		if err := registerer.Register(metric.AsCollector(collector)); err != nil {
			return nil, err
		}
	}
	return m, nil
}
