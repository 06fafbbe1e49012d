// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPollingIntervalJitter(t *testing.T) {
	require := require.New(t)
	cfg := testConfig()
	env := newTestEnv(t, cfg)

	env.manager.mu.Lock()
	defer env.manager.mu.Unlock()

	for range 100 {
		interval := env.manager.pollingInterval()
		require.GreaterOrEqual(interval, cfg.OfflinePollPeriod*70/100)
		require.LessOrEqual(interval, cfg.OfflinePollPeriod)
	}

	env.manager.online = true
	for range 100 {
		interval := env.manager.pollingInterval()
		require.GreaterOrEqual(interval, cfg.OnlinePollPeriod*70/100)
		require.LessOrEqual(interval, cfg.OnlinePollPeriod)
	}
}

func TestBackgroundRefreshLoop(t *testing.T) {
	require := require.New(t)
	cfg := testConfig()
	cfg.AutomationAccount = false
	cfg.OnlinePollPeriod = time.Millisecond
	cfg.OfflinePollPeriod = 2 * time.Millisecond
	cfg.OnlineCatchUpMin = time.Millisecond
	cfg.OnlineCatchUpMax = 2 * time.Millisecond
	env := newTestEnv(t, cfg)

	id := env.seedServerPoll(t, 7, false)
	env.gateway.mu.Lock()
	env.gateway.fetchUpdate = &ServerUpdate{
		Polls: []PollUpdate{{
			PollID: int64(id),
			Results: &ServerResults{
				HasTotalVoters: true,
				TotalVoters:    1,
				Results: []ServerAnswerVoters{
					{Data: "opt-red", Voters: 1},
					{Data: "opt-blue", Voters: 0},
				},
			},
		}},
	}
	env.gateway.mu.Unlock()
	require.NoError(env.manager.RegisterPoll(id, testLocation))

	// Each merged result re-arms the next refresh; the loop keeps running.
	require.Eventually(func() bool {
		env.gateway.mu.Lock()
		defer env.gateway.mu.Unlock()
		return len(env.gateway.fetches) >= 3
	}, 5*time.Second, time.Millisecond)

	env.gateway.mu.Lock()
	require.Equal(testLocation, env.gateway.fetches[0])
	env.gateway.mu.Unlock()
}

func TestRefreshStopsWhenPollCloses(t *testing.T) {
	require := require.New(t)
	cfg := testConfig()
	cfg.AutomationAccount = false
	cfg.OnlinePollPeriod = time.Millisecond
	cfg.OfflinePollPeriod = time.Millisecond
	env := newTestEnv(t, cfg)

	id := env.seedServerPoll(t, 7, false)
	env.gateway.mu.Lock()
	env.gateway.fetchUpdate = &ServerUpdate{
		Polls: []PollUpdate{{
			PollID: int64(id),
			Poll:   serverPoll(int64(id), true),
		}},
	}
	env.gateway.mu.Unlock()
	require.NoError(env.manager.RegisterPoll(id, testLocation))

	// The first fetch reports the poll closed; no further refresh is armed.
	require.Eventually(func() bool {
		closed, err := env.manager.GetPollIsClosed(id)
		return err == nil && closed
	}, 5*time.Second, time.Millisecond)

	require.Eventually(func() bool {
		return !env.manager.timeouts.Has(int64(id))
	}, 5*time.Second, time.Millisecond)
}

func TestOnOnlineCollapsesRefreshSchedule(t *testing.T) {
	require := require.New(t)
	cfg := testConfig()
	cfg.AutomationAccount = false
	env := newTestEnv(t, cfg)

	id := env.seedServerPoll(t, 7, false)
	require.NoError(env.manager.RegisterPoll(id, testLocation))
	require.True(env.manager.timeouts.Has(int64(id)))

	env.manager.OnOnline(true)
	require.True(env.manager.timeouts.Has(int64(id)))

	// Going offline leaves whatever is armed alone.
	env.manager.OnOnline(false)
	require.True(env.manager.timeouts.Has(int64(id)))
}

func TestAutomationAccountNeverRefreshes(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, testConfig())

	id := env.seedServerPoll(t, 7, false)
	require.NoError(env.manager.RegisterPoll(id, testLocation))

	require.False(env.manager.timeouts.Has(int64(id)))
	env.manager.OnOnline(true)
	require.False(env.manager.timeouts.Has(int64(id)))

	time.Sleep(10 * time.Millisecond)
	env.gateway.mu.Lock()
	defer env.gateway.mu.Unlock()
	require.Empty(env.gateway.fetches)
}
