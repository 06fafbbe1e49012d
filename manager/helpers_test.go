// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package manager

import (
	"context"
	"sync"
	"testing"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/pollsync/manager/config"
	"github.com/luxfi/pollsync/poll"
)

type voteCall struct {
	location poll.Location
	options  []string
}

// fakeGateway records calls and optionally blocks vote requests until the
// test releases them.
type fakeGateway struct {
	mu      sync.Mutex
	votes   []voteCall
	closes  []poll.Location
	fetches []poll.Location

	voteErr     error
	voteUpdate  *ServerUpdate
	closeErr    error
	closeUpdate *ServerUpdate
	fetchErr    error
	fetchUpdate *ServerUpdate

	// When non-nil, SendVote signals voteStarted and then waits for
	// voteRelease to close or the request context to be cancelled.
	voteStarted chan struct{}
	voteRelease chan struct{}
}

func (g *fakeGateway) SendVote(ctx context.Context, location poll.Location, options []string) (*ServerUpdate, error) {
	g.mu.Lock()
	g.votes = append(g.votes, voteCall{location: location, options: options})
	started := g.voteStarted
	release := g.voteRelease
	update, err := g.voteUpdate, g.voteErr
	g.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return update, err
}

func (g *fakeGateway) ClosePoll(ctx context.Context, location poll.Location) (*ServerUpdate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closes = append(g.closes, location)
	return g.closeUpdate, g.closeErr
}

func (g *fakeGateway) FetchResults(ctx context.Context, location poll.Location) (*ServerUpdate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches = append(g.fetches, location)
	return g.fetchUpdate, g.fetchErr
}

func (g *fakeGateway) voteCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.votes)
}

func (g *fakeGateway) closeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.closes)
}

type fakeNotifier struct {
	mu      sync.Mutex
	updated []poll.Location
}

func (n *fakeNotifier) PollUpdated(location poll.Location) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, location)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.updated)
}

type fakeResolver struct {
	mu       sync.Mutex
	resolved []int64
}

func (r *fakeResolver) ResolveChat(ctx context.Context, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, chatID)
	return nil
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	// Background refresh is exercised by its own tests; everywhere else it
	// would only add noise to the fake gateway's call log.
	cfg.AutomationAccount = true
	return cfg
}

type testEnv struct {
	manager  *Manager
	gateway  *fakeGateway
	notifier *fakeNotifier
	resolver *fakeResolver
	db       database.Database
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	return newTestEnvWithDB(t, cfg, memdb.New())
}

func newTestEnvWithDB(t *testing.T, cfg config.Config, db database.Database) *testEnv {
	gateway := &fakeGateway{}
	notifier := &fakeNotifier{}
	resolver := &fakeResolver{}

	m, err := New(cfg, log.NewNoOpLogger(), metric.NewRegistry(), db, gateway, notifier, resolver)
	require.NoError(t, err)
	t.Cleanup(m.Shutdown)

	return &testEnv{
		manager:  m,
		gateway:  gateway,
		notifier: notifier,
		resolver: resolver,
		db:       db,
	}
}

// seedServerPoll installs a server-confirmed poll through the regular
// reconciliation path.
func (e *testEnv) seedServerPoll(t *testing.T, id int64, closed bool) poll.ID {
	t.Helper()
	merged := e.manager.OnServerPoll(poll.ID(id), &ServerPoll{
		ID:       id,
		Question: "favorite color?",
		Answers: []ServerAnswer{
			{Text: "red", Data: "opt-red"},
			{Text: "blue", Data: "opt-blue"},
		},
		IsClosed: closed,
	}, &ServerResults{})
	require.Equal(t, poll.ID(id), merged)
	return merged
}

var testLocation = poll.Location{ChatID: 10, MessageID: 500}
