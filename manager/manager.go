// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package manager owns the client-side lifecycle of interactive polls: local
// drafts, reconciliation with server state, crash-safe vote submission and
// closing, and background refresh of vote tallies.
package manager

import (
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"
	"github.com/luxfi/metric"

	"github.com/luxfi/pollsync/journal"
	"github.com/luxfi/pollsync/manager/config"
	"github.com/luxfi/pollsync/poll"
	"github.com/luxfi/pollsync/storage"
	"github.com/luxfi/pollsync/timeout"
)

var (
	errPollNotFound      = errors.New("poll not found")
	errPollClosed        = errors.New("can't answer closed poll")
	errLocalPoll         = errors.New("poll can't be answered")
	errTooManyOptions    = errors.New("can't choose more than 1 option")
	errInvalidOptionID   = errors.New("invalid option id specified")
	errAlreadyRegistered = errors.New("poll already registered at this location")
	errNotRegistered     = errors.New("poll is not registered at this location")
)

// pendingAnswer tracks the single outstanding vote submission for one poll.
// Supersession builds a fresh value carrying over only the journal entry id.
type pendingAnswer struct {
	options    []string
	generation uint64
	logEntryID uint64
	cancel     func()
	waiters    []chan<- error
}

// pendingClose is the simpler analogue for a close operation.
type pendingClose struct {
	generation uint64
	logEntryID uint64
	waiters    []chan<- error
}

// Manager is the single logical owner of all poll state. One mutex serializes
// every mutation; gateway calls and response handling run on their own
// goroutines and re-enter through it.
type Manager struct {
	cfg      config.Config
	log      log.Logger
	metrics  *managerMetrics
	gateway  Gateway
	notifier Notifier
	resolver DependencyResolver
	store    *storage.Store
	journal  *journal.Journal
	timeouts *timeout.Scheduler

	mu             sync.Mutex
	polls          map[poll.ID]*poll.Poll
	loadedFromDB   set.Set[poll.ID]
	registrations  map[poll.ID]set.Set[poll.Location]
	pendingAnswers map[poll.ID]*pendingAnswer
	pendingCloses  map[poll.ID]*pendingClose

	// Process-wide generation counter shared across all polls. Any response
	// tagged with a generation other than the current one is stale.
	generation uint64

	nextLocalID  int64
	online       bool
	shuttingDown bool
}

// New creates a poll manager over the given durable store. The database holds
// both persisted polls and the crash-recovery journal; callers typically pass
// a ReplayJournal call right after construction.
func New(
	cfg config.Config,
	logger log.Logger,
	registerer metric.Registerer,
	db database.Database,
	gateway Gateway,
	notifier Notifier,
	resolver DependencyResolver,
) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	metrics, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}

	j, err := journal.New(db)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	m := &Manager{
		cfg:            cfg,
		log:            logger,
		metrics:        metrics,
		gateway:        gateway,
		notifier:       notifier,
		resolver:       resolver,
		store:          storage.New(db),
		journal:        j,
		polls:          make(map[poll.ID]*poll.Poll),
		loadedFromDB:   set.NewSet[poll.ID](0),
		registrations:  make(map[poll.ID]set.Set[poll.Location]),
		pendingAnswers: make(map[poll.ID]*pendingAnswer),
		pendingCloses:  make(map[poll.ID]*pendingClose),
	}
	m.timeouts = timeout.NewScheduler(m.onUpdatePollTimeout)
	return m, nil
}

// Shutdown stops background refresh and switches response handling into
// shutdown mode: in-flight failures are swallowed so their journal entries
// survive for replay on the next startup.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.shuttingDown = true
	m.mu.Unlock()
	m.timeouts.Stop()
}

func (m *Manager) getPoll(id poll.ID) *poll.Poll {
	return m.polls[id]
}

// getPollForce returns the poll, attempting exactly one load from durable
// storage per id per process lifetime. A negative result is cached.
func (m *Manager) getPollForce(id poll.ID) *poll.Poll {
	if p := m.polls[id]; p != nil {
		return p
	}
	if !m.cfg.PersistPolls {
		return nil
	}
	if m.loadedFromDB.Contains(id) {
		return nil
	}
	m.loadedFromDB.Add(id)

	p, err := m.store.Get(id)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			m.log.Error("failed to load poll from database", "pollID", id, "error", err)
		}
		return nil
	}
	m.log.Debug("loaded poll from database", "pollID", id)
	m.polls[id] = p
	return p
}

// HavePoll reports whether the poll is known, loading from storage if needed.
func (m *Manager) HavePoll(id poll.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getPollForce(id) != nil
}

// GetPollIsClosed reports whether a known poll is closed.
func (m *Manager) GetPollIsClosed(id poll.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.getPollForce(id)
	if p == nil {
		return false, errPollNotFound
	}
	return p.IsClosed, nil
}

// GetPollSearchText returns the question and option texts for indexing.
func (m *Manager) GetPollSearchText(id poll.ID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.getPollForce(id)
	if p == nil {
		return "", errPollNotFound
	}
	return p.SearchText(), nil
}

// CreatePoll allocates a local draft poll. Local ids count down inside a
// reserved negative range and never collide with server ids.
func (m *Manager) CreatePoll(question string, options []string) poll.ID {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := &poll.Poll{
		Question: question,
		Options:  make([]poll.Option, 0, len(options)),
	}
	for i, text := range options {
		p.Options = append(p.Options, poll.Option{
			Text: text,
			Data: string([]byte{byte(i)}),
		})
	}

	m.nextLocalID--
	id := poll.ID(m.nextLocalID)
	m.polls[id] = p
	m.log.Info("created local poll", "pollID", id, "question", question)
	return id
}

// RegisterPoll records that the poll is displayed at the location and, for
// open server polls of non-automation accounts, arms the refresh timeout.
func (m *Manager) RegisterPoll(id poll.ID, location poll.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.getPollForce(id)
	if p == nil {
		return errPollNotFound
	}

	locations, ok := m.registrations[id]
	if !ok {
		locations = set.NewSet[poll.Location](1)
		m.registrations[id] = locations
	}
	if locations.Contains(location) {
		return errAlreadyRegistered
	}
	locations.Add(location)
	m.log.Debug("registered poll", "pollID", id, "location", location)

	if !m.cfg.AutomationAccount && !id.IsLocal() && !p.IsClosed {
		m.timeouts.Add(int64(id), 0)
	}
	return nil
}

// UnregisterPoll removes one display location. A poll with no remaining
// locations is evicted from the refresh scheduler.
func (m *Manager) UnregisterPoll(id poll.ID, location poll.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	locations, ok := m.registrations[id]
	if !ok || !locations.Contains(location) {
		return errNotRegistered
	}
	locations.Remove(location)
	m.log.Debug("unregistered poll", "pollID", id, "location", location)

	if locations.Len() == 0 {
		delete(m.registrations, id)
		m.timeouts.Cancel(int64(id))
	}
	return nil
}

// notifyOnPollUpdate emits a content-changed event to every display location.
// Callers hold m.mu.
func (m *Manager) notifyOnPollUpdate(id poll.ID) {
	for location := range m.registrations[id] {
		m.notifier.PollUpdated(location)
	}
}

// savePoll persists a server-confirmed poll. Callers hold m.mu.
func (m *Manager) savePoll(id poll.ID, p *poll.Poll) {
	if id.IsLocal() {
		m.log.Error("refusing to persist local poll", "pollID", id)
		return
	}
	if !m.cfg.PersistPolls {
		return
	}
	if err := m.store.Put(id, p); err != nil {
		m.log.Error("failed to persist poll", "pollID", id, "error", err)
	}
}
