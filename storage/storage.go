// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package storage persists server-confirmed polls in a key-value store.
package storage

import (
	"fmt"
	"strconv"

	"github.com/luxfi/cache/lru"
	"github.com/luxfi/database"

	"github.com/luxfi/pollsync/poll"
)

const (
	keyPrefix = "poll"

	defaultCacheSize = 256
)

// Store reads and writes polls keyed "poll" + decimal id. Local draft polls
// are never stored; callers enforce that.
type Store struct {
	db    database.Database
	cache *lru.Cache[poll.ID, *poll.Poll]
}

func New(db database.Database) *Store {
	return &Store{
		db:    db,
		cache: lru.NewCache[poll.ID, *poll.Poll](defaultCacheSize),
	}
}

func pollKey(id poll.ID) []byte {
	return []byte(keyPrefix + strconv.FormatInt(int64(id), 10))
}

// Put persists a poll. The stored value replaces any previous one.
func (s *Store) Put(id poll.ID, p *poll.Poll) error {
	bytes, err := Codec.Marshal(codecVersion, p)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", id, err)
	}
	if err := s.db.Put(pollKey(id), bytes); err != nil {
		return err
	}
	s.cache.Put(id, p)
	return nil
}

// Get returns the stored poll, or database.ErrNotFound if none exists.
func (s *Store) Get(id poll.ID) (*poll.Poll, error) {
	if p, ok := s.cache.Get(id); ok {
		return p, nil
	}

	bytes, err := s.db.Get(pollKey(id))
	if err != nil {
		return nil, err
	}

	p := &poll.Poll{}
	if _, err := Codec.Unmarshal(bytes, p); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", id, err)
	}
	s.cache.Put(id, p)
	return p, nil
}
