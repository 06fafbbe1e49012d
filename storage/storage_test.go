// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"testing"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/pollsync/poll"
)

func TestStorePutGet(t *testing.T) {
	require := require.New(t)

	store := New(memdb.New())

	p := &poll.Poll{
		Question: "best chain?",
		Options: []poll.Option{
			{Text: "this one", Data: "\x00", VoterCount: 7, IsChosen: true},
			{Text: "that one", Data: "\x01", VoterCount: 3},
		},
		TotalVoterCount: 10,
	}
	require.NoError(store.Put(poll.ID(123), p))

	got, err := store.Get(poll.ID(123))
	require.NoError(err)
	require.Equal(p, got)
}

func TestStoreGetMissing(t *testing.T) {
	store := New(memdb.New())

	_, err := store.Get(poll.ID(404))
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestStoreGetBypassesCacheOnFreshStore(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	store := New(db)
	p := &poll.Poll{Question: "q", Options: []poll.Option{{Text: "a", Data: "\x00"}}}
	require.NoError(store.Put(poll.ID(1), p))

	// A second store over the same database must decode from disk.
	reopened := New(db)
	got, err := reopened.Get(poll.ID(1))
	require.NoError(err)
	require.Equal(p, got)
}
