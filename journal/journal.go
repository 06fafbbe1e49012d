// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package journal is a durable, replayable record of in-flight poll
// operations. Each entry survives until the operation's response arrives, so
// a crash between dispatch and response is retried on the next startup.
package journal

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
)

// Kind tags the operation an entry records.
type Kind uint8

const (
	KindSetAnswer Kind = iota + 1
	KindStopPoll
)

func (k Kind) String() string {
	switch k {
	case KindSetAnswer:
		return "setAnswer"
	case KindStopPoll:
		return "stopPoll"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

var journalPrefix = []byte("journal")

// Entry is one recorded operation. ID is assigned by Append and stays stable
// across Rewrite.
type Entry struct {
	ID      uint64 `serialize:"true"`
	Kind    Kind   `serialize:"true"`
	Payload []byte `serialize:"true"`
}

// Journal stores entries in a prefixed namespace of the shared key-value
// store, keyed by big-endian entry id so iteration yields replay order.
type Journal struct {
	db     database.Database
	nextID uint64
}

// New opens the journal namespace and positions the id counter after the
// highest existing entry.
func New(db database.Database) (*Journal, error) {
	j := &Journal{db: prefixdb.New(journalPrefix, db)}

	iter := j.db.NewIterator()
	defer iter.Release()
	for iter.Next() {
		if id := binary.BigEndian.Uint64(iter.Key()); id >= j.nextID {
			j.nextID = id + 1
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	if j.nextID == 0 {
		j.nextID = 1
	}
	return j, nil
}

func entryKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// Append durably records a new entry and returns its id.
func (j *Journal) Append(kind Kind, payload []byte) (uint64, error) {
	id := j.nextID
	if err := j.put(id, kind, payload); err != nil {
		return 0, err
	}
	j.nextID++
	return id, nil
}

// Rewrite replaces the entry's contents in place, keeping its id. A
// superseding submission reuses the entry of the one it replaces.
func (j *Journal) Rewrite(id uint64, kind Kind, payload []byte) error {
	has, err := j.db.Has(entryKey(id))
	if err != nil {
		return err
	}
	if !has {
		return fmt.Errorf("journal entry %d: %w", id, database.ErrNotFound)
	}
	return j.put(id, kind, payload)
}

func (j *Journal) put(id uint64, kind Kind, payload []byte) error {
	bytes, err := Codec.Marshal(codecVersion, &Entry{
		ID:      id,
		Kind:    kind,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode journal entry %d: %w", id, err)
	}
	return j.db.Put(entryKey(id), bytes)
}

// Erase removes an entry. Erasing a missing entry is a no-op.
func (j *Journal) Erase(id uint64) error {
	return j.db.Delete(entryKey(id))
}

// Entries returns all recorded entries in id order.
func (j *Journal) Entries() ([]Entry, error) {
	iter := j.db.NewIterator()
	defer iter.Release()

	var entries []Entry
	for iter.Next() {
		entry := Entry{}
		if _, err := Codec.Unmarshal(iter.Value(), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode journal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, iter.Error()
}
