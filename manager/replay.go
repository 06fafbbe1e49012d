// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package manager

import (
	"context"
	"fmt"

	"github.com/luxfi/pollsync/journal"
	"github.com/luxfi/pollsync/poll"
)

// ReplayJournal re-issues every operation that was in flight when the
// previous process stopped, reusing each recorded entry id so a second crash
// does not duplicate entries. An entry of unknown kind means the journal and
// the code disagree about the format; that is fatal to startup.
func (m *Manager) ReplayJournal(ctx context.Context) error {
	entries, err := m.journal.Entries()
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	for _, entry := range entries {
		switch entry.Kind {
		case journal.KindSetAnswer:
			if !m.cfg.PersistPolls {
				if err := m.journal.Erase(entry.ID); err != nil {
					return err
				}
				continue
			}
			record, err := journal.ParseVoteRecord(entry.Payload)
			if err != nil {
				return fmt.Errorf("failed to parse vote record %d: %w", entry.ID, err)
			}
			if err := m.resolver.ResolveChat(ctx, record.Location.ChatID); err != nil {
				m.log.Error("failed to resolve chat for replayed vote",
					"entryID", entry.ID, "chatID", record.Location.ChatID, "error", err)
			}

			m.log.Info("replaying vote submission", "pollID", record.PollID, "entryID", entry.ID)
			m.metrics.journalReplays.Inc()
			m.mu.Lock()
			m.doSetPollAnswer(poll.ID(record.PollID), record.Location, record.Options, entry.ID, make(chan error, 1))
			m.mu.Unlock()

		case journal.KindStopPoll:
			if !m.cfg.PersistPolls {
				if err := m.journal.Erase(entry.ID); err != nil {
					return err
				}
				continue
			}
			record, err := journal.ParseCloseRecord(entry.Payload)
			if err != nil {
				return fmt.Errorf("failed to parse close record %d: %w", entry.ID, err)
			}
			if err := m.resolver.ResolveChat(ctx, record.Location.ChatID); err != nil {
				m.log.Error("failed to resolve chat for replayed close",
					"entryID", entry.ID, "chatID", record.Location.ChatID, "error", err)
			}

			m.log.Info("replaying poll close", "pollID", record.PollID, "entryID", entry.ID)
			m.metrics.journalReplays.Inc()
			m.mu.Lock()
			m.doStopPoll(poll.ID(record.PollID), record.Location, entry.ID, make(chan error, 1))
			m.mu.Unlock()

		default:
			return fmt.Errorf("unsupported journal entry kind %s (entry %d)", entry.Kind, entry.ID)
		}
	}
	return nil
}
