// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package poll defines the core poll data model shared by the manager,
// storage, and journal layers.
package poll

import (
	"fmt"
	"math"
	"strings"
)

// ID identifies a poll. Server-assigned ids are non-negative (or outside the
// local range); ids in (math.MinInt32, 0) denote local drafts that have never
// been sent to a server.
type ID int64

// IsLocal reports whether the id denotes a local draft poll.
func (id ID) IsLocal() bool {
	return id < 0 && id > math.MinInt32
}

func (id ID) String() string {
	return fmt.Sprintf("poll %d", int64(id))
}

// Location is a (chat, message) pair at which a poll is displayed. A poll
// forwarded to several chats has several locations.
type Location struct {
	ChatID    int64 `serialize:"true" json:"chatId"`
	MessageID int64 `serialize:"true" json:"messageId"`
}

func (l Location) String() string {
	return fmt.Sprintf("message %d in chat %d", l.MessageID, l.ChatID)
}

// Option is a single poll answer. Data is the server's opaque option
// identifier used on the wire; Text is what the user sees. Option order is
// canonical: votes are submitted by index into Poll.Options.
type Option struct {
	Text       string `serialize:"true" json:"text"`
	Data       string `serialize:"true" json:"data"`
	VoterCount int32  `serialize:"true" json:"voterCount"`
	IsChosen   bool   `serialize:"true" json:"isChosen"`
}

// Poll is the confirmed state of a poll as last merged from the server, or a
// local draft.
type Poll struct {
	Question        string   `serialize:"true" json:"question"`
	Options         []Option `serialize:"true" json:"options"`
	TotalVoterCount int32    `serialize:"true" json:"totalVoterCount"`
	IsClosed        bool     `serialize:"true" json:"isClosed"`
}

// SearchText returns the question and option texts joined for full-text
// indexing by the surrounding message store.
func (p *Poll) SearchText() string {
	var sb strings.Builder
	sb.WriteString(p.Question)
	for _, option := range p.Options {
		sb.WriteByte(' ')
		sb.WriteString(option.Text)
	}
	return sb.String()
}
