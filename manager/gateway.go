// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package manager

import (
	"context"
	"errors"

	"github.com/luxfi/pollsync/poll"
)

var (
	// ErrChatAccessDenied is returned by gateway implementations when the
	// current user has no access to the chat hosting the poll.
	ErrChatAccessDenied = errors.New("can't access the chat")

	// ErrPollNotModified is the server's answer to closing an
	// already-closed poll. The manager maps it to success for
	// non-automation accounts.
	ErrPollNotModified = errors.New("poll not modified")
)

// ServerAnswer is one option as the server describes it.
type ServerAnswer struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// ServerPoll is the metadata block of a server push or response.
type ServerPoll struct {
	ID       int64          `json:"id"`
	Question string         `json:"question"`
	Answers  []ServerAnswer `json:"answers"`
	IsClosed bool           `json:"isClosed"`
}

// ServerAnswerVoters is the tally the server reports for one option.
type ServerAnswerVoters struct {
	Data     string `json:"data"`
	Voters   int32  `json:"voters"`
	IsChosen bool   `json:"isChosen"`
}

// ServerResults is the results block of a server push or response. IsMin
// marks a minimal result set where per-user chosen state was omitted; chosen
// flags must then be left untouched.
type ServerResults struct {
	IsMin          bool                 `json:"isMin"`
	HasTotalVoters bool                 `json:"hasTotalVoters"`
	TotalVoters    int32                `json:"totalVoters"`
	Results        []ServerAnswerVoters `json:"results"`
}

// PollUpdate pairs optional metadata with a results block for one poll.
type PollUpdate struct {
	PollID  int64
	Poll    *ServerPoll
	Results *ServerResults
}

// ServerUpdate is the typed result of a gateway call: zero or more poll
// updates the server attached to the response.
type ServerUpdate struct {
	Polls []PollUpdate
}

// Gateway is the network boundary. Implementations construct and parse wire
// requests; the manager only sees typed results. Access failures are
// reported as ErrChatAccessDenied, the idempotent-close server sentinel as
// ErrPollNotModified.
type Gateway interface {
	SendVote(ctx context.Context, location poll.Location, options []string) (*ServerUpdate, error)
	ClosePoll(ctx context.Context, location poll.Location) (*ServerUpdate, error)
	FetchResults(ctx context.Context, location poll.Location) (*ServerUpdate, error)
}

// Notifier receives a content-changed event for every display location of a
// poll whose observable state changed. Implementations must not call back
// into the Manager synchronously.
type Notifier interface {
	PollUpdated(location poll.Location)
}

// DependencyResolver loads the conversation hosting a replayed operation
// before its request is re-issued at startup.
type DependencyResolver interface {
	ResolveChat(ctx context.Context, chatID int64) error
}
