// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package manager

import (
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/luxfi/utils/json"

	"github.com/luxfi/pollsync/poll"
)

// Service exposes poll operations over JSON-RPC.
type Service struct {
	m *Manager
}

// CreateHandlers returns the HTTP handlers of the manager's RPC surface.
func (m *Manager) CreateHandlers() (map[string]http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json.NewCodec(), "application/json")
	server.RegisterCodec(json.NewCodec(), "application/json;charset=UTF-8")
	if err := server.RegisterService(&Service{m: m}, "pollsync"); err != nil {
		return nil, err
	}
	return map[string]http.Handler{
		"/rpc": server,
	}, nil
}

// CreatePollArgs are the arguments for CreatePoll
type CreatePollArgs struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// CreatePollReply is the reply for CreatePoll
type CreatePollReply struct {
	PollID int64 `json:"pollId"`
}

// CreatePoll creates a local draft poll
func (s *Service) CreatePoll(r *http.Request, args *CreatePollArgs, reply *CreatePollReply) error {
	reply.PollID = int64(s.m.CreatePoll(args.Question, args.Options))
	return nil
}

// RegisterPollArgs are the arguments for RegisterPoll and UnregisterPoll
type RegisterPollArgs struct {
	PollID    int64 `json:"pollId"`
	ChatID    int64 `json:"chatId"`
	MessageID int64 `json:"messageId"`
}

// RegisterPollReply is the reply for RegisterPoll and UnregisterPoll
type RegisterPollReply struct{}

// RegisterPoll registers a display location for a poll
func (s *Service) RegisterPoll(r *http.Request, args *RegisterPollArgs, reply *RegisterPollReply) error {
	return s.m.RegisterPoll(poll.ID(args.PollID), poll.Location{
		ChatID:    args.ChatID,
		MessageID: args.MessageID,
	})
}

// UnregisterPoll removes a display location for a poll
func (s *Service) UnregisterPoll(r *http.Request, args *RegisterPollArgs, reply *RegisterPollReply) error {
	return s.m.UnregisterPoll(poll.ID(args.PollID), poll.Location{
		ChatID:    args.ChatID,
		MessageID: args.MessageID,
	})
}

// SubmitAnswerArgs are the arguments for SubmitAnswer
type SubmitAnswerArgs struct {
	PollID    int64   `json:"pollId"`
	ChatID    int64   `json:"chatId"`
	MessageID int64   `json:"messageId"`
	OptionIDs []int32 `json:"optionIds"`
}

// SubmitAnswerReply is the reply for SubmitAnswer
type SubmitAnswerReply struct{}

// SubmitAnswer submits the user's vote
func (s *Service) SubmitAnswer(r *http.Request, args *SubmitAnswerArgs, reply *SubmitAnswerReply) error {
	return s.m.SubmitAnswer(r.Context(), poll.ID(args.PollID), poll.Location{
		ChatID:    args.ChatID,
		MessageID: args.MessageID,
	}, args.OptionIDs)
}

// StopPollArgs are the arguments for StopPoll
type StopPollArgs struct {
	PollID    int64 `json:"pollId"`
	ChatID    int64 `json:"chatId"`
	MessageID int64 `json:"messageId"`
}

// StopPollReply is the reply for StopPoll
type StopPollReply struct{}

// StopPoll closes a poll
func (s *Service) StopPoll(r *http.Request, args *StopPollArgs, reply *StopPollReply) error {
	return s.m.StopPoll(r.Context(), poll.ID(args.PollID), poll.Location{
		ChatID:    args.ChatID,
		MessageID: args.MessageID,
	})
}

// GetPollArgs are the arguments for GetPoll
type GetPollArgs struct {
	PollID int64 `json:"pollId"`
}

// GetPollReply is the reply for GetPoll
type GetPollReply struct {
	Poll *poll.View `json:"poll"`
}

// GetPoll returns the display form of a poll
func (s *Service) GetPoll(r *http.Request, args *GetPollArgs, reply *GetPollReply) error {
	view, err := s.m.GetPollView(poll.ID(args.PollID))
	if err != nil {
		return err
	}
	reply.Poll = view
	return nil
}
