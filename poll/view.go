// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poll

// OptionView is the display form of one option. IsBeingChosen marks a vote
// that has been submitted but not yet confirmed by the server.
type OptionView struct {
	Text           string `json:"text"`
	VoterCount     int32  `json:"voterCount"`
	VotePercentage int32  `json:"votePercentage"`
	IsChosen       bool   `json:"isChosen"`
	IsBeingChosen  bool   `json:"isBeingChosen"`
}

// View is the public read model of a poll: confirmed state overlaid with any
// pending vote, with voter counts hidden until the user has voted or the poll
// is closed, and with the percentage breakdown attached.
type View struct {
	Question        string       `json:"question"`
	Options         []OptionView `json:"options"`
	TotalVoterCount int32        `json:"totalVoterCount"`
	IsClosed        bool         `json:"isClosed"`
}
