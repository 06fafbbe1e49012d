// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package journal

import (
	"errors"
	"math"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"

	"github.com/luxfi/pollsync/poll"
)

const codecVersion = 0

var Codec codec.Manager

func init() {
	Codec = codec.NewManager(math.MaxInt)
	lc := linearcodec.NewDefault()

	err := errors.Join(
		lc.RegisterType(&Entry{}),
		lc.RegisterType(&VoteRecord{}),
		lc.RegisterType(&CloseRecord{}),
		Codec.RegisterCodec(codecVersion, lc),
	)
	if err != nil {
		panic(err)
	}
}

// VoteRecord is the payload of a KindSetAnswer entry: everything needed to
// re-issue the vote after a restart.
type VoteRecord struct {
	PollID   int64         `serialize:"true"`
	Location poll.Location `serialize:"true"`
	Options  []string      `serialize:"true"`
}

// CloseRecord is the payload of a KindStopPoll entry.
type CloseRecord struct {
	PollID   int64         `serialize:"true"`
	Location poll.Location `serialize:"true"`
}

func (r *VoteRecord) Marshal() ([]byte, error) {
	return Codec.Marshal(codecVersion, r)
}

func ParseVoteRecord(bytes []byte) (*VoteRecord, error) {
	r := &VoteRecord{}
	if _, err := Codec.Unmarshal(bytes, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CloseRecord) Marshal() ([]byte, error) {
	return Codec.Marshal(codecVersion, r)
}

func ParseCloseRecord(bytes []byte) (*CloseRecord, error) {
	r := &CloseRecord{}
	if _, err := Codec.Unmarshal(bytes, r); err != nil {
		return nil, err
	}
	return r, nil
}
