package session

import (
	"context"
	"time"

	"github.com/sjawhar/word-recorder/internal/audio"
	"github.com/sjawhar/word-recorder/internal/storage"
)

// State is a step of a recording session.
type State string

const (
	StateIdle        State = "idle"
	StateCapturing   State = "capturing"
	StateClassifying State = "classifying"
	StateNormalizing State = "normalizing"
	StateTrimming    State = "trimming"
	StatePersisted   State = "persisted"
	StateRejected    State = "rejected"
	StateFailed      State = "failed"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StatePersisted || s == StateRejected || s == StateFailed
}

// Result describes how a recording attempt ended.
type Result struct {
	ID         string
	Label      string
	State      State
	Path       string
	Reason     string
	RawSamples int
	Utterance  audio.Utterance
}

// Sink persists a finished utterance.
type Sink func(path string, u audio.Utterance) error

type Store interface {
	CreateRecording(rec storage.Recording) error
	FinishRecording(id string, endedAt time.Time, state, audioPath string, samples int, errMsg string) error
}

type EventBroadcaster interface {
	BroadcastRecordingStarted(id, label string)
	BroadcastStateChanged(id, state string)
	BroadcastRecordingFinished(id, label, state, audioPath, reason string, duration float64)
}

type ManifestWriter interface {
	Append(path, label string, seconds float64) error
}

type Uploader interface {
	Upload(ctx context.Context, localPath, label string) error
}

type Observer interface {
	ObserveRecording(state string, rawSamples, keptSamples int, seconds float64)
}
