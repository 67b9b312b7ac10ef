package server

import "time"

const EventVersion = 1

type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type RecordingStartedEvent struct {
	Event
	RecordingID string `json:"recording_id"`
	Label       string `json:"label"`
}

type StateChangedEvent struct {
	Event
	RecordingID string `json:"recording_id"`
	State       string `json:"state"`
}

type RecordingFinishedEvent struct {
	Event
	RecordingID string  `json:"recording_id"`
	Label       string  `json:"label"`
	State       string  `json:"state"`
	AudioPath   string  `json:"audio_path,omitempty"`
	Reason      string  `json:"reason,omitempty"`
	Duration    float64 `json:"duration"`
}

type ConnectionEvent struct {
	Event
	Connected   bool   `json:"connected"`
	Recording   bool   `json:"recording"`
	RecordingID string `json:"recording_id,omitempty"`
	Label       string `json:"label,omitempty"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
