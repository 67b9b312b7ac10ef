package session

import "errors"

var (
	// ErrInvalidThreshold is returned when a threshold lies outside [0, 16384].
	ErrInvalidThreshold = errors.New("threshold out of range")

	// ErrInvalidLabel is returned for labels that are not safe directory names.
	ErrInvalidLabel = errors.New("invalid label")

	// ErrSessionUsed is returned by Run on a session that already ran.
	ErrSessionUsed = errors.New("recording session already used")

	// ErrSessionRunning is returned by Run while the same session is still
	// capturing or processing.
	ErrSessionRunning = errors.New("recording session already running")

	// ErrBusy is returned by Start while another recording is in progress.
	ErrBusy = errors.New("recording already in progress")

	// ErrNotRecording is returned by Stop when nothing is being recorded.
	ErrNotRecording = errors.New("no active recording")
)
