package audio

import "errors"

var (
	// ErrDevice is returned when the input device cannot be queried or opened.
	ErrDevice = errors.New("input device unavailable")

	// ErrStreamRead is returned when a block read fails mid-capture.
	ErrStreamRead = errors.New("stream read failed")

	// ErrNormalization is returned when every sample equals the bias, leaving
	// no deviation to scale.
	ErrNormalization = errors.New("cannot normalize buffer with zero peak deviation")
)
