package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sjawhar/word-recorder/internal/audio"
)

// Session records a single utterance: capture, silence check, normalization,
// endpoint trimming, then persistence. A Session runs once.
type Session struct {
	threshold int
	profile   audio.DeviceProfile
	open      audio.Opener
	sink      Sink
	logf      func(string, ...any)
	onState   func(State)

	mu    sync.Mutex
	state State
}

type Option func(*Session)

// WithLogger sets the sink for console status lines.
func WithLogger(logf func(string, ...any)) Option {
	return func(s *Session) {
		s.logf = logf
	}
}

// WithStateHook registers a callback invoked on every state transition.
func WithStateHook(fn func(State)) Option {
	return func(s *Session) {
		s.onState = fn
	}
}

func New(threshold int, profile audio.DeviceProfile, open audio.Opener, sink Sink, opts ...Option) (*Session, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if profile.SampleRate <= 0 || profile.BlockSize <= 0 {
		return nil, fmt.Errorf("invalid device profile %+v", profile)
	}
	if open == nil || sink == nil {
		return nil, errors.New("opener and sink are required")
	}

	s := &Session{
		threshold: threshold,
		profile:   profile,
		open:      open,
		sink:      sink,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logf == nil {
		s.logf = func(string, ...any) {}
	}
	return s, nil
}

// ValidateThreshold checks that threshold fits the normalized amplitude range.
func ValidateThreshold(threshold int) error {
	if threshold < 0 || threshold > audio.MaxNormalized {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidThreshold, threshold, audio.MaxNormalized)
	}
	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run captures until ctx is cancelled and processes the result into path.
// A silent recording yields StateRejected with a nil error and no file.
// Cancelling ctx only ends capture; processing after it is not interrupted.
func (s *Session) Run(ctx context.Context, path string) (Result, error) {
	s.mu.Lock()
	switch {
	case s.state.Terminal():
		s.mu.Unlock()
		return Result{}, ErrSessionUsed
	case s.state != StateIdle:
		s.mu.Unlock()
		return Result{}, ErrSessionRunning
	}
	s.state = StateCapturing
	s.mu.Unlock()
	if s.onState != nil {
		s.onState(StateCapturing)
	}

	raw, width, err := s.capture(ctx)
	if err != nil {
		return s.fail(Result{}, err)
	}

	res := Result{RawSamples: len(raw)}

	s.transition(StateClassifying)
	if audio.IsSilent(raw, s.threshold) {
		return s.reject(res, "no sample reached the threshold")
	}

	s.transition(StateNormalizing)
	normalized, err := audio.Normalize(raw)
	if err != nil {
		return s.fail(res, err)
	}

	s.transition(StateTrimming)
	trimmed := audio.Trim(normalized, s.threshold)
	if len(trimmed) == 0 {
		return s.reject(res, "no speech left after trimming")
	}

	res.Utterance = audio.Utterance{
		Samples:     trimmed,
		SampleRate:  s.profile.SampleRate,
		SampleWidth: width,
		Channels:    1,
	}
	if err := s.sink(path, res.Utterance); err != nil {
		return s.fail(res, fmt.Errorf("persist utterance: %w", err))
	}

	res.Path = path
	res.State = StatePersisted
	s.transition(StatePersisted)
	s.logf("saved %.2fs utterance to %s", res.Utterance.Duration(), path)
	return res, nil
}

// capture holds the input stream only for the duration of the read loop.
func (s *Session) capture(ctx context.Context) ([]int16, int, error) {
	stream, err := s.open(s.profile)
	if err != nil {
		if !errors.Is(err, audio.ErrDevice) {
			err = fmt.Errorf("%w: %v", audio.ErrDevice, err)
		}
		return nil, 0, err
	}

	buf, width, err := audio.Capture(ctx, stream, s.logf)
	if closeErr := stream.Close(); closeErr != nil {
		s.logf("warning: close input stream: %v", closeErr)
	}
	if err != nil {
		return nil, 0, err
	}
	return buf.Samples(), width, nil
}

func (s *Session) reject(res Result, reason string) (Result, error) {
	res.State = StateRejected
	res.Reason = reason
	s.transition(StateRejected)
	s.logf("recording discarded: %s", reason)
	return res, nil
}

func (s *Session) fail(res Result, err error) (Result, error) {
	res.State = StateFailed
	res.Reason = err.Error()
	s.transition(StateFailed)
	return res, err
}

func (s *Session) transition(next State) {
	s.mu.Lock()
	s.state = next
	hook := s.onState
	s.mu.Unlock()

	if hook != nil {
		hook(next)
	}
}
