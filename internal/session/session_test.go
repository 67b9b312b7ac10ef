package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/sjawhar/word-recorder/internal/audio"
)

var testProfile = audio.DeviceProfile{SampleRate: 16000, BlockSize: 4}

// scriptedStream returns its blocks in order and cancels the capture
// context once they are exhausted.
type scriptedStream struct {
	mu      sync.Mutex
	blocks  [][]int16
	next    int
	cancel  context.CancelFunc
	readErr error
	closed  bool
}

func (s *scriptedStream) ReadBlock() ([]int16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.blocks) {
		if s.readErr != nil {
			return nil, s.readErr
		}
		return make([]int16, testProfile.BlockSize), nil
	}
	block := s.blocks[s.next]
	s.next++
	if s.next == len(s.blocks) && s.cancel != nil {
		s.cancel()
	}
	return block, nil
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *scriptedStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type sinkMock struct {
	mu     sync.Mutex
	paths  []string
	utters []audio.Utterance
	err    error
}

func (s *sinkMock) write(path string, u audio.Utterance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.paths = append(s.paths, path)
	s.utters = append(s.utters, u)
	return nil
}

func (s *sinkMock) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

func openerFor(stream *scriptedStream) audio.Opener {
	return func(audio.DeviceProfile) (audio.InputStream, error) {
		return stream, nil
	}
}

func newTestSession(t *testing.T, stream *scriptedStream, sink Sink, states *[]State) *Session {
	t.Helper()
	opts := []Option{}
	if states != nil {
		opts = append(opts, WithStateHook(func(s State) { *states = append(*states, s) }))
	}
	sess, err := New(14000, testProfile, openerFor(stream), sink, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return sess
}

func TestSessionPersistsNormalizedTrimmedUtterance(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &scriptedStream{
		blocks: [][]int16{{0, 0, 0, 16384}, {0, 0, 16384, 0}, {0, 0, 0, 0}},
		cancel: cancel,
	}
	sink := &sinkMock{}
	var states []State
	sess := newTestSession(t, stream, sink.write, &states)

	res, err := sess.Run(ctx, "out.wav")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.State != StatePersisted {
		t.Fatalf("expected persisted, got %s (%s)", res.State, res.Reason)
	}
	if res.RawSamples != 12 {
		t.Fatalf("expected 12 raw samples, got %d", res.RawSamples)
	}
	if sink.calls() != 1 || sink.paths[0] != "out.wav" {
		t.Fatalf("expected one write to out.wav, got %v", sink.paths)
	}

	want := []int16{16384, 0, 0, 16384}
	got := sink.utters[0]
	if !reflect.DeepEqual(got.Samples, want) {
		t.Fatalf("unexpected samples: got=%v want=%v", got.Samples, want)
	}
	if got.SampleRate != 16000 || got.Channels != 1 || got.SampleWidth != audio.SampleWidth {
		t.Fatalf("unexpected utterance format: %+v", got)
	}

	wantStates := []State{StateCapturing, StateClassifying, StateNormalizing, StateTrimming, StatePersisted}
	if !reflect.DeepEqual(states, wantStates) {
		t.Fatalf("unexpected transitions: got=%v want=%v", states, wantStates)
	}
	if !stream.isClosed() {
		t.Fatal("expected input stream to be closed")
	}
	if sess.State() != StatePersisted {
		t.Fatalf("expected final state persisted, got %s", sess.State())
	}
}

func TestSessionRejectsQuietRecording(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &scriptedStream{blocks: [][]int16{{100, 200, 300}}, cancel: cancel}
	sink := &sinkMock{}
	sess := newTestSession(t, stream, sink.write, nil)

	res, err := sess.Run(ctx, "quiet.wav")
	if err != nil {
		t.Fatalf("expected nil error for rejection, got %v", err)
	}
	if res.State != StateRejected {
		t.Fatalf("expected rejected, got %s", res.State)
	}
	if sink.calls() != 0 {
		t.Fatalf("expected no file written, got %d writes", sink.calls())
	}
}

func TestSessionSingleZeroBlockSkipsNormalize(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &scriptedStream{blocks: [][]int16{make([]int16, testProfile.BlockSize)}, cancel: cancel}
	sink := &sinkMock{}
	var states []State
	sess := newTestSession(t, stream, sink.write, &states)

	res, err := sess.Run(ctx, "zero.wav")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.State != StateRejected {
		t.Fatalf("expected rejected, got %s", res.State)
	}
	for _, s := range states {
		if s == StateNormalizing {
			t.Fatalf("normalize must not run for a silent buffer, transitions: %v", states)
		}
	}
	if res.RawSamples != testProfile.BlockSize {
		t.Fatalf("expected one block captured, got %d samples", res.RawSamples)
	}
}

func TestSessionDeviceErrorFails(t *testing.T) {
	opener := func(audio.DeviceProfile) (audio.InputStream, error) {
		return nil, errors.New("device busy")
	}
	sink := &sinkMock{}
	sess, err := New(14000, testProfile, opener, sink.write)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	res, err := sess.Run(context.Background(), "x.wav")
	if !errors.Is(err, audio.ErrDevice) {
		t.Fatalf("expected ErrDevice, got %v", err)
	}
	if res.State != StateFailed {
		t.Fatalf("expected failed, got %s", res.State)
	}
}

func TestSessionStreamReadErrorReleasesStream(t *testing.T) {
	stream := &scriptedStream{blocks: [][]int16{{20000}}, readErr: errors.New("overflow")}
	sink := &sinkMock{}
	sess := newTestSession(t, stream, sink.write, nil)

	res, err := sess.Run(context.Background(), "x.wav")
	if !errors.Is(err, audio.ErrStreamRead) {
		t.Fatalf("expected ErrStreamRead, got %v", err)
	}
	if res.State != StateFailed {
		t.Fatalf("expected failed, got %s", res.State)
	}
	if !stream.isClosed() {
		t.Fatal("expected stream to be closed on read failure")
	}
	if sink.calls() != 0 {
		t.Fatal("expected no write after read failure")
	}
}

func TestSessionSinkErrorLeavesNoFile(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")
	stream := &scriptedStream{blocks: [][]int16{{0, 20000, 0}}, cancel: cancel}
	sink := func(string, audio.Utterance) error { return errors.New("disk full") }
	sess := newTestSession(t, stream, sink, nil)

	res, err := sess.Run(ctx, path)
	if err == nil {
		t.Fatal("expected sink error")
	}
	if res.State != StateFailed {
		t.Fatalf("expected failed, got %s", res.State)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("expected no file at %s", path)
	}
}

func TestSessionWritesRealWAV(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "hello", "take.wav")
	stream := &scriptedStream{blocks: [][]int16{{0, 0, 30000, -15000}, {0, 30000, 0, 0}}, cancel: cancel}
	sess := newTestSession(t, stream, audio.WriteWAV, nil)

	res, err := sess.Run(ctx, path)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got, err := audio.ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if !reflect.DeepEqual(got.Samples, res.Utterance.Samples) {
		t.Fatalf("round trip mismatch: got=%v want=%v", got.Samples, res.Utterance.Samples)
	}
	if got.SampleRate != testProfile.SampleRate || got.Channels != 1 {
		t.Fatalf("unexpected wav format: %+v", got)
	}
}

func TestSessionRunsOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess := newTestSession(t, &scriptedStream{}, (&sinkMock{}).write, nil)
	if _, err := sess.Run(ctx, "a.wav"); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if _, err := sess.Run(ctx, "a.wav"); !errors.Is(err, ErrSessionUsed) {
		t.Fatalf("expected ErrSessionUsed, got %v", err)
	}
}

func TestSessionRunWhileRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sess *Session
	var nestedErr error
	opener := func(audio.DeviceProfile) (audio.InputStream, error) {
		_, nestedErr = sess.Run(ctx, "b.wav")
		return &scriptedStream{}, nil
	}
	sess, err := New(14000, testProfile, opener, (&sinkMock{}).write)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := sess.Run(ctx, "a.wav"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !errors.Is(nestedErr, ErrSessionRunning) {
		t.Fatalf("expected ErrSessionRunning, got %v", nestedErr)
	}
}

func TestSessionEmptyCaptureRejectedAtZeroThreshold(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := &scriptedStream{}
	sink := &sinkMock{}
	var states []State
	sess, err := New(0, testProfile, openerFor(stream), sink.write,
		WithStateHook(func(s State) { states = append(states, s) }))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	res, err := sess.Run(ctx, "empty.wav")
	if err != nil {
		t.Fatalf("expected nil error for rejection, got %v", err)
	}
	if res.State != StateRejected {
		t.Fatalf("expected rejected, got %s (%s)", res.State, res.Reason)
	}
	if res.RawSamples != 0 {
		t.Fatalf("expected no samples captured, got %d", res.RawSamples)
	}
	wantStates := []State{StateCapturing, StateClassifying, StateRejected}
	if !reflect.DeepEqual(states, wantStates) {
		t.Fatalf("unexpected transitions: got=%v want=%v", states, wantStates)
	}
	if sink.calls() != 0 {
		t.Fatal("expected no write for an empty capture")
	}
}

func TestNewRejectsInvalidThreshold(t *testing.T) {
	sink := (&sinkMock{}).write
	for _, threshold := range []int{-1, audio.MaxNormalized + 1} {
		_, err := New(threshold, testProfile, openerFor(&scriptedStream{}), sink)
		if !errors.Is(err, ErrInvalidThreshold) {
			t.Fatalf("expected ErrInvalidThreshold for %d, got %v", threshold, err)
		}
	}
	if _, err := New(audio.MaxNormalized, testProfile, openerFor(&scriptedStream{}), sink); err != nil {
		t.Fatalf("expected max threshold to be accepted, got %v", err)
	}
}
