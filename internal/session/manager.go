package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sjawhar/word-recorder/internal/audio"
	"github.com/sjawhar/word-recorder/internal/storage"
)

// DefaultLabel is used when a recording is started without a label.
const DefaultLabel = "unlabeled"

const uploadTimeout = 2 * time.Minute

var labelPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type ManagerConfig struct {
	AudioDir  string
	Threshold int
	Profile   audio.DeviceProfile
	Open      audio.Opener
	Sink      Sink
	Logf      func(string, ...any)
}

type ManagerOption func(*Manager)

func WithManifest(w ManifestWriter) ManagerOption {
	return func(m *Manager) { m.manifest = w }
}

func WithUploader(u Uploader) ManagerOption {
	return func(m *Manager) { m.uploader = u }
}

func WithObserver(o Observer) ManagerOption {
	return func(m *Manager) { m.observer = o }
}

// Manager runs recording sessions one at a time and records their outcome
// in the catalog.
type Manager struct {
	cfg      ManagerConfig
	store    Store
	hub      EventBroadcaster
	manifest ManifestWriter
	uploader Uploader
	observer Observer

	mu     sync.Mutex
	active *activeRecording
}

type activeRecording struct {
	id     string
	label  string
	cancel context.CancelFunc
	done   chan struct{}
	result Result
	err    error
}

func NewManager(cfg ManagerConfig, store Store, hub EventBroadcaster, opts ...ManagerOption) (*Manager, error) {
	if err := ValidateThreshold(cfg.Threshold); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("recording store is required")
	}
	if cfg.AudioDir == "" {
		cfg.AudioDir = filepath.Join("data", "audio")
	}
	if cfg.Open == nil {
		cfg.Open = audio.OpenMic
	}
	if cfg.Sink == nil {
		cfg.Sink = audio.WriteWAV
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}

	m := &Manager{cfg: cfg, store: store, hub: hub}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Record runs one session synchronously until ctx is cancelled. An empty
// path stores the file under AudioDir/<label>/<id>.wav.
func (m *Manager) Record(ctx context.Context, label, path string) (Result, error) {
	label, err := normalizeLabel(label)
	if err != nil {
		return Result{}, err
	}
	return m.record(ctx, uuid.NewString(), label, path)
}

// Start launches a session in the background and returns its id.
func (m *Manager) Start(label string) (string, error) {
	label, err := normalizeLabel(label)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return "", ErrBusy
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &activeRecording{
		id:     uuid.NewString(),
		label:  label,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.active = a

	go func() {
		defer cancel()
		a.result, a.err = m.record(ctx, a.id, a.label, "")

		m.mu.Lock()
		if m.active == a {
			m.active = nil
		}
		m.mu.Unlock()
		close(a.done)
	}()

	return a.id, nil
}

// Stop cancels the active session and waits for it to finish processing.
func (m *Manager) Stop(ctx context.Context) (Result, error) {
	m.mu.Lock()
	a := m.active
	m.mu.Unlock()
	if a == nil {
		return Result{}, ErrNotRecording
	}

	a.cancel()
	select {
	case <-a.done:
		return a.result, a.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Active returns the id and label of the running session, if any.
func (m *Manager) Active() (id, label string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return "", "", false
	}
	return m.active.id, m.active.label, true
}

// Shutdown stops any active session.
func (m *Manager) Shutdown(ctx context.Context) error {
	_, err := m.Stop(ctx)
	if errors.Is(err, ErrNotRecording) {
		return nil
	}
	return err
}

func (m *Manager) record(ctx context.Context, id, label, path string) (Result, error) {
	if path == "" {
		path = filepath.Join(m.cfg.AudioDir, label, id+".wav")
	}

	startedAt := time.Now().UTC()
	if err := m.store.CreateRecording(storage.Recording{ID: id, Label: label, StartedAt: startedAt}); err != nil {
		return Result{ID: id, Label: label, State: StateFailed}, fmt.Errorf("create recording: %w", err)
	}
	if m.hub != nil {
		m.hub.BroadcastRecordingStarted(id, label)
	}

	sess, err := New(m.cfg.Threshold, m.cfg.Profile, m.cfg.Open, m.cfg.Sink,
		WithLogger(m.cfg.Logf),
		WithStateHook(func(s State) {
			if m.hub != nil {
				m.hub.BroadcastStateChanged(id, string(s))
			}
		}),
	)
	if err != nil {
		m.finish(id, label, Result{State: StateFailed, Reason: err.Error()})
		return Result{ID: id, Label: label, State: StateFailed}, err
	}

	res, runErr := sess.Run(ctx, path)
	res.ID = id
	res.Label = label
	m.finish(id, label, res)

	if res.State == StatePersisted {
		m.afterPersist(res)
	}
	return res, runErr
}

func (m *Manager) finish(id, label string, res Result) {
	endedAt := time.Now().UTC()
	if err := m.store.FinishRecording(id, endedAt, string(res.State), res.Path, len(res.Utterance.Samples), res.Reason); err != nil {
		m.cfg.Logf("warning: finish recording %s: %v", id, err)
	}

	if m.observer != nil {
		m.observer.ObserveRecording(string(res.State), res.RawSamples, len(res.Utterance.Samples), res.Utterance.Duration())
	}
	if m.hub != nil {
		m.hub.BroadcastRecordingFinished(id, label, string(res.State), res.Path, res.Reason, res.Utterance.Duration())
	}
}

func (m *Manager) afterPersist(res Result) {
	if m.manifest != nil {
		if err := m.manifest.Append(res.Path, res.Label, res.Utterance.Duration()); err != nil {
			m.cfg.Logf("warning: manifest append failed: %v", err)
		}
	}

	if m.uploader != nil {
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()
		if err := m.uploader.Upload(ctx, res.Path, res.Label); err != nil {
			m.cfg.Logf("warning: upload %s failed: %v", res.Path, err)
		}
	}
}

func normalizeLabel(label string) (string, error) {
	if label == "" {
		return DefaultLabel, nil
	}
	if !labelPattern.MatchString(label) {
		return "", fmt.Errorf("%w %q: use letters, digits, '-' or '_'", ErrInvalidLabel, label)
	}
	return label, nil
}
