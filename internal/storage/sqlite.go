package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Recording is one capture attempt, whatever its outcome.
type Recording struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	State      string     `json:"state"`
	AudioPath  string     `json:"audio_path"`
	SampleRate int        `json:"sample_rate"`
	Samples    int        `json:"samples"`
	Error      string     `json:"error,omitempty"`
}

// StateCapturing is stored until the attempt finishes.
const StateCapturing = "capturing"

type SQLiteStore struct {
	db         *sql.DB
	sampleRate int
}

func NewSQLiteStore(dbPath string, sampleRate int) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "word-recorder.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, sampleRate: sampleRate}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			state TEXT NOT NULL,
			audio_path TEXT NOT NULL DEFAULT '',
			sample_rate INTEGER NOT NULL DEFAULT 0,
			samples INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT ''
		);
	`); err != nil {
		return fmt.Errorf("create recordings table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_recordings_label ON recordings(label, started_at)"); err != nil {
		return fmt.Errorf("create recordings index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) CreateRecording(rec Recording) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("recording id is required")
	}
	sampleRate := rec.SampleRate
	if sampleRate == 0 {
		sampleRate = s.sampleRate
	}

	_, err := s.db.Exec(
		`INSERT INTO recordings(id, label, started_at, state, sample_rate) VALUES(?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Label,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		StateCapturing,
		sampleRate,
	)
	if err != nil {
		return fmt.Errorf("create recording %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) FinishRecording(id string, endedAt time.Time, state, audioPath string, samples int, errMsg string) error {
	res, err := s.db.Exec(
		`UPDATE recordings SET ended_at = ?, state = ?, audio_path = ?, samples = ?, error = ? WHERE id = ?`,
		endedAt.UTC().Format(time.RFC3339Nano),
		state,
		audioPath,
		samples,
		errMsg,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish recording %s: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish recording rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLiteStore) GetRecording(id string) (Recording, error) {
	rows, err := s.db.Query(
		`SELECT id, label, started_at, ended_at, state, audio_path, sample_rate, samples, error
		 FROM recordings WHERE id = ?`,
		id,
	)
	if err != nil {
		return Recording{}, fmt.Errorf("query recording %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	recs, err := scanRecordings(rows)
	if err != nil {
		return Recording{}, err
	}
	if len(recs) == 0 {
		return Recording{}, fmt.Errorf("query recording %s: %w", id, sql.ErrNoRows)
	}
	return recs[0], nil
}

// ListRecordings returns recordings newest first, optionally limited to one
// label.
func (s *SQLiteStore) ListRecordings(label string) ([]Recording, error) {
	query := `SELECT id, label, started_at, ended_at, state, audio_path, sample_rate, samples, error FROM recordings`
	var args []any
	if label != "" {
		query += ` WHERE label = ?`
		args = append(args, label)
	}
	query += ` ORDER BY started_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecordings(rows)
}

// GetLabels returns every label with at least one persisted recording.
func (s *SQLiteStore) GetLabels() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT label FROM recordings WHERE state = 'persisted' ORDER BY label ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate label rows: %w", err)
	}

	return labels, nil
}

func scanRecordings(rows *sql.Rows) ([]Recording, error) {
	recs := make([]Recording, 0, 16)
	for rows.Next() {
		var rec Recording
		var startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Label, &startedAt, &endedAt, &rec.State, &rec.AudioPath, &rec.SampleRate, &rec.Samples, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}

		parsedStart, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		rec.StartedAt = parsedStart

		if endedAt.Valid {
			parsedEnd, err := time.Parse(time.RFC3339Nano, endedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse ended_at: %w", err)
			}
			rec.EndedAt = &parsedEnd
		}

		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recording rows: %w", err)
	}

	return recs, nil
}
