package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sjawhar/word-recorder/internal/session"
	"github.com/sjawhar/word-recorder/internal/storage"
)

var recordingIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type RecordingStore interface {
	ListRecordings(label string) ([]storage.Recording, error)
	GetRecording(id string) (storage.Recording, error)
	GetLabels() ([]string, error)
}

type Recorder interface {
	Start(label string) (string, error)
	Stop(ctx context.Context) (session.Result, error)
	Active() (id, label string, ok bool)
}

type startRequest struct {
	Label string `json:"label"`
}

type resultResponse struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	State    string  `json:"state"`
	Path     string  `json:"audio_path,omitempty"`
	Reason   string  `json:"reason,omitempty"`
	Samples  int     `json:"samples"`
	Duration float64 `json:"duration"`
}

func registerAPIRoutes(mux *http.ServeMux, store RecordingStore, recorder Recorder, warnings []string) {
	mux.HandleFunc("POST /api/recordings/start", func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if r.Body != nil {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
				return
			}
		}
		if req.Label == "" {
			req.Label = r.URL.Query().Get("label")
		}

		id, err := recorder.Start(req.Label)
		switch {
		case errors.Is(err, session.ErrBusy):
			writeJSONError(w, http.StatusConflict, err.Error())
			return
		case errors.Is(err, session.ErrInvalidLabel):
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("start recording: %v", err))
			return
		}

		label := req.Label
		if label == "" {
			label = session.DefaultLabel
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id, "label": label})
	})

	mux.HandleFunc("POST /api/recordings/stop", func(w http.ResponseWriter, r *http.Request) {
		res, err := recorder.Stop(r.Context())
		if errors.Is(err, session.ErrNotRecording) {
			writeJSONError(w, http.StatusConflict, err.Error())
			return
		}
		if res.ID == "" && err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("stop recording: %v", err))
			return
		}

		// A failed recording still has a result worth reporting.
		writeJSON(w, http.StatusOK, resultResponse{
			ID:       res.ID,
			Label:    res.Label,
			State:    string(res.State),
			Path:     res.Path,
			Reason:   res.Reason,
			Samples:  len(res.Utterance.Samples),
			Duration: res.Utterance.Duration(),
		})
	})

	mux.HandleFunc("GET /api/recordings", func(w http.ResponseWriter, r *http.Request) {
		recs, err := store.ListRecordings(r.URL.Query().Get("label"))
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list recordings: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, recs)
	})

	mux.HandleFunc("GET /api/recordings/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !validRecordingID(id) {
			writeJSONError(w, http.StatusForbidden, "invalid recording id")
			return
		}

		rec, err := store.GetRecording(id)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	mux.HandleFunc("GET /api/recordings/{id}/audio", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !validRecordingID(id) {
			writeJSONError(w, http.StatusForbidden, "invalid recording id")
			return
		}

		rec, err := store.GetRecording(id)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		if rec.AudioPath == "" {
			writeJSONError(w, http.StatusNotFound, "audio not available")
			return
		}

		cleanPath := filepath.Clean(rec.AudioPath)
		if cleanPath == "" || cleanPath == "." || strings.Contains(cleanPath, "..") {
			writeJSONError(w, http.StatusForbidden, "invalid audio path")
			return
		}

		f, err := os.Open(cleanPath)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "audio file not found")
			return
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("stat audio: %v", err))
			return
		}

		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Type", "audio/wav")
		http.ServeContent(w, r, filepath.Base(cleanPath), info.ModTime(), f)
	})

	mux.HandleFunc("GET /api/labels", func(w http.ResponseWriter, r *http.Request) {
		labels, err := store.GetLabels()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get labels: %v", err))
			return
		}
		if labels == nil {
			labels = []string{}
		}
		writeJSON(w, http.StatusOK, labels)
	})

	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		id, label, recording := recorder.Active()
		ws := warnings
		if ws == nil {
			ws = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"recording": recording,
			"id":        id,
			"label":     label,
			"warnings":  ws,
		})
	})
}

func writeLookupError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, sql.ErrNoRows) {
		status = http.StatusNotFound
	}
	writeJSONError(w, status, fmt.Sprintf("get recording: %v", err))
}

func validRecordingID(id string) bool {
	return recordingIDPattern.MatchString(id)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
