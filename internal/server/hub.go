package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Hub fans recording events out to websocket subscribers. Slow subscribers
// miss events rather than block the recorder.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *Hub) BroadcastRecordingStarted(id, label string) {
	h.broadcastEvent(RecordingStartedEvent{
		Event:       newEvent("recording_started", time.Now().UTC()),
		RecordingID: id,
		Label:       label,
	})
}

func (h *Hub) BroadcastStateChanged(id, state string) {
	h.broadcastEvent(StateChangedEvent{
		Event:       newEvent("state_changed", time.Now().UTC()),
		RecordingID: id,
		State:       state,
	})
}

func (h *Hub) BroadcastRecordingFinished(id, label, state, audioPath, reason string, duration float64) {
	h.broadcastEvent(RecordingFinishedEvent{
		Event:       newEvent("recording_finished", time.Now().UTC()),
		RecordingID: id,
		Label:       label,
		State:       state,
		AudioPath:   audioPath,
		Reason:      reason,
		Duration:    duration,
	})
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}
	h.Broadcast(payload)
}
