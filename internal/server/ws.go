package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// registerWSRoute streams recording events. Each client is greeted with the
// recorder's current activity so it can pick up a recording in progress.
func registerWSRoute(mux *http.ServeMux, hub *Hub, recorder Recorder) {
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws upgrade error: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()

		// Subscribed before the greeting so nothing between the two is lost.
		events := hub.Subscribe()
		defer hub.Unsubscribe(events)

		greeting, err := json.Marshal(connectionEvent(recorder, time.Now().UTC()))
		if err != nil {
			log.Printf("ws greeting marshal error: %v", err)
			return
		}
		if err := writeWS(conn, greeting); err != nil {
			return
		}

		// Clients only listen; reading detects when they go away.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-gone:
				return
			case msg := <-events:
				if err := writeWS(conn, msg); err != nil {
					return
				}
			}
		}
	})
}

func connectionEvent(recorder Recorder, now time.Time) ConnectionEvent {
	ev := ConnectionEvent{
		Event:     newEvent("connection", now),
		Connected: true,
	}
	if recorder != nil {
		ev.RecordingID, ev.Label, ev.Recording = recorder.Active()
	}
	return ev
}

func writeWS(conn *websocket.Conn, payload []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}
