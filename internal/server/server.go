package server

import "net/http"

// Handler builds the HTTP API. metrics may be nil.
func Handler(hub *Hub, store RecordingStore, recorder Recorder, metrics http.Handler, warnings []string) http.Handler {
	mux := http.NewServeMux()

	registerWSRoute(mux, hub, recorder)
	registerAPIRoutes(mux, store, recorder, warnings)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	return mux
}
