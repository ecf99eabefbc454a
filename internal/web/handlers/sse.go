package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// setupSSEConnection sets the SSE headers. On failure it writes an error
// response and returns false.
func setupSSEConnection(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return flusher, true
}

// sendSSEEvent writes one event and flushes it.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}

// streamStates sends initial and then every published state until the client
// disconnects or the screen closes, which ends the stream with a "closed" event.
func streamStates[T any](w http.ResponseWriter, r *http.Request, initial T, updates <-chan T, cancel func()) {
	defer cancel()

	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	sendSSEEvent(w, flusher, "state", initial)

	for {
		select {
		case <-r.Context().Done():
			return
		case state, ok := <-updates:
			if !ok {
				sendSSEEvent(w, flusher, "closed", map[string]string{"status": "closed"})
				return
			}
			sendSSEEvent(w, flusher, "state", state)
		}
	}
}
