package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// eventStream writes Server-Sent Events. Headers are sent on the first event
// so failures before any output can still be answered with a plain JSON error.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newEventStream(w http.ResponseWriter) (*eventStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	return &eventStream{w: w, flusher: flusher}, true
}

func (s *eventStream) start() {
	if s.started {
		return
	}
	s.started = true
	s.w.Header().Set("Content-Type", "text/event-stream")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.Header().Set("Connection", "keep-alive")
	s.w.Header().Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
}

// send writes one event with v encoded as JSON.
func (s *eventStream) send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.start()
	if err := writeSSE(s.w, event, string(data)); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// delta forwards one chunk of model text.
func (s *eventStream) delta(text string) error {
	return s.send("delta", map[string]string{"text": text})
}

// fail reports err as an error event once streaming has begun, or as a
// regular JSON error response otherwise.
func (s *eventStream) fail(err error) {
	if !s.started {
		writeError(s.w, err)
		return
	}
	if werr := s.send("error", map[string]any{"error": err.Error(), "status": statusFor(err)}); werr != nil {
		slog.Warn("failed to write SSE error event", "error", werr)
	}
}
