package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseStream writes Server-Sent Events for the streaming analyze endpoint.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSEStream prepares the response for event streaming. Fails when the
// underlying writer cannot flush.
func newSSEStream(w http.ResponseWriter) (*sseStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	return &sseStream{w: w, flusher: flusher}, nil
}

// event marshals data and emits one named event, flushing immediately so
// stage progress reaches the client as it happens.
func (s *sseStream) event(name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseStream) sendError(message string) {
	s.event("error", map[string]string{"error": message}) //nolint:errcheck
}

// sendComplete closes the stream's logical protocol with the analysis ID
// and final verdict.
func (s *sseStream) sendComplete(analysisID, verdict string) {
	s.event("complete", map[string]string{ //nolint:errcheck
		"analysis_id": analysisID,
		"verdict":     verdict,
	})
}
