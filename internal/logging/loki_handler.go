package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

const flushInterval = 5 * time.Second

// LokiHandler is a slog.Handler that pushes JSON log lines to Loki over HTTP.
// Lines are batched and flushed when the batch is full, every five seconds, or on Close.
// Handlers derived through WithAttrs/WithGroup share the same batch.
type LokiHandler struct {
	sink   *lokiSink
	level  slog.Level
	attrs  []slog.Attr // pre-resolved attrs, already nested under their groups
	groups []string
}

// lokiSink owns the batch and the HTTP client / Possède le lot et le client HTTP
type lokiSink struct {
	url        string
	labels     map[string]string
	client     *http.Client
	enabled    bool
	batchSize  int
	mu         sync.Mutex
	batch      []lokiEntry
	flushTimer *time.Timer
	closed     bool // set by Close; the periodic flush stops re-arming
	errOut     io.Writer
}

type lokiEntry struct {
	timestamp time.Time
	line      string
}

type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

// NewLokiHandler creates a new handler that sends logs to Loki.
// url: Loki endpoint (e.g., "http://localhost:3100")
// labels: Static labels to attach to all logs (e.g., {"app": "ehs-access"})
// batchSize: Number of logs to batch before sending (0 = send immediately)
func NewLokiHandler(url string, labels map[string]string, batchSize int, enabled bool, level slog.Level) *LokiHandler {
	if labels == nil {
		labels = make(map[string]string)
	}

	sink := &lokiSink{
		url:       url + "/loki/api/v1/push",
		labels:    labels,
		client:    &http.Client{Timeout: 5 * time.Second},
		enabled:   enabled,
		batchSize: batchSize,
		batch:     make([]lokiEntry, 0, batchSize),
		errOut:    os.Stderr,
	}

	if batchSize > 0 && enabled {
		sink.flushTimer = time.AfterFunc(flushInterval, sink.periodicFlush)
	}

	return &LokiHandler{sink: sink, level: level}
}

// Enabled reports whether the handler handles records at the given level.
func (h *LokiHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.sink.enabled && level >= h.level
}

// Handle encodes the record as one JSON line / Encode l'enregistrement en une ligne JSON
func (h *LokiHandler) Handle(_ context.Context, r slog.Record) error {
	if !h.sink.enabled {
		return nil
	}

	logData := map[string]any{
		"time":  r.Time.Format(time.RFC3339Nano),
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, a := range h.attrs {
		addAttr(logData, a)
	}

	target := logData
	for _, g := range h.groups {
		sub, ok := target[g].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			target[g] = sub
		}
		target = sub
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(target, a)
		return true
	})

	logJSON, err := json.Marshal(logData)
	if err != nil {
		return fmt.Errorf("failed to marshal log to JSON: %w", err)
	}

	return h.sink.add(lokiEntry{timestamp: r.Time, line: string(logJSON)})
}

// WithAttrs returns a handler that adds attrs to every record / Retourne un handler avec attributs persistants
func (h *LokiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nested := attrs
	for i := len(h.groups) - 1; i >= 0; i-- {
		nested = []slog.Attr{{Key: h.groups[i], Value: slog.GroupValue(nested...)}}
	}

	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), nested...)
	return &clone
}

// WithGroup returns a handler that nests later attrs under name / Retourne un handler avec groupe
func (h *LokiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

// Close flushes any remaining logs and stops the periodic flush timer
func (h *LokiHandler) Close() error {
	h.sink.mu.Lock()
	h.sink.closed = true
	if h.sink.flushTimer != nil {
		h.sink.flushTimer.Stop()
	}
	h.sink.mu.Unlock()
	return h.sink.flush()
}

// addAttr writes a resolved attribute into dst, expanding groups
func addAttr(dst map[string]any, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() != slog.KindGroup {
		switch a.Value.Kind() {
		case slog.KindDuration:
			dst[a.Key] = a.Value.Duration().String()
		case slog.KindTime:
			dst[a.Key] = a.Value.Time().Format(time.RFC3339Nano)
		default:
			v := a.Value.Any()
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			dst[a.Key] = v
		}
		return
	}

	group := a.Value.Group()
	if len(group) == 0 {
		return
	}
	// Inline groups with an empty key, as slog's built-in handlers do.
	target := dst
	if a.Key != "" {
		sub, ok := dst[a.Key].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			dst[a.Key] = sub
		}
		target = sub
	}
	for _, ga := range group {
		addAttr(target, ga)
	}
}

func (s *lokiSink) add(entry lokiEntry) error {
	s.mu.Lock()
	s.batch = append(s.batch, entry)
	shouldFlush := s.batchSize == 0 || len(s.batch) >= s.batchSize
	s.mu.Unlock()

	if shouldFlush {
		return s.flush()
	}
	return nil
}

// flush sends all batched logs to Loki
func (s *lokiSink) flush() error {
	s.mu.Lock()
	if len(s.batch) == 0 {
		s.mu.Unlock()
		return nil
	}
	entries := make([]lokiEntry, len(s.batch))
	copy(entries, s.batch)
	s.batch = s.batch[:0]
	s.mu.Unlock()

	values := make([][]string, len(entries))
	for i, entry := range entries {
		// Loki expects [timestamp_in_nanoseconds, log_line]
		values[i] = []string{strconv.FormatInt(entry.timestamp.UnixNano(), 10), entry.line}
	}

	return s.send(lokiPushRequest{
		Streams: []lokiStream{{Stream: s.labels, Values: values}},
	})
}

// send posts the push request; delivery failures are reported but never returned
func (s *lokiSink) send(req lokiPushRequest) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal push request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		fmt.Fprintf(s.errOut, "loki: failed to send logs: %v\n", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		fmt.Fprintf(s.errOut, "loki: push returned %d: %s\n", resp.StatusCode, string(body))
	}
	return nil
}

func (s *lokiSink) periodicFlush() {
	_ = s.flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flushTimer != nil && !s.closed {
		s.flushTimer.Reset(flushInterval)
	}
}
