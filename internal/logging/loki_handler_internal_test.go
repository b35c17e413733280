package logging

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLokiSink_PeriodicFlushAfterCloseDoesNotRearm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	handler := NewLokiHandler(server.URL, nil, 10, true, slog.LevelInfo)
	require.NotNil(t, handler.sink.flushTimer)
	require.NoError(t, handler.Close())

	// A tick that fired just before Close still runs to completion.
	handler.sink.periodicFlush()

	assert.False(t, handler.sink.flushTimer.Stop(), "flush timer was re-armed after Close")
}
