package overview

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"LeadDesk/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCore struct {
	sources []entity.Source
	stats   *entity.GeneralStats
	err     error
}

func (s stubCore) ListSources(context.Context) ([]entity.Source, error) {
	return s.sources, s.err
}

func (s stubCore) GeneralStats(context.Context) (*entity.GeneralStats, error) {
	return s.stats, s.err
}

func serve(t *testing.T, h http.HandlerFunc) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestSources(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	core := stubCore{sources: []entity.Source{{Sender: "web", ConversationCount: 4}, {Sender: "ads", ConversationCount: 2}}}

	code, body := serve(t, Sources(log, core))

	assert.Equal(t, http.StatusOK, code)
	data := body["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "web", data[0].(map[string]any)["sender"])
}

func TestStats(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	start := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	core := stubCore{stats: &entity.GeneralStats{TotalMessages: 9, TotalConversations: 3, TotalSenders: 2, DateRangeStart: &start}}

	code, body := serve(t, Stats(log, core))

	assert.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(9), data["total_messages"])
	assert.Nil(t, data["date_range_end"])
}

func TestOverviewErrors(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	core := stubCore{err: errors.New("backend down")}

	code, body := serve(t, Stats(log, core))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, false, body["success"])

	code, _ = serve(t, Sources(log, nil))
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
