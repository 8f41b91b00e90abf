package readstatus

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/api/cont"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCore struct {
	mock.Mock
}

func (m *MockCore) ReadStatus(ctx context.Context, user string, refs []entity.ConversationRef) (map[string]entity.ConversationReadInfo, error) {
	args := m.Called(ctx, user, refs)
	infos, _ := args.Get(0).(map[string]entity.ConversationReadInfo)
	return infos, args.Error(1)
}

func post(t *testing.T, core Core, body string) (int, map[string]any) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest(http.MethodPost, "/read-status", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(cont.PutUser(req.Context(), &entity.UserAuth{Username: "maria", Token: "t"}))
	rec := httptest.NewRecorder()
	Batch(log, core).ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestBatchKeyedBySession(t *testing.T) {
	core := new(MockCore)
	last := time.Date(2025, 3, 1, 10, 5, 0, 0, time.UTC)
	refs := []entity.ConversationRef{{SessionID: "A", LastMessageDate: last}}
	core.On("ReadStatus", mock.Anything, "maria", refs).
		Return(map[string]entity.ConversationReadInfo{"A": entity.UnreadDefault("A")}, nil)

	code, body := post(t, core, `{"conversations":[{"session_id":"A","last_message_date":"2025-03-01T10:05:00Z"}]}`)

	assert.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Contains(t, data, "A")
	core.AssertExpectations(t)
}

func TestBatchNeedsAgent(t *testing.T) {
	core := new(MockCore)
	core.On("ReadStatus", mock.Anything, "maria", mock.Anything).Return(nil, entity.ErrNoAgent)

	code, _ := post(t, core, `{"conversations":[]}`)
	assert.Equal(t, http.StatusConflict, code)
}

func TestBatchRejectsMissingList(t *testing.T) {
	core := new(MockCore)
	code, _ := post(t, core, `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	core.AssertNotCalled(t, "ReadStatus", mock.Anything, mock.Anything, mock.Anything)
}
