package authenticate

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/api/cont"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenAuth map[string]string

func (a tokenAuth) AuthenticateByToken(token string) (*entity.UserAuth, error) {
	user, ok := a[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &entity.UserAuth{Username: user, Token: token}, nil
}

func TestAuthenticate(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	var seen string
	h := New(log, tokenAuth{"abc.def.ghi": "ana"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := cont.GetUser(r.Context())
		require.NoError(t, err)
		seen = user.Username
	}))

	tests := []struct {
		name   string
		header string
		status int
		user   string
	}{
		{name: "valid", header: "Bearer abc.def.ghi", status: http.StatusOK, user: "ana"},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "no scheme", header: "abc.def.ghi", status: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", status: http.StatusUnauthorized},
		{name: "unknown", header: "Bearer nope", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/v1/sources", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.user, seen)
		})
	}
}
