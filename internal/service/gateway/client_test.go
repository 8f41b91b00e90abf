package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"LeadDesk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	conf := &config.Config{}
	conf.Gateway.BaseURL = url + "/"
	conf.Gateway.Instance = "sdr_test"
	conf.Gateway.ApiKey = "secret-key"
	return NewClient(conf, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSendText(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/message/sendText/sdr_test", r.URL.Path)
		assert.Equal(t, "secret-key", r.Header.Get("apikey"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).SendText(context.Background(), "5511999990000", "  Olá!  ")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"number": "5511999990000", "text": "Olá!"}, got)
}

func TestSendMedia(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/message/sendMedia/sdr_test", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).SendMedia(context.Background(), "5511999990000", Media{
		MimeType: "image/png",
		FileName: "planta.png",
		Data:     "iVBORw0KGgo=",
		Caption:  "Planta do apartamento",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"number":    "5511999990000",
		"mediatype": "image",
		"mimetype":  "image/png",
		"caption":   "Planta do apartamento",
		"media":     "iVBORw0KGgo=",
		"fileName":  "planta.png",
	}, got)
}

func TestSendText_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"number not on whatsapp"}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).SendText(context.Background(), "123", "oi")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.Status)
	assert.Contains(t, statusErr.Body, "number not on whatsapp")
}

func TestSendText_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newTestClient(srv.URL).SendText(ctx, "123", "oi")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
