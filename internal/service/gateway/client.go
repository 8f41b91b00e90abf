package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"LeadDesk/internal/config"
	"LeadDesk/internal/lib/sl"
)

// StatusError is returned when the gateway answers outside 2xx.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway status %d: %s", e.Status, e.Body)
}

type Media struct {
	MimeType string
	FileName string
	// Data is plain base64 without a data URL prefix.
	Data    string
	Caption string
}

type textRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type mediaRequest struct {
	Number    string `json:"number"`
	MediaType string `json:"mediatype"`
	MimeType  string `json:"mimetype"`
	Caption   string `json:"caption"`
	Media     string `json:"media"`
	FileName  string `json:"fileName"`
}

// Client talks to the WhatsApp gateway instance configured for the project.
type Client struct {
	baseURL  string
	instance string
	apiKey   string
	http     *http.Client
	log      *slog.Logger
}

func NewClient(conf *config.Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(conf.Gateway.BaseURL, "/"),
		instance: conf.Gateway.Instance,
		apiKey:   conf.Gateway.ApiKey,
		http:     &http.Client{Timeout: conf.Gateway.Timeout},
		log: logger.With(
			sl.Module("gateway"),
			slog.String("instance", conf.Gateway.Instance),
		),
	}
}

func (c *Client) SendText(ctx context.Context, number, text string) error {
	return c.post(ctx, "sendText", textRequest{
		Number: number,
		Text:   strings.TrimSpace(text),
	})
}

func (c *Client) SendMedia(ctx context.Context, number string, media Media) error {
	return c.post(ctx, "sendMedia", mediaRequest{
		Number:    number,
		MediaType: "image",
		MimeType:  media.MimeType,
		Caption:   media.Caption,
		Media:     media.Data,
		FileName:  media.FileName,
	})
}

func (c *Client) post(ctx context.Context, method string, body interface{}) error {
	url := fmt.Sprintf("%s/message/%s/%s", c.baseURL, method, c.instance)
	log := c.log.With(slog.String("method", method))

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.With(sl.Err(err)).Debug("request failed")
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.With(
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(respBody)),
		).Debug("non-2xx response")
		return &StatusError{Status: resp.StatusCode, Body: string(respBody)}
	}

	log.With(slog.Duration("took", time.Since(started))).Debug("sent")
	return nil
}
