package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"LeadDesk/internal/config"
	"LeadDesk/internal/lib/sl"
)

var (
	ErrImagesNotSupported = errors.New("images are not supported on the chatbot channel")
	ErrMissingSubscriber  = errors.New("conversation has no chatbot subscriber id")
)

// WebhookError is a non-2xx answer from the chatbot workflow webhook.
type WebhookError struct {
	Status int
	Body   string
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("chatbot webhook status %d: %s", e.Status, e.Body)
}

type sendRequest struct {
	Message      string          `json:"ai_message"`
	SubscriberID string          `json:"manychat_id"`
	Subscriber   json.RawMessage `json:"manychat"`
}

// Service hands agent replies to the workflow that relays them to chatbot
// platform subscribers.
type Service struct {
	webhookURL string
	instance   string
	http       *http.Client
	log        *slog.Logger
}

func NewService(conf *config.Config, logger *slog.Logger) *Service {
	return &Service{
		webhookURL: conf.Chatbot.WebhookURL,
		instance:   conf.Chatbot.InstanceName,
		http:       &http.Client{Timeout: conf.Chatbot.Timeout},
		log:        logger.With(sl.Module("chatbot")),
	}
}

// Handles reports whether conversations of instanceName go through the chatbot.
func (s *Service) Handles(instanceName string) bool {
	return instanceName != "" && instanceName == s.instance
}

func (s *Service) SendMessage(ctx context.Context, subscriberID string, subscriber json.RawMessage, text string, imageCount int) error {
	if imageCount > 0 {
		return ErrImagesNotSupported
	}
	if strings.TrimSpace(subscriberID) == "" {
		return ErrMissingSubscriber
	}
	if len(subscriber) == 0 || string(subscriber) == "null" {
		subscriber = json.RawMessage(`{}`)
	}

	bodyBytes, err := json.Marshal(sendRequest{
		Message:      text,
		SubscriberID: subscriberID,
		Subscriber:   subscriber,
	})
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &WebhookError{Status: resp.StatusCode, Body: string(respBody)}
	}

	s.log.With(slog.String("subscriber", subscriberID)).Debug("message handed to chatbot")
	return nil
}
