package dispatch

import (
	"context"
	"errors"
	"net"

	"LeadDesk/entity"
	"LeadDesk/internal/service/chatbot"
	"LeadDesk/internal/service/gateway"
)

type Category string

const (
	CategoryNetwork     Category = "network"
	CategoryImage       Category = "image"
	CategoryIntegration Category = "integration"
	CategoryGateway     Category = "gateway"
	CategoryValidation  Category = "validation"
	CategoryGeneric     Category = "generic"
)

// Error is a failed send, classified so the caller can show a useful message.
type Error struct {
	Category Category
	Err      error
}

func (e *Error) Error() string {
	return string(e.Category) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the text shown to the agent.
func (e *Error) Message() string {
	switch e.Category {
	case CategoryNetwork:
		return "Connection error. Check your network and try again."
	case CategoryImage:
		return "Could not process the image. Try a smaller image."
	case CategoryIntegration:
		return "Chatbot integration error. Try again."
	case CategoryGateway:
		return "WhatsApp gateway error. Check the instance connection."
	case CategoryValidation:
		return e.Err.Error()
	default:
		return "Failed to send message: " + e.Err.Error()
	}
}

// categorize maps an error from the send path to its category.
func categorize(err error) Category {
	var webhookErr *chatbot.WebhookError
	var statusErr *gateway.StatusError
	var netErr net.Error

	switch {
	case errors.Is(err, entity.ErrEmptyMessage),
		errors.Is(err, entity.ErrTooManyImages):
		return CategoryValidation
	case errors.Is(err, entity.ErrUnsupportedImage),
		errors.Is(err, entity.ErrNotAnImage):
		return CategoryImage
	case errors.Is(err, chatbot.ErrImagesNotSupported),
		errors.Is(err, chatbot.ErrMissingSubscriber),
		errors.As(err, &webhookErr):
		return CategoryIntegration
	case errors.As(err, &statusErr):
		return CategoryGateway
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &netErr):
		return CategoryNetwork
	default:
		return CategoryGeneric
	}
}

func wrap(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return &Error{Category: categorize(err), Err: err}
}
