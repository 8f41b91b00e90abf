package entity

import "time"

type Route string

const (
	RouteGateway Route = "gateway"
	RouteChatbot Route = "chatbot"
)

// DispatchRecord is the audit entry written for every send attempt.
type DispatchRecord struct {
	ID          string          `json:"id" bson:"_id"`
	SessionID   string          `json:"session_id" bson:"session_id"`
	MessageID   int64           `json:"message_id" bson:"message_id"`
	Agent       string          `json:"agent" bson:"agent"`
	Route       Route           `json:"route" bson:"route"`
	ViaFallback bool            `json:"via_fallback" bson:"via_fallback"`
	ImageCount  int             `json:"image_count" bson:"image_count"`
	Images      []ArchivedImage `json:"images,omitempty" bson:"images,omitempty"`
	Success     bool            `json:"success" bson:"success"`
	Category    string          `json:"category,omitempty" bson:"category,omitempty"`
	Error       string          `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
}

// DispatchResult describes a delivered reply.
type DispatchResult struct {
	Message     ChatMessage `json:"message"`
	Route       Route       `json:"route"`
	ViaFallback bool        `json:"via_fallback"`
	TempID      string      `json:"temp_id"`
	Warnings    []string    `json:"warnings,omitempty"`
}
