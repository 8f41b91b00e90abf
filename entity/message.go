package entity

import "time"

type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleAI    MessageRole = "ai"
	RoleAgent MessageRole = "agent"
)

type MessagePayload struct {
	Type      MessageRole `json:"type"`
	Content   string      `json:"content"`
	Timestamp string      `json:"timestamp,omitempty"`
	MediaType string      `json:"media_type,omitempty"`
	MediaURL  string      `json:"media_url,omitempty"`
	MediaName string      `json:"media_name,omitempty"`
}

type ChatMessage struct {
	ID           int64          `json:"id"`
	SessionID    string         `json:"session_id"`
	Message      MessagePayload `json:"message"`
	CreatedAt    time.Time      `json:"created_at"`
	Sender       string         `json:"sender,omitempty"`
	InstanceName string         `json:"instance_name,omitempty"`
}

// NewMessage is a message about to be appended to a conversation's history.
type NewMessage struct {
	SessionID string
	Role      MessageRole
	Content   string
	Sender    string
	CreatedAt time.Time
}

// MessageHead is the minimal projection of a message used to group conversations.
type MessageHead struct {
	SessionID string
	Sender    string
	CreatedAt time.Time
}

// MessageView is a stored message with its content classified for display.
type MessageView struct {
	ChatMessage
	Content ContentView `json:"content_view"`
}

func ViewMessage(msg ChatMessage) MessageView {
	return MessageView{ChatMessage: msg, Content: ClassifyContent(msg.Message.Content)}
}

func ViewMessages(messages []ChatMessage) []MessageView {
	views := make([]MessageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, ViewMessage(msg))
	}
	return views
}
