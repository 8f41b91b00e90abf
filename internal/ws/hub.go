package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"LeadDesk/entity"
)

const (
	EventReadStatus           = "read_status"
	EventReadReceipt          = "read_receipt"
	EventConversationActivity = "conversation_activity"
	EventError                = "error"
)

// ClientSession is the per-connection state behind one dashboard tab.
type ClientSession interface {
	Open(ctx context.Context, sessionID, sender string) error
	Close()
	MarkRead(ctx context.Context, sessionID string) error
}

// SessionFactory creates the session for a newly connected client.
type SessionFactory interface {
	NewSession(username string, emitter Emitter) ClientSession
}

type Emitter interface {
	Emit(eventType string, data interface{})
}

// Event represents a WebSocket event sent to dashboard clients.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ActivityEvent struct {
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
	Inbound   bool      `json:"inbound"`
}

type ReadReceiptEvent struct {
	SessionID string    `json:"session_id"`
	AgentID   int64     `json:"agent_id"`
	AgentName string    `json:"agent_name"`
	ReadAt    time.Time `json:"read_at"`
}

// Hub maintains the set of active WebSocket clients and broadcasts events.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	sessions   SessionFactory
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) SetSessionFactory(sessions SessionFactory) {
	h.sessions = sessions
}

// Run starts the hub's event loop. Should be called in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.closeSend()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				if !client.trySend(data) {
					delete(h.clients, client)
					client.closeSend()
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) publish(event *Event) {
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("broadcast queue full, event dropped", slog.String("type", event.Type))
	}
}

// BroadcastActivity tells every dashboard that a conversation moved to the top.
func (h *Hub) BroadcastActivity(sessionID string, at time.Time) {
	h.publish(&Event{
		Type: EventConversationActivity,
		Data: ActivityEvent{SessionID: sessionID, At: at},
	})
}

// BroadcastReadReceipt lets other agents refresh their read indicators.
func (h *Hub) BroadcastReadReceipt(sessionID string, agent entity.Agent, at time.Time) {
	h.publish(&Event{
		Type: EventReadReceipt,
		Data: ReadReceiptEvent{
			SessionID: sessionID,
			AgentID:   agent.ID,
			AgentName: agent.Name,
			ReadAt:    at,
		},
	})
}

// SendToUser delivers an event to every connection of one dashboard user.
func (h *Hub) SendToUser(username, eventType string, data interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.username == username {
			client.Emit(eventType, data)
		}
	}
}

// WatchFeed turns inserted messages into conversation_activity events until
// ctx is done.
func (h *Hub) WatchFeed(ctx context.Context, subscribe func() (<-chan entity.ChatMessage, func())) {
	updates, unsubscribe := subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-updates:
			if !ok {
				return
			}
			h.publish(&Event{
				Type: EventConversationActivity,
				Data: ActivityEvent{SessionID: msg.SessionID, At: msg.CreatedAt, Inbound: msg.Message.Type == entity.RoleUser},
			})
		}
	}
}

// clientEvent represents an incoming WebSocket message from a dashboard client.
type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type conversationData struct {
	SessionID string `json:"session_id"`
	Sender    string `json:"sender"`
}

// HandleClientMessage parses and dispatches an incoming message from a client.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, raw []byte) {
	if client.session == nil {
		return
	}
	log := h.log.With(slog.String("username", client.username))

	var event clientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		log.Warn("failed to parse client ws message", slog.String("error", err.Error()))
		return
	}

	var data conversationData
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &data); err != nil {
			log.Warn("failed to parse client ws data", slog.String("type", event.Type), slog.String("error", err.Error()))
			return
		}
	}

	switch event.Type {
	case "open":
		if data.SessionID == "" {
			return
		}
		if err := client.session.Open(ctx, data.SessionID, data.Sender); err != nil {
			log.Error("failed to open conversation",
				slog.String("session", data.SessionID),
				slog.String("error", err.Error()),
			)
			client.Emit(EventError, map[string]string{"session_id": data.SessionID, "message": "Failed to load messages"})
		}
	case "close":
		client.session.Close()
	case "mark_read":
		if data.SessionID == "" {
			return
		}
		if err := client.session.MarkRead(ctx, data.SessionID); err != nil {
			log.Warn("failed to handle mark_read",
				slog.String("session", data.SessionID),
				slog.String("error", err.Error()),
			)
		}
	}
}
