package live

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/sl"
)

const (
	EventMessagesLoaded = "messages_loaded"
	EventNewMessage     = "new_message"
	EventMessagesSynced = "messages_synced"
)

type MessageSource interface {
	GetMessages(ctx context.Context, sessionID, sender string) ([]entity.ChatMessage, error)
}

type Feed interface {
	Subscribe() (<-chan entity.ChatMessage, func())
}

type Emitter interface {
	Emit(eventType string, data interface{})
}

type MessagesEvent struct {
	SessionID      string               `json:"session_id"`
	Messages       []entity.MessageView `json:"messages"`
	ScrollToBottom bool                 `json:"scroll_to_bottom,omitempty"`
	PreserveScroll bool                 `json:"preserve_scroll,omitempty"`
}

type MessageEvent struct {
	SessionID      string             `json:"session_id"`
	Message        entity.MessageView `json:"message"`
	ScrollToBottom bool               `json:"scroll_to_bottom"`
}

// Listener keeps one open conversation in sync: inserts pushed by the change
// feed are appended as they arrive and a periodic poll repairs anything the
// feed missed. Opening another conversation drops everything from the last one.
type Listener struct {
	source   MessageSource
	feed     Feed
	emitter  Emitter
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger

	mu          sync.Mutex
	generation  uint64
	sessionID   string
	sender      string
	messages    []entity.ChatMessage
	seen        map[int64]struct{}
	cancel      context.CancelFunc
	unsubscribe func()
}

func NewListener(source MessageSource, feed Feed, emitter Emitter, interval time.Duration, logger *slog.Logger) *Listener {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Listener{
		source:   source,
		feed:     feed,
		emitter:  emitter,
		interval: interval,
		timeout:  interval,
		log:      logger.With(sl.Module("live")),
		seen:     make(map[int64]struct{}),
	}
}

// Open switches the listener to sessionID. Any previous subscription and
// poll loop is released first. The feed is subscribed before the history is
// loaded so inserts committed meanwhile are delivered once it is in place.
func (l *Listener) Open(ctx context.Context, sessionID, sender string) error {
	l.mu.Lock()
	l.releaseLocked()
	l.sessionID = sessionID
	l.sender = sender
	gen := l.generation
	updates, unsubscribe := l.feed.Subscribe()
	l.unsubscribe = unsubscribe
	l.mu.Unlock()

	messages, err := l.source.GetMessages(ctx, sessionID, sender)

	l.mu.Lock()
	if gen != l.generation {
		l.mu.Unlock()
		return err
	}
	if err != nil {
		l.releaseLocked()
		l.mu.Unlock()
		return err
	}
	l.setMessagesLocked(messages)
	runCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.mu.Unlock()

	l.emitter.Emit(EventMessagesLoaded, MessagesEvent{
		SessionID:      sessionID,
		Messages:       entity.ViewMessages(messages),
		ScrollToBottom: true,
	})

	go l.run(runCtx, gen, updates)
	return nil
}

func (l *Listener) run(ctx context.Context, gen uint64, updates <-chan entity.ChatMessage) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-updates:
			if !ok {
				return
			}
			l.merge(gen, msg)
		case <-ticker.C:
			l.poll(ctx, gen)
		}
	}
}

// Merge applies a pushed insert to the open conversation. Messages for other
// conversations and ids already shown are ignored.
func (l *Listener) Merge(msg entity.ChatMessage) bool {
	l.mu.Lock()
	gen := l.generation
	l.mu.Unlock()
	return l.merge(gen, msg)
}

func (l *Listener) merge(gen uint64, msg entity.ChatMessage) bool {
	l.mu.Lock()
	if gen != l.generation || msg.SessionID != l.sessionID {
		l.mu.Unlock()
		return false
	}
	if l.sender != "" && msg.Sender != "" && msg.Sender != l.sender {
		l.mu.Unlock()
		return false
	}
	if _, ok := l.seen[msg.ID]; ok {
		l.mu.Unlock()
		return false
	}
	l.seen[msg.ID] = struct{}{}
	l.messages = append(l.messages, msg)
	sessionID := l.sessionID
	l.mu.Unlock()

	l.emitter.Emit(EventNewMessage, MessageEvent{
		SessionID:      sessionID,
		Message:        entity.ViewMessage(msg),
		ScrollToBottom: true,
	})
	return true
}

func (l *Listener) poll(ctx context.Context, gen uint64) {
	l.mu.Lock()
	sessionID, sender := l.sessionID, l.sender
	l.mu.Unlock()

	pollCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	messages, err := l.source.GetMessages(pollCtx, sessionID, sender)
	if err != nil {
		l.log.With(sl.Err(err), slog.String("session", sessionID)).Warn("poll messages")
		return
	}

	l.mu.Lock()
	if gen != l.generation {
		l.mu.Unlock()
		return
	}
	changed := len(messages) != len(l.messages)
	l.setMessagesLocked(messages)
	l.mu.Unlock()

	if changed {
		l.emitter.Emit(EventMessagesSynced, MessagesEvent{
			SessionID:      sessionID,
			Messages:       entity.ViewMessages(messages),
			PreserveScroll: true,
		})
	}
}

func (l *Listener) setMessagesLocked(messages []entity.ChatMessage) {
	l.messages = append([]entity.ChatMessage(nil), messages...)
	l.seen = make(map[int64]struct{}, len(messages))
	for _, m := range messages {
		l.seen[m.ID] = struct{}{}
	}
}

func (l *Listener) releaseLocked() {
	l.generation++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
	l.sessionID = ""
	l.sender = ""
	l.messages = nil
	l.seen = make(map[int64]struct{})
}

// Close releases the subscription and stops polling.
func (l *Listener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releaseLocked()
}

func (l *Listener) SessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionID
}

func (l *Listener) Messages() []entity.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]entity.ChatMessage(nil), l.messages...)
}
