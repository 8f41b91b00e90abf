package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/sl"
)

const (
	subscriberBuffer = 64
	listenRetry      = 5 * time.Second
)

type insertNotice struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
}

// ChangeFeed listens for message inserts and fans them out to subscribers.
// Subscribers that fall behind miss notifications; the listener poll covers them.
type ChangeFeed struct {
	pg   *Postgres
	log  *slog.Logger
	mu   sync.Mutex
	subs map[uint64]chan entity.ChatMessage
	next uint64
}

func NewChangeFeed(pg *Postgres, logger *slog.Logger) *ChangeFeed {
	return &ChangeFeed{
		pg:   pg,
		log:  logger.With(sl.Module("change feed")),
		subs: make(map[uint64]chan entity.ChatMessage),
	}
}

// Subscribe registers a receiver of inserted messages. The returned func
// unregisters it and closes the channel; calling it more than once is safe.
func (f *ChangeFeed) Subscribe() (<-chan entity.ChatMessage, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++
	ch := make(chan entity.ChatMessage, subscriberBuffer)
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}
}

func (f *ChangeFeed) publish(msg entity.ChatMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		select {
		case ch <- msg:
		default:
			f.log.With(
				slog.Uint64("subscriber", id),
				slog.Int64("message_id", msg.ID),
			).Warn("subscriber is slow, notification dropped")
		}
	}
}

func (f *ChangeFeed) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Run keeps a LISTEN connection open until ctx is done, reconnecting on failure.
func (f *ChangeFeed) Run(ctx context.Context) {
	for {
		err := f.listen(ctx)
		if ctx.Err() != nil {
			f.log.Info("change feed stopped")
			return
		}
		f.log.With(sl.Err(err)).Warn("change feed interrupted, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(listenRetry):
		}
	}
}

func (f *ChangeFeed) listen(ctx context.Context) error {
	conn, err := f.pg.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err = conn.Exec(ctx, "LISTEN "+ident(f.pg.names.InsertChannel)); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	f.log.With(slog.String("channel", f.pg.names.InsertChannel)).Info("subscribed to message inserts")

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		notice, err := decodeNotice(notification.Payload)
		if err != nil {
			f.log.With(sl.Err(err)).Warn("bad insert notification")
			continue
		}
		if f.subscribers() == 0 {
			continue
		}
		msg, err := f.pg.MessageByID(ctx, notice.ID)
		if err != nil {
			f.log.With(
				sl.Err(err),
				slog.Int64("message_id", notice.ID),
			).Warn("load inserted message")
			continue
		}
		f.publish(msg)
	}
}

func decodeNotice(payload string) (insertNotice, error) {
	var notice insertNotice
	if err := json.Unmarshal([]byte(payload), &notice); err != nil {
		return notice, fmt.Errorf("decode notification: %w", err)
	}
	if notice.ID == 0 || notice.SessionID == "" {
		return notice, fmt.Errorf("notification without id or session: %q", payload)
	}
	return notice, nil
}
