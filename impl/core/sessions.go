package core

import (
	"context"

	"LeadDesk/internal/service/live"
	"LeadDesk/internal/ws"
)

type liveSession struct {
	core     *Core
	username string
	listener *live.Listener
}

// NewSession gives a websocket connection its own conversation listener.
func (c *Core) NewSession(username string, emitter ws.Emitter) ws.ClientSession {
	return &liveSession{
		core:     c,
		username: username,
		listener: live.NewListener(c.chat, c.feed, emitter, c.pollEvery, c.log),
	}
}

func (s *liveSession) Open(ctx context.Context, sessionID, sender string) error {
	return s.listener.Open(ctx, sessionID, sender)
}

func (s *liveSession) Close() {
	s.listener.Close()
}

func (s *liveSession) MarkRead(ctx context.Context, sessionID string) error {
	_, err := s.core.MarkAsRead(ctx, s.username, sessionID)
	return err
}
