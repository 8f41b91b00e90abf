package core

import (
	"context"
	"log/slog"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/sl"
	"LeadDesk/internal/service/readstatus"
	"LeadDesk/internal/ws"
)

// readCache returns the user's read-status cache for agent, replacing it
// when the user switched agents.
func (c *Core) readCache(user string, agent *entity.Agent) *readstatus.Cache {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cache, ok := c.caches[user]; ok {
		if cache.Agent().ID == agent.ID {
			return cache
		}
		cache.Clear()
	}

	cache := readstatus.New(c.reads, *agent, c.readOpts, c.log)
	if c.broadcaster != nil {
		cache.OnUpdate(func(partial map[string]entity.ConversationReadInfo) {
			c.broadcaster.SendToUser(user, ws.EventReadStatus, partial)
		})
	}
	c.caches[user] = cache
	return cache
}

func (c *Core) dropReadCache(user string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cache, ok := c.caches[user]; ok {
		cache.Clear()
		delete(c.caches, user)
	}
}

func (c *Core) ReadStatus(ctx context.Context, user string, refs []entity.ConversationRef) (map[string]entity.ConversationReadInfo, error) {
	agent, err := c.requireAgent(ctx, user)
	if err != nil {
		return nil, err
	}
	return c.readCache(user, agent).BatchFetch(ctx, refs), nil
}

// MarkAsRead records the read for the user's agent. A failed write is logged
// and the optimistic state is returned anyway.
func (c *Core) MarkAsRead(ctx context.Context, user, sessionID string) (entity.ConversationReadInfo, error) {
	agent, err := c.requireAgent(ctx, user)
	if err != nil {
		return entity.ConversationReadInfo{}, err
	}

	info, err := c.readCache(user, agent).MarkAsRead(ctx, sessionID)
	if err != nil {
		c.log.With(
			sl.Err(err),
			slog.String("user", user),
			slog.String("session", sessionID),
		).Warn("read receipt kept locally only")
		return info, nil
	}

	if c.broadcaster != nil {
		if own := ownReceipt(info, agent.ID); own != nil {
			c.broadcaster.BroadcastReadReceipt(sessionID, *agent, own.LastReadAt)
		}
	}
	return info, nil
}

func ownReceipt(info entity.ConversationReadInfo, agentID int64) *entity.ReadStatus {
	for i := range info.ReadBy {
		if info.ReadBy[i].AgentID == agentID {
			return &info.ReadBy[i]
		}
	}
	return nil
}
