package core

import (
	"context"
	"fmt"
	"log/slog"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/sl"
)

const dispatchHistoryLimit = 50

// ListConversations filters, pages and annotates the conversation directory
// for one user. Read state is attached only when the user has picked an agent.
func (c *Core) ListConversations(ctx context.Context, user string, filter entity.ConversationFilter) (*entity.ConversationPage, error) {
	if c.chat == nil {
		return nil, fmt.Errorf("chat service not available")
	}
	filter.Normalize()

	conversations, err := c.chat.ListConversations(ctx, filter.Sender)
	if err != nil {
		return nil, err
	}

	matched := make([]entity.Conversation, 0, len(conversations))
	for i := range conversations {
		if conversations[i].Matches(filter.Query) {
			matched = append(matched, conversations[i])
		}
	}

	agent, err := c.CurrentAgent(ctx, user)
	if err != nil {
		c.log.With(sl.Err(err), slog.String("user", user)).Warn("current agent unavailable")
		agent = nil
	}
	if filter.UnreadOnly && agent == nil {
		return nil, entity.ErrNoAgent
	}

	var read map[string]entity.ConversationReadInfo
	if filter.UnreadOnly {
		read = c.readCache(user, agent).BatchFetch(ctx, refsOf(matched))
		unread := matched[:0]
		for _, conv := range matched {
			if read[conv.SessionID].Unread {
				unread = append(unread, conv)
			}
		}
		matched = unread
	}

	page := paginate(matched, filter.Page, filter.PerPage)

	if agent != nil && read == nil {
		// the visible page goes first so it is never held up by the tail
		start := (page.Page - 1) * page.PerPage
		ordered := make([]entity.ConversationRef, 0, len(matched))
		for i := range page.Items {
			ordered = append(ordered, page.Items[i].Ref())
		}
		for i := range matched {
			if i < start || i >= start+len(page.Items) {
				ordered = append(ordered, matched[i].Ref())
			}
		}
		read = c.readCache(user, agent).LoadPrioritized(ctx, ordered)
	}

	for i := range page.Items {
		view := &page.Items[i]
		view.ScoreRange = view.Conversation.ScoreRange()
		if agent == nil {
			continue
		}
		if info, ok := read[view.SessionID]; ok {
			view.Read = &info
			view.Indicator = info.Indicator(agent.ID)
		}
	}
	return page, nil
}

func refsOf(conversations []entity.Conversation) []entity.ConversationRef {
	refs := make([]entity.ConversationRef, len(conversations))
	for i := range conversations {
		refs[i] = conversations[i].Ref()
	}
	return refs
}

func paginate(conversations []entity.Conversation, page, perPage int) *entity.ConversationPage {
	total := len(conversations)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}

	items := make([]entity.ConversationView, 0, end-start)
	for _, conv := range conversations[start:end] {
		items = append(items, entity.ConversationView{Conversation: conv})
	}
	return &entity.ConversationPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}
}

func (c *Core) GetMessages(ctx context.Context, sessionID, sender string) ([]entity.MessageView, error) {
	if c.chat == nil {
		return nil, fmt.Errorf("chat service not available")
	}
	messages, err := c.chat.GetMessages(ctx, sessionID, sender)
	if err != nil {
		return nil, err
	}
	return entity.ViewMessages(messages), nil
}

func (c *Core) ListSources(ctx context.Context) ([]entity.Source, error) {
	if c.chat == nil {
		return nil, fmt.Errorf("chat service not available")
	}
	return c.chat.ListSources(ctx)
}

func (c *Core) GeneralStats(ctx context.Context) (*entity.GeneralStats, error) {
	if c.chat == nil {
		return nil, fmt.Errorf("chat service not available")
	}
	return c.chat.GeneralStats(ctx)
}

func (c *Core) SetAIEnabled(ctx context.Context, sessionID string, enabled bool) error {
	if c.chat == nil {
		return fmt.Errorf("chat service not available")
	}
	return c.chat.SetAIEnabled(ctx, sessionID, enabled)
}

func (c *Core) ChangeStatus(ctx context.Context, sessionID string, to entity.LeadStatus) (entity.LeadStatus, error) {
	if c.chat == nil {
		return "", fmt.Errorf("chat service not available")
	}
	return c.chat.ChangeStatus(ctx, sessionID, to)
}

// DispatchHistory is empty when the audit log is disabled.
func (c *Core) DispatchHistory(ctx context.Context, sessionID string) ([]entity.DispatchRecord, error) {
	if c.dispatchLog == nil {
		return []entity.DispatchRecord{}, nil
	}
	records, err := c.dispatchLog.DispatchHistory(ctx, sessionID, dispatchHistoryLimit)
	if err != nil {
		return nil, err
	}
	c.signImages(records)
	return records, nil
}
