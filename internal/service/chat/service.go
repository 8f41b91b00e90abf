package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"LeadDesk/entity"
	repository "LeadDesk/internal/database"
	"LeadDesk/internal/lib/sl"
)

// Store is the backend surface: every procedure call has a direct-query twin
// used when the procedure is unavailable.
type Store interface {
	ConversationsProc(ctx context.Context, sender string) ([]entity.Conversation, error)
	MessageHeads(ctx context.Context, sender string) ([]entity.MessageHead, error)
	LeadsByPhone(ctx context.Context, phoneIDs []string) ([]entity.Lead, error)

	MessagesProc(ctx context.Context, sessionID, sender string) ([]entity.ChatMessage, error)
	MessagesDirect(ctx context.Context, sessionID, sender string) ([]entity.ChatMessage, error)
	AppendMessage(ctx context.Context, msg entity.NewMessage) (entity.ChatMessage, error)

	SourcesProc(ctx context.Context) ([]entity.Source, error)
	SourcesDirect(ctx context.Context) ([]entity.Source, error)
	StatsProc(ctx context.Context) (*entity.GeneralStats, error)
	StatsDirect(ctx context.Context) (*entity.GeneralStats, error)

	SetAIEnabledProc(ctx context.Context, sessionID string, enabled bool) error
	SetAIEnabledDirect(ctx context.Context, sessionID string, enabled bool) error
	LeadStatus(ctx context.Context, sessionID string) (entity.LeadStatus, error)
	SetLeadStatus(ctx context.Context, sessionID string, from, to entity.LeadStatus) error
}

type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store: store,
		log:   logger.With(sl.Module("chat service")),
	}
}

// ListConversations returns every conversation for the sender filter joined
// with its lead, newest activity first.
func (s *Service) ListConversations(ctx context.Context, sender string) ([]entity.Conversation, error) {
	conversations, err := s.store.ConversationsProc(ctx, sender)
	if err == nil {
		SortByLastMessage(conversations)
		return conversations, nil
	}
	if !repository.IsProcedureUnavailable(err) {
		return nil, fmt.Errorf("conversations overview: %w", err)
	}
	s.log.With(sl.Err(err)).Debug("conversations procedure unavailable, grouping messages")

	heads, err := s.store.MessageHeads(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("conversations fallback: %w", err)
	}
	conversations = GroupHeads(heads)
	if len(conversations) == 0 {
		return conversations, nil
	}

	ids := make([]string, 0, len(conversations))
	for _, c := range conversations {
		ids = append(ids, c.SessionID)
	}
	leads, err := s.store.LeadsByPhone(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("conversations fallback leads: %w", err)
	}
	return JoinLeads(conversations, leads), nil
}

// GroupHeads builds one conversation per session id, tracking the newest
// message time and the message count, sorted newest first. The sender of a
// conversation is the sender of its first head.
func GroupHeads(heads []entity.MessageHead) []entity.Conversation {
	index := make(map[string]int)
	conversations := make([]entity.Conversation, 0)
	for _, h := range heads {
		i, ok := index[h.SessionID]
		if !ok {
			index[h.SessionID] = len(conversations)
			conversations = append(conversations, entity.Conversation{
				SessionID:       h.SessionID,
				Sender:          h.Sender,
				LastMessageDate: h.CreatedAt,
				MessageCount:    1,
			})
			continue
		}
		c := &conversations[i]
		c.MessageCount++
		if h.CreatedAt.After(c.LastMessageDate) {
			c.LastMessageDate = h.CreatedAt
		}
	}
	SortByLastMessage(conversations)
	return conversations
}

// JoinLeads left-joins lead data onto conversations, with placeholders for
// conversations that have no lead record.
func JoinLeads(conversations []entity.Conversation, leads []entity.Lead) []entity.Conversation {
	byPhone := make(map[string]*entity.Lead, len(leads))
	for i := range leads {
		byPhone[leads[i].PhoneID] = &leads[i]
	}
	for i := range conversations {
		c := &conversations[i]
		c.LeadPhoneID = c.SessionID
		c.LeadName = entity.NoNamePlaceholder
		c.IsAIEnabled = true
		c.ManychatID = nil
		c.ManychatData = nil

		lead, ok := byPhone[c.SessionID]
		if !ok {
			continue
		}
		if lead.Name != "" {
			c.LeadName = lead.Name
		}
		if lead.IsAIEnabled != nil {
			c.IsAIEnabled = *lead.IsAIEnabled
		}
		c.LeadScoring = lead.LeadScoring
		c.CrmDealStageID = lead.CrmDealStageID
		c.Status = lead.Status
		c.LastMessageData = lead.LastMessageData
		c.InstanceName = lead.InstanceName
	}
	return conversations
}

func SortByLastMessage(conversations []entity.Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastMessageDate.After(conversations[j].LastMessageDate)
	})
}

// GetMessages returns the conversation's messages in creation order.
func (s *Service) GetMessages(ctx context.Context, sessionID, sender string) ([]entity.ChatMessage, error) {
	messages, err := s.store.MessagesProc(ctx, sessionID, sender)
	if err == nil {
		sortByCreation(messages)
		return messages, nil
	}
	if !repository.IsProcedureUnavailable(err) {
		return nil, fmt.Errorf("messages procedure: %w", err)
	}
	s.log.With(sl.Err(err)).Debug("messages procedure unavailable, querying table")

	messages, err = s.store.MessagesDirect(ctx, sessionID, sender)
	if err != nil {
		return nil, fmt.Errorf("messages fallback: %w", err)
	}
	sortByCreation(messages)
	return messages, nil
}

func sortByCreation(messages []entity.ChatMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
}

// AppendMessage persists an outbound message before it is delivered.
func (s *Service) AppendMessage(ctx context.Context, msg entity.NewMessage) (entity.ChatMessage, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	stored, err := s.store.AppendMessage(ctx, msg)
	if err != nil {
		return entity.ChatMessage{}, err
	}
	return stored, nil
}

func (s *Service) ListSources(ctx context.Context) ([]entity.Source, error) {
	sources, err := s.store.SourcesProc(ctx)
	if err == nil {
		sort.SliceStable(sources, func(i, j int) bool {
			return sources[i].ConversationCount > sources[j].ConversationCount
		})
		return sources, nil
	}
	if !repository.IsProcedureUnavailable(err) {
		return nil, fmt.Errorf("chat overview: %w", err)
	}
	s.log.With(sl.Err(err)).Debug("chat overview procedure unavailable, counting directly")
	return s.store.SourcesDirect(ctx)
}

func (s *Service) GeneralStats(ctx context.Context) (*entity.GeneralStats, error) {
	stats, err := s.store.StatsProc(ctx)
	if err == nil {
		return stats, nil
	}
	if !repository.IsProcedureUnavailable(err) {
		return nil, fmt.Errorf("general stats: %w", err)
	}
	s.log.With(sl.Err(err)).Debug("stats procedure unavailable, counting directly")
	return s.store.StatsDirect(ctx)
}

func (s *Service) SetAIEnabled(ctx context.Context, sessionID string, enabled bool) error {
	err := s.store.SetAIEnabledProc(ctx, sessionID, enabled)
	if err == nil {
		return nil
	}
	if !repository.IsProcedureUnavailable(err) {
		return fmt.Errorf("update ai status: %w", err)
	}
	s.log.With(sl.Err(err)).Debug("ai status procedure unavailable, updating lead")
	return s.store.SetAIEnabledDirect(ctx, sessionID, enabled)
}

// ChangeStatus applies a lifecycle transition; it is independent of the AI flag.
func (s *Service) ChangeStatus(ctx context.Context, sessionID string, to entity.LeadStatus) (entity.LeadStatus, error) {
	current, err := s.store.LeadStatus(ctx, sessionID)
	if err != nil {
		return "", err
	}
	next, err := current.Transition(to)
	if err != nil {
		return current, err
	}
	if err = s.store.SetLeadStatus(ctx, sessionID, current, next); err != nil {
		return current, err
	}
	s.log.With(
		slog.String("session", sessionID),
		slog.String("from", string(current)),
		slog.String("to", string(next)),
	).Info("conversation status changed")
	return next, nil
}
