package conversation

import (
	"context"

	"LeadDesk/entity"
)

type Core interface {
	ListConversations(ctx context.Context, user string, filter entity.ConversationFilter) (*entity.ConversationPage, error)
	GetMessages(ctx context.Context, sessionID, sender string) ([]entity.MessageView, error)
	SendMessage(ctx context.Context, user string, out entity.Outbound) (*entity.DispatchResult, error)
	MarkAsRead(ctx context.Context, user, sessionID string) (entity.ConversationReadInfo, error)
	SetAIEnabled(ctx context.Context, sessionID string, enabled bool) error
	ChangeStatus(ctx context.Context, sessionID string, to entity.LeadStatus) (entity.LeadStatus, error)
	DispatchHistory(ctx context.Context, sessionID string) ([]entity.DispatchRecord, error)
}
