package readstatus

import (
	"context"

	"LeadDesk/entity"
)

type Core interface {
	ReadStatus(ctx context.Context, user string, refs []entity.ConversationRef) (map[string]entity.ConversationReadInfo, error)
}
