package agent

import (
	"context"

	"LeadDesk/entity"
)

type Core interface {
	ListAgents(ctx context.Context) ([]entity.Agent, error)
	CreateAgent(ctx context.Context, user string, req entity.NewAgent) (*entity.Agent, error)
	DeactivateAgent(ctx context.Context, user string, id int64) error
	CurrentAgent(ctx context.Context, user string) (*entity.Agent, error)
	SelectAgent(ctx context.Context, user string, id int64) (*entity.Agent, error)
	ClearAgent(ctx context.Context, user string) error
}
