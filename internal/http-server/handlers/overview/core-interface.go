package overview

import (
	"context"

	"LeadDesk/entity"
)

type Core interface {
	ListSources(ctx context.Context) ([]entity.Source, error)
	GeneralStats(ctx context.Context) (*entity.GeneralStats, error)
}
