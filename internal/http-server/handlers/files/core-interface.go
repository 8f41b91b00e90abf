package files

import (
	"context"

	"LeadDesk/entity"
)

type Core interface {
	OpenFile(ctx context.Context, id, expires, sig string) (*entity.FileDownload, error)
}
