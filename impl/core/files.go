package core

import (
	"context"
	"fmt"
	"time"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/fileurl"
)

const defaultFileTTL = time.Hour

func (c *Core) signImages(records []entity.DispatchRecord) {
	if c.files == nil || c.fileSecret == "" {
		return
	}
	ttl := c.fileTTL
	if ttl <= 0 {
		ttl = defaultFileTTL
	}
	now := time.Now()
	for i := range records {
		for j := range records[i].Images {
			img := &records[i].Images[j]
			img.URL = fileurl.SignURL(img.FileID, c.fileSecret, ttl, now)
		}
	}
}

// OpenFile checks a signed link and opens the archived file. The caller closes Body.
func (c *Core) OpenFile(ctx context.Context, id, expires, sig string) (*entity.FileDownload, error) {
	if c.files == nil {
		return nil, fmt.Errorf("file %s: %w", id, entity.ErrNotFound)
	}
	if !fileurl.Verify(id, expires, sig, c.fileSecret, time.Now()) {
		return nil, entity.ErrForbidden
	}
	name, meta, body, err := c.files.DownloadFile(ctx, id)
	if err != nil {
		return nil, err
	}
	return &entity.FileDownload{Name: name, MimeType: meta.MimeType, Body: body}, nil
}
