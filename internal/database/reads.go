package repository

import (
	"context"
	"fmt"
	"time"

	"LeadDesk/entity"
)

// ReadReceipts returns every receipt for the given conversations with the reader's name.
func (p *Postgres) ReadReceipts(ctx context.Context, sessionIDs []string) ([]entity.ReadReceipt, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(
		`SELECT r.phone_id, r.seller_id, s.name, r.last_read_at, r.read_count, r.is_currently_viewing
		FROM %s r JOIN %s s ON s.id = r.seller_id
		WHERE r.phone_id = ANY($1)`,
		ident(p.names.Reads), ident(p.names.Sellers))

	rows, err := p.pool.Query(ctx, query, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("query read receipts: %w", err)
	}
	defer rows.Close()

	var receipts []entity.ReadReceipt
	for rows.Next() {
		var r entity.ReadReceipt
		if err = rows.Scan(&r.SessionID, &r.SellerID, &r.SellerName, &r.LastReadAt, &r.ReadCount, &r.IsCurrentlyViewing); err != nil {
			return nil, fmt.Errorf("scan read receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("read receipts: %w", err)
	}
	return receipts, nil
}

// UpsertReadReceipt keeps a single receipt per (conversation, agent).
func (p *Postgres) UpsertReadReceipt(ctx context.Context, sessionID string, agentID int64, at time.Time) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (phone_id, seller_id, last_read_at, read_count, is_currently_viewing)
		VALUES ($1, $2, $3, 1, true)
		ON CONFLICT (phone_id, seller_id) DO UPDATE SET
			last_read_at = EXCLUDED.last_read_at,
			read_count = EXCLUDED.read_count,
			is_currently_viewing = EXCLUDED.is_currently_viewing`,
		ident(p.names.Reads))

	if _, err := p.pool.Exec(ctx, query, sessionID, agentID, at.UTC()); err != nil {
		return fmt.Errorf("upsert read receipt: %w", err)
	}
	return nil
}
