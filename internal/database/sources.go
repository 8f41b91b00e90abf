package repository

import (
	"context"
	"fmt"
	"time"

	"LeadDesk/entity"
)

func (p *Postgres) SourcesProc(ctx context.Context) ([]entity.Source, error) {
	query := fmt.Sprintf(`SELECT sender, conversation_count FROM %s()`, ident(p.names.ChatOverviewProc))
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := make([]entity.Source, 0)
	for rows.Next() {
		var (
			sender *string
			count  int64
		)
		if err = rows.Scan(&sender, &count); err != nil {
			return nil, err
		}
		sources = append(sources, entity.Source{Sender: deref(sender), ConversationCount: int(count)})
	}
	return sources, rows.Err()
}

// SourcesDirect counts distinct conversations per non-null sender.
func (p *Postgres) SourcesDirect(ctx context.Context) ([]entity.Source, error) {
	query := fmt.Sprintf(
		`SELECT sender, COUNT(DISTINCT session_id) FROM %s
		WHERE sender IS NOT NULL
		GROUP BY sender
		ORDER BY 2 DESC, sender ASC`,
		ident(p.names.ChatHistories))

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	sources := make([]entity.Source, 0)
	for rows.Next() {
		var s entity.Source
		var count int64
		if err = rows.Scan(&s.Sender, &count); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		s.ConversationCount = int(count)
		sources = append(sources, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}
	return sources, nil
}

func (p *Postgres) StatsProc(ctx context.Context) (*entity.GeneralStats, error) {
	query := fmt.Sprintf(
		`SELECT total_messages, total_conversations, total_senders, date_range_start, date_range_end FROM %s()`,
		ident(p.names.GeneralStatsProc))
	return p.scanStats(ctx, query)
}

func (p *Postgres) StatsDirect(ctx context.Context) (*entity.GeneralStats, error) {
	query := fmt.Sprintf(
		`SELECT COUNT(*), COUNT(DISTINCT session_id), COUNT(DISTINCT sender), MIN(created_at), MAX(created_at) FROM %s`,
		ident(p.names.ChatHistories))
	stats, err := p.scanStats(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}

func (p *Postgres) scanStats(ctx context.Context, query string) (*entity.GeneralStats, error) {
	var (
		messages, conversations, senders int64
		start, end                       *time.Time
	)
	err := p.pool.QueryRow(ctx, query).Scan(&messages, &conversations, &senders, &start, &end)
	if err != nil {
		if isNoRows(err) {
			return &entity.GeneralStats{}, nil
		}
		return nil, err
	}
	return &entity.GeneralStats{
		TotalMessages:      int(messages),
		TotalConversations: int(conversations),
		TotalSenders:       int(senders),
		DateRangeStart:     start,
		DateRangeEnd:       end,
	}, nil
}
