package repository

import (
	"context"
	"fmt"
	"time"

	"LeadDesk/entity"

	"github.com/jackc/pgx/v5"
)

// MessagePageLimit is the page size used with the paginated procedure; only
// the first page is ever requested.
const MessagePageLimit = 1000

type messageRow struct {
	ID           int64                 `db:"id"`
	SessionID    string                `db:"session_id"`
	Message      entity.MessagePayload `db:"message"`
	CreatedAt    time.Time             `db:"created_at"`
	Sender       *string               `db:"sender"`
	InstanceName *string               `db:"instance_name"`
}

func (r messageRow) toEntity() entity.ChatMessage {
	return entity.ChatMessage{
		ID:           r.ID,
		SessionID:    r.SessionID,
		Message:      r.Message,
		CreatedAt:    r.CreatedAt,
		Sender:       deref(r.Sender),
		InstanceName: deref(r.InstanceName),
	}
}

// storedPayload keeps the empty extension fields the message consumers expect.
type storedPayload struct {
	Type             entity.MessageRole     `json:"type"`
	Content          string                 `json:"content"`
	AdditionalKwargs map[string]interface{} `json:"additional_kwargs"`
	ResponseMetadata map[string]interface{} `json:"response_metadata"`
	ToolCalls        []interface{}          `json:"tool_calls"`
	InvalidToolCalls []interface{}          `json:"invalid_tool_calls"`
}

func newStoredPayload(role entity.MessageRole, content string) storedPayload {
	return storedPayload{
		Type:             role,
		Content:          content,
		AdditionalKwargs: map[string]interface{}{},
		ResponseMetadata: map[string]interface{}{},
		ToolCalls:        []interface{}{},
		InvalidToolCalls: []interface{}{},
	}
}

func collectMessages(rows pgx.Rows) ([]entity.ChatMessage, error) {
	collected, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[messageRow])
	if err != nil {
		return nil, err
	}
	messages := make([]entity.ChatMessage, 0, len(collected))
	for _, r := range collected {
		messages = append(messages, r.toEntity())
	}
	return messages, nil
}

// MessagesProc calls the paginated messages procedure with the fixed first page.
func (p *Postgres) MessagesProc(ctx context.Context, sessionID, sender string) ([]entity.ChatMessage, error) {
	query := fmt.Sprintf(
		`SELECT * FROM %s(p_session_id => $1, p_sender_filter => $2, p_limit => $3, p_offset => $4)`,
		ident(p.names.MessagesProc))

	rows, err := p.pool.Query(ctx, query, sessionID, nilIfEmpty(sender), MessagePageLimit, 0)
	if err != nil {
		return nil, err
	}
	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (p *Postgres) MessagesDirect(ctx context.Context, sessionID, sender string) ([]entity.ChatMessage, error) {
	query := fmt.Sprintf(
		`SELECT id, session_id, message, created_at, sender FROM %s
		WHERE session_id = $1 AND ($2::text IS NULL OR sender = $2)
		ORDER BY created_at ASC, id ASC`,
		ident(p.names.ChatHistories))

	rows, err := p.pool.Query(ctx, query, sessionID, nilIfEmpty(sender))
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	messages, err := collectMessages(rows)
	if err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}
	return messages, nil
}

// AppendMessage inserts the structured record and returns the stored row.
func (p *Postgres) AppendMessage(ctx context.Context, msg entity.NewMessage) (entity.ChatMessage, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (session_id, message, created_at, sender) VALUES ($1, $2, $3, $4)
		RETURNING id, session_id, message, created_at, sender`,
		ident(p.names.ChatHistories))

	rows, err := p.pool.Query(ctx, query,
		msg.SessionID, newStoredPayload(msg.Role, msg.Content), msg.CreatedAt, nilIfEmpty(msg.Sender))
	if err != nil {
		return entity.ChatMessage{}, fmt.Errorf("insert message: %w", err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByNameLax[messageRow])
	if err != nil {
		return entity.ChatMessage{}, fmt.Errorf("insert message: %w", err)
	}
	return row.toEntity(), nil
}

// MessageHeads returns the minimal columns of every message, newest first.
func (p *Postgres) MessageHeads(ctx context.Context, sender string) ([]entity.MessageHead, error) {
	query := fmt.Sprintf(
		`SELECT session_id, created_at, sender FROM %s
		WHERE $1::text IS NULL OR sender = $1
		ORDER BY created_at DESC`,
		ident(p.names.ChatHistories))

	rows, err := p.pool.Query(ctx, query, nilIfEmpty(sender))
	if err != nil {
		return nil, fmt.Errorf("query message heads: %w", err)
	}
	defer rows.Close()

	var heads []entity.MessageHead
	for rows.Next() {
		var h entity.MessageHead
		var s *string
		if err = rows.Scan(&h.SessionID, &h.CreatedAt, &s); err != nil {
			return nil, fmt.Errorf("scan message head: %w", err)
		}
		h.Sender = deref(s)
		heads = append(heads, h)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("read message heads: %w", err)
	}
	return heads, nil
}

func (p *Postgres) MessageByID(ctx context.Context, id int64) (entity.ChatMessage, error) {
	query := fmt.Sprintf(`SELECT id, session_id, message, created_at, sender FROM %s WHERE id = $1`,
		ident(p.names.ChatHistories))
	rows, err := p.pool.Query(ctx, query, id)
	if err != nil {
		return entity.ChatMessage{}, fmt.Errorf("query message: %w", err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByNameLax[messageRow])
	if err != nil {
		if isNoRows(err) {
			return entity.ChatMessage{}, fmt.Errorf("message %d: %w", id, entity.ErrNotFound)
		}
		return entity.ChatMessage{}, fmt.Errorf("scan message: %w", err)
	}
	return row.toEntity(), nil
}
