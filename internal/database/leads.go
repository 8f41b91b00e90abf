package repository

import (
	"context"
	"fmt"
	"time"

	"LeadDesk/entity"
)

// LeadRouting returns the delivery metadata of a conversation's lead. A
// conversation without a lead record routes through the default path.
func (p *Postgres) LeadRouting(ctx context.Context, sessionID string) (*entity.LeadRouting, error) {
	query := fmt.Sprintf(
		`SELECT instance_name, manychat_id, manychat_data FROM %s WHERE phone_id = $1 LIMIT 1`,
		ident(p.names.Leads))

	var instance, manychatID *string
	routing := &entity.LeadRouting{}
	err := p.pool.QueryRow(ctx, query, sessionID).Scan(&instance, &manychatID, &routing.ManychatData)
	if err != nil {
		if isNoRows(err) {
			return routing, nil
		}
		return nil, fmt.Errorf("query lead routing: %w", err)
	}
	routing.InstanceName = deref(instance)
	routing.ManychatID = deref(manychatID)
	return routing, nil
}

func (p *Postgres) SetAIEnabledProc(ctx context.Context, sessionID string, enabled bool) error {
	query := fmt.Sprintf(`SELECT %s(phone_id_param => $1, new_status => $2)`, ident(p.names.UpdateAIStatusProc))
	_, err := p.pool.Exec(ctx, query, sessionID, enabled)
	return err
}

func (p *Postgres) SetAIEnabledDirect(ctx context.Context, sessionID string, enabled bool) error {
	query := fmt.Sprintf(`UPDATE %s SET is_ai_enabled = $2 WHERE phone_id = $1`, ident(p.names.Leads))
	tag, err := p.pool.Exec(ctx, query, sessionID, enabled)
	if err != nil {
		return fmt.Errorf("update ai status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lead %s: %w", sessionID, entity.ErrNotFound)
	}
	return nil
}

func (p *Postgres) LeadStatus(ctx context.Context, sessionID string) (entity.LeadStatus, error) {
	query := fmt.Sprintf(`SELECT lead_conversation_status FROM %s WHERE phone_id = $1 LIMIT 1`, ident(p.names.Leads))
	var status *string
	if err := p.pool.QueryRow(ctx, query, sessionID).Scan(&status); err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("lead %s: %w", sessionID, entity.ErrNotFound)
		}
		return "", fmt.Errorf("query lead status: %w", err)
	}
	return entity.LeadStatus(deref(status)).OrNew(), nil
}

// SetLeadStatus moves the lead from one status to another, failing with
// ErrConflict when the stored status is no longer from.
func (p *Postgres) SetLeadStatus(ctx context.Context, sessionID string, from, to entity.LeadStatus) error {
	query := fmt.Sprintf(
		`UPDATE %s SET lead_conversation_status = $2
		WHERE phone_id = $1 AND COALESCE(lead_conversation_status, 'new') = $3`,
		ident(p.names.Leads))
	tag, err := p.pool.Exec(ctx, query, sessionID, string(to), string(from.OrNew()))
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lead %s: %w", sessionID, entity.ErrConflict)
	}
	return nil
}

// TouchActivity records the time of the latest outbound message on the lead.
func (p *Postgres) TouchActivity(ctx context.Context, sessionID string, at time.Time) error {
	query := fmt.Sprintf(
		`UPDATE %s SET last_message_data = jsonb_build_object('created_at', $2::timestamptz)
		WHERE phone_id = $1`,
		ident(p.names.Leads))
	if _, err := p.pool.Exec(ctx, query, sessionID, at.UTC()); err != nil {
		return fmt.Errorf("touch lead activity: %w", err)
	}
	return nil
}
