package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"LeadDesk/entity"

	"github.com/jackc/pgx/v5"
)

type conversationRow struct {
	SessionID       string          `db:"session_id"`
	Sender          *string         `db:"sender"`
	LastMessageDate time.Time       `db:"last_message_date"`
	MessageCount    int64           `db:"message_count"`
	LeadName        *string         `db:"lead_name"`
	LeadPhoneID     *string         `db:"lead_phone_id"`
	LeadScoring     any             `db:"lead_scoring"`
	CrmDealStageID  *string         `db:"crm_deal_stage_id"`
	IsAIEnabled     *bool           `db:"is_ai_enabled"`
	Status          *string         `db:"lead_conversation_status"`
	LastMessageData json.RawMessage `db:"last_message_data"`
	InstanceName    *string         `db:"instance_name"`
	ManychatID      *string         `db:"manychat_id"`
	ManychatData    json.RawMessage `db:"manychat_data"`
}

func (r conversationRow) toEntity() entity.Conversation {
	c := entity.Conversation{
		SessionID:       r.SessionID,
		Sender:          deref(r.Sender),
		LastMessageDate: r.LastMessageDate,
		MessageCount:    int(r.MessageCount),
		LeadName:        deref(r.LeadName),
		LeadPhoneID:     deref(r.LeadPhoneID),
		LeadScoring:     scoreString(r.LeadScoring),
		CrmDealStageID:  deref(r.CrmDealStageID),
		IsAIEnabled:     r.IsAIEnabled == nil || *r.IsAIEnabled,
		Status:          entity.LeadStatus(deref(r.Status)),
		LastMessageData: r.LastMessageData,
		InstanceName:    deref(r.InstanceName),
		ManychatID:      r.ManychatID,
		ManychatData:    r.ManychatData,
	}
	if c.LeadName == "" {
		c.LeadName = entity.NoNamePlaceholder
	}
	if c.LeadPhoneID == "" {
		c.LeadPhoneID = r.SessionID
	}
	return c
}

// scoreString accepts the score whether the column is numeric or text.
func scoreString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// ConversationsProc calls the conversations overview procedure.
func (p *Postgres) ConversationsProc(ctx context.Context, sender string) ([]entity.Conversation, error) {
	query := fmt.Sprintf(`SELECT * FROM %s(sender_filter => $1)`, ident(p.names.ConversationsProc))

	rows, err := p.pool.Query(ctx, query, nilIfEmpty(sender))
	if err != nil {
		return nil, err
	}
	collected, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[conversationRow])
	if err != nil {
		return nil, err
	}
	conversations := make([]entity.Conversation, 0, len(collected))
	for _, r := range collected {
		conversations = append(conversations, r.toEntity())
	}
	return conversations, nil
}

// LeadsByPhone loads the lead records for exactly the given session ids in one query.
func (p *Postgres) LeadsByPhone(ctx context.Context, phoneIDs []string) ([]entity.Lead, error) {
	if len(phoneIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(
		`SELECT phone_id, name, email, lead_scoring, crm_deal_stage_id, is_ai_enabled,
			lead_conversation_status, last_message_data, instance_name
		FROM %s WHERE phone_id = ANY($1)`,
		ident(p.names.Leads))

	rows, err := p.pool.Query(ctx, query, phoneIDs)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	var leads []entity.Lead
	for rows.Next() {
		var (
			lead                                        entity.Lead
			name, email, stage, status, instance, phone *string
			score                                       any
		)
		err = rows.Scan(&phone, &name, &email, &score, &stage, &lead.IsAIEnabled,
			&status, &lead.LastMessageData, &instance)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		lead.PhoneID = deref(phone)
		lead.Name = deref(name)
		lead.Email = deref(email)
		lead.LeadScoring = scoreString(score)
		lead.CrmDealStageID = deref(stage)
		lead.Status = entity.LeadStatus(deref(status))
		lead.InstanceName = deref(instance)
		leads = append(leads, lead)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("read leads: %w", err)
	}
	return leads, nil
}
