package repository

import (
	"context"
	"fmt"
)

func (p *Postgres) devSchema() []string {
	n := p.names
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			message JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			sender TEXT
		)`, ident(n.ChatHistories)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (session_id, created_at)`,
			ident(n.ChatHistories+"_session_idx"), ident(n.ChatHistories)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			phone_id TEXT UNIQUE,
			name TEXT,
			email TEXT,
			lead_scoring TEXT,
			crm_deal_stage_id TEXT,
			is_ai_enabled BOOLEAN NOT NULL DEFAULT true,
			lead_conversation_status TEXT,
			last_message_data JSONB,
			instance_name TEXT,
			manychat_id TEXT,
			manychat_data JSONB
		)`, ident(n.Leads)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			name TEXT NOT NULL,
			specialization TEXT,
			creci_number TEXT,
			is_active BOOLEAN NOT NULL DEFAULT true,
			status TEXT NOT NULL DEFAULT 'active'
		)`, ident(n.Sellers)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			phone_id TEXT NOT NULL,
			seller_id BIGINT NOT NULL REFERENCES %s (id),
			last_read_at TIMESTAMPTZ NOT NULL,
			read_count INTEGER NOT NULL DEFAULT 1,
			is_currently_viewing BOOLEAN NOT NULL DEFAULT false,
			UNIQUE (phone_id, seller_id)
		)`, ident(n.Reads), ident(n.Sellers)),
	}
}

// changeFeedSchema installs the trigger that announces inserted messages.
// Only the key columns travel in the notification; the listener loads the row.
func (p *Postgres) changeFeedSchema() []string {
	n := p.names
	fn := ident(n.ChatHistories + "_notify_insert")
	return []string{
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION %s() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify(%s, json_build_object('id', NEW.id, 'session_id', NEW.session_id)::text);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`, fn, quoteLiteral(n.InsertChannel)),
		fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`,
			ident(n.ChatHistories+"_insert_notify"), ident(n.ChatHistories)),
		fmt.Sprintf(`CREATE TRIGGER %s AFTER INSERT ON %s FOR EACH ROW EXECUTE FUNCTION %s()`,
			ident(n.ChatHistories+"_insert_notify"), ident(n.ChatHistories), fn),
	}
}

// EnsureSchema installs the change-feed trigger and, when createTables is
// set, the development tables.
func (p *Postgres) EnsureSchema(ctx context.Context, createTables bool) error {
	var statements []string
	if createTables {
		statements = append(statements, p.devSchema()...)
	}
	statements = append(statements, p.changeFeedSchema()...)

	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// quoteLiteral is only used on names already checked against prefixPattern.
func quoteLiteral(s string) string {
	return "'" + s + "'"
}
