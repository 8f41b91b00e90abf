package repository

import (
	"context"
	"fmt"

	"LeadDesk/entity"

	"github.com/jackc/pgx/v5"
)

const agentColumns = `id, name, specialization, is_active, status, creci_number, created_at`

func scanAgent(row pgx.Row) (*entity.Agent, error) {
	var (
		agent                          entity.Agent
		specialization, status, creci *string
	)
	err := row.Scan(&agent.ID, &agent.Name, &specialization, &agent.IsActive, &status, &creci, &agent.CreatedAt)
	if err != nil {
		return nil, err
	}
	agent.Specialization = deref(specialization)
	agent.Status = deref(status)
	agent.LicenseNumber = deref(creci)
	return &agent, nil
}

// ActiveAgents lists the roster in creation order.
func (p *Postgres) ActiveAgents(ctx context.Context) ([]entity.Agent, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE is_active ORDER BY created_at ASC, id ASC`,
		agentColumns, ident(p.names.Sellers))

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	agents := make([]entity.Agent, 0)
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *agent)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("read agents: %w", err)
	}
	return agents, nil
}

func (p *Postgres) Agent(ctx context.Context, id int64) (*entity.Agent, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, agentColumns, ident(p.names.Sellers))
	agent, err := scanAgent(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("agent %d: %w", id, entity.ErrNotFound)
		}
		return nil, fmt.Errorf("query agent: %w", err)
	}
	return agent, nil
}

func (p *Postgres) CreateAgent(ctx context.Context, req entity.NewAgent) (*entity.Agent, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s (name, specialization, creci_number, is_active, status)
		VALUES ($1, $2, $3, true, $4)
		RETURNING %s`,
		ident(p.names.Sellers), agentColumns)

	agent, err := scanAgent(p.pool.QueryRow(ctx, query,
		req.Name, nilIfEmpty(req.Specialization), nilIfEmpty(req.LicenseNumber), entity.AgentStatusActive))
	if err != nil {
		return nil, fmt.Errorf("insert agent: %w", err)
	}
	return agent, nil
}

// DeactivateAgent is a soft delete; agents are never removed.
func (p *Postgres) DeactivateAgent(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`UPDATE %s SET is_active = false, status = 'inactive' WHERE id = $1`, ident(p.names.Sellers))
	tag, err := p.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("agent %d: %w", id, entity.ErrNotFound)
	}
	return nil
}
