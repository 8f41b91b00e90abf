package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/sl"
)

func (c *Core) ListAgents(ctx context.Context) ([]entity.Agent, error) {
	if c.roster == nil {
		return nil, fmt.Errorf("roster not available")
	}
	return c.roster.ActiveAgents(ctx)
}

// CreateAgent adds an agent to the roster and makes it the user's current one.
func (c *Core) CreateAgent(ctx context.Context, user string, req entity.NewAgent) (*entity.Agent, error) {
	if c.roster == nil {
		return nil, fmt.Errorf("roster not available")
	}
	agent, err := c.roster.CreateAgent(ctx, req)
	if err != nil {
		return nil, err
	}
	if err = c.storeAgent(ctx, user, agent); err != nil {
		return nil, err
	}
	c.dropReadCache(user)
	c.log.With(
		slog.String("user", user),
		slog.Int64("agent", agent.ID),
		slog.String("name", agent.Name),
	).Info("agent created")
	return agent, nil
}

func (c *Core) DeactivateAgent(ctx context.Context, user string, id int64) error {
	if c.roster == nil {
		return fmt.Errorf("roster not available")
	}
	if err := c.roster.DeactivateAgent(ctx, id); err != nil {
		return err
	}
	current, err := c.loadAgent(ctx, user)
	if err == nil && current != nil && current.ID == id {
		return c.ClearAgent(ctx, user)
	}
	return nil
}

// CurrentAgent returns the agent the user works as, or nil. The stored
// selection is checked against the roster so a deactivated agent is dropped.
func (c *Core) CurrentAgent(ctx context.Context, user string) (*entity.Agent, error) {
	stored, err := c.loadAgent(ctx, user)
	if err != nil || stored == nil {
		return nil, err
	}
	if c.roster == nil {
		return stored, nil
	}

	fresh, err := c.roster.Agent(ctx, stored.ID)
	switch {
	case errors.Is(err, entity.ErrNotFound), err == nil && !fresh.IsActive:
		c.log.With(slog.String("user", user), slog.Int64("agent", stored.ID)).Info("selected agent no longer active")
		return nil, c.ClearAgent(ctx, user)
	case err != nil:
		c.log.With(sl.Err(err)).Warn("roster check failed, using stored agent")
		return stored, nil
	}
	return fresh, nil
}

func (c *Core) SelectAgent(ctx context.Context, user string, id int64) (*entity.Agent, error) {
	if c.roster == nil {
		return nil, fmt.Errorf("roster not available")
	}
	agent, err := c.roster.Agent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !agent.IsActive {
		return nil, entity.ErrAgentInactive
	}
	if err = c.storeAgent(ctx, user, agent); err != nil {
		return nil, err
	}
	c.dropReadCache(user)
	return agent, nil
}

// ClearAgent ends the user's agent session and drops its read state.
func (c *Core) ClearAgent(ctx context.Context, user string) error {
	c.dropReadCache(user)
	if c.agents == nil {
		c.mu.Lock()
		delete(c.memAgents, user)
		c.mu.Unlock()
		return nil
	}
	return c.agents.ClearCurrentAgent(ctx, user)
}

func (c *Core) loadAgent(ctx context.Context, user string) (*entity.Agent, error) {
	if c.agents == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		agent, ok := c.memAgents[user]
		if !ok {
			return nil, nil
		}
		return &agent, nil
	}
	return c.agents.CurrentAgent(ctx, user)
}

func (c *Core) storeAgent(ctx context.Context, user string, agent *entity.Agent) error {
	if c.agents == nil {
		c.mu.Lock()
		c.memAgents[user] = *agent
		c.mu.Unlock()
		return nil
	}
	return c.agents.SetCurrentAgent(ctx, user, agent)
}

func (c *Core) requireAgent(ctx context.Context, user string) (*entity.Agent, error) {
	agent, err := c.CurrentAgent(ctx, user)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, entity.ErrNoAgent
	}
	return agent, nil
}
