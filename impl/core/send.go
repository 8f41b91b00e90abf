package core

import (
	"context"
	"fmt"
	"log/slog"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/sl"
)

// SendMessage delivers an agent reply. The audit entry names the current
// agent when one is selected and the signed-in user otherwise.
func (c *Core) SendMessage(ctx context.Context, user string, out entity.Outbound) (*entity.DispatchResult, error) {
	if c.dispatcher == nil {
		return nil, fmt.Errorf("dispatcher not available")
	}

	author := user
	agent, err := c.CurrentAgent(ctx, user)
	if err != nil {
		c.log.With(sl.Err(err), slog.String("user", user)).Warn("current agent unavailable")
	}
	if agent != nil {
		author = agent.Name
	}

	return c.dispatcher.Send(ctx, out, author)
}
