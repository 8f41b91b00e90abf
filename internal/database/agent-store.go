package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"LeadDesk/entity"
	"LeadDesk/internal/config"
	"LeadDesk/internal/lib/sl"

	"github.com/redis/go-redis/v9"
)

// AgentStore remembers which roster agent each signed-in user works as.
type AgentStore struct {
	rdb    *redis.Client
	prefix string
	log    *slog.Logger
}

func NewAgentStore(conf *config.Config, logger *slog.Logger) (*AgentStore, error) {
	if !conf.Redis.Enabled {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newAgentStore(rdb, conf.Backend.Prefix, logger), nil
}

func newAgentStore(rdb *redis.Client, prefix string, logger *slog.Logger) *AgentStore {
	return &AgentStore{
		rdb:    rdb,
		prefix: prefix,
		log:    logger.With(sl.Module("agent store")),
	}
}

func (s *AgentStore) key(user string) string {
	return fmt.Sprintf("%s:current-agent:%s", s.prefix, user)
}

// CurrentAgent returns nil without error when the user has not picked an agent.
func (s *AgentStore) CurrentAgent(ctx context.Context, user string) (*entity.Agent, error) {
	data, err := s.rdb.Get(ctx, s.key(user)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var agent entity.Agent
	if err = json.Unmarshal(data, &agent); err != nil {
		s.log.With(sl.Err(err), slog.String("user", user)).Warn("stored agent is unreadable, dropping it")
		_ = s.rdb.Del(ctx, s.key(user)).Err()
		return nil, nil
	}
	return &agent, nil
}

func (s *AgentStore) SetCurrentAgent(ctx context.Context, user string, agent *entity.Agent) error {
	data, err := json.Marshal(agent)
	if err != nil {
		return fmt.Errorf("marshal agent: %w", err)
	}
	if err = s.rdb.Set(ctx, s.key(user), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *AgentStore) ClearCurrentAgent(ctx context.Context, user string) error {
	if err := s.rdb.Del(ctx, s.key(user)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *AgentStore) Close() error {
	return s.rdb.Close()
}
