package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"LeadDesk/internal/config"
	"LeadDesk/internal/lib/sl"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	sqlStateUndefinedFunction   = "42883"
	sqlStateFeatureNotSupported = "0A000"
)

var prefixPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Names holds every table, procedure and channel name derived from the project prefix.
type Names struct {
	ChatHistories      string
	Leads              string
	Sellers            string
	Reads              string
	ConversationsProc  string
	MessagesProc       string
	ChatOverviewProc   string
	UpdateAIStatusProc string
	GeneralStatsProc   string
	InsertChannel      string
}

func NamesFor(prefix string) (Names, error) {
	if !prefixPattern.MatchString(prefix) {
		return Names{}, fmt.Errorf("invalid project prefix %q", prefix)
	}
	return Names{
		ChatHistories:      prefix + "_chat_histories",
		Leads:              prefix + "_lead_management",
		Sellers:            prefix + "_sdr_seller",
		Reads:              prefix + "_conversation_reads",
		ConversationsProc:  "get_" + prefix + "_conversations_overview",
		MessagesProc:       "get_" + prefix + "_chat_messages_with_pagination",
		ChatOverviewProc:   "get_" + prefix + "_chat_overview",
		UpdateAIStatusProc: "update_ai_status",
		GeneralStatsProc:   "get_general_stats",
		InsertChannel:      prefix + "_chat_inserts",
	}, nil
}

type Postgres struct {
	pool  *pgxpool.Pool
	names Names
	log   *slog.Logger
}

func NewPostgresClient(ctx context.Context, conf *config.Config, logger *slog.Logger) (*Postgres, error) {
	names, err := NamesFor(conf.Backend.Prefix)
	if err != nil {
		return nil, err
	}
	poolConf, err := pgxpool.ParseConfig(conf.Backend.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse backend dsn: %w", err)
	}
	if conf.Backend.MaxConns > 0 {
		poolConf.MaxConns = conf.Backend.MaxConns
	}
	poolConf.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConf)
	if err != nil {
		return nil, fmt.Errorf("create backend pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping backend: %w", err)
	}

	return &Postgres{
		pool:  pool,
		names: names,
		log:   logger.With(sl.Module("postgres")),
	}, nil
}

func (p *Postgres) Names() Names {
	return p.names
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// IsProcedureUnavailable reports whether err means the server-side procedure
// does not exist or cannot be used, as opposed to a genuine query failure.
func IsProcedureUnavailable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateUndefinedFunction || pgErr.Code == sqlStateFeatureNotSupported
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
