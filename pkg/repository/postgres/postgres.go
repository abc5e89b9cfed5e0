package postgres

import (
	"context"
	_ "embed"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL applied by Migrate
func Schema() string {
	return schemaSQL
}

type Postgres struct {
	pool         *pgxpool.Pool
	conversation *conversationRepository
	message      *messageRepository
	contract     *contractRepository
}

var _ interfaces.Repository = &Postgres{}

// Option tunes the pgx pool before it is opened
type Option func(*pgxpool.Config)

// WithMaxConns caps the pool size
func WithMaxConns(n int32) Option {
	return func(cfg *pgxpool.Config) {
		cfg.MaxConns = n
	}
}

// New opens a pool for dsn and verifies connectivity. postgres:// and
// postgresql:// URLs are accepted, as are SQLAlchemy style driver suffixes.
func New(ctx context.Context, dsn string, opts ...Option) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(normalizeDSN(dsn))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse postgres DSN")
	}

	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 4
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}
	if cfg.MaxConnLifetime == 0 {
		cfg.MaxConnLifetime = 60 * time.Minute
	}
	if cfg.HealthCheckPeriod == 0 {
		cfg.HealthCheckPeriod = time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to ping postgres",
			goerr.V("host", cfg.ConnConfig.Host),
			goerr.V("database", cfg.ConnConfig.Database))
	}

	return &Postgres{
		pool:         pool,
		conversation: &conversationRepository{pool: pool},
		message:      &messageRepository{pool: pool},
		contract:     &contractRepository{pool: pool},
	}, nil
}

// Migrate applies the schema. Statements are idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return goerr.Wrap(err, "failed to apply postgres schema")
	}
	return nil
}

func (p *Postgres) Conversation() interfaces.ConversationRepository {
	return p.conversation
}

func (p *Postgres) Message() interfaces.MessageRepository {
	return p.message
}

func (p *Postgres) Contract() interfaces.ContractRepository {
	return p.contract
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func normalizeDSN(dsn string) string {
	s := strings.TrimSpace(dsn)
	for _, suffix := range []string{"+asyncpg", "+pgx", "+psycopg2"} {
		s = strings.Replace(s, "postgresql"+suffix+"://", "postgresql://", 1)
		s = strings.Replace(s, "postgres"+suffix+"://", "postgres://", 1)
	}
	return s
}

const foreignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fromNullable(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
