package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/service/redismem"
	"github.com/venquis/contractchat/pkg/service/zep"
	"github.com/venquis/contractchat/pkg/utils/logging"
)

const (
	MemoryNone  = "none"
	MemoryZep   = "zep"
	MemoryRedis = "redis"
)

// Memory holds CLI flags for the conversational memory service
type Memory struct {
	backend     string
	zepURL      string
	zepAPIKey   string
	redisURL    string
	redisPrefix string
	redisTTL    time.Duration
}

func (m *Memory) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "memory-backend",
			Usage:       "Memory service backend (none, zep or redis)",
			Value:       MemoryNone,
			Category:    "Memory",
			Sources:     cli.EnvVars("CONTRACTCHAT_MEMORY_BACKEND"),
			Destination: &m.backend,
		},
		&cli.StringFlag{
			Name:        "zep-api-url",
			Usage:       "Zep API base URL",
			Category:    "Memory",
			Sources:     cli.EnvVars("CONTRACTCHAT_ZEP_API_URL", "ZEP_API_URL"),
			Destination: &m.zepURL,
		},
		&cli.StringFlag{
			Name:        "zep-api-key",
			Usage:       "Zep API key",
			Category:    "Memory",
			Sources:     cli.EnvVars("CONTRACTCHAT_ZEP_API_KEY", "ZEP_API_KEY"),
			Destination: &m.zepAPIKey,
		},
		&cli.StringFlag{
			Name:        "redis-url",
			Usage:       "Redis URL, e.g. redis://localhost:6379/0",
			Category:    "Memory",
			Sources:     cli.EnvVars("CONTRACTCHAT_REDIS_URL", "REDIS_URL"),
			Destination: &m.redisURL,
		},
		&cli.StringFlag{
			Name:        "redis-key-prefix",
			Usage:       "Prefix of memory keys in Redis",
			Value:       "contractchat",
			Category:    "Memory",
			Sources:     cli.EnvVars("CONTRACTCHAT_REDIS_KEY_PREFIX"),
			Destination: &m.redisPrefix,
		},
		&cli.DurationFlag{
			Name:        "redis-ttl",
			Usage:       "Expiry of memory sessions in Redis (0 keeps them forever)",
			Category:    "Memory",
			Sources:     cli.EnvVars("CONTRACTCHAT_REDIS_TTL"),
			Destination: &m.redisTTL,
		},
	}
}

func (m Memory) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", m.backend),
		slog.String("zep_url", m.zepURL),
		slog.Int("zep_api_key.len", len(m.zepAPIKey)),
		slog.Int("redis_url.len", len(m.redisURL)),
		slog.String("redis_prefix", m.redisPrefix),
		slog.Duration("redis_ttl", m.redisTTL),
	)
}

func (m *Memory) Validate() error {
	switch m.backend {
	case MemoryNone:
		return nil
	case MemoryZep:
		if m.zepURL == "" || m.zepAPIKey == "" {
			return goerr.Wrap(ErrMissingRequired, "zep-api-url and zep-api-key are required when using zep backend",
				goerr.V(OptionKey, "zep-api-url"))
		}
		return nil
	case MemoryRedis:
		if m.redisURL == "" {
			return goerr.Wrap(ErrMissingRequired, "redis-url is required when using redis backend",
				goerr.V(OptionKey, "redis-url"))
		}
		return nil
	default:
		return goerr.Wrap(ErrInvalidBackend, "invalid memory backend", goerr.V(BackendKey, m.backend))
	}
}

// Configure returns the memory service, or nil when memory is disabled. The
// returned function releases the connection.
func (m *Memory) Configure(ctx context.Context) (interfaces.MemoryService, func(), error) {
	if err := m.Validate(); err != nil {
		return nil, nil, err
	}

	switch m.backend {
	case MemoryZep:
		client, err := zep.New(m.zepURL, m.zepAPIKey)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize zep client")
		}
		logging.Default().Info("Using Zep memory service", "url", m.zepURL)
		return client, func() {}, nil

	case MemoryRedis:
		opts := []redismem.Option{redismem.WithKeyPrefix(m.redisPrefix)}
		if m.redisTTL > 0 {
			opts = append(opts, redismem.WithTTL(m.redisTTL))
		}
		store, err := redismem.New(ctx, m.redisURL, opts...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize redis memory store")
		}
		logging.Default().Info("Using Redis memory service", "prefix", m.redisPrefix)
		return store, func() {
			if err := store.Close(); err != nil {
				logging.Default().Error("failed to close redis client", "error", err)
			}
		}, nil

	default:
		logging.Default().Info("Memory service is disabled")
		return nil, func() {}, nil
	}
}
