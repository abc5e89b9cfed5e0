package redismem

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
)

// Store keeps session memory in Redis: a marker key per session and a list
// of JSON encoded messages.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ interfaces.MemoryService = &Store{}

type Option func(*Store)

// WithKeyPrefix namespaces every key. Default "contractchat".
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires idle sessions. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New connects to redisURL (redis://[:password@]host:port/db) and pings it
func New(ctx context.Context, redisURL string, opts ...Option) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse redis URL")
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, goerr.Wrap(err, "failed to ping redis", goerr.V("addr", opt.Addr))
	}

	return NewWithClient(client, opts...), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "contractchat",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) sessionKey(id types.SessionID) string {
	return s.prefix + ":session:" + id.String()
}

func (s *Store) messagesKey(id types.SessionID) string {
	return s.prefix + ":messages:" + id.String()
}

func (s *Store) InitializeSession(ctx context.Context, sessionID types.SessionID) error {
	// SET NX leaves an existing session untouched
	if err := s.client.SetNX(ctx, s.sessionKey(sessionID), model.Timestamp(time.Now()), s.ttl).Err(); err != nil {
		return goerr.Wrap(interfaces.ErrMemoryService, "failed to create session",
			goerr.V("session_id", sessionID),
			goerr.V("cause", err.Error()))
	}
	return nil
}

func (s *Store) AddMessages(ctx context.Context, sessionID types.SessionID, msgs ...model.MemoryMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		raw, err := json.Marshal(m)
		if err != nil {
			return goerr.Wrap(err, "failed to encode memory message", goerr.V("session_id", sessionID))
		}
		values = append(values, raw)
	}

	key := s.messagesKey(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
			pipe.Expire(ctx, s.sessionKey(sessionID), s.ttl)
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(interfaces.ErrMemoryService, "failed to append memory",
			goerr.V("session_id", sessionID),
			goerr.V("cause", err.Error()))
	}
	return nil
}

func (s *Store) GetMessages(ctx context.Context, sessionID types.SessionID, limit int) ([]model.MemoryMessage, error) {
	if limit <= 0 {
		return []model.MemoryMessage{}, nil
	}

	raws, err := s.client.LRange(ctx, s.messagesKey(sessionID), int64(-limit), -1).Result()
	if err != nil {
		return nil, goerr.Wrap(interfaces.ErrMemoryService, "failed to read memory",
			goerr.V("session_id", sessionID),
			goerr.V("cause", err.Error()))
	}
	return decodeAll(raws, sessionID)
}

// Search scans the session log newest first for a case-insensitive substring
func (s *Store) Search(ctx context.Context, sessionID types.SessionID, query string, limit int) ([]model.MemoryMessage, error) {
	raws, err := s.client.LRange(ctx, s.messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, goerr.Wrap(interfaces.ErrMemoryService, "failed to read memory",
			goerr.V("session_id", sessionID),
			goerr.V("cause", err.Error()))
	}

	all, err := decodeAll(raws, sessionID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	result := make([]model.MemoryMessage, 0)
	for i := len(all) - 1; i >= 0 && len(result) < limit; i-- {
		if strings.Contains(strings.ToLower(all[i].Content), needle) {
			result = append(result, all[i])
		}
	}
	return result, nil
}

func decodeAll(raws []string, sessionID types.SessionID) ([]model.MemoryMessage, error) {
	result := make([]model.MemoryMessage, 0, len(raws))
	for _, raw := range raws {
		var m model.MemoryMessage
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, goerr.Wrap(interfaces.ErrMemoryService, "broken memory entry",
				goerr.V("session_id", sessionID),
				goerr.V("cause", err.Error()))
		}
		result = append(result, m)
	}
	return result, nil
}
