// Package redis keeps OAuth2 login states in Redis. Records expire through
// key TTLs and are consumed with GETDEL, so every state is single use even
// across several service replicas.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "gatekeeper:oauth2_state:"

// Config holds connection settings for NewStateStore.
type Config struct {
	Addr     string
	Password string
	DB       int

	KeyPrefix string
	TTL       time.Duration
}

// StateStore implements store.StateStore.
type StateStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

type storedState struct {
	ID           string    `json:"id"`
	CSRFState    string    `json:"csrf_state"`
	CodeVerifier string    `json:"code_verifier"`
	ReturnURL    string    `json:"return_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewStateStore connects to Redis and verifies the connection.
func NewStateStore(ctx context.Context, cfg Config) (*StateStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewStateStoreWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewStateStoreWithClient wraps an existing client. A zero ttl keeps records
// until they are consumed.
func NewStateStoreWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *StateStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &StateStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *StateStore) key(csrfState string) string {
	return s.keyPrefix + csrfState
}

func (s *StateStore) CreateState(ctx context.Context, st domain.OAuth2State) error {
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(storedState(st))
	if err != nil {
		return fmt.Errorf("marshal oauth2 state: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(st.CSRFState), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("store oauth2 state: %w", err)
	}
	if !ok {
		return store.ErrAlreadyExists
	}
	return nil
}

func (s *StateStore) GetState(ctx context.Context, csrfState string) (domain.OAuth2State, error) {
	data, err := s.client.Get(ctx, s.key(csrfState)).Bytes()
	return decodeState(data, err)
}

func (s *StateStore) ConsumeState(ctx context.Context, csrfState string) (domain.OAuth2State, error) {
	data, err := s.client.GetDel(ctx, s.key(csrfState)).Bytes()
	return decodeState(data, err)
}

// DeleteExpiredStates is a no-op: Redis evicts records through their TTL.
func (s *StateStore) DeleteExpiredStates(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *StateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *StateStore) Close() error {
	return s.client.Close()
}

func decodeState(data []byte, err error) (domain.OAuth2State, error) {
	if errors.Is(err, redis.Nil) {
		return domain.OAuth2State{}, store.ErrNotFound
	}
	if err != nil {
		return domain.OAuth2State{}, fmt.Errorf("load oauth2 state: %w", err)
	}

	var st storedState
	if err := json.Unmarshal(data, &st); err != nil {
		return domain.OAuth2State{}, fmt.Errorf("unmarshal oauth2 state: %w", err)
	}
	return domain.OAuth2State(st), nil
}
