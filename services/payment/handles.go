package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"metisconnect/models"

	"github.com/go-redis/redis/v8"
)

const (
	handleKeyPrefix = "payment:handle:"
	handleTTL       = 24 * time.Hour
)

// HandleRecord ties an authorization handle to its appointment so that a
// later, unrelated invocation can finish the attempt.
type HandleRecord struct {
	Handle      string                `json:"handle"`
	Appointment models.Appointment    `json:"appointment"`
	Amount      float64               `json:"amount"`
	Currency    string                `json:"currency"`
	Outcome     models.PaymentOutcome `json:"outcome"`
	Message     string                `json:"message,omitempty"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// HandleStore persists handle records. Get returns ErrHandleNotFound for
// unknown handles.
type HandleStore interface {
	Save(ctx context.Context, rec HandleRecord) error
	Get(ctx context.Context, handle string) (*HandleRecord, error)
}

// RedisHandleStore keeps records in Redis with a fixed TTL.
type RedisHandleStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisHandleStore(client *redis.Client) *RedisHandleStore {
	return &RedisHandleStore{client: client, ttl: handleTTL}
}

func (s *RedisHandleStore) Save(ctx context.Context, rec HandleRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode handle record: %w", err)
	}
	if err := s.client.Set(ctx, handleKeyPrefix+rec.Handle, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("save handle %s: %w", rec.Handle, err)
	}
	return nil
}

func (s *RedisHandleStore) Get(ctx context.Context, handle string) (*HandleRecord, error) {
	b, err := s.client.Get(ctx, handleKeyPrefix+handle).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrHandleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load handle %s: %w", handle, err)
	}
	var rec HandleRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode handle %s: %w", handle, err)
	}
	return &rec, nil
}

// MemoryHandleStore is used when Redis is not reachable and in tests.
type MemoryHandleStore struct {
	mu      sync.RWMutex
	records map[string]HandleRecord
}

func NewMemoryHandleStore() *MemoryHandleStore {
	return &MemoryHandleStore{records: make(map[string]HandleRecord)}
}

func (s *MemoryHandleStore) Save(_ context.Context, rec HandleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Handle] = rec
	return nil
}

func (s *MemoryHandleStore) Get(_ context.Context, handle string) (*HandleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[handle]
	if !ok {
		return nil, ErrHandleNotFound
	}
	return &rec, nil
}
