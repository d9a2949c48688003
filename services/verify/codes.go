package verify

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL кода подтверждения почты.
const TTL = 10 * time.Minute

// Store хранит коды подтверждения по email. Код одноразовый: после
// успешной проверки вызывается Delete.
type Store interface {
	Put(ctx context.Context, email, code string) error
	Get(ctx context.Context, email string) (string, error)
	Delete(ctx context.Context, email string) error
}

// ErrNotFound — кода нет или он истёк.
var ErrNotFound = errors.New("verify: code not found")

// NewCode — шестизначный код. Отправка почты вне зоны ответственности:
// код пишется в лог приложения.
func NewCode() string {
	return fmt.Sprintf("%06d", rand.Intn(900000)+100000)
}

type memoryItem struct {
	code      string
	expiresAt time.Time
}

// MemoryStore — хранилище по умолчанию, живёт в памяти процесса.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem)}
}

func (s *MemoryStore) Put(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[email] = memoryItem{code: code, expiresAt: time.Now().Add(TTL)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[email]
	if !ok || time.Now().After(item.expiresAt) {
		delete(s.items, email)
		return "", ErrNotFound
	}
	return item.code, nil
}

func (s *MemoryStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, email)
	return nil
}

// RedisStore используется при заданном REDIS_ADDR: коды переживают
// рестарт и делятся между репликами.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

func key(email string) string { return "verify:" + email }

func (s *RedisStore) Put(ctx context.Context, email, code string) error {
	return s.rdb.Set(ctx, key(email), code, TTL).Err()
}

func (s *RedisStore) Get(ctx context.Context, email string) (string, error) {
	code, err := s.rdb.Get(ctx, key(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("verify: redis get: %w", err)
	}
	return code, nil
}

func (s *RedisStore) Delete(ctx context.Context, email string) error {
	return s.rdb.Del(ctx, key(email)).Err()
}
