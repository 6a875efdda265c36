package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gita-knowledge-api/internal/models"
	"github.com/gita-knowledge-api/pkg/schema/services"
)

// SessionCache holds audio a client has already loaded, scoped per session
type SessionCache interface {
	Get(ctx context.Context, session, key string) ([]byte, bool)
	Put(ctx context.Context, session, key string, data []byte)
	Clear(ctx context.Context, session string) error
}

// SessionKey names a cached track, e.g. "audio_verse_47_kn"
func SessionKey(verse int, lang Language) string {
	return fmt.Sprintf("audio_%s_%s", models.DocumentID(verse), lang)
}

// MemorySessionCache keeps session audio in process. Idle sessions expire after ttl.
type MemorySessionCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memorySession
}

type memorySession struct {
	items     map[string][]byte
	expiresAt time.Time
}

// NewMemorySessionCache creates an in-process session cache
func NewMemorySessionCache(ttl time.Duration) *MemorySessionCache {
	return &MemorySessionCache{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memorySession),
	}
}

// Get returns cached audio and refreshes the session expiry
func (c *MemorySessionCache) Get(_ context.Context, session, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[session]
	if !ok {
		return nil, false
	}
	now := c.now()
	if c.ttl > 0 && now.After(s.expiresAt) {
		delete(c.sessions, session)
		return nil, false
	}
	data, ok := s.items[key]
	if ok {
		s.expiresAt = now.Add(c.ttl)
	}
	return data, ok
}

// Put caches audio for a session
func (c *MemorySessionCache) Put(_ context.Context, session, key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweep(now)
	s, ok := c.sessions[session]
	if !ok {
		s = &memorySession{items: make(map[string][]byte)}
		c.sessions[session] = s
	}
	s.items[key] = data
	s.expiresAt = now.Add(c.ttl)
}

// Clear drops everything cached for a session
func (c *MemorySessionCache) Clear(_ context.Context, session string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, session)
	return nil
}

// Len returns the number of live sessions
func (c *MemorySessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep(c.now())
	return len(c.sessions)
}

// sweep drops expired sessions. Caller holds mu.
func (c *MemorySessionCache) sweep(now time.Time) {
	if c.ttl <= 0 {
		return
	}
	for id, s := range c.sessions {
		if now.After(s.expiresAt) {
			delete(c.sessions, id)
		}
	}
}

// SessionKV is the key-value capability the Redis session cache needs
type SessionKV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

const sessionKeyPrefix = "gita:audio:"

// KVSessionCache stores session audio in Redis so any API replica can serve it
type KVSessionCache struct {
	kv     SessionKV
	ttl    time.Duration
	logger *zap.Logger
}

// NewKVSessionCache creates a session cache over a key-value store
func NewKVSessionCache(kv SessionKV, ttl time.Duration, logger *zap.Logger) *KVSessionCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KVSessionCache{kv: kv, ttl: ttl, logger: logger}
}

func (c *KVSessionCache) key(session, key string) string {
	return sessionKeyPrefix + session + ":" + key
}

// Get returns cached audio. Store failures are logged and reported as a miss.
func (c *KVSessionCache) Get(ctx context.Context, session, key string) ([]byte, bool) {
	data, err := c.kv.Get(ctx, c.key(session, key))
	if err != nil {
		if !errors.Is(err, services.ErrCacheMiss) {
			c.logger.Warn("Failed to read session audio", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

// Put caches audio for a session
func (c *KVSessionCache) Put(ctx context.Context, session, key string, data []byte) {
	if err := c.kv.SetWithTTL(ctx, c.key(session, key), data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache session audio", zap.String("key", key), zap.Error(err))
	}
}

// Clear drops everything cached for a session
func (c *KVSessionCache) Clear(ctx context.Context, session string) error {
	if err := c.kv.DeletePrefix(ctx, sessionKeyPrefix+session+":"); err != nil {
		return fmt.Errorf("clear session audio: %w", err)
	}
	return nil
}
