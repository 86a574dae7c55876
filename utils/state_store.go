package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultStateTTL = 10 * time.Minute
	stateKeyPrefix  = "oauth:state:"
)

// StateStore keeps single-use OAuth state tokens. Redis is used when present so
// any instance can finish a login; otherwise states live in process memory.
type StateStore struct {
	rc  *redis.Client
	now func() time.Time

	mu  sync.Mutex
	mem map[string]time.Time
}

// NewStateStore creates a StateStore. rc may be nil.
func NewStateStore(rc *redis.Client) *StateStore {
	return &StateStore{rc: rc, now: time.Now, mem: map[string]time.Time{}}
}

// Save stores an OAuth state token with TTL to mitigate CSRF.
func (s *StateStore) Save(ctx context.Context, state string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	if s.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return s.rc.Set(ctx, stateKeyPrefix+state, "1", ttl).Err()
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, exp := range s.mem {
		if now.After(exp) {
			delete(s.mem, k)
		}
	}
	s.mem[state] = now.Add(ttl)
	return nil
}

// Consume validates and removes a state token. A state is accepted at most once.
func (s *StateStore) Consume(ctx context.Context, state string) bool {
	if state == "" {
		return false
	}
	if s.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		v, err := s.rc.GetDel(ctx, stateKeyPrefix+state).Result()
		if err != nil {
			if err != redis.Nil {
				Sugar.Warnf("oauth state lookup failed: %v", err)
			}
			return false
		}
		return v != ""
	}
	s.mu.Lock()
	exp, ok := s.mem[state]
	delete(s.mem, state)
	s.mu.Unlock()
	return ok && s.now().Before(exp)
}
