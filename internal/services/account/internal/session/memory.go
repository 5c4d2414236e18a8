package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Memory is a process local Backend. Sessions are lost on restart.
type Memory struct {
	cache *ristretto.Cache[string, Token]
}

func NewMemory(maxSessions int64) (*Memory, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, Token]{
		NumCounters:        maxSessions * 10,
		MaxCost:            maxSessions,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}

	return &Memory{cache: c}, nil
}

func (m *Memory) Save(ctx context.Context, sid string, tok Token, ttl time.Duration) error {
	if !m.cache.SetWithTTL(sid, tok, 1, ttl) {
		return errors.New("session cache rejected entry")
	}

	m.cache.Wait()
	return nil
}

func (m *Memory) Load(ctx context.Context, sid string) (Token, error) {
	tok, ok := m.cache.Get(sid)
	if !ok {
		return 0, ErrNotFound
	}

	return tok, nil
}

func (m *Memory) Delete(ctx context.Context, sid string) error {
	m.cache.Del(sid)
	m.cache.Wait()
	return nil
}

func (m *Memory) Close() {
	m.cache.Close()
}
