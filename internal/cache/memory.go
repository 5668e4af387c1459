package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory - кэш в памяти процесса на основе go-cache.
type Memory struct {
	store *gocache.Cache
}

// NewMemory создаёт in-process кэш с временем жизни записей по умолчанию ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{store: gocache.New(ttl, 2*ttl)}
}

func (m *Memory) Get(_ context.Context, key string, result any) (bool, error) {
	const op = "cache.Memory.Get"
	val, ok := m.store.Get(key)
	if !ok {
		return false, nil
	}
	data, ok := val.([]byte)
	if !ok {
		return false, fmt.Errorf("%s: unexpected value type %T", op, val)
	}
	if err := json.Unmarshal(data, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение. Нулевой expiration означает время жизни по умолчанию.
func (m *Memory) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Memory.Set"
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if expiration == 0 {
		expiration = gocache.DefaultExpiration
	}
	m.store.Set(key, data, expiration)
	return nil
}

// Invalidate удаляет ключи. Ключ, оканчивающийся на ":", трактуется как префикс.
func (m *Memory) Invalidate(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if strings.HasSuffix(key, ":") {
			for k := range m.store.Items() {
				if strings.HasPrefix(k, key) {
					m.store.Delete(k)
				}
			}
			continue
		}
		m.store.Delete(key)
	}
	return nil
}
