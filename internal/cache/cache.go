// Package cache хранит списки подписок владельцев между запросами.
//
// Значения сериализуются в JSON, поэтому Redis и in-memory реализации
// взаимозаменяемы для вызывающего кода.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/config"
)

// Cache - общий интерфейс кэша.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// DriverRedis и DriverMemory - допустимые значения config.Cache.Driver.
const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// New создаёт кэш по настройкам: Redis или in-process.
func New(ctx context.Context, cfg config.Cache) (Cache, error) {
	const op = "cache.New"

	switch cfg.Driver {
	case DriverRedis:
		c, err := InitServer(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return c, nil
	case DriverMemory, "":
		return NewMemory(cfg.TTL), nil
	default:
		return nil, fmt.Errorf("%s: unknown cache driver %q", op, cfg.Driver)
	}
}

// OwnerKey возвращает ключ кэша для выборки подписок владельца.
func OwnerKey(ownerID, variant string) string {
	return "subscriptions:" + ownerID + ":" + variant
}

// GenerationKey возвращает ключ поколения кэша владельца. Ключ не попадает
// под OwnerPrefix и переживает инвалидацию выборок.
func GenerationKey(ownerID string) string {
	return "subscriptions-gen:" + ownerID
}

// OwnerPrefix - общий префикс всех ключей владельца.
func OwnerPrefix(ownerID string) string {
	return "subscriptions:" + ownerID + ":"
}
