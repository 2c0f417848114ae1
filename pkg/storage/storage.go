package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/config"
)

var (
	// ErrNotFound is returned by Load when nothing is stored under the key.
	ErrNotFound = errors.New("storage: key not found")
	// ErrUnavailable is returned by every call on a backend that cannot persist.
	ErrUnavailable = errors.New("storage: unavailable")
)

// Storage is durable key/value storage for serialized cart snapshots.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Deps carries the connections a driver may need.
type Deps struct {
	Redis RedisClient
	DB    *gorm.DB
	TTL   time.Duration
}

// ForDriver builds the backend for a configured driver name.
func ForDriver(driver string, deps Deps) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", config.StorageDriverMemory:
		return NewMemory(), nil
	case config.StorageDriverRedis:
		if deps.Redis == nil {
			return nil, errors.New("redis storage requires a redis client")
		}
		return NewRedis(deps.Redis, deps.TTL), nil
	case config.StorageDriverPostgres, config.StorageDriverSQLite:
		if deps.DB == nil {
			return nil, errors.New("sql storage requires a database connection")
		}
		return NewSQL(deps.DB), nil
	case config.StorageDriverNone:
		return Unavailable{}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// Unavailable stands in when no durable storage exists. Carts backed by it
// live only in memory.
type Unavailable struct{}

func (Unavailable) Load(context.Context, string) ([]byte, error) { return nil, ErrUnavailable }
func (Unavailable) Save(context.Context, string, []byte) error   { return ErrUnavailable }
func (Unavailable) Delete(context.Context, string) error         { return ErrUnavailable }
func (Unavailable) Ping(context.Context) error                   { return nil }
