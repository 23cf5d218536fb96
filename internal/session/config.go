package session

import (
	"fmt"
	"time"

	"github.com/duskbyte/courier-go/internal/logger"
)

// Supported store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
)

// Config selects a store backend. Only the field matching Driver is read;
// ExpiresIn is shared by all drivers and zero means sessions never expire.
type Config struct {
	Driver    string
	ExpiresIn time.Duration

	MemoryMaxSize int
	FileDir       string
	SQLitePath    string
	Redis         RedisOptions
	Mongo         MongoOptions
}

// NewStoreFromConfig builds a Store for the configured driver. Unknown
// drivers are a configuration error and fail fast.
func NewStoreFromConfig(cfg Config, log *logger.Logger) (*Store, error) {
	var backend Backend
	switch cfg.Driver {
	case DriverMemory, "":
		backend = NewMemoryBackend(cfg.MemoryMaxSize)
	case DriverFile:
		backend = NewFileBackend(cfg.FileDir)
	case DriverSQLite:
		backend = NewSQLiteBackend(cfg.SQLitePath)
	case DriverRedis:
		backend = NewRedisBackend(cfg.Redis, cfg.ExpiresIn)
	case DriverMongo:
		backend = NewMongoBackend(cfg.Mongo)
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.Driver)
	}
	return NewStore(backend, cfg.ExpiresIn, log), nil
}
