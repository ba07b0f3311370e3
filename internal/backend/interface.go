package backend

import (
	"context"
	"time"

	"chitieu/internal/amqp"
	"chitieu/internal/cache"
	"chitieu/internal/events"
	"chitieu/internal/remote/memory"
	"chitieu/internal/sheets"
	"chitieu/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains everything the engine and the CLI need, plus the cleanup
// that releases it.
type Result struct {
	// Cache is what the engine reads and writes.
	Cache cache.Local
	// Repository is set for the sqlite backend only.
	Repository *storage.SQLiteRepository
	Remote     *memory.Store
	Bus        *events.Bus
	// Publisher is the bus; the broker, when configured, is one of its subscribers.
	Publisher events.Publisher
	// Broker is set when the AMQP feed is configured.
	Broker   *amqp.Client
	DeviceID string
	Mirror   sheets.SnapshotMirror
	Caches   *cache.Manager
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// LRU layer in front of the durable cache; size 0 disables it
	LRUSize         int
	LRUTTL          time.Duration
	CleanupInterval time.Duration

	// Optional event feed
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Optional spreadsheet mirror
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string

	// SeedDemo creates the demo account in the in-process remote.
	SeedDemo bool
}

// BackendType represents the type of local cache backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
