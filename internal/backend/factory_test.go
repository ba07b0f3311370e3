package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/cache"
	"chitieu/internal/config"
	"chitieu/internal/core"
	"chitieu/internal/events"
	"chitieu/internal/remote/memory"
	"chitieu/internal/sheets"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		CacheBackend: "memory",
		CacheLRUSize: 8,
		CacheTTL:     time.Minute,
		AMQPExchange: "chitieu",
	}
	got, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, MemoryBackend, got.Type)
	assert.Equal(t, 8, got.LRUSize)
	assert.Equal(t, 30*time.Second, got.CleanupInterval)

	_, err = FromAppConfig(&config.Config{CacheBackend: "sheets"})
	assert.Error(t, err)
	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown type", Config{Type: "redis"}, true},
		{"negative lru", Config{Type: MemoryBackend, LRUSize: -1}, true},
		{"sheets without oauth", Config{Type: MemoryBackend, GoogleSpreadsheetID: "abc"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).Create(ctx, Config{Type: MemoryBackend, SeedDemo: true})
	require.NoError(t, err)
	defer func() { require.NoError(t, res.Cleanup()) }()

	assert.IsType(t, &cache.Memory{}, res.Cache)
	assert.Nil(t, res.Repository)
	assert.IsType(t, sheets.Nop{}, res.Mirror)
	assert.Same(t, res.Bus, res.Publisher)

	_, err = res.Remote.Authenticate(ctx, memory.DemoEmail, memory.DemoPassword)
	require.NoError(t, err)
}

func TestCreateSQLiteBackendWithLRU(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	res, err := NewFactory(nil).Create(ctx, Config{
		Type:            SQLiteBackend,
		SQLiteDBPath:    path,
		LRUSize:         4,
		LRUTTL:          time.Minute,
		CleanupInterval: time.Minute,
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, res.Cleanup()) }()

	require.NotNil(t, res.Repository)
	assert.IsType(t, &cache.Layered{}, res.Cache)

	u := core.User{ID: "u1", Name: "Lan", Categories: core.DefaultCategories()}
	require.NoError(t, res.Cache.Save(ctx, u.ID, u))
	stored, err := res.Repository.Load(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Lan", stored.Name)
}

func TestStampDevice(t *testing.T) {
	e := events.New(events.SyncCompleted, "u1", map[string]any{"expenses": 2})
	stamped := StampDevice(e, "dev-1")

	assert.Equal(t, "dev-1", stamped.Data[DeviceKey])
	assert.Equal(t, 2, stamped.Data["expenses"])
	_, touched := e.Data[DeviceKey]
	assert.False(t, touched)
}
