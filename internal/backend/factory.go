package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"chitieu/internal/amqp"
	"chitieu/internal/cache"
	"chitieu/internal/events"
	"chitieu/internal/log"
	"chitieu/internal/remote/memory"
	"chitieu/internal/sheets"
	gsheet "chitieu/internal/sheets/google"
	"chitieu/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create builds the local cache, the in-process remote, the event publisher
// and the optional spreadsheet mirror. Optional parts that fail to start are
// logged and left out.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res := &Result{Caches: cache.NewManager(), DeviceID: uuid.NewString()}
	var closers []func() error

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		res.Repository = repo
		res.Cache = repo
		closers = append(closers, repo.Close)
		f.logger.InfoContext(ctx, "Initialized SQLite cache", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		res.Cache = cache.NewMemory()
		f.logger.InfoContext(ctx, "Initialized memory cache")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.LRUSize > 0 {
		layered := cache.NewLayered(res.Cache, config.LRUSize, config.LRUTTL)
		res.Caches.Register(layered.Snapshots())
		res.Caches.StartCleanup(ctx, config.CleanupInterval)
		res.Cache = layered
	}

	res.Remote = memory.New()
	if config.SeedDemo {
		if err := res.Remote.SeedDemo(ctx); err != nil {
			f.logger.WarnContext(ctx, "Failed to seed demo account", log.FieldError, err)
		}
	}

	// broker publishing runs on bus goroutines so retries never stall the engine
	res.Bus = events.NewBus(f.logger)
	res.Publisher = res.Bus
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without event feed", log.FieldError, err)
		} else {
			res.Broker = client
			res.Bus.SubscribeAll(func(ctx context.Context, e events.Event) error {
				return client.Publish(ctx, StampDevice(e, res.DeviceID))
			})
			closers = append(closers, client.Close)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	res.Mirror = sheets.Nop{}
	if config.GoogleSpreadsheetID != "" {
		m, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName,
			config.GoogleOAuthClientFile, config.GoogleOAuthTokenFile)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize Google Sheets mirror", log.FieldError, err)
		} else {
			res.Mirror = m
			f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "sheet", config.GoogleSheetName)
		}
	}

	res.Cleanup = func() error {
		res.Caches.Stop()
		res.Bus.Wait()
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return res, nil
}

// DeviceKey is the event data key naming the process that emitted an event.
const DeviceKey = "device"

// StampDevice returns a copy of e whose data carries the device id.
func StampDevice(e events.Event, deviceID string) events.Event {
	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[DeviceKey] = deviceID
	e.Data = data
	return e
}
