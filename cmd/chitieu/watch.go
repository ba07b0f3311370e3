package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"chitieu/internal/amqp"
	"chitieu/internal/backend"
	"chitieu/internal/cli"
	"chitieu/internal/events"
	"chitieu/internal/log"
	"chitieu/internal/services"
	"chitieu/internal/worker"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Restore the cached session and keep it reconciled until signalled",
	Long: `Restore the last user's cached session, poll connectivity, publish session
events to the broker and resync when another device reports a change.

The remote used here lives in this process. A restored session has no remote
sign-in, so changes reported by other devices are logged and skipped until an
account signs in to this process's remote.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := openBackend(context.Background(), false)
		if err != nil {
			return err
		}

		engine := services.NewEngine(res.Remote, res.Cache,
			services.WithEvents(res.Publisher),
			services.WithMirror(res.Mirror),
			services.WithLogger(logger),
			services.WithConfig(services.EngineConfig{ReconnectSyncDelay: appConfig.ReconnectSyncDelay}))

		ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
			engine.Close()
			if err := res.Cleanup(); err != nil {
				logger.Error("Cleanup failed", log.FieldError, err)
			}
		})

		u, ok, err := engine.Restore(ctx)
		switch {
		case err != nil:
			logger.Warn("Restore failed", log.FieldError, err)
		case ok:
			logger.Info("Watching restored session", log.FieldUserID, u.ID)
		default:
			logger.Info("No cached session to restore, watching connectivity only")
		}

		g, gctx := errgroup.WithContext(ctx)

		conn := worker.NewConnectivityWorker(res.Remote, engine.HandleNetworkStatus,
			worker.ConnectivityConfig{PollInterval: appConfig.NetworkPollInterval}, logger)
		g.Go(func() error {
			if err := conn.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return conn.Stop(stopCtx)
		})

		if res.Broker != nil {
			g.Go(func() error {
				err := res.Broker.ConsumeEvents(gctx, remoteChangeHandler(gctx, engine, res.Remote, res.DeviceID, logger))
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}

		err = g.Wait()
		if ctx.Err() == nil {
			// a worker failed before any shutdown signal
			engine.Close()
			if cerr := res.Cleanup(); cerr != nil {
				logger.Error("Cleanup failed", log.FieldError, cerr)
			}
			return err
		}
		cli.WaitForShutdown(ctx, done)
		return err
	},
}

type remoteSession interface {
	SignedIn() bool
}

// remoteChangeHandler resyncs the active session when another device saved
// or synced the same user's snapshot. Nothing is synced while the remote has
// no signed-in account.
func remoteChangeHandler(ctx context.Context, engine *services.Engine, rs remoteSession, deviceID string, logger *log.Logger) func(*amqp.EventMessage) error {
	return func(msg *amqp.EventMessage) error {
		if msg.Data[backend.DeviceKey] == deviceID {
			return nil
		}
		e := msg.Event()
		if e.Type != events.SnapshotSaved && e.Type != events.SyncCompleted {
			return nil
		}
		u, ok := engine.Snapshot()
		if !ok || u.ID != e.UserID {
			return nil
		}
		if !rs.SignedIn() {
			logger.InfoContext(ctx, "Another device changed the snapshot, but the remote has no session to sync",
				log.FieldUserID, u.ID,
				log.FieldEvent, e.Type)
			return nil
		}
		logger.InfoContext(ctx, "Another device changed the snapshot, syncing",
			log.FieldUserID, u.ID,
			log.FieldEvent, e.Type)
		if err := engine.SyncNow(ctx); err != nil {
			logger.WarnContext(ctx, "Sync after remote change failed", log.FieldError, err)
		}
		return nil
	}
}
