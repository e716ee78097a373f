package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/datavol/pkg/events"
	"github.com/cuemby/datavol/pkg/health"
	"github.com/cuemby/datavol/pkg/log"
	"github.com/cuemby/datavol/pkg/metrics"
	"github.com/cuemby/datavol/pkg/types"
	"github.com/docker/go-units"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the volume list whenever storage is attached or removed",
	RunE: func(cmd *cobra.Command, args []string) error {
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		minFreeFlag, _ := cmd.Flags().GetString("min-free")
		checkInterval, _ := cmd.Flags().GetDuration("check-interval")

		minFree, err := units.RAMInBytes(minFreeFlag)
		if err != nil {
			return fmt.Errorf("invalid --min-free: %w", err)
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := context.WithCancel(context.Background())
		defer stop()

		metrics.SetVersion(Version)
		metrics.UpdateComponent(metrics.ComponentStore, true, "")

		var srv *http.Server
		errCh := make(chan error, 1)
		if metricsAddr != "" {
			srv = &http.Server{
				Addr:              metricsAddr,
				Handler:           metrics.NewServeMux(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- fmt.Errorf("metrics server error: %w", err)
				}
			}()
			log.Logger.Info().Str("addr", metricsAddr).Msg("Serving metrics and health endpoints")
		}

		sub := a.mgr.Events().Subscribe(
			events.EventStorageMounted,
			events.EventStorageRemoved,
			events.EventStorageChanged,
			events.EventMigrationStarted,
			events.EventMigrationCompleted,
			events.EventMigrationFailed,
		)
		eventsDone := make(chan struct{})
		go func() {
			logEvents(log.WithComponent("events"), sub)
			close(eventsDone)
		}()
		defer func() {
			a.mgr.Events().Unsubscribe(sub)
			<-eventsDone
		}()

		snapshot, err := a.scan()
		if err != nil {
			return err
		}
		metrics.UpdateComponent(metrics.ComponentRegistry, true, "")
		printSnapshot(snapshot)

		if err := a.mgr.Watch(func(s types.Snapshot) {
			fmt.Println()
			printSnapshot(s)
		}); err != nil {
			metrics.UpdateComponent(metrics.ComponentWatcher, false, err.Error())
			return err
		}

		checker := health.NewVolumeChecker(a.engine.ConfiguredPath, a.host, uint64(minFree))
		monitor := health.NewMonitor(checker, health.Config{
			Interval: checkInterval,
			Timeout:  10 * time.Second,
			Retries:  3,
		})
		monitorDone := make(chan struct{})
		go func() {
			monitor.Run(ctx)
			close(monitorDone)
		}()

		fmt.Println()
		fmt.Println("Watching for storage changes. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}

		a.mgr.Unwatch()
		stop()
		<-monitorDone
		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}
		return nil
	},
}

// logEvents logs every event received on sub until it is closed
func logEvents(logger zerolog.Logger, sub events.Subscriber) {
	for ev := range sub {
		entry := logger.Info()
		if ev.Type == events.EventMigrationFailed {
			entry = logger.Warn()
		}
		for k, v := range ev.Metadata {
			entry = entry.Str(k, v)
		}
		entry.Str("event", string(ev.Type)).Str("event_id", ev.ID).Msg(ev.Message)
	}
}

func init() {
	watchCmd.Flags().String("metrics-addr", "", "Serve /metrics, /health, /ready and /live on this address")
	watchCmd.Flags().String("min-free", "512MiB", "Free space below which the data directory is reported unhealthy")
	watchCmd.Flags().Duration("check-interval", 30*time.Second, "Interval between data directory health checks")
}
