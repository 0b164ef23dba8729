// Command gcsim wires the reclamation core to a disk-backed segment
// store and runs it as a long-lived background worker, the way a host
// filesystem would run its GC thread alongside everything else.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/segflash/fsgc/gc"
	"github.com/segflash/fsgc/gctelemetry"
	"github.com/segflash/fsgc/internal/recovery"
	"github.com/segflash/fsgc/iostat"
	"github.com/segflash/fsgc/segstore"
	"github.com/segflash/fsgc/segstore/blockcodec"
	"github.com/segflash/fsgc/settings"
)

var (
	cfg     settings.Settings
	manager *gc.Manager
	store   *segstore.Store
	collect gctelemetry.Collector
)

func init() {
	cfg = settings.Load(".env")

	if err := os.MkdirAll(cfg.DataRoot, 0755); err != nil {
		panic(fmt.Sprintf("gcsim: could not create data root %q: %v", cfg.DataRoot, err))
	}
	if err := recovery.Init(filepath.Join(cfg.DataRoot, "logs")); err != nil {
		fmt.Printf("WARNING: failed to initialize panic logger: %v\n", err)
	}
}

func main() {
	defer recovery.Recover("gcsim-main")
	defer recovery.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	slog.Info("starting gcsim", slog.String("data_root", cfg.DataRoot), slog.String("codec", cfg.BlockCodec))

	var err error
	store, err = segstore.New(
		filepath.Join(cfg.DataRoot, "segments.log"),
		blockcodec.ParseAlgorithm(cfg.BlockCodec),
		segstore.WithIdleFunc(iostat.NewMonitor(iostat.DefaultThresholds()).IsIdle),
	)
	if err != nil {
		slog.Error("failed to open segment store", slog.Any("error", err))
		os.Exit(1)
	}

	collaborators := segstore.Collaborators(store, segstore.NewCheckpointer(store))
	collect = gctelemetry.NewCollector(4096)
	io := &hookAdapter{}
	manager = gc.BuildGCManager(collaborators, io, cfg.DefaultNGC)
	manager.SetTelemetry(func(gcType gc.GCType, status gc.ReclaimStatus, elapsed time.Duration) {
		collect.Record(gctelemetry.Event{
			GCType:     gcType,
			Status:     status,
			DurationMs: elapsed.Milliseconds(),
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	manager.StartGCThread(ctx)

	recovery.Go("gcsim-health-server", func() {
		http.HandleFunc("/stats", statsHandler)
		if err := http.ListenAndServe(":8099", nil); err != nil {
			slog.Error("stats server exited", slog.Any("error", err))
		}
	})

	waitForSignal(cancel)
}

func statsHandler(w http.ResponseWriter, _ *http.Request) {
	stats := &gc.GCStats{}
	for _, e := range collect.Recent(0) {
		stats.Record(e.GCType, e.Status)
	}
	fmt.Fprint(w, gc.FormatStats(store, store, stats))
}

func waitForSignal(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-sigCh
	slog.Info("shutdown signal received, stopping gc thread")
	cancel()
	manager.StopGCThread()
	time.Sleep(200 * time.Millisecond)
	if err := store.Close(); err != nil {
		slog.Error("failed to close segment store", slog.Any("error", err))
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// hookAdapter is the IOHook the background driver consults; gcsim never
// freezes I/O or force-stops the loop outside the signal handler, so it
// only needs to honor context cancellation.
type hookAdapter struct{}

func (hookAdapter) TryToFreeze(context.Context) bool { return false }

func (hookAdapter) WaitInterruptibleTimeout(ctx context.Context, d int64) bool {
	select {
	case <-ctx.Done():
		return true
	case <-time.After(time.Duration(d) * time.Millisecond):
		return false
	}
}

func (hookAdapter) ShouldStop() bool { return false }
