package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/okian/gamespin/internal/adapters/http/gateclient"
	"github.com/okian/gamespin/internal/adapters/mq/queue"
	"github.com/okian/gamespin/internal/adapters/mq/worker"
	"github.com/okian/gamespin/internal/client"
	"github.com/okian/gamespin/internal/config"
	"github.com/okian/gamespin/internal/domain/catalog"
	"github.com/okian/gamespin/internal/domain/model"
	"github.com/okian/gamespin/internal/domain/motion"
	"github.com/okian/gamespin/internal/tui"
	"github.com/okian/gamespin/pkg/logger"
)

const (
	initialViewport = 80
	flushTimeout    = 5 * time.Second
)

func main() {
	identity := flag.String("user", "", "Identity to spin as (overrides config)")
	server := flag.String("server", "", "Gate base URL (overrides config)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadClient(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *identity != "" {
		cfg.Identity = *identity
	}
	if *server != "" {
		cfg.ServerURL = *server
	}

	if err := run(ctx, cfg); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.ClientConfig) error {
	// The terminal belongs to the reel, so logs go to a file.
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer logFile.Close()
	if err := logger.Init(logger.WithWriter(logFile)); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	log := logger.Get()

	if cfg.Identity == "" {
		return client.ErrNoIdentity
	}

	gate, err := gateclient.New(cfg.ServerURL,
		gateclient.WithTimeout(cfg.RequestTimeout()),
		gateclient.WithLogger(log.Named("gateclient")),
	)
	if err != nil {
		return err
	}

	entries, err := loadEntries(ctx, gate, cfg.CatalogPath, log)
	if err != nil {
		return err
	}

	audio := tui.NewAudio()
	if cfg.Sound {
		if err := audio.Init(); err != nil {
			log.Warn(ctx, "audio disabled", logger.Error(err))
		}
	}
	defer audio.Close()

	q := queue.NewInMemoryQueue(queue.WithCapacity(cfg.SaveQueueSize))

	session, err := client.New(cfg.Identity, gate, entries,
		motion.Geometry{ItemWidth: float64(cfg.ItemWidth), ViewportWidth: initialViewport},
		client.WithLogger(log.Named("session")),
		client.WithQueue(q),
		client.WithListener(audio),
		client.WithReelOptions(
			motion.WithDuration(cfg.SpinDuration()),
			motion.WithTickCap(cfg.TickCap),
		),
	)
	if err != nil {
		return err
	}
	saver := worker.NewSaveWorker(q, gate,
		worker.WithLogger(log),
		worker.WithRetryIf(gateclient.IsTransient),
		worker.WithOnSaved(session.Saved),
		worker.WithOnFailed(session.SaveFailed),
	)
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	go saver.Run(workerCtx)

	if err := session.Load(ctx); err != nil && !gateclient.IsTransient(err) {
		return err
	}

	autosave, err := client.NewAutosaver(session, cfg.AutosaveSchedule)
	if err != nil {
		return err
	}
	if err := autosave.Start(workerCtx); err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}

	runErr := tui.NewApp(screen, session, cfg.FrameInterval(), log.Named("tui")).Run(ctx)
	screen.Fini()

	autosave.Stop()
	flush(session, saver, log)

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// loadEntries prefers the server's catalog and falls back to the local
// one so the reel still works while the gate is down.
func loadEntries(ctx context.Context, gate *gateclient.Client, path string, log logger.Logger) ([]model.Entry, error) {
	entries, err := gate.Catalog(ctx)
	if err == nil && len(entries) > 0 {
		return entries, nil
	}
	log.Warn(ctx, "using local catalog", logger.Error(err))

	cat, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	return cat.Entries(), nil
}

// flush hands the last changes to the worker, waits for it, then writes
// directly whatever the gate has not acknowledged.
func flush(session *client.Session, saver *worker.SaveWorker, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	session.Save(ctx)
	if err := saver.Drain(ctx); err != nil {
		log.Warn(ctx, "save queue not drained", logger.Error(err))
	}
	if err := session.Flush(ctx); err != nil {
		log.Error(ctx, "final profile save failed", logger.Error(err))
	}
}
