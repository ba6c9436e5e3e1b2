package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viddatatrain/traincrop/internal/api"
	"github.com/viddatatrain/traincrop/internal/config"
	"github.com/viddatatrain/traincrop/internal/db"
	"github.com/viddatatrain/traincrop/internal/export"
	"github.com/viddatatrain/traincrop/internal/logging"
	"github.com/viddatatrain/traincrop/internal/media"
	"github.com/viddatatrain/traincrop/internal/prefs"
	"github.com/viddatatrain/traincrop/internal/session"
	"github.com/viddatatrain/traincrop/internal/ui"
	"github.com/viddatatrain/traincrop/internal/watcher"
)

const tickInterval = 33 * time.Millisecond

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting traincrop", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	store := prefs.NewStore(database.Conn())

	authToken, err := ensureAuthToken(store)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║              VIDDATATRAINCROP v%-26s ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	decoder, err := media.NewFFmpeg(media.FFmpegConfig{
		FFmpegPath:   cfg.FFmpegPath(),
		FFprobePath:  cfg.FFprobePath(),
		ProbeTimeout: cfg.ProbeTimeout(),
		FrameTimeout: cfg.FrameTimeout(),
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("ffmpeg unavailable: %w", err)
	}

	exporter := export.NewRunner(decoder.Path(), logging.WithComponent(logger, "export"))

	var watch watcher.Watcher
	if fsw, err := watcher.NewFSWatcher(logger); err != nil {
		logger.Warn("directory watching disabled", "error", err)
	} else {
		watch = fsw
		defer fsw.Stop()
	}

	sess := session.New(session.Config{
		Opener:   session.NewOpener(decoder),
		Exporter: exporter,
		Store:    store,
		Watcher:  watch,
		Logger:   logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	restoreDirs(ctx, sess, store, logger)

	go tickLoop(ctx, sess)

	apiServer := api.NewServer(api.ServerConfig{
		Port:      cfg.Port(),
		Session:   sess,
		Store:     store,
		Logger:    logger,
		StartTime: startTime,
		Version:   config.Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Session: sess,
			Logger:  logger,
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// tickLoop drives playback while the front-end is connected. Each tick
// advances by measured wall-clock time rather than the nominal interval.
func tickLoop(ctx context.Context, sess *session.Session) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sess.Tick(ctx, now.Sub(last).Seconds())
			last = now
		}
	}
}

// restoreDirs reapplies the directories persisted by the previous run.
func restoreDirs(ctx context.Context, sess *session.Session, store prefs.Store, logger *slog.Logger) {
	if dir, err := store.Get(ctx, prefs.KeyInputDir); err == nil && dir != "" {
		sess.SetInputDir(ctx, dir)
	}
	if dir, err := store.Get(ctx, prefs.KeyOutputDir); err == nil && dir != "" {
		if err := sess.SetOutputDir(ctx, dir); err != nil {
			logger.Warn("persisted output dir no longer valid", "dir", dir, "error", err)
		}
	}
}

func ensureAuthToken(store prefs.Store) (string, error) {
	ctx := context.Background()

	existing, err := store.Get(ctx, prefs.KeyAuthToken)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := store.Set(ctx, prefs.KeyAuthToken, token); err != nil {
		return "", err
	}

	return token, nil
}
