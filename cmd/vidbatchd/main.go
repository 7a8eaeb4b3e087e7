package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vidbatch/vidbatch/internal/api"
	"github.com/vidbatch/vidbatch/internal/batch"
	"github.com/vidbatch/vidbatch/internal/config"
	"github.com/vidbatch/vidbatch/internal/db"
	"github.com/vidbatch/vidbatch/internal/encoder"
	"github.com/vidbatch/vidbatch/internal/watch"
)

func main() {
	cfg := config.Load()
	if cfg.EncoderPath == "" {
		cfg.EncoderPath = encoder.FindDefault()
	}
	log.Printf("starting vidbatchd on port %d, db=%s, source=%s", cfg.HTTPPort, cfg.DBPath, cfg.SourceDir)

	if version, err := encoder.Check(cfg.EncoderPath); err != nil {
		log.Printf("warning: encoder check failed for %s: %v", cfg.EncoderPath, err)
	} else {
		log.Printf("encoder: %s", version)
	}

	conn, err := db.Init(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	mgr := api.NewManager(conn, encoder.Invoker{}, cfg.DrainInterval, cfg.LogTailLimit)
	server := api.NewServer(cfg, conn, mgr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WatchEnabled {
		w, err := watch.New(cfg.SourceDir, cfg.SourceFormats, cfg.WatchSettle)
		if err != nil {
			log.Fatalf("failed to create watcher: %v", err)
		}
		defer w.Close()
		go func() {
			if err := w.Start(ctx); err != nil {
				log.Printf("watcher error: %v", err)
			}
		}()
		go watchLoop(ctx, cfg, mgr, w)
	}

	httpSrv := &http.Server{Addr: cfg.HTTPAddr(), Handler: server.Router}
	go func() {
		log.Printf("http server listening on %s", cfg.HTTPAddr())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	log.Printf("received signal %s, shutting down...", s)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	log.Printf("shutdown complete")
}

// watchLoop turns settled hot-folder activity into conversion runs. The
// watcher is paused while a run executes so its own output events cannot
// retrigger it.
func watchLoop(ctx context.Context, cfg *config.Config, mgr *api.Manager, w *watch.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.Notify():
		}

		req := batch.Request{
			SourceDir:         cfg.SourceDir,
			DestDir:           cfg.DestDir,
			EncoderPath:       cfg.EncoderPath,
			SourceExts:        cfg.SourceFormats,
			DestExt:           cfg.DestFormat,
			PreserveStructure: cfg.PreserveStructure,
		}
		if err := os.MkdirAll(req.DestDir, 0755); err != nil {
			log.Printf("watch: create dest dir: %v", err)
			continue
		}

		id, err := mgr.StartRun(req)
		if errors.Is(err, api.ErrRunActive) {
			continue
		}
		if err != nil {
			log.Printf("watch: start run: %v", err)
			continue
		}
		log.Printf("watch: started run %s", id)

		w.Pause()
		mgr.WaitDone(id)
		w.Resume()
	}
}
