package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/peetj/btc-tracker/internal/api"
	"github.com/peetj/btc-tracker/internal/archive"
	"github.com/peetj/btc-tracker/internal/config"
	"github.com/peetj/btc-tracker/internal/engine"
	"github.com/peetj/btc-tracker/internal/refresher"
	"github.com/peetj/btc-tracker/internal/remote"
	"github.com/peetj/btc-tracker/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] btc-tracker starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	loc := cfg.Location()

	// Archive loader (parses lazily, once)
	loader := archive.NewLoader(archive.FileSource(cfg.Archive.CSVPath), loc)

	// Local store
	var st store.Store
	sq, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		log.Printf("[WARN] init sqlite store failed, using in-memory: %v", err)
		st = store.NewMemoryStore()
	} else {
		st = sq
		defer sq.Close()
	}

	// Remote fetcher
	fetcher := remote.NewCoinGeckoClient(cfg.API.CoinGeckoBaseURL, st, loc)

	// Reconciliation engine
	eng := engine.New(loader, st, fetcher, nil)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// All reconcile callers share one lock.
	var reconcileMu sync.Mutex

	// Periodic refresh
	ref := refresher.New(ctx, eng, &reconcileMu)
	if err := ref.Register(cfg.Refresh.Cron); err != nil {
		log.Fatalf("[FATAL] register refresh task: %v", err)
	}
	ref.Start()
	defer ref.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, reconciling now")
		go ref.RunNow()
	}

	// HTTP API
	srv := api.NewServer(eng, st, loc, &reconcileMu, cfg.Server.Port, cfg.Server.CORSAllowOrigin)
	go func() {
		log.Printf("[INFO] http server listening on %s", srv.Addr())
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[FATAL] http server: %v", err)
		}
	}()

	log.Println("[INFO] btc-tracker is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	cancel()
	log.Println("[INFO] btc-tracker stopped")
}
