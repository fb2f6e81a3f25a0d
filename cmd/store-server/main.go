package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/leonardcser/summary-mcp/internal/config"
	"github.com/leonardcser/summary-mcp/internal/logger"
	"github.com/leonardcser/summary-mcp/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	logPath := cfg.Log.Path
	if logPath == "" {
		logPath = filepath.Join(filepath.Dir(cfg.Store.DB), "store.log")
	}
	if err := logger.Init(logPath, cfg.Log.Level); err != nil {
		panic(err)
	}
	defer logger.Close()
	log := logger.Get()

	sock := cfg.Store.Socket
	// Ensure socket dir exists and remove stale socket
	_ = os.MkdirAll(filepath.Dir(sock), 0o755)
	_ = os.MkdirAll(filepath.Dir(cfg.Store.DB), 0o755)
	_ = os.Remove(sock)

	l, err := net.Listen("unix", sock)
	if err != nil {
		log.Fatal().Err(err).Str("socket", sock).Msg("Failed to listen")
	}
	_ = os.Chmod(sock, 0o600)

	db, err := store.Open(cfg.Store.DB, store.Options{Bucket: cfg.Store.Bucket, DefaultTTL: cfg.Cache.ArtifactTTL})
	if err != nil {
		_ = l.Close()
		log.Fatal().Err(err).Str("db", cfg.Store.DB).Msg("Failed to open store")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Store.Sweep > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Store.Sweep)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					n, err := db.Sweep()
					if err != nil {
						log.Warn().Err(err).Msg("Sweep failed")
						continue
					}
					log.Debug().Int("removed", n).Msg("Swept expired records")
				}
			}
		}()
	}

	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	log.Info().Str("socket", sock).Str("db", cfg.Store.DB).Msg("Store daemon listening")
	if err := store.Serve(l, db, log); err != nil {
		log.Error().Err(err).Msg("Serve failed")
	}
	log.Info().Msg("Store daemon stopped")
}
