// Command shehsmd is the SHE protocol engine daemon: it loads the
// daemon configuration, opens the NVM-backed keystore, maps the
// shared-memory transport, and serves HandleSheRequest over it until
// interrupted.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/shecore/hsm/internal/config"
	"github.com/shecore/hsm/internal/nvmstore"
	"github.com/shecore/hsm/internal/she"
	"github.com/shecore/hsm/internal/shekeys"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the daemon configuration file")
	verbose := flag.Bool("v", false, "enable debug logging")
	logFormat := flag.String("log-format", "text", "log format: text or json")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if *logFormat == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	}

	instanceID := uuid.NewString()
	slog.Info("starting shehsmd", "instance", instanceID)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	backend, err := nvmstore.Open(cfg.NVM.DSN)
	if err != nil {
		log.Fatalf("open nvm store failed: %v", err)
	}
	defer backend.Close()

	if fi, err := os.Stat(cfg.NVM.DSN); err == nil {
		slog.Debug("nvm store opened", "dsn", cfg.NVM.DSN, "size", humanize.Bytes(uint64(fi.Size())))
	}

	adapter := shekeys.NewAdapter(backend)
	store, err := shekeys.NewCachedStore(adapter, *cfg.Runtime.CacheSize)
	if err != nil {
		log.Fatalf("build cached keystore failed: %v", err)
	}

	engine := she.NewEngine(store, *cfg.Client.ID)

	srv, err := newServer(cfg)
	if err != nil {
		log.Fatalf("build transport failed: %v", err)
	}

	slog.Info("serving SHE requests", "client_id", *cfg.Client.ID, "request_path", cfg.Transport.RequestPath)
	runServeLoop(srv, engine)
}
