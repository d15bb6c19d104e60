// Package main is the entry point for the distribution server: it wires
// config, scanner, storage adapter, orchestrator, hot-reload controller and
// HTTP surface together and runs them until an interrupt or SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lighty-launcher/distserver/internal/config"
	"github.com/lighty-launcher/distserver/internal/distio/cdnpurge"
	"github.com/lighty-launcher/distserver/internal/distio/contentcache"
	"github.com/lighty-launcher/distserver/internal/distio/httpapi"
	"github.com/lighty-launcher/distserver/internal/distio/manifeststore"
	"github.com/lighty-launcher/distserver/internal/distio/orchestrator"
	"github.com/lighty-launcher/distserver/internal/distio/pathindex"
	"github.com/lighty-launcher/distserver/internal/distio/reload"
	"github.com/lighty-launcher/distserver/internal/distio/scanner"
	"github.com/lighty-launcher/distserver/internal/distio/storageadapter"
	"github.com/lighty-launcher/distserver/pkg/logger"
)

const (
	serviceName    = "distserver"
	serviceVersion = "1.0.0"
)

func main() {
	var showVersion = flag.Bool("version", false, "Show version information")
	var showHelp = flag.Bool("help", false, "Show help information")
	var configPath = flag.String("config", "", "Path to config.toml (overrides LIGHTY_CONFIG)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", serviceName, serviceVersion)
		os.Exit(0)
	}
	if *showHelp {
		fmt.Printf("Distribution Server - serves versioned Minecraft server content to the launcher\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		fmt.Printf("  -config     Path to config.toml\n")
		fmt.Printf("  -version    Show version information\n")
		fmt.Printf("  -help       Show this help message\n\n")
		fmt.Printf("Environment variables:\n")
		fmt.Printf("  %s   Path to config.toml (used when -config is absent)\n\n", config.EnvConfigPath)
		os.Exit(0)
	}

	log := logger.NewLogger(logger.Config{Level: "info", Format: "json", Output: "stdout"})

	path := *configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	if path == "" {
		path = config.DefaultConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Error("failed to load configuration", "error", err, "path", path)
		os.Exit(1)
	}
	log.Info("starting distribution server", "service", serviceName, "version", serviceVersion, "profiles", len(cfg.EnabledProfiles()))

	storage, err := buildStorage(context.Background(), cfg, log)
	if err != nil {
		log.Error("failed to build storage adapter", "error", err)
		os.Exit(1)
	}

	sc := scanner.New(storage, log)
	store := manifeststore.New()
	cache := contentcache.New(cfg.Cache.MaxMemoryCacheGB)

	dirsByProfile := make(map[string]string, len(cfg.EnabledProfiles()))
	for _, p := range cfg.EnabledProfiles() {
		dirsByProfile[p.Name] = cfg.Server.BasePath + "/" + p.Name
	}
	pathIndex := pathindex.New(dirsByProfile)

	var cdn cdnpurge.Client
	if cfg.Cloudflare.Enabled {
		cdn = cdnpurge.NewCloudflare(cfg.Cloudflare.APIBase, cfg.Cloudflare.ZoneID, cfg.Cloudflare.APIToken, log)
	}

	orch := orchestrator.New(sc, store, storage, cache, cdn, pathIndex, log)
	orch.UpdateSnapshot(orchestrator.SnapshotFromConfig(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orch.ScanAllInitial(ctx); err != nil {
		log.Error("initial scan failed", "error", err)
	}
	go func() {
		if err := orch.RunLoop(ctx); err != nil && ctx.Err() == nil {
			log.Error("rescan loop exited", "error", err)
		}
	}()

	ctrl := reload.New(cfg, orch, pathIndex, log)
	go func() {
		if err := ctrl.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Error("config watcher exited", "error", err)
		}
	}()

	router := httpapi.New(ctrl, store, cache, orch, log, httpapi.Options{})
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownTimeout := cfg.Server.GracefulShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("server exited")
}

func buildStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (storageadapter.Adapter, error) {
	switch cfg.Storage.Backend {
	case "s3":
		s3cfg := storageadapter.Config{
			Bucket:          cfg.Storage.S3.Bucket,
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			BucketPrefix:    cfg.Storage.S3.BucketPrefix,
			PublicURL:       cfg.Storage.S3.PublicURL,
			UsePathStyle:    cfg.Storage.S3.UsePathStyle,
		}
		return storageadapter.New(ctx, s3cfg, log)
	default:
		return storageadapter.NewLocal(cfg.Server.BaseURL), nil
	}
}
