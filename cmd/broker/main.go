// relaybroker orchestrator server - persona-aware message routing and
// execution broker.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/relaybroker/broker/pkg/api"
	"github.com/relaybroker/broker/pkg/classify"
	"github.com/relaybroker/broker/pkg/config"
	"github.com/relaybroker/broker/pkg/dispatch"
	"github.com/relaybroker/broker/pkg/learning"
	"github.com/relaybroker/broker/pkg/outcome"
	"github.com/relaybroker/broker/pkg/persona"
	"github.com/relaybroker/broker/pkg/policy"
	"github.com/relaybroker/broker/pkg/reasoner"
	"github.com/relaybroker/broker/pkg/transport"
	"github.com/relaybroker/broker/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// configReloader implements api.Reloader: reload from disk, validate,
// and atomically swap the new configuration into the policy and persona
// registries (§4.2, §4.3 "Reload is an atomic reference swap").
type configReloader struct {
	configDir string
	policies  *policy.Registry
	personas  *persona.Registry
}

func (r *configReloader) Reload(ctx context.Context) (config.Stats, error) {
	cfg, err := config.Initialize(ctx, r.configDir)
	if err != nil {
		return config.Stats{}, fmt.Errorf("reload configuration: %w", err)
	}
	r.policies.Reload(cfg.Policies)
	r.personas.Reload(cfg.Personas, cfg.Mappings)
	return cfg.Stats(), nil
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	storePath := flag.String("store-path",
		getEnv("STORE_PATH", "./deploy/data/learning.db"),
		"Path to the learning store database file")
	httpAddr := flag.String("http-addr",
		getEnv("HTTP_ADDR", ":8080"),
		"Address for the internal status server")
	flag.Parse()

	slog.Info("starting broker", "version", version.Full())

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	if dir := filepath.Dir(*storePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("failed to create store directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}
	store, err := learning.Open(*storePath)
	if err != nil {
		slog.Error("failed to open learning store", "path", *storePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	policies := policy.NewRegistry(cfg.Policies, cfg.Defaults.ApprovalTimeout)
	personas := persona.NewRegistry(cfg.Personas, cfg.Mappings)
	classifier := classify.NewClassifier(policies, personas)
	analyzer := outcome.NewAnalyzer(store)

	// The chat transport is an external collaborator addressed only at
	// its interface (§1); operators plug a concrete transport.Outbound
	// and transport.Inbound implementation in at this integration point.
	outbound := transport.NewFakeOutbound()

	r := reasoner.NewSubprocess(getEnv("REASONER_COMMAND", "reasoner"))

	pipeline := dispatch.New(classifier, personas, store, analyzer, r, outbound, *cfg.Defaults)

	router := api.NewServer(api.Deps{
		ConfigStats: cfg.Stats,
		Store:       store,
		Pipeline:    pipeline,
		Policies:    policies,
		Personas:    personas,
		Reloader:    &configReloader{configDir: *configDir, policies: policies, personas: personas},
	})

	server := &http.Server{Addr: *httpAddr, Handler: router}
	go func() {
		slog.Info("status server listening", "addr", *httpAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("status server failed", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, draining in-flight work")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Defaults.ShutdownDrain+5*time.Second)
	defer cancel()

	if err := pipeline.Shutdown(shutdownCtx); err != nil {
		slog.Warn("pipeline drain did not complete cleanly", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("status server shutdown did not complete cleanly", "error", err)
	}

	slog.Info("broker stopped")
}
