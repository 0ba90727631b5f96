// Command server runs the tooldrive orchestration engine behind an HTTP API.
//
// Configuration is read from a YAML file and TOOLDRIVE_* environment
// variables; see package config. Commonly used variables:
//
//	TOOLDRIVE_CONFIG    - Config file path (optional)
//	TOOLDRIVE_PROVIDER  - Backend adapter: "openai", "anthropic" or "gemini"
//	TOOLDRIVE_BASE_URL  - Backend URL (required for openai)
//	TOOLDRIVE_API_KEY   - Backend API key
//	TOOLDRIVE_MODEL     - Default model name (optional)
//	TOOLDRIVE_PORT      - Listen port (default: 8080)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/catalog"
	"github.com/rhuss/tooldrive/pkg/config"
	"github.com/rhuss/tooldrive/pkg/debug"
	"github.com/rhuss/tooldrive/pkg/engine"
	"github.com/rhuss/tooldrive/pkg/provider"
	"github.com/rhuss/tooldrive/pkg/provider/anthropic"
	"github.com/rhuss/tooldrive/pkg/provider/gemini"
	"github.com/rhuss/tooldrive/pkg/provider/openaicompat"
	"github.com/rhuss/tooldrive/pkg/tools"
	"github.com/rhuss/tooldrive/pkg/tools/mcp"
	transporthttp "github.com/rhuss/tooldrive/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := debug.Setup(debug.Options{
		Categories: cfg.Observability.Debug,
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build and freeze the tool catalog.
	cat, closeSources, err := buildCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSources()

	// Create provider.
	prov, err := newProvider(ctx, cfg.Backend)
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}
	prov = provider.WithRetry(provider.Instrument(prov), cfg.Engine.Retry)
	defer prov.Close()

	// Create engine.
	eng, err := engine.New(prov, cat, tools.NewInvoker(cfg.Invoker.InvokerLimits()), engine.Config{
		DefaultModel:     cfg.Backend.DefaultModel,
		MaxIterations:    cfg.Engine.MaxIterations,
		MaxParallelTools: cfg.Engine.MaxParallelTools,
		ManualApproval:   !cfg.Engine.AutoExecuteTools,
		Validation:       api.DefaultValidationConfig(),
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	srv := transporthttp.NewServer(eng, cat,
		transporthttp.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithMetrics(cfg.Observability.Metrics.Enabled),
		transporthttp.WithLogger(logger),
	)

	slog.Info("engine ready",
		"provider", prov.Name(),
		"model", cfg.Backend.DefaultModel,
		"tools", cat.Len(),
		"max_iterations", cfg.Engine.MaxIterations,
	)
	return srv.ListenAndServe(ctx)
}

// buildCatalog registers the configured static tools and the tools of every
// reachable MCP server, then freezes the catalog. An unreachable MCP server
// is logged and skipped.
func buildCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, func(), error) {
	static, err := cfg.StaticSource()
	if err != nil {
		return nil, nil, err
	}
	sources := []catalog.Source{static}

	var clients []*mcp.Client
	for _, sc := range cfg.MCP.Servers {
		client := mcp.NewClient(sc)
		if err := client.Connect(ctx); err != nil {
			slog.Warn("MCP server unavailable", "server", sc.Name, "error", err)
			continue
		}
		clients = append(clients, client)
		sources = append(sources, client)
	}
	closeAll := func() {
		for _, c := range clients {
			c.Close()
		}
	}

	cat := catalog.New()
	if err := catalog.Load(ctx, cat, sources...); err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("loading tools: %w", err)
	}
	cat.Freeze()
	return cat, closeAll, nil
}

func newProvider(ctx context.Context, cfg config.BackendConfig) (provider.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaicompat.NewClient(openaicompat.Config{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
			Pricing: cfg.Pricing,
		})
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
			MaxTokens: cfg.MaxTokens,
			Pricing:   cfg.Pricing,
		})
	case "gemini":
		return gemini.New(ctx, gemini.Config{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
			MaxTokens: cfg.MaxTokens,
			Pricing:   cfg.Pricing,
		})
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}
