// Command bluebridge runs the Linq Blue to Anthropic bridge: an HTTP
// webhook service that turns inbound iMessage/RCS/SMS events into
// model conversations with memory, reactions, effects and images.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linq-team/bluebridge/internal/agent"
	"github.com/linq-team/bluebridge/internal/anthropic"
	"github.com/linq-team/bluebridge/internal/config"
	"github.com/linq-team/bluebridge/internal/dispatch"
	"github.com/linq-team/bluebridge/internal/linq"
	"github.com/linq-team/bluebridge/internal/logging"
	"github.com/linq-team/bluebridge/internal/memory"
	"github.com/linq-team/bluebridge/internal/openai"
	"github.com/linq-team/bluebridge/internal/triage"
	"github.com/linq-team/bluebridge/internal/webhook"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("bluebridge " + version)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "bluebridge: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(cfg.Log.Level)
	logger.Info("starting bluebridge", "version", version, "addr", cfg.Server.Addr)

	store, err := memory.NewSQLiteStore(cfg.Memory.DBPath, memory.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()

	provider := anthropic.NewClient(cfg.Anthropic.APIKey, anthropic.WithLogger(logger))

	var openaiOpts []openai.Option
	openaiOpts = append(openaiOpts, openai.WithLogger(logger))
	if cfg.OpenAI.ImageModel != "" {
		openaiOpts = append(openaiOpts, openai.WithImageModel(cfg.OpenAI.ImageModel))
	}
	media := openai.NewClient(cfg.OpenAI.APIKey, openaiOpts...)

	var linqOpts []linq.Option
	linqOpts = append(linqOpts, linq.WithLogger(logger))
	if cfg.Linq.BaseURL != "" {
		linqOpts = append(linqOpts, linq.WithBaseURL(cfg.Linq.BaseURL))
	}
	transport := linq.NewClient(cfg.Linq.APIKey, linqOpts...)

	engine := agent.New(provider, store, media, agent.Config{
		Model:      cfg.Anthropic.Model,
		QuickModel: cfg.Anthropic.QuickModel,
		MaxTokens:  cfg.Anthropic.MaxTokens,
	}, agent.WithLogger(logger))

	classifier := triage.New(provider, store, cfg.Anthropic.QuickModel, triage.WithLogger(logger))
	dispatcher := dispatch.New(transport, media, store, dispatch.WithLogger(logger))
	handler := webhook.NewHandler(engine, classifier, dispatcher, transport, store, webhook.WithLogger(logger))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
