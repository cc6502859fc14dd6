package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dgallion1/labgest/internal/api"
	"github.com/dgallion1/labgest/internal/chat"
	"github.com/dgallion1/labgest/internal/compose"
	"github.com/dgallion1/labgest/internal/config"
	"github.com/dgallion1/labgest/internal/enhance"
	"github.com/dgallion1/labgest/internal/logging"
	"github.com/dgallion1/labgest/internal/pipeline"
)

var cmdServe = &cli.Command{
	Name:    "serve",
	Aliases: []string{"start"},
	Usage:   "Start the HTTP API",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "port",
			Sources: cli.EnvVars("PORT"),
			Value:   "8090",
			Usage:   "the HTTP port",
		},
	},
	Action: serve,
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg := config.Load()
	cfg.Port = cmd.String("port")
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create text generator: %w", err)
	}
	enhancer := enhance.NewEnhancer(gen, log)
	defer enhancer.Close()

	// Initialize pipeline.
	analyzer := pipeline.NewAnalyzer(cat, compose.NewComposer(cat, enhancer, log))
	orch := pipeline.NewOrchestrator(cfg, newAcquirer(cfg, log), analyzer, st, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	agent := chat.NewAgent(enhancer, st, st, cfg.ChatWindow, log)
	srv := api.NewServer(orch, agent, st, enhancer, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting labgest",
			"port", cfg.Port,
			"store", cfg.StoreBackend,
			"llm_provider", cfg.Provider(),
			"model", enhancer.Model(),
			"catalog_tests", len(cat.Tests()),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		orch.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown.
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	orch.Stop()
	return nil
}
