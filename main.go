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

	"github.com/sirupsen/logrus"

	"github.com/sparkmates/sparkmates/internal/api"
	"github.com/sparkmates/sparkmates/internal/auth"
	"github.com/sparkmates/sparkmates/internal/config"
	"github.com/sparkmates/sparkmates/internal/db"
	"github.com/sparkmates/sparkmates/internal/logging"
	"github.com/sparkmates/sparkmates/internal/service"
)

type flags struct {
	addr    string
	dataDir string
}

// parseFlags reads the command line. Without -data-dir the store lives in
// memory.
func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("sparkmates", flag.ContinueOnError)
	fs.StringVar(&f.addr, "addr", ":8080", "listen address")
	fs.StringVar(&f.dataDir, "data-dir", "", "directory for the database file; empty keeps it in memory")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load(f.addr, f.dataDir)

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("sparkmates stopped")
	}
}

func run(cfg config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(db.PathFor(cfg.DataDir))
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Seed {
		if err := store.Seed(ctx); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	svc := service.New(store, logger)
	mgr := auth.NewManager(store, cfg.Auth, logger)
	handler := api.New(svc, mgr, logger, int(cfg.Auth.SessionTTL.Seconds()))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.Addr, "store": db.PathFor(cfg.DataDir)}).Info("sparkmates running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
