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

	"github.com/vctt94/tablegames/pkg/bot"
	"github.com/vctt94/tablegames/pkg/server"
)

func realMain() error {
	flags := bot.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := bot.LoadConfig(flags)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logBackend, err := bot.SetupLogging(cfg.LogDir, cfg.DebugLevel)
	if err != nil {
		return err
	}
	defer logBackend.Close()
	log := logBackend.Logger("BOT")

	db, err := server.NewDatabase(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	srv := server.NewServer(server.Config{
		DB:     db,
		Logger: logBackend.Logger,
		Seed:   cfg.Seed,
	})
	defer srv.Stop()

	gateway := bot.NewGateway(srv, log)
	defer gateway.Close()

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           gateway.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		log.Infof("Table server listening on %s (data in %s)", cfg.ListenAddr, cfg.DataDir)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("gateway stopped: %w", err)
	case <-stop:
		log.Infof("Interrupt received. Shutting down...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warnf("Server forced to shutdown: %v", err)
	}
	return nil
}

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
