package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/handler"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/service"
	"github.com/narwhalmedia/medialibrary/internal/metrics"
	"github.com/narwhalmedia/medialibrary/pkg/config"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

const collectInterval = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the library with its HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Media library starting",
		interfaces.String("version", config.GetServiceVersion(&cfg.Service)),
		interfaces.String("environment", cfg.Service.Environment))

	library := service.New(cfg, log)
	if err := library.Initialize(ctx, cfg.Library.StorageRoot); err != nil {
		return err
	}
	var mirror io.Closer
	defer func() {
		// The bus drains on Close, so the mirror must outlive the library.
		if err := library.Close(); err != nil {
			log.Error("Failed to close library", interfaces.Error(err))
		}
		if mirror != nil {
			if err := mirror.Close(); err != nil {
				log.Error("Failed to close event mirror", interfaces.Error(err))
			}
		}
	}()

	bus, err := library.Bus()
	if err != nil {
		return err
	}
	if mirror, err = attachMirror(ctx, cfg.Events, bus, log); err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector(library, collectInterval, log)
		collector.Start()
		defer collector.Stop()
	}

	if cfg.Service.Port == 0 {
		log.Info("HTTP API disabled")
		<-ctx.Done()
		return nil
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	server := &http.Server{
		Addr:              config.GetListenAddress(&cfg.Service),
		Handler:           handler.NewHandler(library, log).Router(metricsPath),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", interfaces.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
