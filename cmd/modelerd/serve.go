package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/koustreak/modelerd/internal/config"
	"github.com/koustreak/modelerd/internal/logger"
	"github.com/koustreak/modelerd/internal/server"
)

const shutdownTimeout = 10 * time.Second

// serve runs the HTTP server until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	gen, cleanup, err := newGenerator(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(gen, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoWith("listening", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
