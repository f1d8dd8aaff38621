package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/backcourt/backcourt/internal/api"
)

func runServe(ctx context.Context, args []string) error {
	fs, configFile := newFlagSet("serve")
	fs.String("addr", ":8000", "HTTP listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := bootstrap(fs, *configFile)
	if err != nil {
		return err
	}
	defer a.log.Sync() //nolint:errcheck

	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(a.scraper, a.registry, a.log, a.cfg.Server.CORSOrigins)

	httpServer := &http.Server{
		Addr:    a.cfg.Server.Addr,
		Handler: server.SetupRouter(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.InfoObj("api listening", "server_start", map[string]any{
			"addr":    a.cfg.Server.Addr,
			"origins": a.cfg.Server.CORSOrigins,
		})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.InfoObj("shutting down api", "server_stop", map[string]any{
		"timeout": a.cfg.Server.ShutdownTimeout.String(),
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
