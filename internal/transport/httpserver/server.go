package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dondog-go/internal/config"
	"dondog-go/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 2 * time.Minute
	maxHeaderBytes    = 64 << 10
)

func New(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
}

// Serve runs srv until ctx is cancelled or the listener fails, then drains
// in-flight requests for at most shutdownTimeout.
func Serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, log logger.Logger) error {
	serverErrCh := make(chan error, 1)
	go func() {
		log.Info("http: listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("http: shutdown requested")
	case err := <-serverErrCh:
		serveErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(serveErr, err)
	}
	return serveErr
}
