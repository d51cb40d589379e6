package serve

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/pubload/internal/common/logging"
)

const shutdownTimeout = 5 * time.Second

// ServeHttp serves handler on port in the background. The returned function stops the server.
func ServeHttp(port uint16, handler http.Handler) (shutdown func()) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("Starting http server listening on %d", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.WithStacktrace(log.WithField("port", port), errors.WithStack(err)).Error("http server failed")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Infof("Stopping http server listening on %d", port)
		if err := srv.Shutdown(ctx); err != nil {
			logging.WithStacktrace(log.WithField("port", port), errors.WithStack(err)).Warn("http server did not shut down cleanly")
		}
	}
}

// ListenAndServe serves handler on port until ctx is cancelled, then shuts the server down.
func ListenAndServe(ctx context.Context, port uint16, handler http.Handler) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return errors.Wrapf(err, "listening on port %d", port)
	}
	return Serve(ctx, listener, handler)
}

// Serve is ListenAndServe on an existing listener. It closes the listener.
func Serve(ctx context.Context, listener net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()
	log.Infof("Listening on %s", listener.Addr())

	select {
	case err := <-serveErr:
		return errors.WithStack(err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Infof("Stopping http server listening on %s", listener.Addr())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
