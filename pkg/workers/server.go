package workers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const shutdownTimeout = 10 * time.Second

type apiServer struct {
	srv *http.Server
}

func NewAPIServer(addr string, handler http.Handler) (*apiServer, error) {
	return &apiServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (a *apiServer) Name() string { return "api_server" }

func (a *apiServer) Start(ctx context.Context) error {
	slog.Info("Starting worker", "name", a.Name(), "addr", a.srv.Addr)
	defer slog.Info("Worker stopped", "name", a.Name())

	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.srv.Shutdown(shutdownCtx)
}
