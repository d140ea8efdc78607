package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Server struct {
	Engine     *gin.Engine
	onShutdown []func()
}

func NewServer(cfg RouterConfig) *Server {
	s := &Server{Engine: NewRouter(cfg)}
	if cfg.RealtimeHandler != nil {
		s.RegisterOnShutdown(cfg.RealtimeHandler.Shutdown)
	}
	return s
}

// RegisterOnShutdown adds f to the hooks run when graceful shutdown starts.
func (s *Server) RegisterOnShutdown(f func()) {
	s.onShutdown = append(s.onShutdown, f)
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	for _, f := range s.onShutdown {
		srv.RegisterOnShutdown(f)
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
