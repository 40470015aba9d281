// Package web hosts the storefront HTTP surface: admin login, gallery view
// pagination, catalog mutations, and static image serving.
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pulseritas/storefront/internal/auth"
	"github.com/pulseritas/storefront/internal/blob"
	"github.com/pulseritas/storefront/internal/catalog/storage"
	"github.com/pulseritas/storefront/internal/gallery"
	"github.com/pulseritas/storefront/internal/pagecache"
)

// Config defines the inputs for the web server.
type Config struct {
	HTTPAddr    string
	Sessions    *auth.Sessions
	Credentials *auth.Credentials
	Items       storage.ItemStore
	Blobs       blob.Store
	Cache       *pagecache.Cache
	// ImagesDir is the filesystem root served under /images/. Empty
	// disables static image serving.
	ImagesDir string
}

// Server hosts the storefront HTTP server.
type Server struct {
	httpAddr   string
	httpServer *http.Server
}

// NewServer builds a configured storefront server.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.Sessions == nil {
		return nil, errors.New("sessions are required")
	}
	if config.Credentials == nil {
		return nil, errors.New("credentials are required")
	}
	if config.Items == nil {
		return nil, errors.New("item store is required")
	}
	if config.Blobs == nil {
		return nil, errors.New("blob store is required")
	}

	handler := NewHandler(config)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		httpAddr:   httpAddr,
		httpServer: httpServer,
	}, nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("web server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	serveErr := make(chan error, 1)
	log.Printf("storefront listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

var _ gallery.Feed = (storage.ItemStore)(nil)
