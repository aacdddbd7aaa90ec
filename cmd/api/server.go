package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/MJSteenberg/xfinance/internal/shared/config"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Handler    http.Handler
	Addr       string
	TLSEnabled bool
	CertPath   string
	KeyPath    string
}

// StartServer creates and starts the HTTP (or HTTPS) server.
func StartServer(scfg ServerConfig) *http.Server {
	srv := &http.Server{
		Addr:         scfg.Addr,
		Handler:      scfg.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if scfg.TLSEnabled {
			log.Printf("HTTPS server starting on %s", scfg.Addr)
			if err := srv.ListenAndServeTLS(scfg.CertPath, scfg.KeyPath); err != nil && err != http.ErrServerClosed {
				log.Fatalf("HTTPS server error: %v", err)
			}
		} else {
			log.Printf("HTTP server starting on %s", scfg.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("HTTP server error: %v", err)
			}
		}
	}()

	return srv
}

// GracefulShutdown drains in-flight requests before the server stops.
func GracefulShutdown(srv *http.Server, timeout time.Duration) {
	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	log.Println("Server stopped")
}

// NewServerConfigFromConfig creates ServerConfig from application config.
func NewServerConfigFromConfig(handler http.Handler, cfg *config.Config) ServerConfig {
	return ServerConfig{
		Handler:    handler,
		Addr:       cfg.Server.Host + ":" + cfg.Server.Port,
		TLSEnabled: cfg.TLS.Enabled,
		CertPath:   cfg.TLS.CertPath,
		KeyPath:    cfg.TLS.KeyPath,
	}
}
