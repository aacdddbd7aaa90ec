package main

import (
	"log"
	"net/http"

	"github.com/MJSteenberg/xfinance/internal/shared/config"
	"github.com/MJSteenberg/xfinance/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", handleHealth)

	// Public auth routes
	mux.HandleFunc("/api/auth/register", deps.UserHandler.HandleRegister)
	mux.HandleFunc("/api/auth/login", deps.UserHandler.HandleLogin)

	// Protected routes
	identity := middleware.Identity(deps.UserRepo)

	mux.Handle("/api/statements/process", identity(http.HandlerFunc(deps.StatementHandler.HandleProcessStatement)))
	mux.Handle("/api/statements", identity(http.HandlerFunc(deps.StatementHandler.HandleStoreOrList)))
	mux.Handle("/api/statements/", identity(http.HandlerFunc(deps.StatementHandler.HandleStatementTransactions)))
	mux.Handle("/api/transactions", identity(http.HandlerFunc(deps.TransactionHandler.HandleListTransactions)))
	mux.Handle("/api/transactions/summary", identity(http.HandlerFunc(deps.TransactionHandler.HandleSummary)))

	// Apply global middleware
	handler := middleware.Tracing(middleware.Logging(middleware.CORS(mux)))
	handler = middleware.SecurityHeaders(handler)

	// Apply HSTS when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(handler)
		log.Println("TLS security middleware enabled (HSTS)")
	}

	return handler
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
