package main

import (
	"context"
	"log"

	"github.com/MJSteenberg/xfinance/internal/domain/category"
	"github.com/MJSteenberg/xfinance/internal/domain/ledger"
	"github.com/MJSteenberg/xfinance/internal/infrastructure/postgres"
	"github.com/MJSteenberg/xfinance/internal/ingest"
	httphandlers "github.com/MJSteenberg/xfinance/internal/interfaces/http"
	"github.com/MJSteenberg/xfinance/internal/parser"
	"github.com/MJSteenberg/xfinance/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	UserHandler        *httphandlers.UserHandler
	StatementHandler   *httphandlers.StatementHandler
	TransactionHandler *httphandlers.TransactionHandler

	// Repositories (for middleware)
	UserRepo *postgres.UserRepository
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)

	// Domain services
	engine := ledger.NewEngine(ledgerRepo)
	query := ledger.NewQuery(ledgerRepo)
	parsers := parser.NewService(parser.DefaultRegistry(), cfg.Parser.Timeout)
	categorizer := category.NewRuleBased(category.DefaultRules())
	ingestSvc := ingest.NewService(parsers, categorizer, engine)

	// Handlers
	userHandler := httphandlers.NewUserHandler(userRepo)
	statementHandler := httphandlers.NewStatementHandler(ingestSvc, query)
	transactionHandler := httphandlers.NewTransactionHandler(query)

	return &Dependencies{
		DB:                 db,
		UserHandler:        userHandler,
		StatementHandler:   statementHandler,
		TransactionHandler: transactionHandler,
		UserRepo:           userRepo,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
