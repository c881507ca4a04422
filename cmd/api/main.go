package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/coolnight20187/python-7ty-system/internal/config"
	"github.com/coolnight20187/python-7ty-system/internal/domain/agent"
	"github.com/coolnight20187/python-7ty-system/internal/domain/approval"
	"github.com/coolnight20187/python-7ty-system/internal/domain/audit"
	"github.com/coolnight20187/python-7ty-system/internal/domain/bill"
	"github.com/coolnight20187/python-7ty-system/internal/domain/commission"
	"github.com/coolnight20187/python-7ty-system/internal/domain/customer"
	"github.com/coolnight20187/python-7ty-system/internal/domain/ledger"
	"github.com/coolnight20187/python-7ty-system/internal/domain/transaction"
	"github.com/coolnight20187/python-7ty-system/internal/middleware"
	"github.com/coolnight20187/python-7ty-system/internal/pkg/billprovider"
	"github.com/coolnight20187/python-7ty-system/internal/pkg/database"
	"github.com/coolnight20187/python-7ty-system/internal/pkg/jwt"
	"github.com/coolnight20187/python-7ty-system/internal/pkg/logger"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting bill-payment settlement API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	jwtService := jwt.NewService(cfg.JWTSecret)

	var providerClient bill.ProviderClient
	if cfg.BillProviderBaseURL != "" {
		providerClient = billprovider.NewClient(cfg.BillProviderBaseURL, cfg.BillProviderAPIKey, time.Duration(cfg.BillProviderTimeoutSeconds)*time.Second)
	}

	// ---------- Repositories ----------
	auditRecorder := audit.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	transactionRepo := transaction.NewRepository(db)
	commissionRepo := commission.NewRepository(db)
	billRepo := bill.NewRepository(db)
	approvalRepo := approval.NewRepository(db)
	agentRepo := agent.NewRepository(db)
	customerRepo := customer.NewRepository(db)

	// ---------- Services ----------
	ledgerSvc := ledger.NewService(db, ledgerRepo, auditRecorder)
	billSvc := bill.NewService(billRepo, redisClient, providerClient, cfg.BillLookupCacheTTL, auditRecorder)

	// The agent and approval services reference each other through narrow
	// interfaces; the closure below resolves once everything is built.
	var approvalSvc *approval.Service
	submitApproval := agent.SubmitterFunc(func(ctx context.Context, in approval.SubmitInput) (*approval.Approval, error) {
		return approvalSvc.Submit(ctx, in)
	})

	var agentSvc *agent.Service
	transactionSvc := transaction.NewService(db, transactionRepo, ledgerRepo, billRepo, commissionRepo, rateSourceFunc(func(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
		return agentSvc.EffectiveRate(ctx, userID)
	}), auditRecorder)

	agentSvc = agent.NewService(agentRepo, ledgerRepo, transactionSvc, submitApproval, auditRecorder)
	customerSvc := customer.NewService(customerRepo, ledgerRepo, submitApproval, auditRecorder)

	approvalSvc = approval.NewService(db, approvalRepo, agentSvc, customerSvc, &transactionConfirmer{svc: transactionSvc}, auditRecorder)

	// ---------- Handlers ----------
	ledgerHandler := ledger.NewHandler(ledgerSvc)
	transactionHandler := transaction.NewHandler(transactionSvc)
	approvalHandler := approval.NewHandler(approvalSvc)
	billHandler := bill.NewHandler(billSvc, transactionSvc)
	agentHandler := agent.NewHandler(agentSvc)
	customerHandler := customer.NewHandler(customerSvc)

	// ---------- Router ----------
	authMiddleware := middleware.Auth(jwtService)
	requireBackOffice := middleware.RequireBackOffice()
	requireAgent := middleware.RequireAgent()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/ledger", ledgerHandler.Routes(authMiddleware, requireBackOffice))
		r.Mount("/transactions", transactionHandler.Routes(authMiddleware, requireBackOffice))
		r.Mount("/approvals", approvalHandler.Routes(authMiddleware, requireBackOffice))
		r.Mount("/bills", billHandler.Routes(authMiddleware, requireBackOffice, requireAgent))
		r.Mount("/agents", agentHandler.Routes(authMiddleware, requireBackOffice, requireAgent))
		r.Mount("/customers", customerHandler.Routes(authMiddleware, requireBackOffice))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// rateSourceFunc adapts a closure to transaction.AgentRateSource
type rateSourceFunc func(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

func (f rateSourceFunc) EffectiveRate(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return f(ctx, userID)
}

// transactionConfirmer adapts the transaction service to the approval
// engine's settlement interface.
type transactionConfirmer struct {
	svc *transaction.Service
}

func (a *transactionConfirmer) Confirm(ctx context.Context, transactionID uuid.UUID) error {
	_, err := a.svc.Confirm(ctx, transactionID, transaction.Actor{Role: "system"})
	return err
}

func (a *transactionConfirmer) Cancel(ctx context.Context, transactionID uuid.UUID) error {
	_, err := a.svc.Cancel(ctx, transactionID, transaction.Actor{Role: "system"}, "approval rejected or cancelled")
	return err
}
