package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authhandler "github.com/pspdems/dems-backend/internal/auth/handler"
	"github.com/pspdems/dems-backend/internal/auth/jwt"
	authrepo "github.com/pspdems/dems-backend/internal/auth/repository"
	authservice "github.com/pspdems/dems-backend/internal/auth/service"
	"github.com/pspdems/dems-backend/internal/dems/events"
	"github.com/pspdems/dems-backend/internal/dems/handler"
	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/internal/dems/service"
	"github.com/pspdems/dems-backend/pkg/actor"
	"github.com/pspdems/dems-backend/pkg/config"
	"github.com/pspdems/dems-backend/pkg/database"
	"github.com/pspdems/dems-backend/pkg/httputil"
	"github.com/pspdems/dems-backend/pkg/logger"
	"github.com/pspdems/dems-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("dems-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("dems-server", cfg.Server.Environment)
	log.Info().Msg("starting DEMS server")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Probe the schema once at startup; feature gates key off this.
	caps, err := database.LoadCapabilities(context.Background(), db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load schema capabilities")
	}
	log.Info().Int("schema_version", caps.Version).
		Bool("login_audit", caps.HasLoginAudit).
		Msg("schema capabilities loaded")

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	publisher, err := events.NewDemsEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Repositories
	userRepo := authrepo.NewUserRepository(db)
	sessionRepo := authrepo.NewSessionRepository(db)
	plantRepo := repository.NewPlantRepository(db)
	medicineRepo := repository.NewMedicineRepository(db)
	indentRepo := repository.NewIndentRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	disposalRepo := repository.NewDisposalRepository(db)
	auditRepo := repository.NewAuditRepository(db, caps)
	reminderRepo := repository.NewReminderRepository(db)

	// Services
	jwtManager := jwt.NewManager(&cfg.JWT)
	authService := authservice.NewAuthService(userRepo, sessionRepo, auditRepo, jwtManager, log)
	resolver := service.NewVisibilityResolver(plantRepo, log)
	stockAggregator := service.NewStockAggregator(inventoryRepo, cfg.App.ReorderFallback, log)
	expiryClassifier := service.NewExpiryClassifier(inventoryRepo, cfg.App.NearExpiryDays, cfg.App.NearExpiryMaxDays, log)
	dashboardService := service.NewDashboardService(resolver, stockAggregator, expiryClassifier, indentRepo, log)
	indentService := service.NewIndentService(indentRepo, inventoryRepo, auditRepo, resolver, publisher, log)
	disposalService := service.NewDisposalService(inventoryRepo, disposalRepo, auditRepo, publisher, log)
	reportService := service.NewReportService(indentRepo, inventoryRepo, medicineRepo, plantRepo, resolver, cfg.App.ReorderFallback, log)

	// Handlers
	authHandler := authhandler.NewAuthHandler(authService, log)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, cfg.App.TopLimit, log)
	indentHandler := handler.NewIndentHandler(indentService, log)
	disposalHandler := handler.NewDisposalHandler(disposalService, dashboardService, log)
	auditHandler := handler.NewAuditHandler(auditRepo, log)
	reportHandler := handler.NewReportHandler(reportService, log)

	// Background reminder worker
	reminderScheduler := service.NewReminderScheduler(reminderRepo, expiryClassifier, publisher, cfg.App.ReminderFallbackTime, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reminderScheduler.Start(ctx)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.App.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "dems-server",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// Auth routes
	r.Route("/auth", func(r chi.Router) {
		r.With(httputil.LimitLogin()).Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authhandler.Authenticate(jwtManager))

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/summary", dashboardHandler.Summary)
			r.Get("/near-expiry", dashboardHandler.NearExpiry)
			r.Get("/expired", dashboardHandler.Expired)
			r.Get("/low-stock", dashboardHandler.LowStock)
		})

		r.Route("/indents", func(r chi.Router) {
			r.Get("/", indentHandler.List)
			r.With(httputil.LimitCreates()).Post("/", indentHandler.Create)
			r.Get("/{id}", indentHandler.Get)
			r.With(httputil.LimitEdits()).Put("/{id}", indentHandler.Update)
			r.Post("/{id}/submit", indentHandler.Submit)
			r.With(authhandler.RequireRole(actor.RoleDoctor, actor.RoleAdmin)).
				Post("/{id}/approve", indentHandler.Approve)
			r.With(authhandler.RequireRole(actor.RoleDoctor, actor.RoleAdmin)).
				Post("/{id}/reject", indentHandler.Reject)
			r.With(authhandler.RequireRole(actor.RoleStore, actor.RoleCompounder, actor.RoleAdmin)).
				Post("/{id}/receive", indentHandler.Receive)
		})

		r.Route("/disposals", func(r chi.Router) {
			r.Get("/", disposalHandler.List)
			r.Get("/pending", disposalHandler.Pending)
			r.With(authhandler.RequireRole(actor.RoleStore, actor.RoleCompounder, actor.RoleAdmin)).
				Post("/", disposalHandler.Record)
		})

		r.With(authhandler.RequireRole(actor.RoleAdmin)).Get("/audit", auditHandler.List)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/stock-register", reportHandler.StockRegister)
			r.Get("/stock-register/export", reportHandler.ExportStockRegister)
			r.Get("/indent-register", reportHandler.IndentRegister)
			r.Get("/indent-register/export", reportHandler.ExportIndentRegister)
		})
	})

	// Server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	reminderScheduler.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
