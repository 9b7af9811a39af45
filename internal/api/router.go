package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/loancouncil/internal/api/handlers"
	mw "github.com/Harshitk-cp/loancouncil/internal/api/middleware"
	"github.com/Harshitk-cp/loancouncil/internal/buildconfig"
	"github.com/Harshitk-cp/loancouncil/internal/config"
	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/Harshitk-cp/loancouncil/internal/llm"
	"github.com/Harshitk-cp/loancouncil/internal/service"
	"github.com/Harshitk-cp/loancouncil/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	Retention    *service.RetentionService
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

type pinger interface {
	Ping(ctx context.Context) error
}

// NewApp wires the deliberation service from config. db may be nil, in
// which case deliberations run but are not stored.
func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	provider := config.LLMProvider()
	client, err := llm.NewClient(provider, config.LLMAPIKey())
	if err != nil {
		logger.Warn("completion client initialization failed, agents will use defaults",
			zap.String("provider", provider), zap.Error(err))
		client = llm.Unavailable(err)
	} else {
		logger.Info("completion client initialized", zap.String("provider", provider))
	}

	var (
		ds     domain.DeliberationStore
		health pinger
	)
	if db != nil {
		ds = store.NewDeliberationStore(db)
		health = db
	}

	policy := config.Policy()
	svc := service.NewDeliberationService(ds, client, policy, logger)
	svc.SetRoundTimeout(config.RoundTimeout())
	svc.SetMaxTokens(config.CompletionMaxTokens())
	logger.Info("decision policy",
		zap.String("ruleset", string(policy.Ruleset)),
		zap.String("institution_criterion", string(policy.InstitutionCriterion)),
		zap.Float64("gpa_pass_threshold", policy.GPAPassThreshold),
		zap.String("feature_source", string(policy.FeatureSource)),
	)

	app := newApp(svc, health, config.APIKeys(), logger)
	if ds != nil {
		if retention := config.DeliberationRetention(); retention > 0 {
			app.Retention = service.NewRetentionService(ds, retention, logger)
		}
	}
	return app
}

func newApp(svc handlers.DeliberationService, db pinger, apiKeys []string, logger *zap.Logger) *App {
	h := handlers.NewDeliberationHandler(svc, logger)

	r := chi.NewRouter()
	app := &App{
		Router:    r,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())
	r.Get("/version", versionHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(apiKeys))

		r.Route("/deliberations", func(r chi.Router) {
			r.Post("/", h.Create)
			r.Get("/", h.List)
			r.Get("/stats", h.Stats)
			r.Get("/{id}", h.GetByID)
		})

		r.Post("/features/extract", h.ExtractFeatures)
	})

	return app
}

func healthHandler(db pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db == nil {
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "store": "disabled"})
			return
		}
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func versionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(buildconfig.VersionInfo())
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": float64(memStats.Alloc) / 1024 / 1024,
				"sys_mb":   float64(memStats.Sys) / 1024 / 1024,
				"num_gc":   memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.DeliberationStore     = (*store.DeliberationStore)(nil)
	_ handlers.DeliberationService = (*service.DeliberationService)(nil)
	_ domain.CompletionClient      = (*llm.OpenAIClient)(nil)
	_ domain.CompletionClient      = (*llm.AnthropicClient)(nil)
	_ domain.CompletionClient      = (*llm.GeminiClient)(nil)
	_ domain.CompletionClient      = (*llm.CerebrasClient)(nil)
	_ domain.CompletionClient      = (*llm.MockClient)(nil)
)
