package router

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"learngate/internal/api/v1/handler"
	"learngate/internal/clock"
	"learngate/internal/config"
	"learngate/internal/middleware"
	"learngate/internal/pgmq"
	"learngate/internal/pubsub"
	"learngate/internal/repository"
	"learngate/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Services are the collaborators the HTTP surface is built on.
type Services struct {
	Plans     service.PlanService
	Quota     service.QuotaService
	Schedules service.ScheduleService
	Attempts  service.AttemptService
	DLQ       service.DLQService
	Clock     clock.Clock
	DB        handler.Pinger
}

// New wires repositories, services and the notifier over pool and returns the HTTP handler.
// The returned cleanup releases the notifier transport and the database/sql handle.
func New(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (http.Handler, func(), error) {
	logger.Info().Str("environment", cfg.Environment).Str("notify_mode", cfg.NotifyMode).Msg("Router initializing")

	// pgmq and the dead-letter table go through database/sql on the same pool.
	db := stdlib.OpenDBFromPool(pool)
	closers := []func() error{db.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn().Err(err).Msg("Cleanup failed")
			}
		}
	}

	notifier, closeNotifier, err := newNotifier(ctx, cfg, db, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if closeNotifier != nil {
		closers = append(closers, closeNotifier)
	}

	clk := clock.New(cfg.Location())

	planRepo := repository.NewPlanRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)
	testRepo := repository.NewScheduledTestRepo(pool)
	attemptRepo := repository.NewAttemptRepo(pool)
	catalogRepo := repository.NewCatalogRepo(pool)
	rewardRepo := repository.NewRewardRepo(pool)
	dlqRepo := repository.NewDLQRepository(db)

	planSvc := service.NewPlanService(planRepo, clk, cfg.FreemiumPlanName, logger)
	quotaSvc := service.NewQuotaService(planSvc, usageRepo, logger)
	scheduleSvc := service.NewScheduleService(testRepo, attemptRepo, catalogRepo, planSvc, logger)
	attemptSvc := service.NewAttemptService(attemptRepo, catalogRepo, quotaSvc, scheduleSvc, rewardRepo, notifier, clk,
		service.AttemptOptions{
			AbandonAfter:           cfg.AttemptAbandonAfter,
			RewardPointsPerCorrect: cfg.RewardPointsPerCorrect,
		}, logger)
	dlqSvc := service.NewDLQService(dlqRepo, logger)

	if _, err := planSvc.EnsureFreemium(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("ensure Freemium plan: %w", err)
	}

	h := Routes(cfg, Services{
		Plans:     planSvc,
		Quota:     quotaSvc,
		Schedules: scheduleSvc,
		Attempts:  attemptSvc,
		DLQ:       dlqSvc,
		Clock:     clk,
		DB:        pool,
	}, logger)
	logger.Info().Msg("Router initialized")
	return h, cleanup, nil
}

func newNotifier(ctx context.Context, cfg *config.Config, db *sql.DB, logger zerolog.Logger) (service.Notifier, func() error, error) {
	switch cfg.NotifyMode {
	case "pubsub":
		publisher, err := pubsub.NewPublisher(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if ok, err := publisher.TopicExists(ctx, cfg.PubSubCompletionTopic); err != nil || !ok {
			logger.Warn().Err(err).Str("topic", cfg.PubSubCompletionTopic).Msg("Completion topic not found; events will fail until it is created")
		}
		return service.NewPubSubNotifier(publisher, cfg.PubSubCompletionTopic, logger), publisher.Close, nil
	case "queue":
		queue := pgmq.New(db)
		if err := queue.CreateQueue(ctx, cfg.CompletionQueueName); err != nil {
			return nil, nil, err
		}
		return service.NewQueueNotifier(queue, cfg.CompletionQueueName, logger), nil, nil
	default:
		return service.NewLogNotifier(logger), nil, nil
	}
}

// Routes mounts every handler under /v1 with the auth, module and admin guards.
func Routes(cfg *config.Config, svc Services, logger zerolog.Logger) http.Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)
	pubsubAuthMiddleware := middleware.PubSubAuthMiddleware(cfg.IsLocalPubSub(), cfg.DLQEndpointURL, cfg.PubSubPushServiceAccountEmail, logger)

	quotaHandler := handler.NewQuotaHandler(svc.Quota, svc.Clock, logger)
	testHandler := handler.NewTestHandler(svc.Schedules, svc.Clock, logger)
	attemptHandler := handler.NewAttemptHandler(svc.Attempts, validate, logger)
	adminPlanHandler := handler.NewAdminPlanHandler(svc.Plans, validate, logger)
	adminScheduleHandler := handler.NewAdminScheduleHandler(svc.Schedules, validate, logger)
	dlqHandler := handler.NewDLQHandler(svc.DLQ, validate, logger)
	healthHandler := handler.NewHealthHandler(svc.DB)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(chimw.Recoverer)

	healthHandler.RegisterRoutes(r)

	r.Route("/v1", func(r chi.Router) {
		healthHandler.RegisterRoutes(r)
		dlqHandler.RegisterRoutes(r, pubsubAuthMiddleware)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			quotaHandler.RegisterRoutes(r)
			testHandler.RegisterRoutes(r)
			attemptHandler.RegisterRoutes(r)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(middleware.RoleAdmin))
				adminPlanHandler.RegisterRoutes(r)
				adminScheduleHandler.RegisterRoutes(r)
				dlqHandler.RegisterAdminRoutes(r)
			})
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}
