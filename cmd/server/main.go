// cmd/server/main.go
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/funnelreach/dispatch-backend/internal/auth"
	"github.com/funnelreach/dispatch-backend/internal/config"
	"github.com/funnelreach/dispatch-backend/internal/controller"
	"github.com/funnelreach/dispatch-backend/internal/db"
	"github.com/funnelreach/dispatch-backend/internal/handler"
	"github.com/funnelreach/dispatch-backend/internal/logger"
	"github.com/funnelreach/dispatch-backend/internal/queue"
	"github.com/funnelreach/dispatch-backend/internal/ratelimit"
	"github.com/funnelreach/dispatch-backend/internal/repository"
	"github.com/funnelreach/dispatch-backend/internal/service"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	conn, err := db.Connect(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer conn.Close()
	log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("connected to database")

	q, err := queue.DialAMQP(cfg.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("amqp connection failed")
	}
	defer q.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	responseRepo := &repository.ResponseRepository{DB: conn}
	cursorRepo := &repository.CursorRepository{DB: conn}
	dedupRepo := &repository.DedupRepository{DB: conn}
	taskRepo := &repository.TaskRepository{DB: conn}
	counterRepo := &repository.CounterRepository{DB: conn}

	dispatchService := &service.DispatchService{
		CampaignRepo: campaignRepo,
		ResponseRepo: responseRepo,
		CursorRepo:   cursorRepo,
		DedupRepo:    dedupRepo,
		TaskRepo:     taskRepo,
		Scheduler:    service.NewScheduler(counterRepo),
		Queue:        q,
		Log:          log,
		BatchSize:    cfg.ScanBatchSize,
		Lease:        cfg.ClaimLease,
		MaxAttempts:  cfg.MaxAttempts,
	}
	campaignService := &service.CampaignService{CampaignRepo: campaignRepo}
	executorService := service.NewExecutorService(taskRepo, dedupRepo, cfg.ClaimLease, cfg.MaxAttempts)

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		DispatchService: dispatchService,
	}
	executorHandler := &handler.ExecutorHandler{Executor: executorService}
	responseHandler := &handler.ResponseHandler{Responses: responseRepo}

	limiter := ratelimit.New(ratelimit.DefaultBudgets())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Submission intake
	r.With(limiter.Middleware(ratelimit.RouteIntake)).
		Post("/responses", responseHandler.Intake)

	// Campaign authoring and lifecycle
	r.Route("/campaigns", func(r chi.Router) {
		r.With(limiter.Middleware(ratelimit.RouteCampaignWrite)).
			Post("/", campaignController.CreateCampaign)
		r.Get("/", campaignController.ListCampaigns)
		r.Get("/{id}", campaignController.GetCampaign)
		r.With(limiter.Middleware(ratelimit.RouteCampaignWrite)).
			Put("/{id}", campaignController.UpdateCampaign)
		r.Post("/{id}/preview", campaignController.Preview)
		r.Post("/{id}/start", campaignController.Transition(campaignService.Start))
		r.Post("/{id}/pause", campaignController.Transition(campaignService.Pause))
		r.Post("/{id}/resume", campaignController.Transition(campaignService.Resume))
		r.Post("/{id}/stop", campaignController.Transition(campaignService.Stop))
		r.Post("/{id}/scan", campaignController.Scan)
	})

	// Executor bridge
	r.Route("/executor", func(r chi.Router) {
		r.Use(auth.ExecutorMiddleware(cfg.JWTSecret))
		r.With(limiter.Middleware(ratelimit.RoutePull)).
			Post("/pull", executorHandler.Pull)
		r.With(limiter.Middleware(ratelimit.RouteAck)).
			Post("/ack", executorHandler.Ack)
		r.With(limiter.Middleware(ratelimit.RoutePull)).
			Post("/check-sent", executorHandler.CheckSent)
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("server running")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
