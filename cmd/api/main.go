package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/cache"
	"tripdesk/internal/config"
	"tripdesk/internal/database"
	"tripdesk/internal/middleware"
	"tripdesk/internal/modules/auth"
	"tripdesk/internal/modules/decision"
	"tripdesk/internal/modules/itinerary"
	"tripdesk/internal/modules/market"
	"tripdesk/internal/modules/negotiation"
	"tripdesk/internal/modules/notification"
	"tripdesk/internal/modules/parser"
	"tripdesk/internal/modules/vendor"
	"tripdesk/internal/modules/workflow"
	jwtsvc "tripdesk/internal/pkg/jwt"
	"tripdesk/internal/realtime"
	"tripdesk/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	marketCache, err := cache.NewMarketCache(cfg.RedisURL)
	if err != nil {
		log.Printf("market_cache_disabled error=%q", err.Error())
	}

	userRepo := repository.NewUserRepository(db)
	itineraryRepo := repository.NewItineraryRepository(db)
	itemRepo := repository.NewItemRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	negotiationRepo := repository.NewNegotiationRepository(db)
	marketRepo := repository.NewMarketRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)

	j := jwtsvc.New(cfg.JWTSecret, 24*time.Hour)
	hub := realtime.NewHub()

	authService := auth.NewService(userRepo, j)
	authHandler := auth.NewHandler(authService)

	notificationService := notification.NewService(notificationRepo, hub)
	notificationHandler := notification.NewHandler(notificationService, hub)

	marketService := market.NewService(marketRepo, marketCache)
	marketHandler := market.NewHandler(marketService)

	parserService := parser.NewService(itemRepo, marketService)
	parserHandler := parser.NewHandler(parserService, itineraryRepo)

	vendorService := vendor.NewService(vendorRepo)
	vendorHandler := vendor.NewHandler(vendorService)

	engine := decision.NewEngine(cfg.Policy.Decision)

	negotiationService := negotiation.NewService(
		negotiationRepo,
		itemRepo,
		itineraryRepo,
		vendorService,
		notificationService,
		engine,
		cfg.Policy.Discounts,
	)
	negotiationHandler := negotiation.NewHandler(negotiationService, vendorRepo)

	orchestrator := workflow.NewOrchestrator(
		itineraryRepo,
		itemRepo,
		parserService,
		vendorService,
		negotiationService,
		negotiationRepo,
		workflowRepo,
		notificationService,
		cfg.Policy.Workflow,
	)
	workflowHandler := workflow.NewHandler(orchestrator)

	itineraryService := itinerary.NewService(itineraryRepo, orchestrator)
	itineraryHandler := itinerary.NewHandler(itineraryService)

	// Pick up workflows that were mid-flight when the previous process
	// stopped.
	if err := orchestrator.ResumeActive(context.Background()); err != nil {
		log.Printf("workflow_resume_failed error=%q", err.Error())
	}

	limiter := middleware.NewRateLimiter(20, 40)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())
	r.Use(limiter.Limit())

	v1 := r.Group("/api/v1")
	{
		// public
		authHandler.RegisterRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.Auth(j))
		{
			authHandler.RegisterProtectedRoutes(protected)
			itineraryHandler.RegisterRoutes(protected)
			parserHandler.RegisterRoutes(protected)
			vendorHandler.RegisterRoutes(protected)
			negotiationHandler.RegisterRoutes(protected)
			notificationHandler.RegisterRoutes(protected)
			marketHandler.RegisterRoutes(protected)

			agents := protected.Group("/")
			agents.Use(middleware.AgentOnly())
			{
				itineraryHandler.RegisterAgentRoutes(agents)
				parserHandler.RegisterAgentRoutes(agents)
				vendorHandler.RegisterAgentRoutes(agents)
				negotiationHandler.RegisterAgentRoutes(agents)
				workflowHandler.RegisterAgentRoutes(agents)
			}

			vendors := protected.Group("/")
			vendors.Use(middleware.VendorOnly())
			{
				vendorHandler.RegisterVendorRoutes(vendors)
				negotiationHandler.RegisterVendorRoutes(vendors)
			}
		}
	}

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()
	log.Printf("api_listening addr=%s", cfg.ListenAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	orchestrator.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server_shutdown_error error=%q", err.Error())
	}
}
