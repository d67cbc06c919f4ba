package main

import (
	"fmt"
	"os"

	"github.com/umuve/dispatch-engine/internal/auth"
	"github.com/umuve/dispatch-engine/internal/config"
	"github.com/umuve/dispatch-engine/internal/db"
	"github.com/umuve/dispatch-engine/internal/events"
	"github.com/umuve/dispatch-engine/internal/excel"
	"github.com/umuve/dispatch-engine/internal/geofence"
	httphandler "github.com/umuve/dispatch-engine/internal/http"
	"github.com/umuve/dispatch-engine/internal/http/middleware"
	"github.com/umuve/dispatch-engine/internal/logger"
	"github.com/umuve/dispatch-engine/internal/matching"
	"github.com/umuve/dispatch-engine/internal/notify"
	"github.com/umuve/dispatch-engine/internal/paygate"
	"github.com/umuve/dispatch-engine/internal/pdf"
	"github.com/umuve/dispatch-engine/internal/pricing"
	"github.com/umuve/dispatch-engine/internal/repository"
	"github.com/umuve/dispatch-engine/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	jobRepo := repository.NewJobRepository(database)
	contractorRepo := repository.NewContractorRepository(database)
	paymentRepo := repository.NewPaymentRepository(database)
	userRepo := repository.NewUserRepository(database)
	notificationRepo := repository.NewNotificationRepository(database)
	pricingRepo := repository.NewPricingRepository(database, log)

	redisClient := events.NewClient(cfg.Redis)
	bus := events.NewBus(redisClient, log)
	if bus == nil {
		log.Warn().Msg("redis not configured, realtime events disabled")
	}

	checker := geofence.New()
	pricer := pricing.NewCalculator(pricingRepo)
	selector := matching.NewSelector(contractorRepo, cfg.Dispatch.AutoAssignRadiusKM, log)
	notifier := notify.New(notificationRepo, notify.LogSender{Log: log}, log)
	gateway := paygate.LogGateway{Log: log}
	locks := service.NewJobLocks()

	dispatcher := service.NewDispatcher(jobRepo, contractorRepo, selector, notifier, bus, log)
	bookingService := service.NewBookingService(
		checker, pricer, jobRepo, paymentRepo, dispatcher, gateway, notifier, bus, locks, cfg, log)
	jobService := service.NewJobService(
		jobRepo, contractorRepo, paymentRepo, userRepo, dispatcher, gateway, notifier, bus, locks, cfg, log)
	volumeService := service.NewVolumeService(
		pricer, jobRepo, paymentRepo, contractorRepo, gateway, notifier, bus, locks, cfg, log)
	driverService := service.NewDriverService(jobRepo, contractorRepo, bus, log)
	reportService := service.NewReportService(
		jobRepo, paymentRepo, userRepo, pdf.NewGenerator(), excel.NewGenerator(), log)
	notificationService := service.NewNotificationService(notificationRepo)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(
		bookingService,
		jobService,
		driverService,
		volumeService,
		reportService,
		notificationService,
		checker,
		pricer,
		log,
	)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting dispatch engine")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
