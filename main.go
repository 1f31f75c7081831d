package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calmora/config"
	"calmora/cron"
	"calmora/database"
	bookingRepo "calmora/database/repository/booking"
	conflictRepo "calmora/database/repository/conflict"
	eventRepo "calmora/database/repository/event"
	lockRepo "calmora/database/repository/locks"
	providerRepo "calmora/database/repository/provider"
	slotRepo "calmora/database/repository/slot"
	"calmora/handlers"
	"calmora/routes"
	"calmora/services/arbiter"
	"calmora/services/calendar"
	"calmora/services/notification"
	"calmora/services/reconcile"
	"calmora/services/window"
	"calmora/timecodec"
	"calmora/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendarapi "google.golang.org/api/calendar/v3"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	if err := timecodec.Init(config.AppConfig.OperatingTZ); err != nil {
		logger.Sugar().Fatalf("main: failed to load operating timezone %q: %v", config.AppConfig.OperatingTZ, err)
	}

	database.InitDB()
	utils.InitCache()
	utils.InitSyncCache()

	// Repositories.
	providers := providerRepo.NewMongoProviderRepo()
	slots := slotRepo.NewMongoSlotRepo()
	events := eventRepo.NewMongoEventRepo()
	bookings := bookingRepo.NewMongoBookingRepo()
	locks := lockRepo.NewMongoLockRepo()
	conflicts := conflictRepo.NewMongoConflictRepo()

	// Async queue client shared by the dispatcher and handlers.
	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer queueClient.Close()

	notifier := notification.NewAsynqDispatcher(queueClient, logger)

	// Services.
	windowMgr := window.NewDefaultManager(
		slots,
		providers,
		logger,
		config.AppConfig.WindowDays,
		time.Duration(config.AppConfig.SlotDurationMin)*time.Minute,
	)

	reconciler := &reconcile.DefaultReconciler{
		Slots:        slots,
		Events:       events,
		Conflicts:    conflicts,
		Notifier:     notifier,
		Logger:       logger,
		WindowDays:   config.AppConfig.WindowDays,
		SlotDuration: time.Duration(config.AppConfig.SlotDurationMin) * time.Minute,
	}

	bookingArbiter := arbiter.NewDefaultArbiter(
		bookings,
		slots,
		locks,
		notifier,
		logger,
		config.AppConfig.RescheduleMax,
		time.Duration(config.AppConfig.ShortNoticeHours)*time.Hour,
	)

	creds := calendar.NewRedisTokenStore(utils.GetSyncCacheClient(), oauthConfig(logger))
	mirror := calendar.NewDefaultMirror(
		providers,
		events,
		creds,
		calendar.NewGoogleAPI(),
		notifier,
		utils.GetSyncCacheClient(),
		logger,
		config.AppConfig.WindowDays,
		time.Duration(config.AppConfig.SyncIntervalMin)*time.Minute,
		time.Duration(config.AppConfig.SyncTimeoutSec)*time.Second,
	)

	// Background worker and periodic scheduler.
	cron.InitWorker(cron.Deps{
		Providers:  providers,
		Mirror:     mirror,
		Reconciler: reconciler,
		Window:     windowMgr,
		Sender:     notification.NewLogSender(logger),
		Client:     queueClient,
	})

	// HTTP surface.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	handlerBundle := &handlers.HandlerBundle{
		Arbiter:    bookingArbiter,
		Window:     windowMgr,
		Reconciler: reconciler,
		Creds:      creds,
		Providers:  providers,
		Slots:      slots,
		Bookings:   bookings,
		Conflicts:  conflicts,
		Cache:      utils.GetCacheClient(),
		Queue:      queueClient,
	}

	routes.RegisterHealthRoute(router)
	routes.RegisterProviderRoutes(router, handlerBundle)
	routes.RegisterBookingRoutes(router, handlerBundle)
	routes.RegisterAdminRoutes(router, handlerBundle)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

// oauthConfig loads the Google OAuth client used to refresh provider calendar
// credentials. Without it, linked calendars still sync until their access
// tokens expire.
func oauthConfig(logger *zap.Logger) *oauth2.Config {
	path := config.AppConfig.GoogleCalCreds
	if path == "" {
		logger.Warn("GOOGLE_CALENDAR_CREDENTIALS not set, calendar token refresh disabled")
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to read google credentials: %v", err)
	}
	cfg, err := google.ConfigFromJSON(data, calendarapi.CalendarReadonlyScope)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to parse google credentials: %v", err)
	}
	return cfg
}
