package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"metisconnect/config"
	"metisconnect/cron"
	"metisconnect/handlers"
	"metisconnect/models"
	"metisconnect/routes"
	"metisconnect/services/booking"
	ai "metisconnect/services/intelligence"
	"metisconnect/services/notification"
	"metisconnect/services/payment"
	"metisconnect/services/remote"
	"metisconnect/services/state"
	"metisconnect/services/tasks"
	"metisconnect/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	utils.InitializeLogger()
	logger := utils.GetLogger()
	defer logger.Sync()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	appCtx, stop := context.WithCancel(context.Background())
	defer stop()

	hours, err := booking.ParseBusinessHours(
		config.AppConfig.BusinessTimezone,
		config.AppConfig.BusinessOpen,
		config.AppConfig.BusinessClose,
	)
	if err != nil {
		logger.Sugar().Fatalf("main: invalid business hours: %v", err)
	}
	models.LocalZone = hours.Location

	remoteClient := remote.NewClient(remote.Options{
		BaseURL: config.AppConfig.BookingAPIURL,
		Token:   config.AppConfig.BookingAPIToken,
		Timeout: time.Duration(config.AppConfig.BookingAPITimeoutSeconds) * time.Second,
	}, logger.Named("remote"))

	store := state.NewMemoryStore(logger.Named("state"))

	resolver := booking.NewAvailabilityResolver(remoteClient, hours, logger.Named("availability"))
	var slotChecker booking.SlotChecker
	if config.AppConfig.VerifySlotBeforeSubmit {
		slotChecker = resolver
	}
	submitter := booking.NewBookingSubmitter(remoteClient, slotChecker, hours.Location, logger.Named("booking"))

	flow := &booking.AppointmentFlow{
		Store:     store,
		Resolver:  resolver,
		Submitter: submitter,
		Remote:    remoteClient,
		Logger:    logger.Named("flow"),
	}

	// Payments.
	if err := utils.InitPaymentCache(); err != nil {
		logger.Warn("Payment handles will be kept in memory only")
	}
	if config.PaymentsEnabled() {
		stripe.Key = config.AppConfig.StripeSecretKey

		var handles payment.HandleStore = payment.NewMemoryHandleStore()
		if client := utils.GetPaymentCacheClient(); client != nil {
			handles = payment.NewRedisHandleStore(client)
		}
		flow.Payments = payment.NewWorkflow(
			payment.NewStripeProcessor(logger.Named("stripe")),
			handles,
			config.AppConfig.PaymentReturnURL,
			logger.Named("payment"),
		)
	} else {
		logger.Info("STRIPE_SECRET_KEY not set, online prepayment disabled")
	}

	// Notifications and reminders.
	notifSvc, err := notification.NewLogNotificationService(logger.Named("notification"))
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}
	flow.Notifier = notifSvc

	if config.AppConfig.RemindersEnabled {
		queue := asynq.NewClient(cron.ReminderRedisOpt())
		defer queue.Close()
		inspector := asynq.NewInspector(cron.ReminderRedisOpt())
		defer inspector.Close()

		flow.Reminders = tasks.NewReminderScheduler(
			queue,
			inspector,
			time.Duration(config.AppConfig.ReminderLeadHours)*time.Hour,
			logger.Named("reminders"),
		)
		cron.InitReminderWorker(appCtx, notifSvc, logger.Named("reminder-worker"))
	}

	// Voice.
	var voice *ai.VoiceAssistant
	if config.VoiceEnabled() {
		transcriber, err := ai.NewGoogleTranscriber(appCtx, config.AppConfig.GoogleServiceAccountFile)
		if err != nil {
			logger.Warn("Voice input disabled", zap.Error(err))
		} else {
			defer transcriber.Close()

			keywords := ai.NewKeywordInterpreter(hours.Location)
			var interpreter ai.Interpreter = keywords
			if config.AppConfig.GeminiAPIKey != "" {
				gemini, err := ai.NewGeminiClient(appCtx, config.AppConfig.GeminiAPIKey)
				if err != nil {
					logger.Warn("Gemini unavailable, using keyword interpretation", zap.Error(err))
				} else {
					defer gemini.Close()
					interpreter = ai.NewGeminiInterpreter(gemini, keywords, logger.Named("gemini"))
				}
			}
			voice = ai.NewVoiceAssistant(transcriber, interpreter, config.AppConfig.VoiceLanguage)
		}
	}
	store.Dispatch(state.SetVoiceSupported{Supported: voice != nil})

	utils.StartHealthMonitor(appCtx, utils.GetPaymentCacheClient(), remoteClient)

	// Prime the appointment list; the server may still be starting.
	if _, err := flow.RefreshAppointments(appCtx, ""); err != nil {
		logger.Warn("Initial appointment load failed", zap.Error(err))
		store.Dispatch(state.ClearError{})
	}

	handlerBundle := &handlers.HandlerBundle{
		Flow:          flow,
		Store:         store,
		Voice:         voice,
		WebhookSecret: config.AppConfig.StripeWebhookSecret,
	}

	router := gin.New()
	routes.RegisterRoutes(router, handlerBundle)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + config.AppConfig.AppPort,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("main: server is shutting down...")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}

	logger.Info("main: server stopped gracefully")
}
