package routes

import (
	"time"

	"metisconnect/config"
	"metisconnect/handlers"
	"metisconnect/middleware"
	"metisconnect/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterHealthRoutes registers the health and metrics endpoints.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RegisterBookingRoutes sets up catalog, draft, availability and appointment endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api")
	{
		api.GET("/services", hb.ListServices)
		api.GET("/state", hb.GetState)
		api.PUT("/booking/draft", hb.UpdateDraft)
	}

	appointments := r.Group("/api/appointments")
	{
		appointments.GET("/availability", hb.GetAvailability)
		appointments.GET("", hb.ListAppointments)
		appointments.POST("", hb.CreateAppointment)
		appointments.DELETE("/:id", hb.CancelAppointment)
		appointments.PUT("/:id/status", hb.UpdateAppointmentStatus)
		appointments.POST("/:id/payment", hb.StartPayment)
		appointments.POST("/:id/payment/confirm", hb.ConfirmPayment)
	}
}

// RegisterPaymentRoutes sets up the redirect return and webhook endpoints.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	payments := r.Group("/api/payments")
	{
		payments.GET("/return", hb.PaymentReturn)
		payments.POST("/webhook", hb.PaymentWebhook)
	}
}

// RegisterVoiceRoutes sets up voice booking input.
func RegisterVoiceRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/api/voice/transcribe", hb.VoiceTranscribe)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(utils.ErrorHandler())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     config.Origins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))

	RegisterHealthRoutes(r)
	RegisterBookingRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
	RegisterVoiceRoutes(r, hb)
}
