package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	AllowedOrigins    string `mapstructure:"ALLOWED_ORIGINS"`

	// Remote booking source.
	BookingAPIURL            string `mapstructure:"BOOKING_API_URL"`
	BookingAPIToken          string `mapstructure:"BOOKING_API_TOKEN"`
	BookingAPITimeoutSeconds int    `mapstructure:"BOOKING_API_TIMEOUT_SECONDS"`

	// Business calendar.
	BusinessTimezone       string `mapstructure:"BUSINESS_TIMEZONE"`
	BusinessOpen           string `mapstructure:"BUSINESS_OPEN"`
	BusinessClose          string `mapstructure:"BUSINESS_CLOSE"`
	VerifySlotBeforeSubmit bool   `mapstructure:"VERIFY_SLOT_BEFORE_SUBMIT"`

	// Stripe.
	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	PaymentReturnURL    string `mapstructure:"PAYMENT_RETURN_URL"`

	// Redis configuration.
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisPaymentDB  int    `mapstructure:"REDIS_PAYMENT_DB"`
	RedisReminderDB int    `mapstructure:"REDIS_REMINDER_DB"`

	// Reminders.
	RemindersEnabled  bool `mapstructure:"REMINDERS_ENABLED"`
	ReminderLeadHours int  `mapstructure:"REMINDER_LEAD_HOURS"`

	// Voice.
	GoogleServiceAccountFile string `mapstructure:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	VoiceLanguage            string `mapstructure:"VOICE_LANGUAGE"`
	GeminiAPIKey             string `mapstructure:"GEMINI_API_KEY"`
}

var AppConfig Config

func LoadConfig() {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on process environment")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8090")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 120)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")

	viper.SetDefault("BOOKING_API_URL", "http://localhost:8000/api")
	viper.SetDefault("BOOKING_API_TOKEN", "")
	viper.SetDefault("BOOKING_API_TIMEOUT_SECONDS", 10)

	viper.SetDefault("BUSINESS_TIMEZONE", "Europe/Rome")
	viper.SetDefault("BUSINESS_OPEN", "09:00")
	viper.SetDefault("BUSINESS_CLOSE", "18:00")
	viper.SetDefault("VERIFY_SLOT_BEFORE_SUBMIT", true)

	viper.SetDefault("STRIPE_SECRET_KEY", "")
	viper.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	viper.SetDefault("PAYMENT_RETURN_URL", "http://localhost:8090/api/payments/return")

	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_PAYMENT_DB", 3)
	viper.SetDefault("REDIS_REMINDER_DB", 4)

	viper.SetDefault("REMINDERS_ENABLED", false)
	viper.SetDefault("REMINDER_LEAD_HOURS", 24)

	viper.SetDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	viper.SetDefault("VOICE_LANGUAGE", "it-IT")
	viper.SetDefault("GEMINI_API_KEY", "")
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// Origins splits ALLOWED_ORIGINS into the list gin-contrib/cors expects.
func Origins() []string {
	var out []string
	for _, o := range strings.Split(AppConfig.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// PaymentsEnabled reports whether a Stripe key is configured.
func PaymentsEnabled() bool {
	return AppConfig.StripeSecretKey != ""
}

// VoiceEnabled reports whether speech-to-text credentials are configured.
func VoiceEnabled() bool {
	return AppConfig.GoogleServiceAccountFile != ""
}
