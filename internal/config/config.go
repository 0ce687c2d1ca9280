package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Load reads .env if present. Real deployments set the environment directly;
// the file is a development convenience.
func Load() {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func Addr() string        { return getEnv("ADDR", ":8080") }
func DBPath() string      { return getEnv("DB_PATH", "regdesk.db") }
func BaseURL() string     { return getEnv("BASE_URL", "http://localhost:8080") }
func UploadDir() string   { return getEnv("UPLOAD_DIR", "uploads") }
func TemplateDir() string { return getEnv("TEMPLATE_DIR", "templates") }

// AdminToken guards the /api/admin routes. Session/role management proper is
// handled upstream; this is the service-to-service shared secret.
func AdminToken() string { return getEnv("ADMIN_TOKEN", "") }

// ExchangeRate is the static TRY conversion rate recorded on submissions in
// the given currency (EXCHANGE_RATE_USD, EXCHANGE_RATE_EUR).
func ExchangeRate(code string) string { return getEnv("EXCHANGE_RATE_"+code, "1") }

func GatewayURL() string    { return getEnv("PAYMENT_GATEWAY_URL", "") }
func GatewayAPIKey() string { return getEnv("PAYMENT_GATEWAY_KEY", "") }

func SMTPHost() string     { return getEnv("SMTP_HOST", "") }
func SMTPPort() int        { return getEnvInt("SMTP_PORT", 587) }
func SMTPUser() string     { return getEnv("SMTP_USER", "") }
func SMTPPassword() string { return getEnv("SMTP_PASSWORD", "") }
func MailFrom() string     { return getEnv("MAIL_FROM", "kayit@kongrex.example") }

func RemindersEnabled() bool { return os.Getenv("ENABLE_REMINDERS") == "1" }

// ReminderAfterHours is how long a bank-transfer registration may sit pending
// before the first reminder mail.
func ReminderAfterHours() int { return getEnvInt("REMINDER_AFTER_HOURS", 48) }
