package config

import (
	"os"
	"time"
)

type DatabaseConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

// AppConfig is the process level configuration shared by every binary.
type AppConfig struct {
	Port                string
	Database            DatabaseConfig
	RedisAddr           string
	KafkaBroker         string
	JWTSecret           string
	EscalationSchedule  string
	ExpirationSchedule  string
	OutboxPurgeSchedule string
	OutboxRetention     time.Duration
	ShutdownTimeout     time.Duration
	Incentive           IncentiveConfig
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads the process environment. Callers load .env with godotenv first.
func Load() (AppConfig, error) {
	incentive, err := LoadIncentiveConfig()
	if err != nil {
		return AppConfig{}, err
	}

	retention := 7 * 24 * time.Hour
	if err := envDuration("OUTBOX_RETENTION", &retention); err != nil {
		return AppConfig{}, err
	}
	shutdown := 10 * time.Second
	if err := envDuration("SHUTDOWN_TIMEOUT", &shutdown); err != nil {
		return AppConfig{}, err
	}

	return AppConfig{
		Port: getenv("PORT", "3000"),
		Database: DatabaseConfig{
			Host:     os.Getenv("DB_HOST"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			Port:     getenv("DB_PORT", "5432"),
			SSLMode:  getenv("DB_SSLMODE", "disable"),
		},
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		KafkaBroker:         os.Getenv("KAFKA_BROKER"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		EscalationSchedule:  getenv("ESCALATION_SCHEDULE", "0 */15 * * * *"),
		ExpirationSchedule:  getenv("EXPIRATION_SCHEDULE", "0 5 * * * *"),
		OutboxPurgeSchedule: getenv("OUTBOX_PURGE_SCHEDULE", "0 30 3 * * *"),
		OutboxRetention:     retention,
		ShutdownTimeout:     shutdown,
		Incentive:           incentive,
	}, nil
}
