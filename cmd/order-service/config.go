package main

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/httpserver"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/messaging"
	"github.com/Jbiscode/MSA-Order-Service/internal/platform/participant"
)

// Fixed identifiers of the local development data set, shared by all services.
const (
	demoCustomerID   = "d215b5f8-0249-4dc5-89a3-51fd148cfb41"
	demoRestaurantID = "d215b5f8-0249-4dc5-89a3-51fd148cfb45"
	demoProduct1ID   = "d215b5f8-0249-4dc5-89a3-51fd148cfb47"
	demoProduct2ID   = "d215b5f8-0249-4dc5-89a3-51fd148cfb48"
)

func serverConfig(defaultPort int) httpserver.Config {
	cfg := httpserver.DefaultConfig()
	cfg.Port = getEnvInt("HTTP_PORT", defaultPort)
	return cfg
}

func transportConfig(group string) messaging.Config {
	cfg := messaging.DefaultConfig()
	cfg.Kind = getEnv("TRANSPORT", cfg.Kind)
	cfg.Kafka.Brokers = getEnv("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", group)
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	return cfg
}

func workerConfig(name string) participant.Config {
	cfg := participant.DefaultConfig()
	cfg.RelayInterval = getEnvDuration("OUTBOX_RELAY_INTERVAL", cfg.RelayInterval)
	cfg.CleanerInterval = getEnvDuration("OUTBOX_CLEANER_INTERVAL", cfg.CleanerInterval)
	cfg.Breaker.Name = name
	return cfg
}

func logLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "INFO"))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
