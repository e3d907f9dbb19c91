package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration parameters read from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"5000"`

	// Session cookie lifetime for logged-in users.
	SessionTTLHours int `envconfig:"SESSION_TTL_HOURS" default:"720"`
	// Lifetime of the anonymous per-article view cookie.
	ViewTokenTTLHours int `envconfig:"VIEW_TOKEN_TTL_HOURS" default:"168"`

	ContentS3Key    string `envconfig:"CONTENT_S3_KEY" required:"true"`
	ContentS3Secret string `envconfig:"CONTENT_S3_SECRET" required:"true"`
	ContentS3URL    string `envconfig:"CONTENT_S3_URL" required:"true"`
	ContentS3Region string `envconfig:"CONTENT_S3_REGION" required:"true"`
	ContentS3Bucket string `envconfig:"CONTENT_S3_BUCKET" required:"true"`

	// Schedule for refreshing the totals gauges exposed on /metrics.
	StatsCronSchedule string `envconfig:"STATS_CRON_SCHEDULE" default:"*/5 * * * *"`
}

// DSN returns the Data Source Name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// SessionTTL returns the session lifetime as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// ViewTokenTTL returns the anonymous view token lifetime as a duration.
func (c *Config) ViewTokenTTL() time.Duration {
	return time.Duration(c.ViewTokenTTLHours) * time.Hour
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
