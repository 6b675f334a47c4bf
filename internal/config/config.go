// Package config loads the bot configuration from environment variables.
// envconfig maps environment variables onto the Config struct.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting of the bot.
type Config struct {
	// --- Discord ---
	DiscordToken string `envconfig:"DISCORD_TOKEN" required:"true"`
	// Discord user IDs allowed to use /admin commands.
	AdminIDsRaw string   `envconfig:"ADMIN_IDS" required:"true"`
	AdminIDs    []string `envconfig:"-"` // filled in after parsing
	// Discord user IDs allowed to use /rollcall (the table's DMs).
	DMIDsRaw string   `envconfig:"DM_IDS" default:""`
	DMIDs    []string `envconfig:"-"`

	// --- Beacon ---
	// Token scanned for inside ordinary messages.
	TriggerToken string `envconfig:"BEACON_TRIGGER_TOKEN" default:":touchesthebeacon:"`
	// Emoji name matched on reaction-add events.
	TriggerEmoji string `envconfig:"BEACON_TRIGGER_EMOJI" default:"touchesthebeacon"`
	// How long transient beacon replies stay before auto-removal.
	MessageTTL time.Duration `envconfig:"BEACON_MESSAGE_TTL" default:"60s"`

	// --- Audio ---
	// Directory holding .dca voice clips.
	AudioDir string `envconfig:"AUDIO_DIR" default:"audio"`

	// --- Database ---
	// Inside Docker "localhost" is almost always wrong; default to the
	// compose service name and override DB_HOST=localhost for local runs.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"meridia"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"meridia"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Rate limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN returns the PostgreSQL connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if len(c.AdminIDs) == 0 {
		return fmt.Errorf("ADMIN_IDS is empty")
	}
	if c.TriggerToken == "" || c.TriggerEmoji == "" {
		return fmt.Errorf("beacon trigger token/emoji must not be empty")
	}
	if c.MessageTTL <= 0 {
		return fmt.Errorf("BEACON_MESSAGE_TTL must be > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("bad DB_MIN_CONNS/DB_MAX_CONNS")
	}
	return nil
}

// Load reads environment variables and fills the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	cfg.AdminIDs = parseSnowflakeCSV(cfg.AdminIDsRaw)
	cfg.DMIDs = parseSnowflakeCSV(cfg.DMIDsRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseSnowflakeCSV splits a comma-separated list of Discord user IDs.
// Entries that are not plain integers are dropped.
func parseSnowflakeCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := strconv.ParseUint(p, 10, 64); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}
