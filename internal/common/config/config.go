package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Telegram struct {
		// Bot token. Startup fails loud when absent.
		APIKey string `env:"API_KEY,required"`

		// Comma-separated numeric caller ids. Loaded once, never mutated.
		AdminIDs []int64 `env:"ADMIN_IDS,required" envSeparator:","`

		// Group whose members may request profiles. Membership is
		// queried live per request, never cached.
		UsersGroupID string `env:"USERS_GROUP_ID"`

		// When set, unauthorized requests are dropped without a reply.
		SilentReject bool `env:"SILENT_REJECT" envDefault:"false"`
	}

	Server struct {
		// When PublicDomain is set the bot serves a webhook on Port,
		// otherwise it falls back to long polling.
		PublicDomain string `env:"PUBLIC_DOMAIN"`
		Port         int    `env:"PORT" envDefault:"8080"`
	}

	Profiles struct {
		Dir        string        `env:"OVPN_DIR" envDefault:"./ovpn"`
		Script     string        `env:"INSTALL_SCRIPT" envDefault:"./openvpn-install.sh"`
		StaleAfter time.Duration `env:"STALE_AFTER" envDefault:"240h"`
		DNS        string        `env:"DNS" envDefault:"9"`
	}
}

// Load reads environment variables into Config. A .env file is used when
// present; in production the variables are usually set directly.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if len(cfg.Telegram.AdminIDs) == 0 {
		return nil, fmt.Errorf("ADMIN_IDS contains no valid ids")
	}
	return cfg, nil
}
