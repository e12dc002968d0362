package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every variable name.
const Prefix = "PAWTRACK_"

type Config struct {
	Port      int    `env:"PORT" envDefault:"8080"`
	DBPath    string `env:"DB_PATH" envDefault:"pawtrack.db"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	NATSURL         string `env:"NATS_URL"`
	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY"`

	ReminderLead     time.Duration `env:"REMINDER_LEAD" envDefault:"30m"`
	MissedGrace      time.Duration `env:"MISSED_GRACE" envDefault:"2h"`
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" envDefault:"1m"`
	CleanupInterval  time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`

	PersistQueueSize int           `env:"PERSIST_QUEUE_SIZE" envDefault:"256"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SecureCookies    bool          `env:"SECURE_COOKIES" envDefault:"false"`
	LoginRateLimit   int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
}

// Load reads an optional dotenv file, then parses the environment.
// Variables already set win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	if c.PersistQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("persist queue size must be positive, got %d", c.PersistQueueSize))
	}
	if c.ReminderLead <= 0 || c.MissedGrace <= 0 {
		errs = append(errs, errors.New("reminder lead and missed grace must be positive"))
	}
	if c.ReminderInterval <= 0 || c.CleanupInterval <= 0 {
		errs = append(errs, errors.New("job intervals must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		errs = append(errs, errors.New("VAPID public and private keys must be set together"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// PushEnabled reports whether web push is configured.
func (c Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
