package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	AuthProviderSupabase = "supabase"
	AuthProviderLocal    = "local"

	ProfileStorePostgres = "postgres"
	ProfileStoreMongo    = "mongo"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	// AllowedOrigins lists the extra origins allowed to open the state stream.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS"`

	Auth     AuthConfig
	Profiles ProfileStoreConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Session  SessionConfig
}

type AuthConfig struct {
	Provider         string `env:"AUTH_PROVIDER,      default=supabase"`
	SupabaseURL      string `env:"SUPABASE_URL"`
	SupabaseAnonKey  string `env:"SUPABASE_ANON_KEY"`
	JWTSecret        string `env:"JWT_SECRET"`
	OAuthRedirectURL string `env:"OAUTH_REDIRECT_URL"`
}

type ProfileStoreConfig struct {
	Store       string `env:"PROFILE_STORE, default=postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
}

type MongoConfig struct {
	URI         string `env:"MONGO_URI,           default=mongodb://localhost:27017"`
	Database    string `env:"MONGO_DB,            default=clubconnect"`
	MaxPoolSize uint64 `env:"MONGO_MAX_POOL_SIZE, default=50"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,        default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE, default=10"`
}

type SessionConfig struct {
	TTL              time.Duration `env:"SESSION_TTL,       default=168h"`
	ReconcileTimeout time.Duration `env:"RECONCILE_TIMEOUT, default=10s"`
	DeviceIdleTTL    time.Duration `env:"DEVICE_IDLE_TTL,   default=30m"`
	CookieSecure     bool          `env:"COOKIE_SECURE,     default=false"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration through l and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected adapters have what they need.
func (c *Config) Validate() error {
	var errs []error

	switch c.Auth.Provider {
	case AuthProviderSupabase:
		if c.Auth.SupabaseURL == "" || c.Auth.SupabaseAnonKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_ANON_KEY are required for the supabase auth provider"))
		}
	case AuthProviderLocal:
		if c.Auth.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required for the local auth provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_PROVIDER %q", c.Auth.Provider))
	}

	switch c.Profiles.Store {
	case ProfileStorePostgres:
		if c.Profiles.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres profile store"))
		}
	case ProfileStoreMongo:
	default:
		errs = append(errs, fmt.Errorf("unknown PROFILE_STORE %q", c.Profiles.Store))
	}

	return errors.Join(errs...)
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// NeedsMongo reports whether any selected adapter uses MongoDB.
func (c *Config) NeedsMongo() bool {
	return c.Profiles.Store == ProfileStoreMongo || c.Auth.Provider == AuthProviderLocal
}
