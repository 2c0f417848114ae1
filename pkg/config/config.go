package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Cart      CartConfig
	DB        DBConfig
	Redis     RedisConfig
	Session   SessionConfig
	Catalog   CatalogConfig
	Orders    OrdersConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	switch cfg.Cart.Driver() {
	case StorageDriverSQLite:
		cfg.DB.Driver = StorageDriverSQLite
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = DefaultSQLiteDSN
		}
	case StorageDriverPostgres:
		cfg.DB.Driver = StorageDriverPostgres
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if cfg.Cart.Driver() == StorageDriverRedis && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("%s or %s is required for the redis cart storage driver", EnvRedisURL, EnvRedisAddr)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CartConfig selects where cart snapshots are persisted between sessions.
type CartConfig struct {
	StorageDriver string        `envconfig:"STOREFRONT_CART_STORAGE_DRIVER" default:"memory"`
	StorageKey    string        `envconfig:"STOREFRONT_CART_STORAGE_KEY" default:"cart-storage"`
	StorageTTL    time.Duration `envconfig:"STOREFRONT_CART_STORAGE_TTL" default:"720h"`
	AutoMigrate   bool          `envconfig:"STOREFRONT_CART_AUTO_MIGRATE" default:"false"`

	SessionIdleTTL time.Duration `envconfig:"STOREFRONT_CART_SESSION_IDLE_TTL" default:"30m"`
	SweepInterval  time.Duration `envconfig:"STOREFRONT_CART_SWEEP_INTERVAL" default:"5m"`
}

// Driver returns the normalized storage driver name.
func (c CartConfig) Driver() string {
	driver := strings.TrimSpace(strings.ToLower(c.StorageDriver))
	if driver == "" {
		return StorageDriverMemory
	}
	return driver
}

// UsesSQL reports whether the cart storage driver needs a database connection.
func (c CartConfig) UsesSQL() bool {
	switch c.Driver() {
	case StorageDriverPostgres, StorageDriverSQLite:
		return true
	}
	return false
}

func (c CartConfig) validate() error {
	for _, candidate := range storageDrivers {
		if candidate == c.Driver() {
			if strings.TrimSpace(c.StorageKey) == "" {
				return fmt.Errorf("%s must not be empty", EnvCartStorageKey)
			}
			return nil
		}
	}
	return fmt.Errorf("unsupported %s %q", EnvCartStorageDriver, c.StorageDriver)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig signs the shopper session tokens that key each cart.
type SessionConfig struct {
	Secret            string `envconfig:"STOREFRONT_SESSION_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_SESSION_ISSUER" default:"storefront"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_SESSION_EXPIRATION_MINUTES" default:"43200"`
}

// Expiration returns the session token lifetime.
func (s SessionConfig) Expiration() time.Duration {
	if s.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(s.ExpirationMinutes) * time.Minute
}

// CatalogConfig points at the remote REST API that owns products.
type CatalogConfig struct {
	BaseURL        string        `envconfig:"STOREFRONT_CATALOG_BASE_URL" required:"true"`
	APIToken       string        `envconfig:"STOREFRONT_CATALOG_API_TOKEN"`
	Timeout        time.Duration `envconfig:"STOREFRONT_CATALOG_TIMEOUT" default:"10s"`
	SearchDebounce time.Duration `envconfig:"STOREFRONT_CATALOG_SEARCH_DEBOUNCE" default:"300ms"`
	SearchLimit    int           `envconfig:"STOREFRONT_CATALOG_SEARCH_LIMIT" default:"20"`
}

type OrdersConfig struct {
	Path string `envconfig:"STOREFRONT_ORDERS_PATH" default:"/orders"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
}

// PubSubConfig enables publishing cart events for analytics when a topic is set.
type PubSubConfig struct {
	CartEventsTopic string `envconfig:"STOREFRONT_PUBSUB_CART_EVENTS_TOPIC"`
}

// Enabled reports whether cart events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.CartEventsTopic) != ""
}

type MetricsConfig struct {
	Enabled bool `envconfig:"STOREFRONT_METRICS_ENABLED" default:"true"`
}

// RateLimitConfig throttles session minting and checkout per client IP.
// Limits only apply when a redis connection is configured.
type RateLimitConfig struct {
	Window          time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_WINDOW" default:"1m"`
	SessionIPLimit  int           `envconfig:"STOREFRONT_RATE_LIMIT_SESSION_IP" default:"30"`
	CheckoutIPLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_IP" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
