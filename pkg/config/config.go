package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	APIRateLimit  APIRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GoogleMaps    GoogleMapsConfig
	ViaCEP        ViaCEPConfig
	Upstream      UpstreamConfig
}

// Load reads the environment and rejects configurations the API cannot start
// with. Every problem is reported, not only the first one.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolve() error {
	dsn, dsnErr := c.DB.resolveDSN()
	if dsnErr == nil {
		c.DB.DSN = dsn
	}

	var err error
	err = multierr.Append(err, dsnErr)
	if c.Redis.URL == "" && c.Redis.Address == "" {
		err = multierr.Append(err, fmt.Errorf("either %s or %s is required", EnvRedisURL, EnvRedisAddr))
	}
	if c.Upstream.MaxRetries < 0 {
		err = multierr.Append(err, fmt.Errorf("%s must not be negative", EnvUpstreamRetries))
	}
	if c.APIRateLimit.RPS > 0 && c.APIRateLimit.Burst < 1 {
		err = multierr.Append(err, fmt.Errorf("%s must be at least 1 when rate limiting is on", EnvAPIRateBurst))
	}
	return err
}

type AppConfig struct {
	Env          string `envconfig:"CONTACTBOOK_APP_ENV" required:"true"`
	Port         string `envconfig:"CONTACTBOOK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CONTACTBOOK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CONTACTBOOK_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"CONTACTBOOK_CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"CONTACTBOOK_DB_DSN"`

	Host     string `envconfig:"CONTACTBOOK_DB_HOST"`
	Port     int    `envconfig:"CONTACTBOOK_DB_PORT" default:"5432"`
	User     string `envconfig:"CONTACTBOOK_DB_USER"`
	Password string `envconfig:"CONTACTBOOK_DB_PASSWORD"`
	Name     string `envconfig:"CONTACTBOOK_DB_NAME"`
	SSLMode  string `envconfig:"CONTACTBOOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CONTACTBOOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CONTACTBOOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONTACTBOOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CONTACTBOOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CONTACTBOOK_REDIS_URL"`
	Address      string        `envconfig:"CONTACTBOOK_REDIS_ADDR"`
	Password     string        `envconfig:"CONTACTBOOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"CONTACTBOOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CONTACTBOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CONTACTBOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CONTACTBOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CONTACTBOOK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CONTACTBOOK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CONTACTBOOK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CONTACTBOOK_JWT_ISSUER" default:"contactbook"`
	ExpirationMinutes int    `envconfig:"CONTACTBOOK_JWT_EXPIRATION_MINUTES" default:"10080"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CONTACTBOOK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CONTACTBOOK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CONTACTBOOK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CONTACTBOOK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CONTACTBOOK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CONTACTBOOK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"CONTACTBOOK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CONTACTBOOK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"CONTACTBOOK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"CONTACTBOOK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"CONTACTBOOK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type APIRateLimitConfig struct {
	RPS     float64       `envconfig:"CONTACTBOOK_API_RATE_LIMIT_RPS" default:"10"`
	Burst   int           `envconfig:"CONTACTBOOK_API_RATE_LIMIT_BURST" default:"20"`
	IdleTTL time.Duration `envconfig:"CONTACTBOOK_API_RATE_LIMIT_IDLE_TTL" default:"15m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CONTACTBOOK_AUTO_MIGRATE" default:"false"`
}

type GoogleMapsConfig struct {
	APIKey  string `envconfig:"CONTACTBOOK_GOOGLE_MAPS_API_KEY" required:"true"`
	BaseURL string `envconfig:"CONTACTBOOK_GOOGLE_MAPS_BASE_URL"`
}

type ViaCEPConfig struct {
	BaseURL string `envconfig:"CONTACTBOOK_VIACEP_BASE_URL"`
}

// UpstreamConfig bounds every call made to the postal and geocoding providers.
type UpstreamConfig struct {
	Timeout    time.Duration `envconfig:"CONTACTBOOK_UPSTREAM_TIMEOUT" default:"8s"`
	MaxRetries int           `envconfig:"CONTACTBOOK_UPSTREAM_MAX_RETRIES" default:"2"`
	Backoff    time.Duration `envconfig:"CONTACTBOOK_UPSTREAM_BACKOFF" default:"200ms"`
}

// resolveDSN prefers the explicit DSN and otherwise assembles a postgres URL
// from the discrete host, user and database variables.
func (d DBConfig) resolveDSN() (string, error) {
	if d.DSN != "" {
		return d.DSN, nil
	}

	parts := map[string]string{EnvDBHost: d.Host, EnvDBUser: d.User, EnvDBName: d.Name}
	var missing []string
	for _, env := range discreteDBEnvVars {
		if parts[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	credentials := url.User(d.User)
	if d.Password != "" {
		credentials = url.UserPassword(d.User, d.Password)
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   credentials,
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   d.Name,
	}
	if d.SSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return dsn.String(), nil
}
