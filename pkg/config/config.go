package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	APIRateLimit  APIRateLimitConfig
	Orders        OrdersConfig
	Exports       ExportsConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FREIGHTDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"FREIGHTDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FREIGHTDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FREIGHTDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FREIGHTDESK_DB_DSN"`
	Driver string `envconfig:"FREIGHTDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FREIGHTDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"FREIGHTDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FREIGHTDESK_DB_USER"`
	LegacyPassword string `envconfig:"FREIGHTDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"FREIGHTDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"FREIGHTDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FREIGHTDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FREIGHTDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FREIGHTDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FREIGHTDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FREIGHTDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FREIGHTDESK_REDIS_ADDR"`
	Password     string        `envconfig:"FREIGHTDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"FREIGHTDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FREIGHTDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FREIGHTDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FREIGHTDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FREIGHTDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FREIGHTDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FREIGHTDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FREIGHTDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FREIGHTDESK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FREIGHTDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FREIGHTDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FREIGHTDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FREIGHTDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FREIGHTDESK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"FREIGHTDESK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"FREIGHTDESK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"FREIGHTDESK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type APIRateLimitConfig struct {
	Window    time.Duration `envconfig:"FREIGHTDESK_API_RATE_LIMIT_WINDOW" default:"24h"`
	UserLimit int           `envconfig:"FREIGHTDESK_API_RATE_LIMIT_USER_LIMIT" default:"1000"`
}

type OrdersConfig struct {
	// FailureThreshold is the failed-order count at which a profile is
	// automatically deactivated.
	FailureThreshold int `envconfig:"FREIGHTDESK_ORDERS_FAILURE_THRESHOLD" default:"3"`
}

type ExportsConfig struct {
	Dir string `envconfig:"FREIGHTDESK_EXPORTS_DIR" default:"/var/lib/freightdesk/exports"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FREIGHTDESK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FREIGHTDESK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FREIGHTDESK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"FREIGHTDESK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FREIGHTDESK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"FREIGHTDESK_PUBSUB_DOMAIN_TOPIC" default:"fd-domain-events"`
	DomainSubscription string `envconfig:"FREIGHTDESK_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FREIGHTDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FREIGHTDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FREIGHTDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
