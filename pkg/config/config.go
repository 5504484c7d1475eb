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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Square        SquareConfig
	Mail          MailConfig
	Outbox        OutboxConfig
	Cron          CronConfig
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
	Env          string `envconfig:"BOTICA_APP_ENV" required:"true"`
	Port         string `envconfig:"BOTICA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BOTICA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BOTICA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BOTICA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BOTICA_DB_DSN"`
	Driver string `envconfig:"BOTICA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BOTICA_DB_HOST"`
	LegacyPort     int    `envconfig:"BOTICA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOTICA_DB_USER"`
	LegacyPassword string `envconfig:"BOTICA_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOTICA_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOTICA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOTICA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOTICA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOTICA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOTICA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOTICA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BOTICA_REDIS_ADDR"`
	Password     string        `envconfig:"BOTICA_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOTICA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOTICA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOTICA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOTICA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOTICA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOTICA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BOTICA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BOTICA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"BOTICA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"BOTICA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BOTICA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BOTICA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BOTICA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BOTICA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BOTICA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BOTICA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BOTICA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BOTICA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BOTICA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BOTICA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BOTICA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool   `envconfig:"BOTICA_AUTO_MIGRATE" default:"false"`
	GCSAccessMode string `envconfig:"BOTICA_GCS_ACCESS_MODE" default:"private"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"BOTICA_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BOTICA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"BOTICA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BOTICA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"BOTICA_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"BOTICA_GCS_UPLOAD_URL_EXPIRY" required:"true"`
	DownloadURLExpiry time.Duration `envconfig:"BOTICA_GCS_DOWNLOAD_URL_EXPIRY" required:"true"`
	MaxUploadMB       int           `envconfig:"BOTICA_GCS_MAX_UPLOAD_MB" default:"20"`
}

type PubSubConfig struct {
	DomainTopic               string `envconfig:"BOTICA_PUBSUB_DOMAIN_TOPIC" required:"true"`
	NotificationsSubscription string `envconfig:"BOTICA_PUBSUB_NOTIFICATIONS_SUBSCRIPTION" required:"true"`
	AnalyticsSubscription     string `envconfig:"BOTICA_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset              string `envconfig:"BOTICA_BIGQUERY_DATASET" default:"botica"`
	OrderEventsTable     string `envconfig:"BOTICA_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
	InventoryEventsTable string `envconfig:"BOTICA_BIGQUERY_INVENTORY_EVENTS_TABLE" default:"inventory_events"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"BOTICA_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"BOTICA_SQUARE_WEBHOOK_SECRET"`
	// WebhookURL is the notification URL registered in the Square dashboard.
	// The webhook HMAC covers it, so it must match exactly.
	WebhookURL string `envconfig:"BOTICA_SQUARE_WEBHOOK_URL"`
	LocationID string `envconfig:"BOTICA_SQUARE_LOCATION_ID"`
	Env        string `envconfig:"BOTICA_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type MailConfig struct {
	APIKey    string `envconfig:"BOTICA_MAIL_API_KEY"`
	BaseURL   string `envconfig:"BOTICA_MAIL_BASE_URL" default:"https://api.sendgrid.com"`
	FromEmail string `envconfig:"BOTICA_MAIL_FROM_EMAIL" default:"no-reply@botica.example"`
	FromName  string `envconfig:"BOTICA_MAIL_FROM_NAME" default:"Botica"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BOTICA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BOTICA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BOTICA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	PollInterval    time.Duration `envconfig:"BOTICA_CRON_POLL_INTERVAL" default:"1m"`
	LockTTL         time.Duration `envconfig:"BOTICA_CRON_LOCK_TTL" default:"5m"`
	OrderPendingTTL time.Duration `envconfig:"BOTICA_CRON_ORDER_PENDING_TTL" default:"72h"`
	LowStockEvery   time.Duration `envconfig:"BOTICA_CRON_LOW_STOCK_EVERY" default:"24h"`
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
