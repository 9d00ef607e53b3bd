package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is handed to envconfig; every tag below carries the full name.
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	RateLimit    RateLimitConfig
	Cache        CacheConfig
	ChitChats    ChitChatsConfig
	Email        EmailConfig
	Storage      StorageConfig
	Store        StoreConfig
	SEO          SEOConfig
	Cron         CronConfig
	Undo         UndoConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
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
	SlowQuery       time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
	Audience          string `envconfig:"STOREFRONT_JWT_AUDIENCE" default:"storefront-admin"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
}

type RateLimitConfig struct {
	PublicWindow time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_PUBLIC_WINDOW" default:"1m"`
	PublicLimit  int           `envconfig:"STOREFRONT_RATE_LIMIT_PUBLIC_LIMIT" default:"120"`
}

type CacheConfig struct {
	SettingsTTL time.Duration `envconfig:"STOREFRONT_CACHE_SETTINGS_TTL" default:"10m"`
}

type ChitChatsConfig struct {
	BaseURL     string        `envconfig:"STOREFRONT_CHITCHATS_BASE_URL" default:"https://chitchats.com/api/v1"`
	ClientID    string        `envconfig:"STOREFRONT_CHITCHATS_CLIENT_ID"`
	AccessToken string        `envconfig:"STOREFRONT_CHITCHATS_ACCESS_TOKEN"`
	Timeout     time.Duration `envconfig:"STOREFRONT_CHITCHATS_TIMEOUT" default:"20s"`
}

// Enabled reports whether carrier credentials are present.
func (c ChitChatsConfig) Enabled() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.AccessToken) != ""
}

type EmailConfig struct {
	BaseURL     string `envconfig:"STOREFRONT_EMAIL_BASE_URL" default:"https://api.resend.com"`
	APIKey      string `envconfig:"STOREFRONT_EMAIL_API_KEY"`
	FromAddress string `envconfig:"STOREFRONT_EMAIL_FROM" default:"orders@example.com"`
	StoreName   string `envconfig:"STOREFRONT_STORE_NAME" default:"Storefront"`
}

type StorageConfig struct {
	BaseURL     string `envconfig:"STOREFRONT_STORAGE_BASE_URL"`
	ServiceKey  string `envconfig:"STOREFRONT_STORAGE_SERVICE_KEY"`
	Bucket      string `envconfig:"STOREFRONT_STORAGE_BUCKET" default:"images"`
	MaxUploadMB int    `envconfig:"STOREFRONT_MAX_UPLOAD_MB" default:"10"`
}

// MaxUploadBytes converts the configured limit to bytes.
func (s StorageConfig) MaxUploadBytes() int64 {
	if s.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(s.MaxUploadMB) << 20
}

type StoreConfig struct {
	PublicURL   string `envconfig:"STOREFRONT_PUBLIC_URL" default:"http://localhost:5173"`
	// ScanBaseURL is the host serving /qr/{code}; it defaults to PublicURL.
	ScanBaseURL string `envconfig:"STOREFRONT_QR_SCAN_BASE_URL"`
}

// QRScanBase returns the origin printed QR codes point at.
func (s StoreConfig) QRScanBase() string {
	if base := strings.TrimSpace(s.ScanBaseURL); base != "" {
		return base
	}
	return s.PublicURL
}

type SEOConfig struct {
	SitemapURL    string   `envconfig:"STOREFRONT_SEO_SITEMAP_URL"`
	PingEndpoints []string `envconfig:"STOREFRONT_SEO_PING_ENDPOINTS" default:"https://www.google.com/ping?sitemap=,https://www.bing.com/ping?sitemap="`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"5m"`
	JobTimeout        time.Duration `envconfig:"STOREFRONT_CRON_JOB_TIMEOUT" default:"2m"`
	AbandonedAfter    time.Duration `envconfig:"STOREFRONT_CART_ABANDONED_AFTER" default:"1h"`
	RecoveryBatch     int           `envconfig:"STOREFRONT_CART_RECOVERY_BATCH" default:"50"`
	EmailLogRetention time.Duration `envconfig:"STOREFRONT_EMAIL_LOG_RETENTION" default:"2160h"`
}

type UndoConfig struct {
	DeleteDelay time.Duration `envconfig:"STOREFRONT_UNDO_DELETE_DELAY" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
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
