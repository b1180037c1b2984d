package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Sheets       SheetsConfig
	Discord      DiscordConfig
	Cache        CacheConfig
	Outbox       OutboxConfig
	Admin        AdminConfig
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
	Env          string `envconfig:"PAYBOARD_APP_ENV" required:"true"`
	Port         string `envconfig:"PAYBOARD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PAYBOARD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAYBOARD_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"PAYBOARD_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PAYBOARD_DB_DSN"`
	Driver string `envconfig:"PAYBOARD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PAYBOARD_DB_HOST"`
	LegacyPort     int    `envconfig:"PAYBOARD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAYBOARD_DB_USER"`
	LegacyPassword string `envconfig:"PAYBOARD_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAYBOARD_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAYBOARD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAYBOARD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAYBOARD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAYBOARD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAYBOARD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYBOARD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PAYBOARD_REDIS_ADDR"`
	Password     string        `envconfig:"PAYBOARD_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAYBOARD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAYBOARD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAYBOARD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAYBOARD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYBOARD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAYBOARD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PAYBOARD_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PAYBOARD_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PAYBOARD_JWT_EXPIRATION_MINUTES" default:"720"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PAYBOARD_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PAYBOARD_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PAYBOARD_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PAYBOARD_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PAYBOARD_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PAYBOARD_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PAYBOARD_AUTO_MIGRATE" default:"false"`
}

// SheetsConfig points the row store at the backing spreadsheet. Exactly one
// of CredentialsJSON / CredentialsFile must be set.
type SheetsConfig struct {
	SpreadsheetID   string `envconfig:"PAYBOARD_SHEETS_SPREADSHEET_ID" required:"true"`
	CredentialsJSON string `envconfig:"PAYBOARD_SHEETS_CREDENTIALS_JSON"`
	CredentialsFile string `envconfig:"PAYBOARD_SHEETS_CREDENTIALS_FILE"`
}

type DiscordConfig struct {
	ClientID     string `envconfig:"PAYBOARD_DISCORD_CLIENT_ID"`
	ClientSecret string `envconfig:"PAYBOARD_DISCORD_CLIENT_SECRET"`
	RedirectURI  string `envconfig:"PAYBOARD_DISCORD_REDIRECT_URI"`
	WebhookURL   string `envconfig:"PAYBOARD_DISCORD_WEBHOOK_URL"`
}

type CacheConfig struct {
	SellerInfoTTL  time.Duration `envconfig:"PAYBOARD_CACHE_SELLER_INFO_TTL" default:"10m"`
	UserRoleTTL    time.Duration `envconfig:"PAYBOARD_CACHE_USER_ROLE_TTL" default:"5m"`
	PaymentListTTL time.Duration `envconfig:"PAYBOARD_CACHE_PAYMENT_LIST_TTL" default:"1m"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PAYBOARD_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PAYBOARD_OUTBOX_PUBLISH_POLL_MS" default:"2000"`
	MaxAttempts    int `envconfig:"PAYBOARD_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// AdminConfig carries the discord ids that are promoted to Admin on first login.
type AdminConfig struct {
	AllowList []string `envconfig:"PAYBOARD_ADMIN_ALLOW_LIST"`
}

func (a AdminConfig) IsAllowListed(discordID string) bool {
	for _, id := range a.AllowList {
		if strings.TrimSpace(id) == discordID {
			return true
		}
	}
	return false
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
