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
	FeatureFlags  FeatureFlagsConfig
	Storage       StorageConfig
	Checkout      CheckoutConfig
	Click         ClickConfig
	Payme         PaymeConfig
	Uzcard        UzcardConfig
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
	Env          string `envconfig:"TEXNOMART_APP_ENV" required:"true"`
	Port         string `envconfig:"TEXNOMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TEXNOMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TEXNOMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TEXNOMART_DB_DSN"`
	Driver string `envconfig:"TEXNOMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TEXNOMART_DB_HOST"`
	LegacyPort     int    `envconfig:"TEXNOMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TEXNOMART_DB_USER"`
	LegacyPassword string `envconfig:"TEXNOMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"TEXNOMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"TEXNOMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TEXNOMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TEXNOMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TEXNOMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TEXNOMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TEXNOMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TEXNOMART_REDIS_ADDR"`
	Password     string        `envconfig:"TEXNOMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"TEXNOMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TEXNOMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TEXNOMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TEXNOMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TEXNOMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TEXNOMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TEXNOMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TEXNOMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TEXNOMART_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"TEXNOMART_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the server-side session lifetime.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TEXNOMART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TEXNOMART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TEXNOMART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TEXNOMART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TEXNOMART_ARGON_KEY_LEN" default:"32"`
}

// AuthRateLimitConfig bounds repeated register and login attempts per phone
// number within a fixed window.
type AuthRateLimitConfig struct {
	LoginWindow    time.Duration `envconfig:"TEXNOMART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginLimit     int64         `envconfig:"TEXNOMART_AUTH_RATE_LIMIT_LOGIN_LIMIT" default:"10"`
	RegisterWindow time.Duration `envconfig:"TEXNOMART_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterLimit  int64         `envconfig:"TEXNOMART_AUTH_RATE_LIMIT_REGISTER_LIMIT" default:"3"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TEXNOMART_AUTO_MIGRATE" default:"false"`
}

// StorageConfig points at the S3-compatible bucket API used for receipt files.
type StorageConfig struct {
	BaseURL       string        `envconfig:"TEXNOMART_STORAGE_BASE_URL" required:"true"`
	APIKey        string        `envconfig:"TEXNOMART_STORAGE_API_KEY"`
	ReceiptBucket string        `envconfig:"TEXNOMART_STORAGE_RECEIPT_BUCKET" default:"receipts"`
	Timeout       time.Duration `envconfig:"TEXNOMART_STORAGE_TIMEOUT" default:"15s"`
}

type CheckoutConfig struct {
	// The original flow had no deadline on the persistence or upload round
	// trips; both now run under this timeout.
	PersistTimeout  time.Duration `envconfig:"TEXNOMART_CHECKOUT_PERSIST_TIMEOUT" default:"15s"`
	MaxReceiptBytes int64         `envconfig:"TEXNOMART_CHECKOUT_MAX_RECEIPT_BYTES" default:"5242880"`
}

type ClickConfig struct {
	MerchantID     string `envconfig:"TEXNOMART_CLICK_MERCHANT_ID"`
	MerchantUserID string `envconfig:"TEXNOMART_CLICK_MERCHANT_USER_ID"`
	ServiceID      string `envconfig:"TEXNOMART_CLICK_SERVICE_ID"`
	PayURL         string `envconfig:"TEXNOMART_CLICK_PAY_URL" default:"https://my.click.uz/services/pay"`
	ReturnURL      string `envconfig:"TEXNOMART_CLICK_RETURN_URL"`
}

type PaymeConfig struct {
	MerchantID string `envconfig:"TEXNOMART_PAYME_MERCHANT_ID"`
	TestMode   bool   `envconfig:"TEXNOMART_PAYME_TEST_MODE" default:"true"`
	TestURL    string `envconfig:"TEXNOMART_PAYME_TEST_URL" default:"https://checkout.test.paycom.uz"`
	ProdURL    string `envconfig:"TEXNOMART_PAYME_PROD_URL" default:"https://checkout.paycom.uz"`
	ReturnURL  string `envconfig:"TEXNOMART_PAYME_RETURN_URL"`
}

// BaseURL selects the checkout host for the configured mode.
func (p PaymeConfig) BaseURL() string {
	if p.TestMode {
		return p.TestURL
	}
	return p.ProdURL
}

type UzcardConfig struct {
	TerminalID   string        `envconfig:"TEXNOMART_UZCARD_TERMINAL_ID"`
	APIKey       string        `envconfig:"TEXNOMART_UZCARD_API_KEY"`
	MerchantName string        `envconfig:"TEXNOMART_UZCARD_MERCHANT_NAME" default:"Texnomart"`
	APIURL       string        `envconfig:"TEXNOMART_UZCARD_API_URL" default:"https://test.uzcard.uz/api"`
	ReturnURL    string        `envconfig:"TEXNOMART_UZCARD_RETURN_URL"`
	Timeout      time.Duration `envconfig:"TEXNOMART_UZCARD_TIMEOUT" default:"15s"`
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
