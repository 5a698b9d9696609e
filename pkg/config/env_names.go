package config

// EnvPrefix namespaces every environment variable consumed by the platform.
const EnvPrefix = "TEXNOMART"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside the envconfig tags (tests,
// error messages).
const (
	EnvAppEnv         = "TEXNOMART_APP_ENV"
	EnvPort           = "TEXNOMART_APP_PORT"
	EnvDBDSN          = "TEXNOMART_DB_DSN"
	EnvDBHost         = "TEXNOMART_DB_HOST"
	EnvDBUser         = "TEXNOMART_DB_USER"
	EnvDBName         = "TEXNOMART_DB_NAME"
	EnvRedisURL       = "TEXNOMART_REDIS_URL"
	EnvJWTSecret      = "TEXNOMART_JWT_SECRET"
	EnvJWTIssuer      = "TEXNOMART_JWT_ISSUER"
	EnvStorageBaseURL = "TEXNOMART_STORAGE_BASE_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
