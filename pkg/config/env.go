package config

// EnvPrefix is handed to envconfig; every field carries its full name so the
// prefix only matters for fields without an explicit tag.
const EnvPrefix = "CONTACTBOOK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv          = "CONTACTBOOK_APP_ENV"
	EnvPort            = "CONTACTBOOK_APP_PORT"
	EnvDBDSN           = "CONTACTBOOK_DB_DSN"
	EnvDBHost          = "CONTACTBOOK_DB_HOST"
	EnvDBUser          = "CONTACTBOOK_DB_USER"
	EnvDBName          = "CONTACTBOOK_DB_NAME"
	EnvRedisURL        = "CONTACTBOOK_REDIS_URL"
	EnvRedisAddr       = "CONTACTBOOK_REDIS_ADDR"
	EnvJWTSecret       = "CONTACTBOOK_JWT_SECRET"
	EnvJWTIssuer       = "CONTACTBOOK_JWT_ISSUER"
	EnvJWTExpMins      = "CONTACTBOOK_JWT_EXPIRATION_MINUTES"
	EnvGoogleMapsKey   = "CONTACTBOOK_GOOGLE_MAPS_API_KEY"
	EnvUpstreamTimeout = "CONTACTBOOK_UPSTREAM_TIMEOUT"
	EnvUpstreamRetries = "CONTACTBOOK_UPSTREAM_MAX_RETRIES"
	EnvAPIRateBurst    = "CONTACTBOOK_API_RATE_LIMIT_BURST"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
