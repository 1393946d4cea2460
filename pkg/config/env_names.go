package config

// EnvPrefix namespaces every environment variable consumed by envconfig.
const EnvPrefix = "STOREPULSE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "STOREPULSE_DB_DSN"
	EnvDBHost = "STOREPULSE_DB_HOST"
	EnvDBUser = "STOREPULSE_DB_USER"
	EnvDBName = "STOREPULSE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
