package config

const (
	EnvPrefix = "PAYBOARD"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PAYBOARD_DB_DSN"
	EnvDBHost = "PAYBOARD_DB_HOST"
	EnvDBUser = "PAYBOARD_DB_USER"
	EnvDBName = "PAYBOARD_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
