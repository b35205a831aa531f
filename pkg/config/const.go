package config

const (
	EnvPrefix = "FREIGHTDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "FREIGHTDESK_DB_DSN"
	EnvDBHost = "FREIGHTDESK_DB_HOST"
	EnvDBUser = "FREIGHTDESK_DB_USER"
	EnvDBName = "FREIGHTDESK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
