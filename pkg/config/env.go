package config

import "github.com/angelmondragon/storefront/pkg/env"

const (
	EnvPrefix = env.Prefix

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StorageDriverMemory   = "memory"
	StorageDriverRedis    = "redis"
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
	StorageDriverNone     = "none"

	DefaultSQLiteDSN = "file:storefront.db?cache=shared"
)

const (
	EnvAppEnv            = "STOREFRONT_APP_ENV"
	EnvPort              = "STOREFRONT_APP_PORT"
	EnvCartStorageDriver = "STOREFRONT_CART_STORAGE_DRIVER"
	EnvCartStorageKey    = "STOREFRONT_CART_STORAGE_KEY"
	EnvDBDSN             = "STOREFRONT_DB_DSN"
	EnvDBHost            = "STOREFRONT_DB_HOST"
	EnvDBUser            = "STOREFRONT_DB_USER"
	EnvDBName            = "STOREFRONT_DB_NAME"
	EnvRedisURL          = "STOREFRONT_REDIS_URL"
	EnvRedisAddr         = "STOREFRONT_REDIS_ADDR"
	EnvSessionSecret     = "STOREFRONT_SESSION_SECRET"
	EnvCatalogBaseURL    = "STOREFRONT_CATALOG_BASE_URL"
	EnvCartEventsTopic   = "STOREFRONT_PUBSUB_CART_EVENTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

var storageDrivers = []string{
	StorageDriverMemory,
	StorageDriverRedis,
	StorageDriverPostgres,
	StorageDriverSQLite,
	StorageDriverNone,
}
