package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "BOTICA"

// Recognized values for BOTICA_APP_ENV.
const (
	AppEnvDev     = "dev"
	AppEnvStaging = "staging"
	AppEnvProd    = "production"
)

// Environment variable names referenced outside struct tags (DSN assembly,
// error messages, tests).
const (
	EnvAppEnv                 = "BOTICA_APP_ENV"
	EnvPort                   = "BOTICA_APP_PORT"
	EnvDBDSN                  = "BOTICA_DB_DSN"
	EnvDBHost                 = "BOTICA_DB_HOST"
	EnvDBUser                 = "BOTICA_DB_USER"
	EnvDBName                 = "BOTICA_DB_NAME"
	EnvRedisURL               = "BOTICA_REDIS_URL"
	EnvJWTSecret              = "BOTICA_JWT_SECRET"
	EnvJWTIssuer              = "BOTICA_JWT_ISSUER"
	EnvJWTExpMins             = "BOTICA_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "BOTICA_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "BOTICA_GCP_PROJECT_ID"
	EnvGCSBucket              = "BOTICA_GCS_BUCKET_NAME"
	EnvGCSUploadExpiry        = "BOTICA_GCS_UPLOAD_URL_EXPIRY"
	EnvGCSDownloadExpiry      = "BOTICA_GCS_DOWNLOAD_URL_EXPIRY"
	EnvPubSubDomainTopic      = "BOTICA_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubNotificationsSub = "BOTICA_PUBSUB_NOTIFICATIONS_SUBSCRIPTION"
	EnvPubSubAnalyticsSub     = "BOTICA_PUBSUB_ANALYTICS_SUBSCRIPTION"
)

// legacyDBEnvVars are required together when BOTICA_DB_DSN is absent.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
