package filestore

import "time"

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// BuildIDPlaceholder in an object key is replaced by the build ID.
const BuildIDPlaceholder = "{build_id}"

// Config holds all settings needed to publish diagrams to object storage.
type Config struct {
	// Enabled turns publishing on for the generate command.
	Enabled bool `yaml:"enabled" env:"MODELERD_PUBLISH_ENABLED"`

	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider `yaml:"provider" env:"MODELERD_PUBLISH_PROVIDER" env-default:"minio" validate:"required_if=Enabled true,omitempty,oneof=minio"`

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string `yaml:"endpoint" env:"MODELERD_PUBLISH_ENDPOINT" validate:"required_if=Enabled true"`

	// AccessKey is the access key ID (MinIO / S3 style).
	AccessKey string `yaml:"access_key" env:"MODELERD_PUBLISH_ACCESS_KEY"`

	// SecretKey is the secret access key.
	SecretKey string `yaml:"secret_key" env:"MODELERD_PUBLISH_SECRET_KEY"`

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool `yaml:"use_ssl" env:"MODELERD_PUBLISH_USE_SSL"`

	// Region is used by region-aware backends (e.g. AWS S3).
	// Leave empty for MinIO.
	Region string `yaml:"region" env:"MODELERD_PUBLISH_REGION"`

	// Bucket receives published diagrams. It is created on first use.
	Bucket string `yaml:"bucket" env:"MODELERD_PUBLISH_BUCKET" env-default:"erd" validate:"required_if=Enabled true"`

	// Key is the object key, optionally containing BuildIDPlaceholder.
	Key string `yaml:"key" env:"MODELERD_PUBLISH_KEY" env-default:"diagrams/{build_id}.mmd"`

	// URLTTL is the lifetime of the presigned download URL.
	URLTTL time.Duration `yaml:"url_ttl" env:"MODELERD_PUBLISH_URL_TTL" env-default:"24h"`
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    false,
		Bucket:    "erd",
		Key:       "diagrams/" + BuildIDPlaceholder + ".mmd",
		URLTTL:    24 * time.Hour,
	}
}
