package filestore

import "github.com/koustreak/sqlstage/internal/errs"

// Provider identifies the storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// Config holds the settings to connect to a storage backend.
type Config struct {
	Provider  Provider `yaml:"provider"`
	Endpoint  string   `yaml:"endpoint"`
	AccessKey string   `yaml:"access_key"`
	SecretKey string   `yaml:"secret_key"`
	UseSSL    bool     `yaml:"use_ssl"`

	// Region is used by region-aware backends. Leave empty for MinIO.
	Region string `yaml:"region"`
}

// DefaultConfig returns a local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}
}

// Validate checks that the config can be used to connect.
func (c *Config) Validate() error {
	if c.Provider != ProviderMinIO {
		return errs.Newf(errs.ErrKindInvalidInput, "unsupported filestore provider %q", c.Provider)
	}
	if c.Endpoint == "" {
		return errs.New(errs.ErrKindInvalidInput, "filestore endpoint is required")
	}
	return nil
}
