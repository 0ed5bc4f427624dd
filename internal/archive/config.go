package archive

import "time"

// Config contains the options used to reach the remote archive
// which hosts the daily metadata items.
type Config struct {
	// BaseURL of the archive, metadata and downloads are both
	// resolved relative to this
	BaseURL string `yaml:"base_url" env:"ARCHIVE_BASE_URL" env-default:"https://archive.org" validate:"required,url"`

	// Session cookies of a logged in archive user. Both must be
	// provided for them to be sent.
	LoggedInUser string `yaml:"logged_in_user" env:"ARCHIVE_LOGGED_IN_USER"`
	LoggedInSig  string `yaml:"logged_in_sig" env:"ARCHIVE_LOGGED_IN_SIG"`

	// S3-style keys, sent as a 'LOW' authorization header when
	// both are provided.
	AccessKey string `yaml:"access_key" env:"ARCHIVE_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"ARCHIVE_SECRET_KEY"`

	// RequestsPerSecond limits the rate at which requests are started
	// across all workers. Zero disables the limit.
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"ARCHIVE_REQUESTS_PER_SECOND" env-default:"8" validate:"gte=0"`
	Burst             int     `yaml:"burst" env:"ARCHIVE_BURST" env-default:"24" validate:"gte=1"`

	// HTTPRetries is the number of times a request that failed at the
	// connection level (or with a 5xx/429 response) is re-sent before
	// the failure is reported.
	HTTPRetries int `yaml:"http_retries" env:"ARCHIVE_HTTP_RETRIES" env-default:"2" validate:"gte=0"`

	// Timeout bounds an entire request, including reading the body. Zero
	// means no timeout, which is usually desired for large shards.
	Timeout time.Duration `yaml:"timeout" env:"ARCHIVE_TIMEOUT" env-default:"0s"`
}

const redacted = "<redacted>"

// Redacted returns a copy of the config with the session signature and
// secret key masked, suitable for logging.
func (config Config) Redacted() Config {
	if config.LoggedInSig != "" {
		config.LoggedInSig = redacted
	}
	if config.SecretKey != "" {
		config.SecretKey = redacted
	}

	return config
}
