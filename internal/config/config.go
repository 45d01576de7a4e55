// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix, e.g. ESTATEIN_PORT.
const Prefix = "estatein"

type Config struct {
	// Port is the HTTP listen port.
	Port int `default:"8080"`

	// DevMode switches logging to the human readable console writer at trace level.
	DevMode bool `split_words:"true"`

	// LogFile, when set, receives a copy of every log line.
	LogFile string `split_words:"true"`

	// DatabaseURL is the SQLite DSN for the document store. When empty the
	// in-memory store is used and all data is lost on restart.
	DatabaseURL string `split_words:"true" default:"file:estatein.db?_pragma=busy_timeout(5000)"`

	// AdminUsername and AdminPassword are the single credential pair that
	// unlocks the dashboard.
	AdminUsername string `split_words:"true" default:"admin"`
	AdminPassword string `split_words:"true" default:"123456"`

	// SessionIdleTimeout expires sessions after inactivity. Zero keeps a
	// session until logout.
	SessionIdleTimeout time.Duration `split_words:"true" default:"0s"`

	// RedisURL enables the Redis session store when set. See
	// https://pkg.go.dev/github.com/redis/go-redis/v9#ParseURL for the format.
	RedisURL string `split_words:"true"`

	// Media upload target. Images are written with PutObject and served from
	// MediaPublicBaseURL.
	MediaBucket        string `split_words:"true"`
	MediaRegion        string `split_words:"true" default:"us-east-1"`
	MediaEndpoint      string `split_words:"true"`
	MediaPublicBaseURL string `split_words:"true"`
	AWSAccessKey       string `envconfig:"AWS_ACCESS_KEY"`
	AWSSecretKey       string `envconfig:"AWS_SECRET_KEY"`

	// MediaDir holds uploaded images when no bucket is configured. They are
	// served under /media/.
	MediaDir string `split_words:"true" default:"data/media"`

	// MediaProfiles lists the upload profiles accepted by the uploader.
	MediaProfiles []string `split_words:"true" default:"unsigned_upload"`

	// ChatAPIKey enables the LLM fallback of the dashboard assistant. When
	// empty only the keyword table answers.
	ChatAPIKey  string `split_words:"true"`
	ChatBaseURL string `split_words:"true" default:"https://openrouter.ai/api/v1"`
	ChatModel   string `split_words:"true" default:"deepseek/deepseek-chat"`

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `split_words:"true" default:"*"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `split_words:"true" default:"15s"`

	// EventBufferSize is the capacity of the change event bus.
	EventBufferSize int `split_words:"true" default:"256"`
}

// Parse reads an optional .env file and then the process environment.
func Parse() (*Config, error) {
	_ = godotenv.Load()

	var conf Config
	if err := envconfig.Process(Prefix, &conf); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return &conf, nil
}

// MediaEnabled reports whether an upload target is configured.
func (c *Config) MediaEnabled() bool {
	return c.MediaBucket != "" && c.MediaPublicBaseURL != ""
}
