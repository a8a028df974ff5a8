package main

import (
	"time"

	"github.com/tinytelemetry/govsnap/internal/graphql"
	"github.com/tinytelemetry/govsnap/internal/model"
)

const (
	defaultEndpoint         = model.DefaultEndpoint
	defaultNamespaceDelay   = model.DefaultNamespaceDelay
	defaultRequestTimeout   = 5 * time.Minute
	defaultProposalPageSize = model.DefaultProposalPageSize
	defaultVotePageSize     = model.DefaultVotePageSize
	defaultOutputDir        = "."
	defaultQueryTimeout     = 5 * time.Minute
	defaultBindHost         = "127.0.0.1"
	defaultAPIPort          = 3000
	defaultS3Region         = "us-east-1"
)

var defaultRetry = graphql.DefaultRetryConfig()

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Endpoint         string        `mapstructure:"endpoint" yaml:"endpoint"`
	Spaces           []string      `mapstructure:"spaces" yaml:"spaces"`
	NamespaceDelay   time.Duration `mapstructure:"namespace-delay" yaml:"namespace-delay"`
	RequestTimeout   time.Duration `mapstructure:"request-timeout" yaml:"request-timeout"`
	ProposalPageSize int           `mapstructure:"proposal-page-size" yaml:"proposal-page-size"`
	VotePageSize     int           `mapstructure:"vote-page-size" yaml:"vote-page-size"`
	RetryMaxAttempts int           `mapstructure:"retry-max-attempts" yaml:"retry-max-attempts"`
	RetryBackoffBase time.Duration `mapstructure:"retry-backoff-base" yaml:"retry-backoff-base"`
	RetryBackoffMax  time.Duration `mapstructure:"retry-backoff-max" yaml:"retry-backoff-max"`

	OutputDir    string        `mapstructure:"output-dir" yaml:"output-dir"`
	DBPath       string        `mapstructure:"db-path" yaml:"db-path"`
	DBSnapshot   bool          `mapstructure:"db-snapshot" yaml:"db-snapshot"`
	QueryTimeout time.Duration `mapstructure:"query-timeout" yaml:"query-timeout"`

	KeepLast       int    `mapstructure:"keep-last" yaml:"keep-last"`
	BucketURL      string `mapstructure:"bucket-url" yaml:"bucket-url"`
	S3Endpoint     string `mapstructure:"s3-endpoint" yaml:"s3-endpoint"`
	S3Region       string `mapstructure:"s3-region" yaml:"s3-region"`
	S3AccessKey    string `mapstructure:"s3-access-key" yaml:"s3-access-key"`
	S3SecretKey    string `mapstructure:"s3-secret-key" yaml:"-"`
	S3SessionToken string `mapstructure:"s3-session-token" yaml:"-"`
	S3UseSSL       bool   `mapstructure:"s3-use-ssl" yaml:"s3-use-ssl"`

	APIEnabled bool   `mapstructure:"api-enabled" yaml:"api-enabled"`
	APIPort    int    `mapstructure:"api-port" yaml:"api-port"`
	APIAddr    string `mapstructure:"api-addr" yaml:"api-addr"`

	ConfigPath string `mapstructure:"-" yaml:"-"` // not from config file
}

func (c appConfig) retryConfig() graphql.RetryConfig {
	return graphql.RetryConfig{
		MaxAttempts:       c.RetryMaxAttempts,
		BackoffBase:       c.RetryBackoffBase,
		BackoffMultiplier: defaultRetry.BackoffMultiplier,
		MaxBackoff:        c.RetryBackoffMax,
	}
}
