// Package config loads bucket settings for the s3bucket command from a YAML
// file and S3BUCKET_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/objectkit/s3bucket-go/s3bucket"
	"github.com/objectkit/s3bucket-go/sigv4"
)

// Config is the file and environment shape of a bucket configuration.
type Config struct {
	BaseURL     string        `yaml:"baseUrl" mapstructure:"baseUrl" validate:"omitempty,url"`
	Bucket      string        `yaml:"bucket" mapstructure:"bucket"`
	PathStyle   bool          `yaml:"pathStyle" mapstructure:"pathStyle"`
	Credentials Credentials   `yaml:"credentials" mapstructure:"credentials"`
	Retries     *int          `yaml:"retries" mapstructure:"retries" validate:"omitempty,gte=0"`
	InitRetry   time.Duration `yaml:"initRetry" mapstructure:"initRetry" validate:"gte=0"`
	Log         Log           `yaml:"log" mapstructure:"log"`
}

// Credentials holds static keys; leave them empty to use the AWS default chain.
type Credentials struct {
	AccessKeyID     string `yaml:"accessKeyId" mapstructure:"accessKeyId" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `yaml:"secretAccessKey" mapstructure:"secretAccessKey" validate:"required_with=AccessKeyID"`
	SessionToken    string `yaml:"sessionToken" mapstructure:"sessionToken"`
	Region          string `yaml:"region" mapstructure:"region"`
}

// Log selects the CLI log level and encoding.
type Log struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// Environment variables consulted for each key, in priority order.
var envBindings = map[string][]string{
	"baseUrl":                     {"S3BUCKET_BASE_URL"},
	"bucket":                      {"S3BUCKET_BUCKET"},
	"pathStyle":                   {"S3BUCKET_PATH_STYLE"},
	"credentials.accessKeyId":     {"S3BUCKET_ACCESS_KEY_ID"},
	"credentials.secretAccessKey": {"S3BUCKET_SECRET_ACCESS_KEY"},
	"credentials.sessionToken":    {"S3BUCKET_SESSION_TOKEN"},
	"credentials.region":          {"S3BUCKET_REGION"},
	"retries":                     {"S3BUCKET_RETRIES"},
	"initRetry":                   {"S3BUCKET_INIT_RETRY"},
	"log.level":                   {"S3BUCKET_LOG_LEVEL"},
	"log.format":                  {"S3BUCKET_LOG_FORMAT"},
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the configuration file at path, if any, and overlays the
// environment. An empty path loads from the environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("pathStyle", false)
	v.SetDefault("initRetry", sigv4.DefaultInitRetry)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("invalid config: %s", verrs.Error())
		}
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Options converts the configuration into bucket options. When no static
// keys are configured, credentials and region come from the AWS default
// chain (environment, shared config files, instance roles).
func (c *Config) Options(ctx context.Context) (*s3bucket.Options, error) {
	creds := sigv4.Options{
		AccessKeyID:     c.Credentials.AccessKeyID,
		SecretAccessKey: c.Credentials.SecretAccessKey,
		SessionToken:    c.Credentials.SessionToken,
		Region:          c.Credentials.Region,
		Retries:         c.Retries,
		InitRetry:       c.InitRetry,
	}

	if creds.AccessKeyID == "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load default AWS config: %w", err)
		}
		creds.Provider = awsCfg.Credentials
		if creds.Region == "" {
			creds.Region = awsCfg.Region
		}
	}

	opts := &s3bucket.Options{
		Bucket:      c.Bucket,
		PathStyle:   c.PathStyle,
		Credentials: creds,
	}
	// Leave BaseURL nil when unset so the bucket reports it as missing.
	if c.BaseURL != "" {
		opts.BaseURL = c.BaseURL
	}
	return opts, nil
}
