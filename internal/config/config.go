// Package config loads the runtime configuration of the guardrails binary.
//
// Values come from built-in defaults, an optional config file and
// GUARDRAILS_* environment variables, in increasing order of precedence.
// Lambda deployments normally set only environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	awsartifact "github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/artifact"
)

// EnvPrefix is prepended to every environment variable, e.g.
// GUARDRAILS_LOG_LEVEL for log.level.
const EnvPrefix = "GUARDRAILS"

// Config is the top-level runtime configuration. Guardrail policy data
// (approved CIDRs, weights, thresholds) lives in the policy file that
// Policy.File points at, not here.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	AWS     AWSConfig     `mapstructure:"aws"`
	Report  ReportConfig  `mapstructure:"report"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Policy  PolicyConfig  `mapstructure:"policy"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is a zerolog level name: debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Format is "json" or "console".
	Format string `mapstructure:"format"`
}

// AWSConfig selects credentials and regions.
type AWSConfig struct {
	// Profile is the shared config profile. Empty uses the default chain,
	// which is what Lambda needs.
	Profile string `mapstructure:"profile"`

	// Region overrides the profile or environment region.
	Region string `mapstructure:"region"`

	// Regions limits the security group scan. Empty scans every region
	// enabled for the account.
	Regions []string `mapstructure:"regions"`
}

// ReportConfig controls diagnostic output.
type ReportConfig struct {
	// JSON prints the nested control report and summary to stdout.
	JSON bool `mapstructure:"json"`
}

// MetricsConfig controls CloudWatch metric publication.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// UploadConfig controls server-side encryption of routed templates.
type UploadConfig struct {
	// SSE is "", "AES256" or "aws:kms".
	SSE      string `mapstructure:"sse"`
	KMSKeyID string `mapstructure:"kms_key_id"`
}

// SSEConfig converts the upload settings for the artifact store.
func (u UploadConfig) SSEConfig() awsartifact.SSEConfig {
	return awsartifact.SSEConfig{Algorithm: u.SSE, KMSKeyID: u.KMSKeyID}
}

// PolicyConfig points at the guardrail policy file.
type PolicyConfig struct {
	// File is a YAML policy path. Empty uses the built-in policy.
	File string `mapstructure:"file"`
}

// defaults registers every key so that environment overrides are picked up
// by Unmarshal.
var defaults = map[string]any{
	"log.level":         "info",
	"log.format":        "json",
	"aws.profile":       "",
	"aws.region":        "",
	"aws.regions":       []string{},
	"report.json":       true,
	"metrics.enabled":   false,
	"metrics.namespace": "SecGuardrails",
	"upload.sse":        "",
	"upload.kms_key_id": "",
	"policy.file":       "",
}

// Load reads the configuration. path may be empty, in which case only
// defaults and environment variables apply. A path that does not exist is an
// error.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}
	if err := c.Upload.SSEConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		errs = append(errs, errors.New("metrics.namespace must be set when metrics are enabled"))
	}
	return errors.Join(errs...)
}
