package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ProfileConfig is a resolved AWS configuration with its initialised service
// clients. It is built once per process and passed into the gates; nothing in
// this repository keeps SDK clients in package-level variables.
type ProfileConfig struct {
	// ProfileName is the shared-config profile, or "default".
	ProfileName string

	// AccountID is the resolved AWS account ID (via STS). Empty when the
	// caller skipped resolution.
	AccountID string

	// Region is the home region of this configuration.
	Region string

	// Config is the fully loaded AWS SDK v2 configuration.
	Config aws.Config

	// Clients holds service clients scoped to Region. Use
	// AWSClientProvider.ConfigForRegion with a ClientFactory for per-region
	// clients.
	Clients *ClientSet
}

// AWSClientProvider loads AWS configurations and resolves active regions.
// It is the sole entry point for AWS credential and region management across
// the provider layer.
type AWSClientProvider interface {
	// LoadProfile returns a ProfileConfig for the named profile and region.
	// Empty strings select the default credential chain and region.
	LoadProfile(ctx context.Context, profile, region string) (*ProfileConfig, error)

	// GetActiveRegions returns all regions enabled for the account of cfg.
	GetActiveRegions(ctx context.Context, cfg *ProfileConfig) ([]string, error)

	// ConfigForRegion clones cfg with the target region set.
	ConfigForRegion(cfg *ProfileConfig, region string) aws.Config

	// ClientsForRegion returns a ClientSet scoped to region.
	ClientsForRegion(cfg *ProfileConfig, region string) *ClientSet
}
