package common

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
)

// fallbackRegion is used when neither the caller nor the environment sets a
// region, so that SDK clients can always be constructed.
const fallbackRegion = "us-east-1"

// DefaultAWSClientProvider is the production implementation of AWSClientProvider.
// It uses the standard AWS SDK v2 credential chain: environment variables (the
// Lambda execution role), shared config files, then instance metadata.
//
// Inject a custom ClientFactory via NewDefaultAWSClientProviderWithFactory to
// replace real SDK clients with fakes in unit tests.
type DefaultAWSClientProvider struct {
	factory ClientFactory
}

// NewDefaultAWSClientProvider returns a provider backed by the real AWS SDK.
func NewDefaultAWSClientProvider() *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: NewClientSet}
}

// NewDefaultAWSClientProviderWithFactory returns a provider that uses f to
// create its ClientSets. Pass a fake factory in tests.
func NewDefaultAWSClientProviderWithFactory(f ClientFactory) *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: f}
}

// LoadProfile loads the AWS SDK config for the named profile and returns a
// ProfileConfig with its account ID resolved via STS.
func (p *DefaultAWSClientProvider) LoadProfile(ctx context.Context, profile, region string) (*ProfileConfig, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS profile %q: %w", profileDisplayName(profile), err)
	}
	if cfg.Region == "" {
		cfg.Region = fallbackRegion
	}

	clients := p.factory(cfg)

	accountID, err := resolveAccountID(ctx, clients.STS)
	if err != nil {
		return nil, fmt.Errorf("resolve account ID for profile %q: %w", profileDisplayName(profile), err)
	}

	return &ProfileConfig{
		ProfileName: profileDisplayName(profile),
		AccountID:   accountID,
		Region:      cfg.Region,
		Config:      cfg,
		Clients:     clients,
	}, nil
}

// GetActiveRegions returns all AWS regions that are enabled (opted-in) for
// the account associated with cfg. It uses EC2 DescribeRegions, which is a
// global call and works correctly regardless of the client's home region.
func (p *DefaultAWSClientProvider) GetActiveRegions(ctx context.Context, cfg *ProfileConfig) ([]string, error) {
	out, err := cfg.Clients.EC2.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		// AllRegions false (default) returns only regions the account has
		// opted into.
		AllRegions: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("describe regions for profile %q: %w", cfg.ProfileName, err)
	}

	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		if r.RegionName != nil {
			regions = append(regions, *r.RegionName)
		}
	}
	return regions, nil
}

// ConfigForRegion returns a copy of cfg.Config with Region set to region.
func (p *DefaultAWSClientProvider) ConfigForRegion(cfg *ProfileConfig, region string) aws.Config {
	regional := cfg.Config.Copy()
	regional.Region = region
	return regional
}

// ClientsForRegion builds a ClientSet for region using the provider's factory.
func (p *DefaultAWSClientProvider) ClientsForRegion(cfg *ProfileConfig, region string) *ClientSet {
	if region == cfg.Region && cfg.Clients != nil {
		return cfg.Clients
	}
	return p.factory(p.ConfigForRegion(cfg, region))
}

// ConfigWithArtifactCredentials returns a copy of cfg that signs requests with
// the temporary credentials CodePipeline hands to a job for its artifact
// store, instead of the function's own role.
func ConfigWithArtifactCredentials(cfg aws.Config, creds models.ArtifactCredentials) aws.Config {
	scoped := cfg.Copy()
	scoped.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		creds.AccessKeyID,
		creds.SecretAccessKey,
		creds.SessionToken,
	))
	return scoped
}

// ---------------------------------------------------------------------------
// Package-private helpers
// ---------------------------------------------------------------------------

// profileDisplayName returns a human-readable profile identifier. An empty
// string (the default profile) is shown as "default".
func profileDisplayName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}

// resolveAccountID calls STS GetCallerIdentity to retrieve the numeric AWS
// account ID for the credentials currently loaded in stsClient.
func resolveAccountID(ctx context.Context, stsClient STSClient) (string, error) {
	out, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("STS GetCallerIdentity: %w", err)
	}
	if out.Account == nil {
		return "", fmt.Errorf("STS GetCallerIdentity returned nil account")
	}
	return aws.ToString(out.Account), nil
}
