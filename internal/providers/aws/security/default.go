package awssecurity

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/common"
)

// DefaultStackCollector is the production StackCollector. Stack, bucket and
// deletion calls use the profile's home-region clients; security groups are
// collected region by region with region-scoped clients.
type DefaultStackCollector struct {
	home     *common.ClientSet
	regional regionalClients
}

// NewDefaultStackCollector returns a DefaultStackCollector wired to the
// profile's clients and the provider's per-region factory.
func NewDefaultStackCollector(profile *common.ProfileConfig, provider common.AWSClientProvider) *DefaultStackCollector {
	return &DefaultStackCollector{
		home: profile.Clients,
		regional: func(region string) *common.ClientSet {
			return provider.ClientsForRegion(profile, region)
		},
	}
}

// newStackCollectorWithClients returns a collector using fixed clients, for
// tests.
func newStackCollectorWithClients(home *common.ClientSet, regional regionalClients) *DefaultStackCollector {
	return &DefaultStackCollector{home: home, regional: regional}
}

// StackState implements StackCollector.
func (c *DefaultStackCollector) StackState(ctx context.Context, stack string) (StackState, error) {
	return describeStackState(ctx, c.home.CloudFormation, stack)
}

// CollectSecurityGroups implements StackCollector. Regions are visited
// sequentially and the first failure aborts collection.
func (c *DefaultStackCollector) CollectSecurityGroups(ctx context.Context, stack string, regions []string) ([]models.SecurityGroupSnapshot, error) {
	logger := zerolog.Ctx(ctx)

	var all []models.SecurityGroupSnapshot
	for _, region := range regions {
		groups, err := collectSecurityGroups(ctx, c.regional(region).EC2, region, stack)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("region", region).Int("security_groups", len(groups)).Msg("collected security groups")
		all = append(all, groups...)
	}
	return all, nil
}

// CollectBucket implements StackCollector.
func (c *DefaultStackCollector) CollectBucket(ctx context.Context, stack, logicalID string) (models.BucketSnapshot, error) {
	bucket, err := resolvePhysicalID(ctx, c.home.CloudFormation, stack, logicalID)
	if err != nil {
		return models.BucketSnapshot{}, fmt.Errorf("resolve bucket: %w", err)
	}
	snap, err := collectBucket(ctx, c.home.S3, bucket)
	if err != nil {
		return models.BucketSnapshot{}, err
	}
	if snap.ACLError != nil {
		zerolog.Ctx(ctx).Warn().Err(snap.ACLError).Str("bucket", bucket).Msg("problems extracting ACL information")
	}
	return snap, nil
}

// DeleteStack implements StackCollector.
func (c *DefaultStackCollector) DeleteStack(ctx context.Context, stack string) error {
	return deleteStack(ctx, c.home.CloudFormation, stack)
}
