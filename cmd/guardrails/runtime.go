package main

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/config"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/engine"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/logging"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/metrics"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/pipeline"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/policy"
	awsartifact "github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/artifact"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/common"
	awssecurity "github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/security"
)

// runtime is everything a command needs after flags and configuration have
// been resolved.
type runtime struct {
	cfg    *config.Config
	policy *policy.PolicyConfig
	logger zerolog.Logger
}

// loadRuntime reads configuration, applies flag overrides, loads the policy
// file and builds the logger. Logs go to logOut.
func loadRuntime(cmd *cobra.Command, logOut io.Writer) (*runtime, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("profile"); v != "" {
		cfg.AWS.Profile = v
	}
	if v, _ := cmd.Flags().GetString("region"); v != "" {
		cfg.AWS.Region = v
	}
	if v, _ := cmd.Flags().GetStringSlice("regions"); len(v) > 0 {
		cfg.AWS.Regions = v
	}
	if v, _ := cmd.Flags().GetString("policy"); v != "" {
		cfg.Policy.File = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}

	policyCfg, err := policy.LoadPolicy(cfg.Policy.File)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	logger, err := logging.New(logOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, policy: policyCfg, logger: logger}, nil
}

// newAWSClientProvider is swapped in tests.
var newAWSClientProvider = func() common.AWSClientProvider {
	return common.NewDefaultAWSClientProvider()
}

// awsDeps are the AWS-backed collaborators shared by both gates.
type awsDeps struct {
	provider common.AWSClientProvider
	profile  *common.ProfileConfig
}

func (rt *runtime) loadAWS(ctx context.Context) (*awsDeps, error) {
	provider := newAWSClientProvider()
	profile, err := provider.LoadProfile(ctx, rt.cfg.AWS.Profile, rt.cfg.AWS.Region)
	if err != nil {
		return nil, err
	}
	return &awsDeps{provider: provider, profile: profile}, nil
}

func (d *awsDeps) regions(explicit []string) engine.RegionResolver {
	if len(explicit) > 0 {
		return engine.StaticRegions(explicit...)
	}
	return func(ctx context.Context) ([]string, error) {
		return d.provider.GetActiveRegions(ctx, d.profile)
	}
}

func (d *awsDeps) signaler() pipeline.Signaler {
	return pipeline.NewCodePipelineSignaler(d.profile.Clients.CodePipeline)
}

func (rt *runtime) publisher(d *awsDeps) metrics.Publisher {
	return metrics.New(rt.cfg.Metrics.Enabled, d.profile.Clients.CloudWatch, rt.cfg.Metrics.Namespace)
}

// stackValidator wires a StackValidator. report may be nil.
func (rt *runtime) stackValidator(d *awsDeps, report io.Writer) *engine.StackValidator {
	if !rt.cfg.Report.JSON {
		report = nil
	}
	return engine.NewStackValidator(
		awssecurity.NewDefaultStackCollector(d.profile, d.provider),
		d.regions(rt.cfg.AWS.Regions),
		d.signaler(),
		rt.policy,
		engine.StackValidatorOptions{
			AccountID: d.profile.AccountID,
			Report:    report,
			Metrics:   rt.publisher(d),
		},
	)
}

// templateEvaluator wires a TemplateEvaluator. Artifacts are read with the
// job's credentials and uploads use the function's own.
func (rt *runtime) templateEvaluator(d *awsDeps) *engine.TemplateEvaluator {
	base := d.profile.Config
	store := awsartifact.NewStore(
		func(creds models.ArtifactCredentials) common.S3Client {
			return s3.NewFromConfig(common.ConfigWithArtifactCredentials(base, creds))
		},
		d.profile.Clients.S3,
		rt.cfg.Upload.SSEConfig(),
	)
	return engine.NewTemplateEvaluator(store, d.signaler(), rt.publisher(d), rt.policy)
}
