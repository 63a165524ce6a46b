package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/metrics"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/output"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/pipeline"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/policy"
	awssecurity "github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/security"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/rules"
)

// StackValidatorOptions carries the optional collaborators of a
// StackValidator.
type StackValidatorOptions struct {
	// AccountID is shown in the report header.
	AccountID string

	// Report receives the nested JSON report and summary. Nil disables it.
	Report io.Writer

	// Metrics publishes control outcomes. Nil means metrics.Nop.
	Metrics metrics.Publisher
}

// StackValidator runs controls 4.1 and 4.2 against a deployed stack and
// either passes the pipeline or deletes the stack and fails it.
//
// It never calls the AWS SDK directly; collection and deletion go through
// the StackCollector and evaluation through the rules package.
type StackValidator struct {
	collector awssecurity.StackCollector
	regions   RegionResolver
	signaler  pipeline.Signaler
	policy    *policy.PolicyConfig
	opts      StackValidatorOptions
}

// NewStackValidator returns a StackValidator. A nil policy uses
// policy.Default().
func NewStackValidator(
	collector awssecurity.StackCollector,
	regions RegionResolver,
	signaler pipeline.Signaler,
	policyCfg *policy.PolicyConfig,
	opts StackValidatorOptions,
) *StackValidator {
	if policyCfg == nil {
		policyCfg = policy.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	return &StackValidator{
		collector: collector,
		regions:   regions,
		signaler:  signaler,
		policy:    policyCfg,
		opts:      opts,
	}
}

// Run implements Gate.
func (v *StackValidator) Run(ctx context.Context, job models.Job) error {
	return runWithCatchAll(ctx, "stack-validator", job, v.signaler, func(ctx context.Context) error {
		return v.run(ctx, job)
	})
}

func (v *StackValidator) run(ctx context.Context, job models.Job) error {
	logger := zerolog.Ctx(ctx)

	stack, err := pipeline.StackName(job)
	if err != nil {
		return err
	}
	logger.Info().Str("stack", stack).Msg("validating stack")

	state, err := v.collector.StackState(ctx, stack)
	if err != nil {
		return err
	}
	if state.InProgress() {
		logger.Info().Str("stack", stack).Str("status", state.Status).Msg("stack busy, asking for continuation")
		return v.signaler.Continue(ctx, job.ID, MessageInProgress)
	}

	report, err := v.Evaluate(ctx, stack)
	if err != nil {
		return err
	}
	if v.opts.Report != nil {
		if err := output.RenderReport(v.opts.Report, report.Groups, v.policy.Summary); err != nil {
			return err
		}
	}
	v.opts.Metrics.ControlResults(ctx, stack, report.Groups)

	failed, ok := report.FirstFailure()
	if !ok {
		return v.signaler.Success(ctx, job.ID, MessageLowRisk)
	}

	logger.Warn().Str("stack", stack).Str("control", failed.ControlID).Msg("control failed")

	// The stack may have been removed while the controls ran.
	current, err := v.collector.StackState(ctx, stack)
	if err != nil {
		return err
	}
	if current.Exists {
		logger.Info().Str("stack", stack).Msg("deleting stack")
		if err := v.collector.DeleteStack(ctx, stack); err != nil {
			return err
		}
	}
	return v.signaler.Failure(ctx, job.ID, failed.FailReason)
}

// Evaluate collects stack data and evaluates every control without any
// pipeline or destructive side effect. Controls are always all evaluated.
func (v *StackValidator) Evaluate(ctx context.Context, stack string) (*models.StackReport, error) {
	logger := zerolog.Ctx(ctx)

	regions, err := v.regions(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve regions: %w", err)
	}

	groups, err := v.collector.CollectSecurityGroups(ctx, stack, regions)
	if err != nil {
		return nil, fmt.Errorf("collect security groups for %s: %w", stack, err)
	}
	ssh := rules.EvaluateSSHIngress(groups, v.policy.ApprovedCIDRs)
	logger.Info().Str("control", ssh.ControlID).Bool("result", ssh.Result).Msg("control evaluated")

	bucket, err := v.collector.CollectBucket(ctx, stack, v.policy.BucketLogicalID)
	if err != nil {
		return nil, fmt.Errorf("collect bucket for %s: %w", stack, err)
	}
	s3 := rules.EvaluateBucketExposure(bucket)
	logger.Info().Str("control", s3.ControlID).Bool("result", s3.Result).Msg("control evaluated")

	return &models.StackReport{
		StackName: stack,
		AccountID: v.opts.AccountID,
		Regions:   regions,
		Groups:    []models.ControlGroup{{ssh, s3}},
	}, nil
}
