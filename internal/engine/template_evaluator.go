package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/metrics"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/pipeline"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/policy"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/rules"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/template"
)

// ArtifactStore moves templates between the pipeline artifact store and the
// routing bucket.
type ArtifactStore interface {
	DownloadFile(ctx context.Context, a models.Artifact, creds models.ArtifactCredentials, file string) ([]byte, error)
	UploadTemplate(ctx context.Context, bucket string, outcome models.Outcome, template []byte) (string, error)
}

// TemplateEvaluator scores a CloudFormation template from a pipeline
// artifact and routes it to valid, flagged or rejected.
type TemplateEvaluator struct {
	artifacts ArtifactStore
	signaler  pipeline.Signaler
	metrics   metrics.Publisher
	policy    *policy.PolicyConfig
}

// NewTemplateEvaluator returns a TemplateEvaluator. A nil policy uses
// policy.Default() and nil metrics uses metrics.Nop.
func NewTemplateEvaluator(
	artifacts ArtifactStore,
	signaler pipeline.Signaler,
	publisher metrics.Publisher,
	policyCfg *policy.PolicyConfig,
) *TemplateEvaluator {
	if policyCfg == nil {
		policyCfg = policy.Default()
	}
	if publisher == nil {
		publisher = metrics.Nop{}
	}
	return &TemplateEvaluator{
		artifacts: artifacts,
		signaler:  signaler,
		metrics:   publisher,
		policy:    policyCfg,
	}
}

// Run implements Gate.
func (e *TemplateEvaluator) Run(ctx context.Context, job models.Job) error {
	return runWithCatchAll(ctx, "template-evaluator", job, e.signaler, func(ctx context.Context) error {
		return e.run(ctx, job)
	})
}

func (e *TemplateEvaluator) run(ctx context.Context, job models.Job) error {
	logger := zerolog.Ctx(ctx)

	params, err := pipeline.DecodeTemplateParams(job)
	if err != nil {
		return err
	}
	artifact, err := pipeline.FindArtifact(job.Data.InputArtifacts, params.Input)
	if err != nil {
		return err
	}
	body, err := e.artifacts.DownloadFile(ctx, artifact, job.Data.ArtifactCredentials, params.File)
	if err != nil {
		return err
	}

	assessment, outcome, err := Assess(body, e.policy)
	if err != nil {
		return err
	}
	logger.Info().
		Str("file", params.File).
		Int("risk_score", assessment.RiskScore).
		Str("outcome", string(outcome)).
		Msg("template evaluated")
	e.metrics.RiskScore(ctx, assessment.RiskScore, outcome)

	switch outcome {
	case models.OutcomeValid, models.OutcomeFlagged:
		if _, err := e.artifacts.UploadTemplate(ctx, params.Output, outcome, body); err != nil {
			return err
		}
		msg := MessageLowRisk
		if outcome == models.OutcomeFlagged {
			msg = MessageMediumRisk
		}
		return e.signaler.Success(ctx, job.ID, msg)
	default:
		logger.Warn().Msg("high risk template, failing pipeline")
		return e.signaler.Failure(ctx, job.ID, exceptionPrefix+"Failed filters "+formatRules(assessment.FailedRules))
	}
}

// Assess parses a template, scans it and picks its routing outcome.
func Assess(data []byte, cfg *policy.PolicyConfig) (models.RiskAssessment, models.Outcome, error) {
	if cfg == nil {
		cfg = policy.Default()
	}
	tpl, err := template.Parse(data)
	if err != nil {
		return models.RiskAssessment{}, "", fmt.Errorf("parse template: %w", err)
	}
	a := rules.ScanTemplate(tpl, cfg.Template.FTPWeight)
	return a, policy.Route(a.RiskScore, cfg), nil
}

// formatRules renders tags as ['a', 'b'], the form existing consumers of the
// failure message expect.
func formatRules(tags []string) string {
	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = "'" + t + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
