package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/pipeline"
)

// Messages reported to CodePipeline. The spelling of "succesful" is kept for
// pipelines that match on it.
const (
	MessageLowRisk    = "Job succesful, minimal or no risk detected."
	MessageMediumRisk = "Job succesful, medium risk detected, manual approval needed."
	MessageInProgress = "Stack operation still in progress, waiting before validation."

	exceptionPrefix = "Function exception: "
)

// Gate is a pipeline gate. Run handles one CodePipeline job end to end and
// always reports a result for it; the returned error is non-nil only when
// that report could not be delivered.
type Gate interface {
	Run(ctx context.Context, job models.Job) error
}

// RegionResolver returns the regions the Stack Validator scans.
type RegionResolver func(ctx context.Context) ([]string, error)

// StaticRegions returns a RegionResolver that always yields regions.
func StaticRegions(regions ...string) RegionResolver {
	return func(context.Context) ([]string, error) { return regions, nil }
}

// runWithCatchAll runs fn for job and converts any error it returns into a
// failure signal carrying "Function exception: <err>".
func runWithCatchAll(ctx context.Context, gate string, job models.Job, signaler pipeline.Signaler, fn func(context.Context) error) error {
	logger := zerolog.Ctx(ctx).With().Str("gate", gate).Str("job_id", job.ID).Logger()
	ctx = logger.WithContext(ctx)

	err := callRecovering(ctx, fn)
	if err == nil {
		return nil
	}
	logger.Error().Err(err).Msg("function failed due to exception")

	if serr := signaler.Failure(ctx, job.ID, exceptionPrefix+err.Error()); serr != nil {
		return errors.Join(err, fmt.Errorf("report failure: %w", serr))
	}
	return nil
}

// callRecovering runs fn and turns a panic into an error. The panic value and
// stack trace are logged before returning.
func callRecovering(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			zerolog.Ctx(ctx).Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic")
		}
	}()
	return fn(ctx)
}
