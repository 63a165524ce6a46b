// Package pipeline talks to CodePipeline on behalf of a Lambda action: it
// decodes job parameters and reports job results.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	cptypes "github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/common"
)

// CodePipeline caps execution summaries and failure messages.
const (
	maxSummaryLen = 2048
	maxMessageLen = 5000
)

// Signaler reports the result of a pipeline job.
type Signaler interface {
	// Success marks the job as succeeded.
	Success(ctx context.Context, jobID, message string) error

	// Failure marks the job as failed with a JobFailed failure type.
	Failure(ctx context.Context, jobID, message string) error

	// Continue marks the job as still running. CodePipeline invokes the
	// action again later with a continuation token.
	Continue(ctx context.Context, jobID, message string) error
}

// CodePipelineSignaler is the production Signaler.
type CodePipelineSignaler struct {
	client common.CodePipelineClient
}

// NewCodePipelineSignaler returns a Signaler backed by client.
func NewCodePipelineSignaler(client common.CodePipelineClient) *CodePipelineSignaler {
	return &CodePipelineSignaler{client: client}
}

// Success implements Signaler.
func (s *CodePipelineSignaler) Success(ctx context.Context, jobID, message string) error {
	zerolog.Ctx(ctx).Info().Str("job_id", jobID).Str("message", message).Msg("putting job success")
	_, err := s.client.PutJobSuccessResult(ctx, &codepipeline.PutJobSuccessResultInput{
		JobId:            aws.String(jobID),
		ExecutionDetails: &cptypes.ExecutionDetails{Summary: aws.String(truncate(message, maxSummaryLen))},
	})
	if err != nil {
		return fmt.Errorf("put job success result %s: %w", jobID, err)
	}
	return nil
}

// Failure implements Signaler.
func (s *CodePipelineSignaler) Failure(ctx context.Context, jobID, message string) error {
	zerolog.Ctx(ctx).Info().Str("job_id", jobID).Str("message", message).Msg("putting job failure")
	_, err := s.client.PutJobFailureResult(ctx, &codepipeline.PutJobFailureResultInput{
		JobId: aws.String(jobID),
		FailureDetails: &cptypes.FailureDetails{
			Type:    cptypes.FailureTypeJobFailed,
			Message: aws.String(truncate(message, maxMessageLen)),
		},
	})
	if err != nil {
		return fmt.Errorf("put job failure result %s: %w", jobID, err)
	}
	return nil
}

// continuationState is the token handed back to CodePipeline.
type continuationState struct {
	PreviousJobID string `json:"previous_job_id"`
}

// Continue implements Signaler.
func (s *CodePipelineSignaler) Continue(ctx context.Context, jobID, message string) error {
	zerolog.Ctx(ctx).Info().Str("job_id", jobID).Str("message", message).Msg("putting job continuation")
	token, err := json.Marshal(continuationState{PreviousJobID: jobID})
	if err != nil {
		return fmt.Errorf("encode continuation token: %w", err)
	}
	_, err = s.client.PutJobSuccessResult(ctx, &codepipeline.PutJobSuccessResultInput{
		JobId:             aws.String(jobID),
		ContinuationToken: aws.String(string(token)),
		ExecutionDetails:  &cptypes.ExecutionDetails{Summary: aws.String(truncate(message, maxSummaryLen))},
	})
	if err != nil {
		return fmt.Errorf("put job continuation %s: %w", jobID, err)
	}
	return nil
}

// truncate shortens s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
