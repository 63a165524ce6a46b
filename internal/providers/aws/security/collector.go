package awssecurity

import (
	"context"
	"strings"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
)

// StackState is the CloudFormation view of the stack under validation.
type StackState struct {
	Exists bool
	Status string
}

// InProgress reports whether CloudFormation is still working on the stack.
func (s StackState) InProgress() bool {
	return s.Exists && strings.HasSuffix(s.Status, "_IN_PROGRESS")
}

// StackCollector collects the raw data the stack controls evaluate and owns
// the one destructive call the Stack Validator makes.
//
// Implementations must never apply business logic or produce control results;
// that is the job of the rules package.
type StackCollector interface {
	// StackState describes the stack. A stack that does not exist is not an
	// error; it is reported as StackState{Exists: false}.
	StackState(ctx context.Context, stack string) (StackState, error)

	// CollectSecurityGroups returns every security group tagged with the
	// stack name across regions, in region order.
	CollectSecurityGroups(ctx context.Context, stack string, regions []string) ([]models.SecurityGroupSnapshot, error)

	// CollectBucket resolves the bucket declared under logicalID in the stack
	// and snapshots its policy and ACL.
	CollectBucket(ctx context.Context, stack, logicalID string) (models.BucketSnapshot, error)

	// DeleteStack requests deletion of the stack.
	DeleteStack(ctx context.Context, stack string) error
}
