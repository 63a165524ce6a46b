package awssecurity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	cfnsvc "github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/smithy-go"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/common"
)

// describeStackState returns whether stack exists and its current status.
// CloudFormation reports a missing stack as a ValidationError whose message
// says the stack "does not exist"; that case is not an error here.
func describeStackState(ctx context.Context, client common.CloudFormationClient, stack string) (StackState, error) {
	out, err := client.DescribeStacks(ctx, &cfnsvc.DescribeStacksInput{StackName: aws.String(stack)})
	if err != nil {
		if isStackMissing(err) {
			return StackState{}, nil
		}
		return StackState{}, fmt.Errorf("describe stack %s: %w", stack, err)
	}
	if len(out.Stacks) == 0 {
		return StackState{}, nil
	}
	return StackState{Exists: true, Status: string(out.Stacks[0].StackStatus)}, nil
}

// resolvePhysicalID returns the physical resource id of logicalID in stack.
func resolvePhysicalID(ctx context.Context, client common.CloudFormationClient, stack, logicalID string) (string, error) {
	out, err := client.DescribeStackResource(ctx, &cfnsvc.DescribeStackResourceInput{
		StackName:         aws.String(stack),
		LogicalResourceId: aws.String(logicalID),
	})
	if err != nil {
		return "", fmt.Errorf("describe stack resource %s/%s: %w", stack, logicalID, err)
	}
	if out.StackResourceDetail == nil || aws.ToString(out.StackResourceDetail.PhysicalResourceId) == "" {
		return "", fmt.Errorf("stack resource %s/%s has no physical id", stack, logicalID)
	}
	return aws.ToString(out.StackResourceDetail.PhysicalResourceId), nil
}

func deleteStack(ctx context.Context, client common.CloudFormationClient, stack string) error {
	if _, err := client.DeleteStack(ctx, &cfnsvc.DeleteStackInput{StackName: aws.String(stack)}); err != nil {
		return fmt.Errorf("delete stack %s: %w", stack, err)
	}
	return nil
}

func isStackMissing(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.ErrorMessage(), "does not exist")
}
