package awssecurity

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/common"
)

const noSuchBucketPolicy = "NoSuchBucketPolicy"

// collectBucket snapshots the policy and ACL of bucket.
//
// A NoSuchBucketPolicy error means the bucket has no policy and leaves
// Policy nil. Any other policy error is returned. ACL errors are never
// returned: they are recorded in ACLError so that control 4.2 fails closed.
func collectBucket(ctx context.Context, client common.S3Client, bucket string) (models.BucketSnapshot, error) {
	snap := models.BucketSnapshot{Name: bucket, Grants: []models.ACLGrant{}}

	pol, err := client.GetBucketPolicy(ctx, &s3svc.GetBucketPolicyInput{Bucket: aws.String(bucket)})
	switch {
	case err == nil:
		snap.Policy = pol.Policy
	case isAPIErrorCode(err, noSuchBucketPolicy):
		// no policy configured
	default:
		return snap, fmt.Errorf("get bucket policy %s: %w", bucket, err)
	}

	acl, err := client.GetBucketAcl(ctx, &s3svc.GetBucketAclInput{Bucket: aws.String(bucket)})
	if err != nil {
		snap.ACLError = fmt.Errorf("get bucket acl %s: %w", bucket, err)
		return snap, nil
	}
	for _, g := range acl.Grants {
		grant := models.ACLGrant{Permission: string(g.Permission)}
		if g.Grantee != nil {
			grant.GranteeType = string(g.Grantee.Type)
			grant.GranteeURI = aws.ToString(g.Grantee.URI)
			grant.GranteeID = aws.ToString(g.Grantee.ID)
		}
		snap.Grants = append(snap.Grants, grant)
	}
	return snap, nil
}

// isAPIErrorCode reports whether err carries the given AWS error code.
func isAPIErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}
