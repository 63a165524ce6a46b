package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ---------------------------------------------------------------------------
// Per-service client interfaces
//
// Each interface covers only the operations used by this project. Using narrow
// interfaces instead of the full SDK clients makes mocking in unit tests
// trivial: create a struct that satisfies the interface and return canned data.
// ---------------------------------------------------------------------------

// STSClient is the subset of STS operations used by the loader.
type STSClient interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// EC2Client covers region discovery and security group collection.
// It embeds DescribeSecurityGroupsAPIClient so the SDK paginator can be used
// directly.
type EC2Client interface {
	ec2.DescribeSecurityGroupsAPIClient
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// CloudFormationClient covers stack status lookup, bucket resolution and
// stack teardown.
type CloudFormationClient interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	DescribeStackResource(ctx context.Context, params *cloudformation.DescribeStackResourceInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackResourceOutput, error)
	DeleteStack(ctx context.Context, params *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error)
}

// S3Client covers bucket inspection for control 4.2 and artifact transfer.
type S3Client interface {
	GetBucketPolicy(ctx context.Context, params *s3.GetBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error)
	GetBucketAcl(ctx context.Context, params *s3.GetBucketAclInput, optFns ...func(*s3.Options)) (*s3.GetBucketAclOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// CodePipelineClient covers the job result calls a Lambda action makes.
type CodePipelineClient interface {
	PutJobSuccessResult(ctx context.Context, params *codepipeline.PutJobSuccessResultInput, optFns ...func(*codepipeline.Options)) (*codepipeline.PutJobSuccessResultOutput, error)
	PutJobFailureResult(ctx context.Context, params *codepipeline.PutJobFailureResultInput, optFns ...func(*codepipeline.Options)) (*codepipeline.PutJobFailureResultOutput, error)
}

// CloudWatchClient covers custom metric publication.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// KMSClient covers the key check for SSE-KMS uploads.
type KMSClient interface {
	DescribeKey(ctx context.Context, params *kms.DescribeKeyInput, optFns ...func(*kms.Options)) (*kms.DescribeKeyOutput, error)
}

// ---------------------------------------------------------------------------
// ClientSet and ClientFactory
// ---------------------------------------------------------------------------

// ClientSet holds fully initialised AWS service clients for a given
// configuration and region. All fields are interfaces so they can be replaced
// with fakes in tests.
type ClientSet struct {
	STS            STSClient
	EC2            EC2Client
	CloudFormation CloudFormationClient
	S3             S3Client
	CodePipeline   CodePipelineClient
	CloudWatch     CloudWatchClient
	KMS            KMSClient
}

// ClientFactory creates a ClientSet from an aws.Config.
// Swap this in tests to inject fake clients.
type ClientFactory func(cfg aws.Config) *ClientSet

// NewClientSet is the production ClientFactory.
func NewClientSet(cfg aws.Config) *ClientSet {
	return &ClientSet{
		STS:            sts.NewFromConfig(cfg),
		EC2:            ec2.NewFromConfig(cfg),
		CloudFormation: cloudformation.NewFromConfig(cfg),
		S3:             s3.NewFromConfig(cfg),
		CodePipeline:   codepipeline.NewFromConfig(cfg),
		CloudWatch:     cloudwatch.NewFromConfig(cfg),
		KMS:            kms.NewFromConfig(cfg),
	}
}
