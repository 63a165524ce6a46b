package awssecurity

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cfnsvc "github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/common"
)

// ── fakes ─────────────────────────────────────────────────────────────────────

type fakeEC2 struct {
	common.EC2Client
	pages   [][]ec2types.SecurityGroup
	filters []ec2types.Filter
	err     error
}

func (f *fakeEC2) DescribeSecurityGroups(_ context.Context, in *ec2svc.DescribeSecurityGroupsInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeSecurityGroupsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.filters = in.Filters
	page := 0
	if in.NextToken != nil {
		page = 1
	}
	out := &ec2svc.DescribeSecurityGroupsOutput{SecurityGroups: f.pages[page]}
	if page == 0 && len(f.pages) > 1 {
		out.NextToken = aws.String("page-2")
	}
	return out, nil
}

type fakeCFN struct {
	stacks   map[string]cfntypes.StackStatus
	physical map[string]string
	deleted  []string
	descErr  error
}

func (f *fakeCFN) DescribeStacks(_ context.Context, in *cfnsvc.DescribeStacksInput, _ ...func(*cfnsvc.Options)) (*cfnsvc.DescribeStacksOutput, error) {
	if f.descErr != nil {
		return nil, f.descErr
	}
	status, ok := f.stacks[aws.ToString(in.StackName)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "ValidationError", Message: "Stack with id " + aws.ToString(in.StackName) + " does not exist"}
	}
	return &cfnsvc.DescribeStacksOutput{Stacks: []cfntypes.Stack{{StackName: in.StackName, StackStatus: status}}}, nil
}

func (f *fakeCFN) DescribeStackResource(_ context.Context, in *cfnsvc.DescribeStackResourceInput, _ ...func(*cfnsvc.Options)) (*cfnsvc.DescribeStackResourceOutput, error) {
	id, ok := f.physical[aws.ToString(in.LogicalResourceId)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "ValidationError", Message: "Resource not found"}
	}
	return &cfnsvc.DescribeStackResourceOutput{StackResourceDetail: &cfntypes.StackResourceDetail{PhysicalResourceId: aws.String(id)}}, nil
}

func (f *fakeCFN) DeleteStack(_ context.Context, in *cfnsvc.DeleteStackInput, _ ...func(*cfnsvc.Options)) (*cfnsvc.DeleteStackOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.StackName))
	return &cfnsvc.DeleteStackOutput{}, nil
}

type fakeS3 struct {
	common.S3Client
	policy    *string
	policyErr error
	grants    []s3types.Grant
	aclErr    error
}

func (f *fakeS3) GetBucketPolicy(_ context.Context, _ *s3svc.GetBucketPolicyInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketPolicyOutput, error) {
	if f.policyErr != nil {
		return nil, f.policyErr
	}
	return &s3svc.GetBucketPolicyOutput{Policy: f.policy}, nil
}

func (f *fakeS3) GetBucketAcl(_ context.Context, _ *s3svc.GetBucketAclInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketAclOutput, error) {
	if f.aclErr != nil {
		return nil, f.aclErr
	}
	return &s3svc.GetBucketAclOutput{Grants: f.grants}, nil
}

func collectorWith(cfn *fakeCFN, s3 *fakeS3, ec2ByRegion map[string]*fakeEC2) *DefaultStackCollector {
	home := &common.ClientSet{CloudFormation: cfn, S3: s3}
	return newStackCollectorWithClients(home, func(region string) *common.ClientSet {
		return &common.ClientSet{EC2: ec2ByRegion[region]}
	})
}

// ── tests ─────────────────────────────────────────────────────────────────────

func TestStackState(t *testing.T) {
	cfn := &fakeCFN{stacks: map[string]cfntypes.StackStatus{
		"ready":    cfntypes.StackStatusCreateComplete,
		"updating": cfntypes.StackStatusUpdateInProgress,
	}}
	c := collectorWith(cfn, nil, nil)
	ctx := context.Background()

	st, err := c.StackState(ctx, "ready")
	if err != nil || !st.Exists || st.InProgress() {
		t.Errorf("ready: got %+v, %v", st, err)
	}
	st, err = c.StackState(ctx, "updating")
	if err != nil || !st.InProgress() {
		t.Errorf("updating: got %+v, %v; want in progress", st, err)
	}
	st, err = c.StackState(ctx, "missing")
	if err != nil || st.Exists {
		t.Errorf("missing: got %+v, %v; want absent without error", st, err)
	}
}

func TestStackState_OtherErrorsPropagate(t *testing.T) {
	cfn := &fakeCFN{descErr: &smithy.GenericAPIError{Code: "Throttling", Message: "Rate exceeded"}}
	if _, err := collectorWith(cfn, nil, nil).StackState(context.Background(), "x"); err == nil {
		t.Fatal("expected throttling error to propagate")
	}
}

func TestCollectSecurityGroups_PaginatesAndFiltersByStack(t *testing.T) {
	east := &fakeEC2{pages: [][]ec2types.SecurityGroup{
		{{GroupId: aws.String("sg-1"), IpPermissions: []ec2types.IpPermission{{
			IpProtocol: aws.String("tcp"),
			FromPort:   aws.Int32(22),
			ToPort:     aws.Int32(22),
			IpRanges:   []ec2types.IpRange{{CidrIp: aws.String("0.0.0.0/0")}},
			Ipv6Ranges: []ec2types.Ipv6Range{{CidrIpv6: aws.String("::/0")}},
		}}}},
		{{GroupId: aws.String("sg-2"), IpPermissions: []ec2types.IpPermission{{
			IpProtocol:       aws.String("-1"),
			UserIdGroupPairs: []ec2types.UserIdGroupPair{{GroupId: aws.String("sg-src")}},
		}}}},
	}}
	west := &fakeEC2{pages: [][]ec2types.SecurityGroup{{}}}

	c := collectorWith(nil, nil, map[string]*fakeEC2{"us-east-1": east, "us-west-2": west})
	groups, err := c.CollectSecurityGroups(context.Background(), "app-stack", []string{"us-east-1", "us-west-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("want 2 groups across pages, got %d", len(groups))
	}
	if groups[0].Region != "us-east-1" || groups[0].Permissions[0].IPv6CIDRs[0] != "::/0" {
		t.Errorf("group 0: %+v", groups[0])
	}
	p := groups[1].Permissions[0]
	if p.FromPort != nil || p.Protocol != "-1" || p.SourceGroupIDs[0] != "sg-src" {
		t.Errorf("group 1 permission: %+v", p)
	}
	if len(east.filters) != 1 || aws.ToString(east.filters[0].Name) != "tag:aws:cloudformation:stack-name" || east.filters[0].Values[0] != "app-stack" {
		t.Errorf("filters: %+v", east.filters)
	}
}

func TestCollectSecurityGroups_RegionErrorAborts(t *testing.T) {
	bad := &fakeEC2{err: errors.New("UnauthorizedOperation")}
	c := collectorWith(nil, nil, map[string]*fakeEC2{"eu-west-1": bad})
	if _, err := c.CollectSecurityGroups(context.Background(), "s", []string{"eu-west-1"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestCollectBucket_NoPolicyIsNotAnError(t *testing.T) {
	s3 := &fakeS3{
		policyErr: &smithy.GenericAPIError{Code: "NoSuchBucketPolicy", Message: "The bucket policy does not exist"},
		grants: []s3types.Grant{{
			Grantee:    &s3types.Grantee{Type: s3types.TypeGroup, URI: aws.String("http://acs.amazonaws.com/groups/global/AllUsers")},
			Permission: s3types.PermissionRead,
		}},
	}
	cfn := &fakeCFN{physical: map[string]string{"S3Bucket": "app-stack-s3bucket-abc"}}
	snap, err := collectorWith(cfn, s3, nil).CollectBucket(context.Background(), "app-stack", "S3Bucket")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Name != "app-stack-s3bucket-abc" || snap.Policy != nil {
		t.Errorf("snapshot: %+v", snap)
	}
	if len(snap.Grants) != 1 || snap.Grants[0].GranteeType != "Group" || snap.Grants[0].Permission != "READ" {
		t.Errorf("grants: %+v", snap.Grants)
	}
}

func TestCollectBucket_PolicyErrorPropagates(t *testing.T) {
	s3 := &fakeS3{policyErr: &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"}}
	cfn := &fakeCFN{physical: map[string]string{"S3Bucket": "b"}}
	if _, err := collectorWith(cfn, s3, nil).CollectBucket(context.Background(), "s", "S3Bucket"); err == nil {
		t.Fatal("expected AccessDenied on policy to propagate")
	}
}

func TestCollectBucket_ACLErrorRecorded(t *testing.T) {
	s3 := &fakeS3{policy: aws.String(`{"Statement":[]}`), aclErr: errors.New("AccessDenied")}
	cfn := &fakeCFN{physical: map[string]string{"S3Bucket": "b"}}
	snap, err := collectorWith(cfn, s3, nil).CollectBucket(context.Background(), "s", "S3Bucket")
	if err != nil {
		t.Fatalf("ACL errors must not be returned, got %v", err)
	}
	if snap.ACLError == nil || snap.Policy == nil {
		t.Errorf("snapshot: %+v", snap)
	}
}

func TestCollectBucket_MissingResource(t *testing.T) {
	cfn := &fakeCFN{physical: map[string]string{}}
	if _, err := collectorWith(cfn, &fakeS3{}, nil).CollectBucket(context.Background(), "s", "S3Bucket"); err == nil {
		t.Fatal("expected error for unknown logical id")
	}
}

func TestDeleteStack(t *testing.T) {
	cfn := &fakeCFN{}
	if err := collectorWith(cfn, nil, nil).DeleteStack(context.Background(), "app-stack"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfn.deleted) != 1 || cfn.deleted[0] != "app-stack" {
		t.Errorf("deleted: %v", cfn.deleted)
	}
}
