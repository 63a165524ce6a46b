package awssecurity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
)

// stackNameTag is the tag CloudFormation puts on every resource it creates.
const stackNameTag = "tag:aws:cloudformation:stack-name"

// collectSecurityGroups lists the security groups of stack in one region and
// converts their inbound permissions into snapshots. Every page of
// DescribeSecurityGroups is read.
func collectSecurityGroups(ctx context.Context, client ec2svc.DescribeSecurityGroupsAPIClient, region, stack string) ([]models.SecurityGroupSnapshot, error) {
	paginator := ec2svc.NewDescribeSecurityGroupsPaginator(client, &ec2svc.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String(stackNameTag), Values: []string{stack}},
		},
	})

	var groups []models.SecurityGroupSnapshot
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe security groups in %s: %w", region, err)
		}
		for _, sg := range page.SecurityGroups {
			groups = append(groups, models.SecurityGroupSnapshot{
				GroupID:     aws.ToString(sg.GroupId),
				GroupName:   aws.ToString(sg.GroupName),
				Region:      region,
				Permissions: convertPermissions(sg.IpPermissions),
			})
		}
	}
	return groups, nil
}

func convertPermissions(perms []ec2types.IpPermission) []models.IngressPermission {
	out := make([]models.IngressPermission, 0, len(perms))
	for _, p := range perms {
		ip := models.IngressPermission{
			Protocol: aws.ToString(p.IpProtocol),
			FromPort: portPtr(p.FromPort),
			ToPort:   portPtr(p.ToPort),
		}
		for _, r := range p.IpRanges {
			ip.CIDRs = append(ip.CIDRs, aws.ToString(r.CidrIp))
		}
		for _, r := range p.Ipv6Ranges {
			ip.IPv6CIDRs = append(ip.IPv6CIDRs, aws.ToString(r.CidrIpv6))
		}
		for _, pl := range p.PrefixListIds {
			ip.PrefixListIDs = append(ip.PrefixListIDs, aws.ToString(pl.PrefixListId))
		}
		for _, pair := range p.UserIdGroupPairs {
			ip.SourceGroupIDs = append(ip.SourceGroupIDs, aws.ToString(pair.GroupId))
		}
		out = append(out, ip)
	}
	return out
}

func portPtr(p *int32) *int {
	if p == nil {
		return nil
	}
	v := int(*p)
	return &v
}
