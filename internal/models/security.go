package models

// IngressPermission is one inbound permission entry of a security group,
// copied from the EC2 API into a provider-neutral shape so that controls can
// be evaluated without the AWS SDK.
//
// FromPort and ToPort are nil when the API omits them, which happens for the
// all-traffic protocol "-1".
type IngressPermission struct {
	Protocol       string   `json:"protocol"`
	FromPort       *int     `json:"from_port,omitempty"`
	ToPort         *int     `json:"to_port,omitempty"`
	CIDRs          []string `json:"cidrs,omitempty"`
	IPv6CIDRs      []string `json:"ipv6_cidrs,omitempty"`
	PrefixListIDs  []string `json:"prefix_list_ids,omitempty"`
	SourceGroupIDs []string `json:"source_group_ids,omitempty"`
}

// SecurityGroupSnapshot is a security group belonging to the audited stack.
// Region carries the AWS region the group was found in so that offenders can
// be attributed to the correct region.
type SecurityGroupSnapshot struct {
	GroupID     string              `json:"group_id"`
	GroupName   string              `json:"group_name"`
	Region      string              `json:"region"`
	Permissions []IngressPermission `json:"permissions"`
}

// ACLGrant is one grant of an S3 bucket access control list.
type ACLGrant struct {
	GranteeType string `json:"grantee_type"`
	GranteeURI  string `json:"grantee_uri,omitempty"`
	GranteeID   string `json:"grantee_id,omitempty"`
	Permission  string `json:"permission"`
}

// BucketSnapshot holds everything control 4.2 needs to know about one bucket.
//
// Policy is nil when the bucket has no bucket policy (NoSuchBucketPolicy).
// ACLError is set when the ACL could not be read; Grants is then empty and the
// control fails closed.
type BucketSnapshot struct {
	Name     string     `json:"name"`
	Policy   *string    `json:"policy,omitempty"`
	Grants   []ACLGrant `json:"grants"`
	ACLError error      `json:"-"`
}
