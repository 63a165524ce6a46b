package rules

// Control identifiers and statements. IDs are dotted major.minor strings; the
// major part groups controls in the nested report.
const (
	ControlSSHIngress = "4.1"
	ControlS3Exposure = "4.2"

	sshIngressDescription = "Ensure that security groups allow ingress from approved CIDR range to port 22"
	s3ExposureDescription = "Ensure that there are no S3 elements exposed to the public"
)

// Every control in this package is a pure function over already-collected
// snapshots. Controls must never call the AWS SDK or read external state;
// collection lives in providers/aws/security.
