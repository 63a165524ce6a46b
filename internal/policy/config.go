package policy

// PolicyConfig is the guardrail policy file. It holds the data the controls
// and the template risk scan read: approved sources, weights, thresholds and
// report limits. Rules themselves are code; only their parameters live here.
type PolicyConfig struct {
	Version         int            `yaml:"version"`
	ApprovedCIDRs   []string       `yaml:"approved_cidrs"`
	BucketLogicalID string         `yaml:"bucket_logical_id"`
	Template        TemplateConfig `yaml:"template"`
	Routing         RoutingConfig  `yaml:"routing"`
	Summary         SummaryConfig  `yaml:"summary"`
}

// TemplateConfig configures the template risk scan.
type TemplateConfig struct {
	// FTPWeight is added to the risk score for every ingress rule on port 21.
	FTPWeight int `yaml:"ftp_weight"`
}

// RoutingConfig holds the risk score thresholds that pick a template outcome.
// Scores below FlagThreshold are valid, scores at or above RejectThreshold are
// rejected, everything in between is flagged for manual approval.
type RoutingConfig struct {
	FlagThreshold   int `yaml:"flag_threshold"`
	RejectThreshold int `yaml:"reject_threshold"`
}

// SummaryConfig bounds the failed-control summary.
//
// When MaxIDs is positive the summary keeps at most MaxIDs ids. Otherwise ids
// are appended while the serialized list is shorter than CharBudget.
type SummaryConfig struct {
	CharBudget int `yaml:"char_budget"`
	MaxIDs     int `yaml:"max_ids"`
}

const (
	DefaultApprovedCIDR    = "1.2.3.4/32"
	DefaultBucketLogicalID = "S3Bucket"
	DefaultFTPWeight       = 100
	DefaultFlagThreshold   = 5
	DefaultRejectThreshold = 50
	DefaultCharBudget      = 220
)

// Default returns the built-in policy used when no policy file is configured.
func Default() *PolicyConfig {
	cfg := &PolicyConfig{Version: 1}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills every zero-valued field with its built-in default.
func applyDefaults(cfg *PolicyConfig) {
	if len(cfg.ApprovedCIDRs) == 0 {
		cfg.ApprovedCIDRs = []string{DefaultApprovedCIDR}
	}
	if cfg.BucketLogicalID == "" {
		cfg.BucketLogicalID = DefaultBucketLogicalID
	}
	if cfg.Template.FTPWeight == 0 {
		cfg.Template.FTPWeight = DefaultFTPWeight
	}
	if cfg.Routing.FlagThreshold == 0 {
		cfg.Routing.FlagThreshold = DefaultFlagThreshold
	}
	if cfg.Routing.RejectThreshold == 0 {
		cfg.Routing.RejectThreshold = DefaultRejectThreshold
	}
	if cfg.Summary.CharBudget == 0 && cfg.Summary.MaxIDs == 0 {
		cfg.Summary.CharBudget = DefaultCharBudget
	}
}
