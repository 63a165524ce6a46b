package policy

import (
	"fmt"
	"net/netip"
)

// Validate checks cfg for semantic correctness and returns all validation errors
// found. An empty slice means the config is valid.
//
// Checks performed:
//   - version must be 1
//   - every approved CIDR must parse as an IPv4 or IPv6 prefix
//   - weights and thresholds must not be negative
//   - flag_threshold must be lower than reject_threshold
//   - summary limits must not be negative
//
// All errors are collected before returning; Validate never stops at the first error.
func Validate(cfg *PolicyConfig) []error {
	if cfg == nil {
		return []error{fmt.Errorf("policy config is nil")}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be 1", cfg.Version))
	}

	for i, cidr := range cfg.ApprovedCIDRs {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			errs = append(errs, fmt.Errorf("approved_cidrs[%d]: invalid CIDR %q", i, cidr))
		}
	}

	if cfg.Template.FTPWeight < 0 {
		errs = append(errs, fmt.Errorf("template.ftp_weight: must not be negative; got %d", cfg.Template.FTPWeight))
	}

	r := cfg.Routing
	if r.FlagThreshold < 0 {
		errs = append(errs, fmt.Errorf("routing.flag_threshold: must not be negative; got %d", r.FlagThreshold))
	}
	if r.RejectThreshold < 0 {
		errs = append(errs, fmt.Errorf("routing.reject_threshold: must not be negative; got %d", r.RejectThreshold))
	}
	if r.FlagThreshold >= r.RejectThreshold {
		errs = append(errs, fmt.Errorf("routing: flag_threshold (%d) must be lower than reject_threshold (%d)", r.FlagThreshold, r.RejectThreshold))
	}

	if cfg.Summary.CharBudget < 0 {
		errs = append(errs, fmt.Errorf("summary.char_budget: must not be negative; got %d", cfg.Summary.CharBudget))
	}
	if cfg.Summary.MaxIDs < 0 {
		errs = append(errs, fmt.Errorf("summary.max_ids: must not be negative; got %d", cfg.Summary.MaxIDs))
	}

	return errs
}
