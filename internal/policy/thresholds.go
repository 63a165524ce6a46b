package policy

import "github.com/pankaj-dahiya-devops/secguardrails/internal/models"

// Route maps a final risk score onto a template outcome. It is safe to call
// with cfg == nil, in which case the default thresholds apply.
//
//	score <  flag_threshold                     → valid
//	flag_threshold <= score < reject_threshold  → flagged
//	score >= reject_threshold                   → rejected
func Route(score int, cfg *PolicyConfig) models.Outcome {
	if cfg == nil {
		cfg = Default()
	}
	switch {
	case score < cfg.Routing.FlagThreshold:
		return models.OutcomeValid
	case score < cfg.Routing.RejectThreshold:
		return models.OutcomeFlagged
	default:
		return models.OutcomeRejected
	}
}
