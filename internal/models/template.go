package models

// Template is a decoded CloudFormation template. Only the parts the risk scan
// reads are typed; everything else stays in the raw property bags.
type Template struct {
	Resources map[string]Resource `json:"Resources" yaml:"Resources"`
}

// Resource is a single declared template resource.
type Resource struct {
	Type       string         `json:"Type" yaml:"Type"`
	Properties map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
}

// RiskAssessment accumulates the score of a template scan. FailedRules keeps
// one tag per detected violation, in scan order.
type RiskAssessment struct {
	RiskScore   int      `json:"risk_score"`
	FailedRules []string `json:"failed_rules"`
}

// Add records a violation with the given weight.
func (a *RiskAssessment) Add(weight int, tag string) {
	a.RiskScore += weight
	a.FailedRules = append(a.FailedRules, tag)
}

// Outcome is the routing decision for a scanned template.
type Outcome string

const (
	OutcomeValid    Outcome = "valid"
	OutcomeFlagged  Outcome = "flagged"
	OutcomeRejected Outcome = "rejected"
)
