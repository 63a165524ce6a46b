package models

// ControlResult is the outcome of a single guardrail control evaluated against
// one stack. It is the atomic output unit of the control checks and is never
// mutated after it is returned.
//
// JSON keys match the report consumed by existing pipeline tooling. Fields
// are declared in sorted key order so the report lists them sorted.
type ControlResult struct {
	// ControlID is the dotted major.minor identifier (e.g. "4.1").
	ControlID string `json:"ControlId"`

	// Description is the human-readable control statement.
	Description string `json:"Description"`

	// Offenders lists the resources that caused the failure, in detection order.
	Offenders []string `json:"Offenders"`

	// Result is true when the control passed.
	Result bool `json:"Result"`

	// Scored reports whether the control counts towards the benchmark score.
	Scored bool `json:"ScoredControl"`

	// FailReason explains a failure. Empty when Result is true.
	FailReason string `json:"failReason"`
}

// ControlGroup is the ordered set of results sharing one major control id,
// e.g. the "control4" group holds 4.1 and 4.2.
type ControlGroup []ControlResult

// StackReport is the full outcome of one Stack Validator run.
type StackReport struct {
	StackName string         `json:"stack_name"`
	AccountID string         `json:"account_id,omitempty"`
	Regions   []string       `json:"regions"`
	Groups    []ControlGroup `json:"groups"`
}

// Passed reports whether every control in every group passed.
func (r *StackReport) Passed() bool {
	_, failed := r.FirstFailure()
	return !failed
}

// FirstFailure returns the first failed control in group order. The boolean
// is false when all controls passed.
func (r *StackReport) FirstFailure() (ControlResult, bool) {
	for _, g := range r.Groups {
		for _, c := range g {
			if !c.Result {
				return c, true
			}
		}
	}
	return ControlResult{}, false
}
