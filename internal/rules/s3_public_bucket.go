package rules

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
)

const allUsersGroupURI = "groups/global/AllUsers"

// bucketPolicy is the subset of an S3 bucket policy document read by 4.2.
// Statement, Principal and Action may each be a single value or a list.
type bucketPolicy struct {
	Statement json.RawMessage `json:"Statement"`
}

type policyStatement struct {
	Effect    string `json:"Effect"`
	Principal any    `json:"Principal"`
	Action    any    `json:"Action"`
}

// EvaluateBucketExposure runs control 4.2 against one bucket snapshot.
//
// Phase one fails the control when any statement allows a wildcard action to a
// wildcard principal. A missing policy passes phase one. Phase two runs only if
// phase one passed: an unreadable ACL fails closed, and a grant to the global
// AllUsers group fails the control.
func EvaluateBucketExposure(b models.BucketSnapshot) models.ControlResult {
	result := models.ControlResult{
		ControlID:   ControlS3Exposure,
		Description: s3ExposureDescription,
		Scored:      true,
		Result:      true,
		Offenders:   []string{},
	}
	fail := func(reason string) models.ControlResult {
		result.Result = false
		result.FailReason = reason
		result.Offenders = []string{b.Name}
		return result
	}

	if b.Policy != nil {
		public, err := policyAllowsEveryone(*b.Policy)
		if err != nil {
			return fail(fmt.Sprintf("%s has an unreadable bucket policy: %v", b.Name, err))
		}
		if public {
			return fail(fmt.Sprintf("Bucket [%s] has Allow policy for everyone.", b.Name))
		}
	}

	if b.ACLError != nil {
		return fail(b.Name + " cannot read ACL information. Please check permissions on this lambda script")
	}
	for _, g := range b.Grants {
		if g.GranteeType == "Group" && strings.Contains(g.GranteeURI, allUsersGroupURI) {
			return fail(b.Name + " contains ACL specifications for All Users. Update S3 AccessControl property")
		}
	}
	return result
}

// policyAllowsEveryone reports whether any statement of doc is an Allow of a
// wildcard action to a wildcard principal.
func policyAllowsEveryone(doc string) (bool, error) {
	var p bucketPolicy
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return false, fmt.Errorf("decode policy: %w", err)
	}
	statements, err := decodeStatements(p.Statement)
	if err != nil {
		return false, err
	}
	for _, s := range statements {
		if s.Effect != "Allow" {
			continue
		}
		if isWildcardPrincipal(s.Principal) && hasWildcardAction(s.Action) {
			return true, nil
		}
	}
	return false, nil
}

// decodeStatements accepts both a single statement object and a list.
func decodeStatements(raw json.RawMessage) ([]policyStatement, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []policyStatement
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single policyStatement
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("decode policy statement: %w", err)
	}
	return []policyStatement{single}, nil
}

// isWildcardPrincipal matches "*", {"AWS": "*"} and {"AWS": ["*", ...]}.
func isWildcardPrincipal(p any) bool {
	switch v := p.(type) {
	case map[string]any:
		for _, inner := range v {
			if containsString(valuesOf(inner), "*") {
				return true
			}
		}
		return false
	default:
		return containsString(valuesOf(v), "*")
	}
}

// hasWildcardAction matches "*" and "s3:*", alone or inside a list.
func hasWildcardAction(a any) bool {
	for _, action := range valuesOf(a) {
		if action == "*" || strings.EqualFold(action, "s3:*") {
			return true
		}
	}
	return false
}

// valuesOf flattens a JSON string or string list into a slice.
func valuesOf(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
