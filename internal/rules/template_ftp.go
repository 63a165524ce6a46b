package rules

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
)

const (
	securityGroupType = "AWS::EC2::SecurityGroup"
	ftpPort           = "21"

	// FailedRuleFTP is the tag recorded for every FTP ingress rule found.
	FailedRuleFTP = "Found FTP port."
)

// ScanTemplate walks the template resources in logical-id order and adds
// ftpWeight to the risk score for every security group ingress rule whose
// FromPort is 21. SecurityGroupIngress may be a list of rules or a single
// rule map; both shapes are accepted.
func ScanTemplate(tpl *models.Template, ftpWeight int) models.RiskAssessment {
	assessment := models.RiskAssessment{FailedRules: []string{}}
	if tpl == nil {
		return assessment
	}

	names := make([]string, 0, len(tpl.Resources))
	for name := range tpl.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res := tpl.Resources[name]
		if res.Type != securityGroupType {
			continue
		}
		for _, rule := range ingressRules(res.Properties["SecurityGroupIngress"]) {
			if portString(rule["FromPort"]) == ftpPort {
				assessment.Add(ftpWeight, FailedRuleFTP)
			}
		}
	}
	return assessment
}

// ingressRules normalises the SecurityGroupIngress property into a list.
func ingressRules(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

// portString renders a port value the way it is written in the template, so
// that 21, 21.0 and "21" compare equal.
func portString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
