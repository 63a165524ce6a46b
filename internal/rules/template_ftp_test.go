package rules

import (
	"testing"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
)

func sgResource(ingress any) models.Resource {
	return models.Resource{
		Type:       "AWS::EC2::SecurityGroup",
		Properties: map[string]any{"SecurityGroupIngress": ingress},
	}
}

func TestScanTemplate_NilTemplate(t *testing.T) {
	a := ScanTemplate(nil, 100)
	if a.RiskScore != 0 || len(a.FailedRules) != 0 {
		t.Errorf("want zero assessment, got %+v", a)
	}
}

func TestScanTemplate_NoMatchingResources(t *testing.T) {
	tpl := &models.Template{Resources: map[string]models.Resource{
		"Bucket": {Type: "AWS::S3::Bucket"},
		"Web":    sgResource([]any{map[string]any{"FromPort": float64(443), "ToPort": float64(443)}}),
	}}
	a := ScanTemplate(tpl, 100)
	if a.RiskScore != 0 {
		t.Errorf("risk: got %d; want 0", a.RiskScore)
	}
	if a.FailedRules == nil || len(a.FailedRules) != 0 {
		t.Errorf("want empty non-nil failed rules, got %#v", a.FailedRules)
	}
}

func TestScanTemplate_SingleFTPRule(t *testing.T) {
	tpl := &models.Template{Resources: map[string]models.Resource{
		"FtpSG": sgResource(map[string]any{"IpProtocol": "tcp", "FromPort": float64(21), "ToPort": float64(21)}),
	}}
	a := ScanTemplate(tpl, 100)
	if a.RiskScore != 100 {
		t.Errorf("risk: got %d; want 100", a.RiskScore)
	}
	if len(a.FailedRules) != 1 || a.FailedRules[0] != FailedRuleFTP {
		t.Errorf("failed rules: got %v", a.FailedRules)
	}
}

// TestScanTemplate_PortValueForms verifies that integer, float and string
// forms of port 21 are all detected.
func TestScanTemplate_PortValueForms(t *testing.T) {
	tpl := &models.Template{Resources: map[string]models.Resource{
		"A": sgResource([]any{map[string]any{"FromPort": 21}}),
		"B": sgResource([]any{map[string]any{"FromPort": "21"}}),
		"C": sgResource([]any{map[string]any{"FromPort": float64(21)}, map[string]any{"FromPort": float64(22)}}),
	}}
	a := ScanTemplate(tpl, 7)
	if a.RiskScore != 21 {
		t.Errorf("risk: got %d; want 21 (3 × 7)", a.RiskScore)
	}
}

func TestScanTemplate_IgnoresOtherTypes(t *testing.T) {
	tpl := &models.Template{Resources: map[string]models.Resource{
		"Ingress": {Type: "AWS::EC2::SecurityGroupIngress", Properties: map[string]any{"FromPort": 21}},
	}}
	if a := ScanTemplate(tpl, 100); a.RiskScore != 0 {
		t.Errorf("risk: got %d; want 0 for non-SecurityGroup resources", a.RiskScore)
	}
}
