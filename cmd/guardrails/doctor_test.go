package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/common"
)

// ── AWS mock ──────────────────────────────────────────────────────────────────

type mockAWSProvider struct {
	profileResult *common.ProfileConfig
	profileErr    error
	regionsResult []string
	regionsErr    error
	lastProfile   string
	lastRegion    string
}

func (m *mockAWSProvider) LoadProfile(_ context.Context, profile, region string) (*common.ProfileConfig, error) {
	m.lastProfile, m.lastRegion = profile, region
	return m.profileResult, m.profileErr
}

func (m *mockAWSProvider) GetActiveRegions(_ context.Context, _ *common.ProfileConfig) ([]string, error) {
	return m.regionsResult, m.regionsErr
}

func (m *mockAWSProvider) ConfigForRegion(_ *common.ProfileConfig, _ string) aws.Config {
	return aws.Config{}
}

func (m *mockAWSProvider) ClientsForRegion(_ *common.ProfileConfig, _ string) *common.ClientSet {
	return &common.ClientSet{}
}

type fakeKMS struct {
	state kmstypes.KeyState
	err   error
	keyID string
}

func (f *fakeKMS) DescribeKey(_ context.Context, in *kms.DescribeKeyInput, _ ...func(*kms.Options)) (*kms.DescribeKeyOutput, error) {
	f.keyID = aws.ToString(in.KeyId)
	if f.err != nil {
		return nil, f.err
	}
	return &kms.DescribeKeyOutput{KeyMetadata: &kmstypes.KeyMetadata{KeyId: in.KeyId, KeyState: f.state}}, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func goodMockAWS() *mockAWSProvider {
	return &mockAWSProvider{
		profileResult: &common.ProfileConfig{AccountID: "123456789012", Region: "us-east-1"},
		regionsResult: []string{"us-east-1", "eu-west-1"},
	}
}

func doctorToString(t *testing.T, p common.AWSClientProvider, format string, in doctorInput) (string, DoctorResult) {
	t.Helper()
	var buf bytes.Buffer
	result, err := runDoctor(context.Background(), p, &buf, format, in)
	if err != nil {
		t.Fatalf("runDoctor: %v", err)
	}
	return buf.String(), result
}

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ── tests ─────────────────────────────────────────────────────────────────────

func TestDoctor_AllHealthy(t *testing.T) {
	out, result := doctorToString(t, goodMockAWS(), "table", doctorInput{})
	if !result.OverallHealthy {
		t.Fatalf("expected healthy result; got %+v", result)
	}
	for _, want := range []string{"Runtime config: OK", "Account: 123456789012", "Regions API: OK (2 enabled)", "built-in policy"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestDoctor_PassesProfileAndRegion(t *testing.T) {
	p := goodMockAWS()
	_, result := doctorToString(t, p, "table", doctorInput{profile: "staging", region: "eu-west-1"})
	if p.lastProfile != "staging" || p.lastRegion != "eu-west-1" {
		t.Errorf("LoadProfile(%q, %q); want staging, eu-west-1", p.lastProfile, p.lastRegion)
	}
	if result.AWS.Profile != "staging" {
		t.Errorf("AWS.Profile = %q", result.AWS.Profile)
	}
}

func TestDoctor_CredentialFailure(t *testing.T) {
	p := &mockAWSProvider{profileErr: errors.New("no credentials")}
	out, result := doctorToString(t, p, "table", doctorInput{})
	if result.OverallHealthy || result.AWS.Credentials {
		t.Fatalf("expected unhealthy result; got %+v", result)
	}
	if !strings.Contains(out, "Credentials: FAIL (no credentials)") || !strings.Contains(out, "Regions API: FAIL (skipped)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestDoctor_RegionFailure(t *testing.T) {
	p := goodMockAWS()
	p.regionsErr = errors.New("UnauthorizedOperation")
	_, result := doctorToString(t, p, "table", doctorInput{})
	if result.OverallHealthy || result.AWS.RegionsOK || !result.AWS.Credentials {
		t.Fatalf("got %+v", result.AWS)
	}
}

func TestDoctor_ValidPolicyFile(t *testing.T) {
	path := writePolicy(t, "version: 1\napproved_cidrs: [\"10.0.0.0/8\"]\n")
	_, result := doctorToString(t, goodMockAWS(), "table", doctorInput{policyPath: path})
	if !result.Policy.Present || !result.Policy.Valid || !result.OverallHealthy {
		t.Errorf("got %+v", result.Policy)
	}
}

func TestDoctor_InvalidPolicyFile(t *testing.T) {
	// version: 99 causes LoadPolicy to return "unsupported policy version".
	path := writePolicy(t, "version: 99\n")
	out, result := doctorToString(t, goodMockAWS(), "table", doctorInput{policyPath: path})
	if result.Policy.Valid || result.OverallHealthy {
		t.Fatalf("expected invalid policy; got %+v", result.Policy)
	}
	if !strings.Contains(out, "Policy valid: FAIL") {
		t.Errorf("missing policy failure in:\n%s", out)
	}
}

func TestDoctor_MissingPolicyFile(t *testing.T) {
	_, result := doctorToString(t, goodMockAWS(), "table", doctorInput{policyPath: filepath.Join(t.TempDir(), "absent.yaml")})
	if result.Policy.Present || result.OverallHealthy {
		t.Errorf("got %+v", result.Policy)
	}
}

func TestDoctor_InvalidConfig(t *testing.T) {
	t.Setenv("GUARDRAILS_UPLOAD_SSE", "DES")
	out, result := doctorToString(t, goodMockAWS(), "table", doctorInput{})
	if result.Config.Valid || result.OverallHealthy {
		t.Fatalf("got %+v", result.Config)
	}
	if !strings.Contains(out, "Runtime config: FAIL") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestDoctor_JSONFormat(t *testing.T) {
	out, _ := doctorToString(t, goodMockAWS(), "json", doctorInput{})
	var decoded DoctorResult
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if !decoded.OverallHealthy || decoded.AWS.AccountID != "123456789012" {
		t.Errorf("got %+v", decoded)
	}
}

func kmsMockAWS(k *fakeKMS) *mockAWSProvider {
	p := goodMockAWS()
	p.profileResult.Clients = &common.ClientSet{KMS: k}
	return p
}

func TestDoctor_KMSKeyEnabled(t *testing.T) {
	t.Setenv("GUARDRAILS_UPLOAD_SSE", "aws:kms")
	t.Setenv("GUARDRAILS_UPLOAD_KMS_KEY_ID", "alias/artifacts")
	k := &fakeKMS{state: kmstypes.KeyStateEnabled}
	out, result := doctorToString(t, kmsMockAWS(k), "table", doctorInput{})
	if !result.Upload.Checked || !result.Upload.KeyOK || !result.OverallHealthy {
		t.Fatalf("got %+v", result.Upload)
	}
	if k.keyID != "alias/artifacts" {
		t.Errorf("DescribeKey(%q)", k.keyID)
	}
	if !strings.Contains(out, "KMS key: OK (alias/artifacts)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestDoctor_KMSKeyDisabled(t *testing.T) {
	t.Setenv("GUARDRAILS_UPLOAD_SSE", "aws:kms")
	t.Setenv("GUARDRAILS_UPLOAD_KMS_KEY_ID", "alias/artifacts")
	out, result := doctorToString(t, kmsMockAWS(&fakeKMS{state: kmstypes.KeyStatePendingDeletion}), "table", doctorInput{})
	if result.Upload.KeyOK || result.OverallHealthy {
		t.Fatalf("got %+v", result.Upload)
	}
	if !strings.Contains(out, "KMS key: FAIL (key alias/artifacts is PendingDeletion)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestDoctor_KMSDescribeError(t *testing.T) {
	t.Setenv("GUARDRAILS_UPLOAD_SSE", "aws:kms")
	t.Setenv("GUARDRAILS_UPLOAD_KMS_KEY_ID", "alias/missing")
	_, result := doctorToString(t, kmsMockAWS(&fakeKMS{err: errors.New("NotFoundException")}), "table", doctorInput{})
	if result.Upload.KeyOK || result.OverallHealthy {
		t.Fatalf("got %+v", result.Upload)
	}
	if !strings.Contains(result.Upload.Error, "NotFoundException") {
		t.Errorf("Error = %q", result.Upload.Error)
	}
}

func TestDoctor_NoKMSKeySkipsCheck(t *testing.T) {
	_, result := doctorToString(t, goodMockAWS(), "table", doctorInput{})
	if result.Upload.Checked {
		t.Errorf("expected KMS check to be skipped; got %+v", result.Upload)
	}
}
