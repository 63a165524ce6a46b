package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/config"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/policy"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/common"
)

// DoctorResult is the structured output of guardrails doctor. It can be
// serialised to JSON via --format=json or rendered as text (default).
type DoctorResult struct {
	Config struct {
		Valid bool   `json:"valid"`
		Error string `json:"error,omitempty"`
	} `json:"config"`

	AWS struct {
		Profile     string `json:"profile,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		RegionsOK   bool   `json:"regions_ok"`
		Regions     int    `json:"regions,omitempty"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	Upload struct {
		SSE      string `json:"sse,omitempty"`
		KMSKeyID string `json:"kms_key_id,omitempty"`
		Checked  bool   `json:"checked"`
		KeyOK    bool   `json:"key_ok"`
		Error    string `json:"error,omitempty"`
	} `json:"upload"`

	Policy struct {
		File    string   `json:"file,omitempty"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"policy"`

	OverallHealthy bool `json:"overall_healthy"`
}

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, policy and AWS access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			configPath, _ := cmd.Flags().GetString("config")
			profile, _ := cmd.Flags().GetString("profile")
			region, _ := cmd.Flags().GetString("region")
			policyPath, _ := cmd.Flags().GetString("policy")

			result, err := runDoctor(cmd.Context(), newAWSClientProvider(), cmd.OutOrStdout(), format, doctorInput{
				configPath: configPath,
				profile:    profile,
				region:     region,
				policyPath: policyPath,
			})
			if err != nil {
				return err
			}
			if !result.OverallHealthy {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	return cmd
}

// doctorInput carries the flag values doctor inspects.
type doctorInput struct {
	configPath string
	profile    string
	region     string
	policyPath string
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result. The returned error covers only
// rendering failures; callers inspect result.OverallHealthy.
func runDoctor(ctx context.Context, awsProvider common.AWSClientProvider, w io.Writer, format string, in doctorInput) (DoctorResult, error) {
	result := collectDoctorResult(ctx, awsProvider, in)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}
	return result, nil
}

// collectDoctorResult runs all environment checks and populates a
// DoctorResult. It performs no rendering.
func collectDoctorResult(ctx context.Context, awsProvider common.AWSClientProvider, in doctorInput) DoctorResult {
	var result DoctorResult

	// Config: load → validate. Flag values override the file.
	cfg, err := config.Load(in.configPath)
	if err != nil {
		result.Config.Error = err.Error()
		cfg = &config.Config{}
	} else {
		result.Config.Valid = true
	}
	if in.profile != "" {
		cfg.AWS.Profile = in.profile
	}
	if in.region != "" {
		cfg.AWS.Region = in.region
	}
	if in.policyPath != "" {
		cfg.Policy.File = in.policyPath
	}

	// AWS: credentials → STS account ID → region discovery.
	result.AWS.Profile = cfg.AWS.Profile
	profileCfg, err := awsProvider.LoadProfile(ctx, cfg.AWS.Profile, cfg.AWS.Region)
	if err != nil {
		result.AWS.Error = err.Error()
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = profileCfg.AccountID
		regions, err := awsProvider.GetActiveRegions(ctx, profileCfg)
		if err != nil {
			result.AWS.Error = err.Error()
		} else {
			result.AWS.RegionsOK = true
			result.AWS.Regions = len(regions)
		}
	}

	// Upload: the SSE-KMS key must exist and be enabled.
	result.Upload.SSE = cfg.Upload.SSE
	result.Upload.KMSKeyID = cfg.Upload.KMSKeyID
	if cfg.Upload.KMSKeyID != "" && profileCfg != nil && profileCfg.Clients != nil && profileCfg.Clients.KMS != nil {
		result.Upload.Checked = true
		if err := checkKMSKey(ctx, profileCfg.Clients.KMS, cfg.Upload.KMSKeyID); err != nil {
			result.Upload.Error = err.Error()
		} else {
			result.Upload.KeyOK = true
		}
	}

	// Policy: optional; an unset path means the built-in policy.
	if cfg.Policy.File != "" {
		result.Policy.File = cfg.Policy.File
		if _, statErr := os.Stat(cfg.Policy.File); statErr != nil {
			result.Policy.Errors = []string{statErr.Error()}
		} else {
			result.Policy.Present = true
			if _, loadErr := policy.LoadPolicy(cfg.Policy.File); loadErr != nil {
				result.Policy.Errors = []string{loadErr.Error()}
			} else {
				result.Policy.Valid = true
			}
		}
	}

	result.OverallHealthy = result.Config.Valid &&
		result.AWS.Credentials &&
		result.AWS.RegionsOK &&
		(!result.Upload.Checked || result.Upload.KeyOK) &&
		(result.Policy.File == "" || result.Policy.Valid)

	return result
}

// checkKMSKey reports an error unless keyID names an enabled KMS key.
func checkKMSKey(ctx context.Context, client common.KMSClient, keyID string) error {
	out, err := client.DescribeKey(ctx, &kms.DescribeKeyInput{KeyId: aws.String(keyID)})
	if err != nil {
		return fmt.Errorf("describe key %s: %w", keyID, err)
	}
	if out.KeyMetadata == nil || out.KeyMetadata.KeyState != kmstypes.KeyStateEnabled {
		state := "unknown"
		if out.KeyMetadata != nil {
			state = string(out.KeyMetadata.KeyState)
		}
		return fmt.Errorf("key %s is %s", keyID, state)
	}
	return nil
}

// renderDoctorTable writes the human-readable diagnostic output to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintln(w, "\nConfig:")
	if result.Config.Valid {
		doctorPrint(w, "Runtime config", "OK", "")
	} else {
		doctorPrint(w, "Runtime config", "FAIL", result.Config.Error)
	}

	if result.AWS.Profile != "" {
		fmt.Fprintf(w, "\nAWS (profile: %s):\n", result.AWS.Profile)
	} else {
		fmt.Fprintln(w, "\nAWS:")
	}
	if !result.AWS.Credentials {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
		doctorPrint(w, "Regions API", "FAIL", "skipped")
	} else {
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		if result.AWS.RegionsOK {
			doctorPrint(w, "Regions API", "OK", fmt.Sprintf("%d enabled", result.AWS.Regions))
		} else {
			doctorPrint(w, "Regions API", "FAIL", result.AWS.Error)
		}
	}

	fmt.Fprintln(w, "\nUpload:")
	switch {
	case result.Upload.SSE == "":
		doctorPrint(w, "Encryption", "None (bucket default)", "")
	case !result.Upload.Checked:
		doctorPrint(w, "Encryption", result.Upload.SSE, result.Upload.KMSKeyID)
	case result.Upload.KeyOK:
		doctorPrint(w, "KMS key", "OK", result.Upload.KMSKeyID)
	default:
		doctorPrint(w, "KMS key", "FAIL", result.Upload.Error)
	}

	fmt.Fprintln(w, "\nPolicy:")
	switch {
	case result.Policy.File == "":
		doctorPrint(w, "Policy file", "Not set (built-in policy)", "")
	case !result.Policy.Present:
		doctorPrint(w, "Policy file", "FAIL", firstOr(result.Policy.Errors, "not found"))
	default:
		doctorPrint(w, "Policy file", "YES", result.Policy.File)
		if result.Policy.Valid {
			doctorPrint(w, "Policy valid", "OK", "")
		} else {
			for _, e := range result.Policy.Errors {
				doctorPrint(w, "Policy valid", "FAIL", e)
			}
		}
	}
}

func firstOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
