package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/engine"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/output"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/policy"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/version"
)

// errControlsFailed is returned by local validation when a control fails so
// the process exits non-zero.
var errControlsFailed = errors.New("stack failed guardrail controls")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "guardrails",
		Short:         "SecGuardrails: deployment pipeline security gates for AWS",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "Path to a config file (default: environment only)")
	pf.String("profile", "", "AWS profile to use (default: credential chain)")
	pf.String("region", "", "AWS region override")
	pf.StringSlice("regions", nil, "Regions to scan for security groups (default: all enabled)")
	pf.String("policy", "", "Path to the guardrail policy YAML (default: built-in policy)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", `Log format: "json" or "console"`)

	root.AddCommand(newLambdaCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newEvaluateCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

// ── lambda ────────────────────────────────────────────────────────────────────

func newLambdaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lambda",
		Short: "Run a gate inside the AWS Lambda runtime",
	}
	cmd.AddCommand(newLambdaGateCmd("stack-validator", "Validate a deployed stack for CodePipeline",
		func(rt *runtime, d *awsDeps) engine.Gate { return rt.stackValidator(d, os.Stdout) }))
	cmd.AddCommand(newLambdaGateCmd("template-evaluator", "Score and route a template artifact for CodePipeline",
		func(rt *runtime, d *awsDeps) engine.Gate { return rt.templateEvaluator(d) }))
	return cmd
}

func newLambdaGateCmd(use, short string, build func(*runtime, *awsDeps) engine.Gate) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(cmd, os.Stdout)
			if err != nil {
				return err
			}
			ctx := rt.logger.WithContext(context.Background())
			deps, err := rt.loadAWS(ctx)
			if err != nil {
				return err
			}
			rt.logger.Info().Str("gate", use).Str("account_id", deps.profile.AccountID).Msg("starting lambda runtime")
			lambda.Start(jobHandler(rt, build(rt, deps)))
			return nil
		},
	}
}

// jobHandler adapts a Gate to the Lambda handler signature. Each invocation
// gets the process logger attached to its context.
func jobHandler(rt *runtime, gate engine.Gate) func(context.Context, models.JobEvent) error {
	return func(ctx context.Context, event models.JobEvent) error {
		ctx = rt.logger.WithContext(ctx)
		rt.logger.Info().Str("job_id", event.Job.ID).Msg("received job")
		return gate.Run(ctx, event.Job)
	}
}

// ── validate ──────────────────────────────────────────────────────────────────

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the Stack Validator outside a pipeline",
	}
	cmd.AddCommand(newValidateStackCmd())
	return cmd
}

func newValidateStackCmd() *cobra.Command {
	var (
		enforce bool
		jobID   string
		format  string
	)
	cmd := &cobra.Command{
		Use:   "stack <name>",
		Short: "Evaluate controls 4.1 and 4.2 against a deployed stack",
		Long: "Evaluate controls 4.1 and 4.2 against a deployed stack and print the results.\n" +
			"Nothing is deleted or signalled unless --enforce is set together with --job-id,\n" +
			"in which case the full gate runs exactly as it does in the pipeline.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if enforce && jobID == "" {
				return fmt.Errorf("--enforce requires --job-id")
			}
			rt, err := loadRuntime(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := rt.logger.WithContext(cmd.Context())
			deps, err := rt.loadAWS(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if enforce {
				var job models.Job
				job.ID = jobID
				job.Data.ActionConfiguration.Configuration.UserParameters = args[0]
				return rt.stackValidator(deps, out).Run(ctx, job)
			}
			report, err := rt.stackValidator(deps, nil).Evaluate(ctx, args[0])
			if err != nil {
				return err
			}
			return renderStackReport(out, report, format, rt.policy)
		},
	}
	cmd.Flags().BoolVar(&enforce, "enforce", false, "Delete the stack on failure and signal the pipeline job")
	cmd.Flags().StringVar(&jobID, "job-id", "", "CodePipeline job id to signal with --enforce")
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	return cmd
}

// renderStackReport prints report and returns errControlsFailed when any
// control failed.
func renderStackReport(w io.Writer, report *models.StackReport, format string, cfg *policy.PolicyConfig) error {
	switch format {
	case "json":
		if err := output.RenderReport(w, report.Groups, cfg.Summary); err != nil {
			return err
		}
	case "table":
		fmt.Fprintf(w, "Stack: %s  Account: %s  Regions: %s\n\n", report.StackName, report.AccountID, strings.Join(report.Regions, ","))
		output.RenderTable(w, report.Groups, output.TableOptions{Colored: isTerminal(w), IncludeOffenders: true})
		fmt.Fprintln(w)
		fmt.Fprintln(w, output.Summary(report.Groups, cfg.Summary))
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	if !report.Passed() {
		return errControlsFailed
	}
	return nil
}

// ── evaluate ──────────────────────────────────────────────────────────────────

func newEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the Template Risk Evaluator outside a pipeline",
	}
	cmd.AddCommand(newEvaluateTemplateCmd())
	return cmd
}

func newEvaluateTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template <file>",
		Short: "Score a local CloudFormation template and print its routing outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runEvaluateTemplate(cmd.OutOrStdout(), args[0], rt.policy)
		},
	}
}

// runEvaluateTemplate scores the template at path and prints the result. A
// rejected template is reported as an error.
func runEvaluateTemplate(w io.Writer, path string, cfg *policy.PolicyConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	assessment, outcome, err := engine.Assess(data, cfg)
	if err != nil {
		return err
	}
	output.RenderAssessment(w, path, assessment, outcome, isTerminal(w))
	if outcome == models.OutcomeRejected {
		return fmt.Errorf("template %s rejected with risk score %d", path, assessment.RiskScore)
	}
	return nil
}

// isTerminal reports whether w is an interactive terminal. Colour codes are
// only emitted when it is.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
