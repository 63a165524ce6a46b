// Package output renders guardrail results for people and for pipeline
// tooling: the nested JSON control report, the failed-id summary and the
// CLI tables.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
)

// ANSI color codes for result output (used when Colored=true).
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[0;31m"
	ansiGreen  = "\033[0;32m"
	ansiYellow = "\033[0;33m"
)

// TableOptions controls how RenderTable renders results.
type TableOptions struct {
	// Colored wraps PASS/FAIL labels with ANSI codes. Default false (CI-safe).
	Colored bool

	// IncludeOffenders adds an OFFENDERS column.
	IncludeOffenders bool
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// resultCell returns PASS or FAIL padded to width characters. When colored,
// ANSI codes wrap only the text so padding stays aligned.
func resultCell(passed bool, width int, colored bool) string {
	text, code := "PASS", ansiGreen
	if !passed {
		text, code = "FAIL", ansiRed
	}
	if !colored {
		return fmt.Sprintf("%-*s", width, text)
	}
	return code + text + ansiReset + strings.Repeat(" ", width-len(text))
}

// outcomeLabel colors a routing outcome.
func outcomeLabel(o models.Outcome, colored bool) string {
	s := strings.ToUpper(string(o))
	if !colored {
		return s
	}
	switch o {
	case models.OutcomeValid:
		return ansiGreen + s + ansiReset
	case models.OutcomeFlagged:
		return ansiYellow + s + ansiReset
	case models.OutcomeRejected:
		return ansiRed + s + ansiReset
	default:
		return s
	}
}

// RenderTable writes one row per control to w.
//
// Column order:
//
//	CONTROL  RESULT  [OFFENDERS]  DESCRIPTION / REASON
func RenderTable(w io.Writer, groups []models.ControlGroup, opts TableOptions) {
	var rows []models.ControlResult
	for _, g := range groups {
		rows = append(rows, g...)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No controls evaluated.")
		return
	}

	const (
		wControl   = 8
		wResult    = 6
		wOffenders = 40
		wMessage   = 70
	)

	var hb strings.Builder
	hb.WriteString(fmt.Sprintf("%-*s", wControl, "CONTROL"))
	hb.WriteString(fmt.Sprintf("  %-*s", wResult, "RESULT"))
	if opts.IncludeOffenders {
		hb.WriteString(fmt.Sprintf("  %-*s", wOffenders, "OFFENDERS"))
	}
	hb.WriteString(fmt.Sprintf("  %-*s", wMessage, "DESCRIPTION / REASON"))
	header := strings.TrimRight(hb.String(), " ")

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, c := range rows {
		var rb strings.Builder
		rb.WriteString(fmt.Sprintf("%-*s", wControl, c.ControlID))
		rb.WriteString("  " + resultCell(c.Result, wResult, opts.Colored))
		if opts.IncludeOffenders {
			rb.WriteString(fmt.Sprintf("  %-*s", wOffenders, ShortenMessage(strings.Join(c.Offenders, ", "), wOffenders)))
		}
		msg := c.Description
		if !c.Result {
			msg = c.FailReason
		}
		rb.WriteString("  " + ShortenMessage(msg, wMessage))
		fmt.Fprintln(w, rb.String())
	}
}

// RenderAssessment writes a template risk assessment and its routing outcome.
func RenderAssessment(w io.Writer, file string, a models.RiskAssessment, outcome models.Outcome, colored bool) {
	fmt.Fprintf(w, "Template:   %s\n", file)
	fmt.Fprintf(w, "Risk score: %d\n", a.RiskScore)
	fmt.Fprintf(w, "Outcome:    %s\n", outcomeLabel(outcome, colored))
	if len(a.FailedRules) == 0 {
		fmt.Fprintln(w, "No failed rules.")
		return
	}
	fmt.Fprintln(w, "Failed rules:")
	for _, r := range a.FailedRules {
		fmt.Fprintf(w, "  - %s\n", r)
	}
}
