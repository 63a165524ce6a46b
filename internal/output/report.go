package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/policy"
)

// SummarySentinel is appended once when the failed-id summary is truncated.
const SummarySentinel = "etc"

// NestedReport keys control results by major id, then by numeric minor id.
// "4.1" is stored at ["4"][1].
type NestedReport map[string]MinorResults

// MinorResults holds the results of one major control keyed by minor id. It
// marshals with keys in numeric order, so 4.2 precedes 4.10.
type MinorResults map[int]models.ControlResult

// MarshalJSON implements json.Marshaler.
func (m MinorResults) MarshalJSON() ([]byte, error) {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:", strconv.Itoa(k))
		body, err := json.Marshal(m[k])
		if err != nil {
			return nil, fmt.Errorf("marshal control %d: %w", k, err)
		}
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Nest re-keys groups into a NestedReport. Control ids without a numeric
// minor part are skipped.
func Nest(groups []models.ControlGroup) NestedReport {
	out := make(NestedReport, len(groups))
	for _, g := range groups {
		for _, c := range g {
			major, minor, ok := splitControlID(c.ControlID)
			if !ok {
				continue
			}
			if out[major] == nil {
				out[major] = make(MinorResults)
			}
			out[major][minor] = c
		}
	}
	return out
}

func splitControlID(id string) (string, int, bool) {
	major, minorStr, found := strings.Cut(id, ".")
	if !found || major == "" {
		return "", 0, false
	}
	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		return "", 0, false
	}
	return major, minor, true
}

// FailedIDs returns the failed control ids in group order, capped by cfg.
//
// With cfg.MaxIDs > 0 at most MaxIDs ids are kept. Otherwise an id is kept
// only while the rendered list so far is shorter than cfg.CharBudget; the
// length is measured as ["a", "b"] to stay compatible with existing report
// consumers. When any id is dropped SummarySentinel is appended once.
func FailedIDs(groups []models.ControlGroup, cfg policy.SummaryConfig) []string {
	ids := []string{}
	truncated := false
	for _, g := range groups {
		for _, c := range g {
			if c.Result {
				continue
			}
			if hasRoom(ids, cfg) {
				ids = append(ids, c.ControlID)
			} else {
				truncated = true
			}
		}
	}
	if truncated {
		ids = append(ids, SummarySentinel)
	}
	return ids
}

func hasRoom(ids []string, cfg policy.SummaryConfig) bool {
	if cfg.MaxIDs > 0 {
		return len(ids) < cfg.MaxIDs
	}
	return renderedLen(ids) < cfg.CharBudget
}

// renderedLen is len(formatList(ids)) without building the string.
func renderedLen(ids []string) int {
	n := 2
	for i, id := range ids {
		if i > 0 {
			n += 2
		}
		n += len(id) + 2
	}
	return n
}

// Summary renders FailedIDs as {"Failed":["4.1", "4.2"]}.
func Summary(groups []models.ControlGroup, cfg policy.SummaryConfig) string {
	return `{"Failed":` + formatList(FailedIDs(groups, cfg)) + "}"
}

func formatList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		b, _ := json.Marshal(id)
		quoted[i] = string(b)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// RenderReport writes the nested report as indented JSON followed by the
// failed-id summary.
func RenderReport(w io.Writer, groups []models.ControlGroup, cfg policy.SummaryConfig) error {
	body, err := json.MarshalIndent(Nest(groups), "", "    ")
	if err != nil {
		return fmt.Errorf("encode control report: %w", err)
	}
	fmt.Fprintln(w, "JSON output:")
	fmt.Fprintln(w, strings.Repeat("-", 55))
	fmt.Fprintln(w, string(body))
	fmt.Fprintln(w, strings.Repeat("-", 55))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintln(w, Summary(groups, cfg))
	return nil
}
