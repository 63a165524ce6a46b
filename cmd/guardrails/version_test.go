package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/version"
)

func TestVersionCmd_Output(t *testing.T) {
	orig, origC, origD := version.Version, version.Commit, version.Date
	t.Cleanup(func() { version.Version, version.Commit, version.Date = orig, origC, origD })
	version.Version, version.Commit, version.Date = "test", "abc123", "2025-01-01"

	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("version command returned error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"guardrails version test", "abc123", "2025-01-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q; got:\n%s", want, out)
		}
	}
}
