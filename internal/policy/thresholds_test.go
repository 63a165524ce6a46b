package policy

import (
	"testing"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
)

func TestRoute_DefaultThresholds(t *testing.T) {
	tests := []struct {
		score int
		want  models.Outcome
	}{
		{0, models.OutcomeValid},
		{4, models.OutcomeValid},
		{5, models.OutcomeFlagged},
		{49, models.OutcomeFlagged},
		{50, models.OutcomeRejected},
		{100, models.OutcomeRejected},
	}
	for _, tt := range tests {
		if got := Route(tt.score, nil); got != tt.want {
			t.Errorf("Route(%d): got %q; want %q", tt.score, got, tt.want)
		}
	}
}

func TestRoute_CustomThresholds(t *testing.T) {
	cfg := Default()
	cfg.Routing = RoutingConfig{FlagThreshold: 1, RejectThreshold: 200}

	if got := Route(100, cfg); got != models.OutcomeFlagged {
		t.Errorf("got %q; want flagged with reject_threshold 200", got)
	}
	if got := Route(0, cfg); got != models.OutcomeValid {
		t.Errorf("got %q; want valid", got)
	}
}
