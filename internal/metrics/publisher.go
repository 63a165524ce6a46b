// Package metrics publishes guardrail outcomes as CloudWatch custom metrics.
package metrics

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/common"
)

// DefaultNamespace is used when no namespace is configured.
const DefaultNamespace = "SecGuardrails"

const (
	metricControlFailed = "ControlFailed"
	metricRiskScore     = "RiskScore"
)

// Publisher records gate outcomes. Publishing is best effort: errors are
// logged and never returned to the caller.
type Publisher interface {
	// ControlResults emits one ControlFailed datum per control, 1 when the
	// control failed and 0 when it passed.
	ControlResults(ctx context.Context, stack string, groups []models.ControlGroup)

	// RiskScore emits the template risk score tagged with its outcome.
	RiskScore(ctx context.Context, score int, outcome models.Outcome)
}

// Nop discards every metric. It is used when metrics are disabled.
type Nop struct{}

func (Nop) ControlResults(context.Context, string, []models.ControlGroup) {}
func (Nop) RiskScore(context.Context, int, models.Outcome)                {}

// CloudWatchPublisher sends metrics with PutMetricData.
type CloudWatchPublisher struct {
	client    common.CloudWatchClient
	namespace string
}

// NewCloudWatchPublisher returns a publisher writing to namespace, or to
// DefaultNamespace when namespace is empty.
func NewCloudWatchPublisher(client common.CloudWatchClient, namespace string) *CloudWatchPublisher {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &CloudWatchPublisher{client: client, namespace: namespace}
}

// New returns a CloudWatchPublisher when enabled is true and Nop otherwise.
func New(enabled bool, client common.CloudWatchClient, namespace string) Publisher {
	if !enabled || client == nil {
		return Nop{}
	}
	return NewCloudWatchPublisher(client, namespace)
}

// ControlResults implements Publisher.
func (p *CloudWatchPublisher) ControlResults(ctx context.Context, stack string, groups []models.ControlGroup) {
	var data []cwtypes.MetricDatum
	for _, g := range groups {
		for _, c := range g {
			value := 0.0
			if !c.Result {
				value = 1
			}
			data = append(data, cwtypes.MetricDatum{
				MetricName: aws.String(metricControlFailed),
				Unit:       cwtypes.StandardUnitCount,
				Value:      aws.Float64(value),
				Dimensions: []cwtypes.Dimension{
					{Name: aws.String("ControlId"), Value: aws.String(c.ControlID)},
				},
			})
		}
	}
	if len(data) == 0 {
		return
	}
	p.put(ctx, data, zerolog.Ctx(ctx).With().Str("stack", stack).Logger())
}

// RiskScore implements Publisher.
func (p *CloudWatchPublisher) RiskScore(ctx context.Context, score int, outcome models.Outcome) {
	data := []cwtypes.MetricDatum{{
		MetricName: aws.String(metricRiskScore),
		Unit:       cwtypes.StandardUnitNone,
		Value:      aws.Float64(float64(score)),
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String("Outcome"), Value: aws.String(string(outcome))},
		},
	}}
	p.put(ctx, data, zerolog.Ctx(ctx).With().Str("outcome", string(outcome)).Logger())
}

func (p *CloudWatchPublisher) put(ctx context.Context, data []cwtypes.MetricDatum, log zerolog.Logger) {
	_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(p.namespace),
		MetricData: data,
	})
	if err != nil {
		log.Warn().Err(err).Str("namespace", p.namespace).Msg("publishing metrics failed")
		return
	}
	log.Debug().Int("datums", len(data)).Str("namespace", p.namespace).Msg("published metrics")
}
