package engine

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
	awssecurity "github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/security"
)

// MockSignaler is a mock implementation of pipeline.Signaler.
type MockSignaler struct {
	mock.Mock
}

func (m *MockSignaler) Success(ctx context.Context, jobID, message string) error {
	return m.Called(ctx, jobID, message).Error(0)
}

func (m *MockSignaler) Failure(ctx context.Context, jobID, message string) error {
	return m.Called(ctx, jobID, message).Error(0)
}

func (m *MockSignaler) Continue(ctx context.Context, jobID, message string) error {
	return m.Called(ctx, jobID, message).Error(0)
}

// MockCollector is a mock implementation of awssecurity.StackCollector.
type MockCollector struct {
	mock.Mock
}

func (m *MockCollector) StackState(ctx context.Context, stack string) (awssecurity.StackState, error) {
	args := m.Called(ctx, stack)
	return args.Get(0).(awssecurity.StackState), args.Error(1)
}

func (m *MockCollector) CollectSecurityGroups(ctx context.Context, stack string, regions []string) ([]models.SecurityGroupSnapshot, error) {
	args := m.Called(ctx, stack, regions)
	groups, _ := args.Get(0).([]models.SecurityGroupSnapshot)
	return groups, args.Error(1)
}

func (m *MockCollector) CollectBucket(ctx context.Context, stack, logicalID string) (models.BucketSnapshot, error) {
	args := m.Called(ctx, stack, logicalID)
	return args.Get(0).(models.BucketSnapshot), args.Error(1)
}

func (m *MockCollector) DeleteStack(ctx context.Context, stack string) error {
	return m.Called(ctx, stack).Error(0)
}

// MockPublisher is a mock implementation of metrics.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) ControlResults(ctx context.Context, stack string, groups []models.ControlGroup) {
	m.Called(ctx, stack, groups)
}

func (m *MockPublisher) RiskScore(ctx context.Context, score int, outcome models.Outcome) {
	m.Called(ctx, score, outcome)
}

// fakeArtifacts is an in-memory ArtifactStore.
type fakeArtifacts struct {
	files    map[string][]byte
	getErr   error
	getPanic any
	putErr   error
	uploads  []upload
}

type upload struct {
	bucket  string
	outcome models.Outcome
	body    []byte
}

func (f *fakeArtifacts) DownloadFile(_ context.Context, a models.Artifact, _ models.ArtifactCredentials, file string) ([]byte, error) {
	if f.getPanic != nil {
		panic(f.getPanic)
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	body, ok := f.files[a.Name+"/"+file]
	if !ok {
		return nil, errTemplateMissing
	}
	return body, nil
}

func (f *fakeArtifacts) UploadTemplate(_ context.Context, bucket string, outcome models.Outcome, body []byte) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	f.uploads = append(f.uploads, upload{bucket: bucket, outcome: outcome, body: body})
	return string(outcome) + ".template.zip", nil
}
