package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
)

var (
	// ErrInvalidUserParameters is returned when UserParameters is missing
	// or cannot be decoded.
	ErrInvalidUserParameters = errors.New("UserParameters could not be decoded as JSON")

	// ErrMissingParameter is returned when a required key is absent.
	ErrMissingParameter = errors.New("missing required UserParameters key")

	// ErrMissingStackName is returned when the Stack Validator gets no stack.
	ErrMissingStackName = errors.New("UserParameters must contain the stack name")

	// ErrArtifactNotFound is returned when a named input artifact is absent.
	ErrArtifactNotFound = errors.New("input artifact not found in event")
)

// TemplateParams are the Template Risk Evaluator's UserParameters.
type TemplateParams struct {
	// Input is the name of the input artifact holding the template zip.
	Input string `json:"input"`
	// File is the path of the template inside the zip.
	File string `json:"file"`
	// Output is the bucket the routed template is uploaded to.
	Output string `json:"output"`
}

// StackName returns the bare stack name the Stack Validator was given.
func StackName(job models.Job) (string, error) {
	name := strings.TrimSpace(job.Data.ActionConfiguration.Configuration.UserParameters)
	if name == "" {
		return "", ErrMissingStackName
	}
	return name, nil
}

// DecodeTemplateParams decodes and validates the Template Risk Evaluator's
// JSON UserParameters. Keys are checked in the order input, file, output.
func DecodeTemplateParams(job models.Job) (TemplateParams, error) {
	raw := job.Data.ActionConfiguration.Configuration.UserParameters

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return TemplateParams{}, ErrInvalidUserParameters
	}
	var p TemplateParams
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return TemplateParams{}, ErrInvalidUserParameters
	}

	required := []struct {
		key  string
		what string
	}{
		{"input", "the artifact name"},
		{"file", "the template file name"},
		{"output", "the output bucket"},
	}
	for _, r := range required {
		if _, ok := fields[r.key]; !ok {
			return TemplateParams{}, fmt.Errorf("%w: Your UserParameters JSON must include %s", ErrMissingParameter, r.what)
		}
	}
	return p, nil
}

// FindArtifact returns the input artifact called name.
func FindArtifact(artifacts []models.Artifact, name string) (models.Artifact, error) {
	for _, a := range artifacts {
		if a.Name == name {
			return a, nil
		}
	}
	return models.Artifact{}, fmt.Errorf("%w: %q", ErrArtifactNotFound, name)
}
