package models

// JobEvent is the payload CodePipeline sends to a Lambda action.
type JobEvent struct {
	Job Job `json:"CodePipeline.job"`
}

// Job identifies one pipeline action execution.
type Job struct {
	ID        string  `json:"id"`
	AccountID string  `json:"accountId"`
	Data      JobData `json:"data"`
}

// JobData carries the action configuration, artifacts and credentials.
type JobData struct {
	ActionConfiguration ActionConfiguration `json:"actionConfiguration"`
	InputArtifacts      []Artifact          `json:"inputArtifacts"`
	OutputArtifacts     []Artifact          `json:"outputArtifacts"`
	ArtifactCredentials ArtifactCredentials `json:"artifactCredentials"`
	ContinuationToken   string              `json:"continuationToken,omitempty"`
}

// ActionConfiguration wraps the user-supplied configuration.
type ActionConfiguration struct {
	Configuration ActionSettings `json:"configuration"`
}

// ActionSettings holds the Lambda action settings. UserParameters is an opaque
// string whose format depends on the gate.
type ActionSettings struct {
	FunctionName   string `json:"FunctionName"`
	UserParameters string `json:"UserParameters"`
}

// Artifact is a named pipeline artifact stored in S3.
type Artifact struct {
	Name     string           `json:"name"`
	Revision *string          `json:"revision,omitempty"`
	Location ArtifactLocation `json:"location"`
}

// ArtifactLocation points at the artifact object.
type ArtifactLocation struct {
	Type       string     `json:"type"`
	S3Location S3Location `json:"s3Location"`
}

// S3Location is a bucket/key pair.
type S3Location struct {
	BucketName string `json:"bucketName"`
	ObjectKey  string `json:"objectKey"`
}

// ArtifactCredentials are the temporary credentials CodePipeline issues for
// reading the artifact store.
type ArtifactCredentials struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	SessionToken    string `json:"sessionToken"`
}
