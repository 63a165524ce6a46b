// Package awsartifact moves CodePipeline artifacts in and out of S3.
//
// Artifacts are read with the temporary credentials carried by the job event
// and written with the function's own credentials, so the two directions use
// separate S3 clients.
package awsartifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
	"github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/common"
)

// maxArtifactSize bounds the artifact zip read into memory.
const maxArtifactSize = 100 << 20

// Supported values for SSEConfig.Algorithm.
const (
	SSENone   = ""
	SSEAES256 = "AES256"
	SSEKMS    = "aws:kms"
)

// SSEConfig selects server-side encryption for uploads.
type SSEConfig struct {
	Algorithm string
	KMSKeyID  string
}

// Validate reports an unsupported algorithm or a key id without aws:kms.
func (c SSEConfig) Validate() error {
	switch c.Algorithm {
	case SSENone, SSEAES256:
		if c.KMSKeyID != "" {
			return fmt.Errorf("upload.kms_key_id requires upload.sse %q", SSEKMS)
		}
	case SSEKMS:
	default:
		return fmt.Errorf("unsupported upload.sse %q (want %q or %q)", c.Algorithm, SSEAES256, SSEKMS)
	}
	return nil
}

// S3ClientFactory builds an S3 client that authenticates with the job's
// artifact credentials.
type S3ClientFactory func(creds models.ArtifactCredentials) common.S3Client

// Store downloads input artifacts and uploads routed templates.
type Store struct {
	artifactClients S3ClientFactory
	uploads         common.S3Client
	sse             SSEConfig
}

// NewStore returns a Store. artifactClients is called once per download;
// uploads is the client used for PutObject.
func NewStore(artifactClients S3ClientFactory, uploads common.S3Client, sse SSEConfig) *Store {
	return &Store{artifactClients: artifactClients, uploads: uploads, sse: sse}
}

// Download fetches the artifact zip with creds.
func (s *Store) Download(ctx context.Context, a models.Artifact, creds models.ArtifactCredentials) ([]byte, error) {
	loc := a.Location.S3Location
	if loc.BucketName == "" || loc.ObjectKey == "" {
		return nil, fmt.Errorf("artifact %q has no S3 location", a.Name)
	}
	zerolog.Ctx(ctx).Debug().
		Str("artifact", a.Name).
		Str("bucket", loc.BucketName).
		Str("key", loc.ObjectKey).
		Msg("downloading artifact")

	out, err := s.artifactClients(creds).GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.BucketName),
		Key:    aws.String(loc.ObjectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("get artifact s3://%s/%s: %w", loc.BucketName, loc.ObjectKey, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, maxArtifactSize+1))
	if err != nil {
		return nil, fmt.Errorf("read artifact s3://%s/%s: %w", loc.BucketName, loc.ObjectKey, err)
	}
	if len(body) > maxArtifactSize {
		return nil, fmt.Errorf("artifact s3://%s/%s exceeds %d bytes", loc.BucketName, loc.ObjectKey, maxArtifactSize)
	}
	return body, nil
}

// DownloadFile downloads the artifact and returns the named file from inside
// its zip.
func (s *Store) DownloadFile(ctx context.Context, a models.Artifact, creds models.ArtifactCredentials, file string) ([]byte, error) {
	data, err := s.Download(ctx, a, creds)
	if err != nil {
		return nil, err
	}
	return ExtractFile(data, file)
}

// UploadTemplate zips template as "<outcome>.template.json" and uploads it to
// bucket under "<outcome>.template.zip". It returns the object key.
func (s *Store) UploadTemplate(ctx context.Context, bucket string, outcome models.Outcome, template []byte) (string, error) {
	entry := string(outcome) + ".template.json"
	key := string(outcome) + ".template.zip"

	body, err := BuildZip(entry, template)
	if err != nil {
		return "", err
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/zip"),
	}
	applySSE(in, s.sse)

	zerolog.Ctx(ctx).Info().
		Str("bucket", bucket).
		Str("key", key).
		Str("sse", s.sse.Algorithm).
		Msg("uploading routed template")

	if _, err := s.uploads.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	return key, nil
}

func applySSE(in *s3.PutObjectInput, sse SSEConfig) {
	switch strings.TrimSpace(sse.Algorithm) {
	case SSEAES256:
		in.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	case SSEKMS:
		in.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		if sse.KMSKeyID != "" {
			in.SSEKMSKeyId = aws.String(sse.KMSKeyID)
		}
	}
}
