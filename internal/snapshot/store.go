package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// objectKey is where the snapshot lives inside the bucket. One snapshot per
// shutdown/boot cycle; a new shutdown overwrites the previous capture.
const objectKey = "bootsys/pod-states.json"

// ErrNoSnapshot is returned by Load when no snapshot has been captured.
var ErrNoSnapshot = errors.New("no snapshot found")

// Store is the durable snapshot persistence contract.
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
}

// S3Store persists snapshots in an S3-compatible object storage bucket.
type S3Store struct {
	s3     *s3.Client
	bucket string
}

// NewS3Store creates a snapshot store against the given endpoint and
// bucket.
func NewS3Store(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load S3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &S3Store{s3: client, bucket: bucket}, nil
}

// Save implements Store.
func (s *S3Store) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("put snapshot to bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Load implements Store.
func (s *S3Store) Load(ctx context.Context) (*Snapshot, error) {
	result, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("get snapshot from bucket %s: %w", s.bucket, err)
	}
	defer result.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return nil, fmt.Errorf("read snapshot body: %w", err)
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(buf.Bytes(), snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	// S3-compatible services may not return the exact SDK error types.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound" || code == "404"
	}
	return false
}
