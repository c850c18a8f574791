package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// DocumentStore keeps invoice documents and rendered previews in an
// S3-compatible bucket (MinIO, Ceph RGW, or AWS itself).
type DocumentStore struct {
	client *s3.Client
	bucket string
	logger zerolog.Logger
}

// New creates a DocumentStore against the given endpoint and bucket.
func New(logger zerolog.Logger, endpoint, region, accessKey, secretKey, bucket string) *DocumentStore {
	client := s3.New(s3.Options{
		BaseEndpoint: aws.String(endpoint),
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true, // MinIO and RGW route by path, not virtual host.
	})
	return &DocumentStore{
		client: client,
		bucket: bucket,
		logger: logger.With().Str("component", "document-store").Logger(),
	}
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *DocumentStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// If the bucket already exists, that's fine.
		if !strings.Contains(err.Error(), "BucketAlreadyExists") &&
			!strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Put stores an object under the given key.
func (s *DocumentStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	s.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("storing object")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Get retrieves an object. The caller must close the returned reader.
func (s *DocumentStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("get object %s: %w", key, err)
	}

	contentType := "application/octet-stream"
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return out.Body, contentType, nil
}

// GetBytes retrieves an object fully into memory.
func (s *DocumentStore) GetBytes(ctx context.Context, key string) ([]byte, string, error) {
	body, contentType, err := s.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read object %s: %w", key, err)
	}
	return data, contentType, nil
}

// Delete removes an object. Missing objects are not an error.
func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !strings.Contains(err.Error(), "NoSuchKey") {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// DocumentKey returns the object key for an invoice's uploaded PDF.
func DocumentKey(invoiceID string) string {
	return fmt.Sprintf("invoices/%s/document.pdf", invoiceID)
}

// PreviewKey returns the object key for a rendered page preview.
func PreviewKey(invoiceID string, page int) string {
	return fmt.Sprintf("invoices/%s/preview-%d.png", invoiceID, page)
}
