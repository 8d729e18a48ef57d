// Package artifacts archives the auxiliary spreadsheet files a PDF
// extractor emits alongside a transaction table, outside the report-store
// database. Mirrors the uploadBankStatementToS3/buildBankStatementS3Key
// shape (bucket/region/key-prefix), generalized into a keyed-blob store,
// plus a local-disk fallback for deployments with no AWS_S3_BUCKET
// configured.
package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store archives one artifact and returns an opaque external id (a storage
// key or a local path) the File record's external-file-id carries forward.
type Store interface {
	Put(ctx context.Context, sessionID, name string, data []byte) (externalID string, err error)
}

const keyPrefix = "revenue-analysis/"

// S3Store uploads artifacts to a single configured bucket, keyed by session
// id and artifact name.
type S3Store struct {
	bucket string
	region string
}

// NewS3Store builds an S3Store. region defaults to "us-east-1" when empty,
// matching the AWS SDK's own fallback.
func NewS3Store(bucket, region string) *S3Store {
	if region == "" {
		region = "us-east-1"
	}
	return &S3Store{bucket: bucket, region: region}
}

func buildKey(sessionID, name string) string {
	clean := strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(name)
	return fmt.Sprintf("%s%s/%s", keyPrefix, sanitizeSegment(sessionID), clean)
}

func sanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(s)
}

func detectContentType(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	probe := data
	if len(probe) > 512 {
		probe = probe[:512]
	}
	return http.DetectContentType(probe)
}

// Put implements Store by uploading to S3.
func (st *S3Store) Put(ctx context.Context, sessionID, name string, data []byte) (string, error) {
	key := buildKey(sessionID, name)
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(st.region))
	if err != nil {
		return "", fmt.Errorf("artifacts: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(st.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(detectContentType(data)),
	})
	if err != nil {
		return "", fmt.Errorf("artifacts: upload to s3 (bucket %s, key %s): %w", st.bucket, key, err)
	}
	return "s3://" + st.bucket + "/" + key, nil
}

// LocalStore writes artifacts under a directory, one subfolder per session —
// the fallback used when AWS_S3_BUCKET is unset, so the excel-artifact is
// never silently dropped.
type LocalStore struct {
	root string
}

// NewLocalStore builds a LocalStore rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

// Put implements Store by writing to local disk.
func (st *LocalStore) Put(ctx context.Context, sessionID, name string, data []byte) (string, error) {
	dir := filepath.Join(st.root, sanitizeSegment(sessionID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("artifacts: mkdir: %w", err)
	}
	path := filepath.Join(dir, sanitizeSegment(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("artifacts: write: %w", err)
	}
	return path, nil
}
