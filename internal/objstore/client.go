// Package objstore provides S3-compatible object storage access for
// session snapshot archival. It wraps the AWS SDK with conditional
// writes, which back a distributed lease so only one instance uploads
// snapshots, and zstd streaming helpers for the snapshot payloads.
package objstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("objstore: object not found")

// Config holds object storage credentials and target bucket.
type Config struct {
	// Endpoint is the storage endpoint URL. Cloudflare R2 uses
	// https://<account-id>.r2.cloudflarestorage.com.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
}

// Client wraps one bucket of an S3-compatible store.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New creates a storage client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.BucketName == "" {
		return nil, errors.New("objstore: all config fields are required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("objstore: load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // R2 only supports path-style addressing
	})

	return &Client{
		s3:     s3Client,
		bucket: cfg.BucketName,
	}, nil
}

// Upload stores an object and returns its ETag.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	result, err := c.s3.PutObject(ctx, input)
	if err != nil {
		return "", fmt.Errorf("objstore: upload %q: %w", key, err)
	}
	return trimETag(result.ETag), nil
}

// Download fetches an object. The caller must close the body.
func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("objstore: download %q: %w", key, err)
	}
	return result.Body, trimETag(result.ETag), nil
}

// Head returns an object's ETag without the body, or ErrNotFound.
func (c *Client) Head(ctx context.Context, key string) (string, error) {
	result, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("objstore: head %q: %w", key, err)
	}
	return trimETag(result.ETag), nil
}

// PutIfAbsent creates an object only when the key is free, via
// If-None-Match. Returns (true, etag) when created, (false, "") when
// the object already exists.
func (c *Client) PutIfAbsent(ctx context.Context, key string, body io.Reader, contentType string) (bool, string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		IfNoneMatch: aws.String("*"),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	result, err := c.s3.PutObject(ctx, input)
	if err != nil {
		if isPreconditionFailed(err) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("objstore: put if absent %q: %w", key, err)
	}
	return true, trimETag(result.ETag), nil
}

// PutIfMatch replaces an object only when its ETag still matches.
// Returns (true, newEtag) when replaced, (false, "") on a lost race.
func (c *Client) PutIfMatch(ctx context.Context, key string, body io.Reader, etag string, contentType string) (bool, string, error) {
	input := &s3.PutObjectInput{
		Bucket:  aws.String(c.bucket),
		Key:     aws.String(key),
		Body:    body,
		IfMatch: aws.String("\"" + etag + "\""),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	result, err := c.s3.PutObject(ctx, input)
	if err != nil {
		if isPreconditionFailed(err) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("objstore: put if match %q: %w", key, err)
	}
	return true, trimETag(result.ETag), nil
}

// Delete removes an object. Deleting an absent key succeeds.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("objstore: delete %q: %w", key, err)
	}
	return nil
}

func trimETag(etag *string) string {
	if etag == nil {
		return ""
	}
	return strings.Trim(*etag, "\"")
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
		return true
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 412 {
		return true
	}
	return strings.Contains(err.Error(), "PreconditionFailed")
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
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	return false
}

// leaseDoc is the serialized lease content.
type leaseDoc struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Lease is a distributed lease built on conditional writes. It elects
// the instance allowed to upload session snapshots.
type Lease struct {
	client  *Client
	key     string
	ttl     time.Duration
	ownerID string
	etag    string
}

// NewLease creates a lease on the given object key.
func NewLease(client *Client, key string, ttl time.Duration) *Lease {
	return &Lease{
		client:  client,
		key:     key,
		ttl:     ttl,
		ownerID: uuid.New().String(),
	}
}

// OwnerID returns this instance's lease identity.
func (l *Lease) OwnerID() string { return l.ownerID }

// Acquire tries to take the lease. Returns (true, nil) when this
// instance now holds it and (false, nil) when another live holder does.
func (l *Lease) Acquire(ctx context.Context) (bool, error) {
	data, err := json.Marshal(leaseDoc{
		Owner:     l.ownerID,
		ExpiresAt: time.Now().Add(l.ttl),
	})
	if err != nil {
		return false, fmt.Errorf("acquire lease: marshal: %w", err)
	}

	created, etag, err := l.client.PutIfAbsent(ctx, l.key, bytes.NewReader(data), "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	if created {
		l.etag = etag
		return true, nil
	}

	expired, oldEtag, err := l.holderExpired(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lease: check holder: %w", err)
	}
	if !expired {
		return false, nil
	}

	// The holder is gone; take over its slot with a compare-and-swap so
	// only one contender wins.
	taken, newEtag, err := l.client.PutIfMatch(ctx, l.key, bytes.NewReader(data), oldEtag, "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lease: take over: %w", err)
	}
	if taken {
		l.etag = newEtag
		return true, nil
	}
	return false, nil
}

// Renew extends the lease while this instance still holds it. Returns
// (false, nil) when the lease was lost.
func (l *Lease) Renew(ctx context.Context) (bool, error) {
	if l.etag == "" {
		return false, nil
	}

	data, err := json.Marshal(leaseDoc{
		Owner:     l.ownerID,
		ExpiresAt: time.Now().Add(l.ttl),
	})
	if err != nil {
		return false, fmt.Errorf("renew lease: marshal: %w", err)
	}

	renewed, newEtag, err := l.client.PutIfMatch(ctx, l.key, bytes.NewReader(data), l.etag, "application/json")
	if err != nil {
		return false, fmt.Errorf("renew lease: %w", err)
	}
	if !renewed {
		return false, nil
	}
	l.etag = newEtag
	return true, nil
}

// Release gives the lease up when this instance still owns it.
func (l *Lease) Release(ctx context.Context) error {
	body, _, err := l.client.Download(ctx, l.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("release lease: verify: %w", err)
	}

	data, err := io.ReadAll(body)
	_ = body.Close()
	if err != nil {
		return fmt.Errorf("release lease: read: %w", err)
	}

	var doc leaseDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		// Unreadable lease content, clear it.
		return l.client.Delete(ctx, l.key)
	}
	if doc.Owner != l.ownerID {
		return nil
	}
	return l.client.Delete(ctx, l.key)
}

// holderExpired checks whether the current lease holder timed out.
func (l *Lease) holderExpired(ctx context.Context) (bool, string, error) {
	body, etag, err := l.client.Download(ctx, l.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true, "", nil
		}
		return false, "", err
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return false, "", fmt.Errorf("read lease: %w", err)
	}

	var doc leaseDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return true, etag, nil
	}
	return time.Now().After(doc.ExpiresAt), etag, nil
}

// CompressFile zstd-compresses srcPath into dstPath.
func CompressFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("compress: open source: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("compress: create dest: %w", err)
	}
	defer func() { _ = dst.Close() }()

	encoder, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("compress: create encoder: %w", err)
	}
	if _, err := io.Copy(encoder, src); err != nil {
		_ = encoder.Close()
		return fmt.Errorf("compress: copy: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("compress: close encoder: %w", err)
	}
	return nil
}

// DecompressStream streams a zstd payload into dstPath.
func DecompressStream(r io.Reader, dstPath string) error {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("decompress: create decoder: %w", err)
	}
	defer decoder.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("decompress: create dest: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, decoder); err != nil {
		return fmt.Errorf("decompress: copy: %w", err)
	}
	return nil
}
