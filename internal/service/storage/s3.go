// Package storage adapts S3-compatible object stores (MinIO in the reference
// deployment) to the domain.ObjectStore port.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"deltashare-mock/internal/config"
	"deltashare-mock/internal/domain"
)

// Compile-time check: S3Store implements the object store port.
var _ domain.ObjectStore = (*S3Store)(nil)

// S3Store talks to an S3-compatible store using path-style addressing.
type S3Store struct {
	client *s3.Client
	region string
}

// NewS3Store creates a store client from the storage configuration. The
// client applies dial and response-header timeouts and a bounded standard
// retryer so an unreachable store fails promptly.
func NewS3Store(cfg config.StorageConfig) (*S3Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}

	httpClient := awshttp.NewBuildableClient().
		WithDialerOptions(func(d *net.Dialer) {
			d.Timeout = cfg.ConnectTimeout
		}).
		WithTransportOptions(func(tr *http.Transport) {
			tr.ResponseHeaderTimeout = cfg.ReadTimeout
		})

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	client := s3.New(s3.Options{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		),
		BaseEndpoint: aws.String(cfg.EndpointURL()),
		UsePathStyle: true, // MinIO requires path-style URLs
		HTTPClient:   httpClient,
		Retryer: retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxAttempts
			o.MaxBackoff = 2 * time.Second
		}),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})

	return &S3Store{client: client, region: cfg.Region}, nil
}

// BucketExists reports whether bucket exists.
func (s *S3Store) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return true, nil
	}
	err = classify(err, "head bucket %s", bucket)
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return false, nil
	}
	return false, err
}

// MakeBucket creates bucket. A bucket that already exists is not an error.
func (s *S3Store) MakeBucket(ctx context.Context, bucket string) error {
	in := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if s.region != "" && s.region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	_, err := s.client.CreateBucket(ctx, in)
	if err == nil {
		return nil
	}
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	if errors.As(err, &owned) || errors.As(err, &exists) {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			return nil
		}
	}
	return classify(err, "create bucket %s", bucket)
}

// StatObject returns the metadata of bucket/key.
func (s *S3Store) StatObject(ctx context.Context, bucket, key string) (domain.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return domain.ObjectInfo{}, classify(err, "stat object %s/%s", bucket, key)
	}
	return domain.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// PutObject uploads size bytes from body to bucket/key.
func (s *S3Store) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return classify(err, "put object %s/%s", bucket, key)
	}
	return nil
}

// GetObject opens bucket/key for reading. The caller closes the body.
func (s *S3Store) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, domain.ObjectInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, domain.ObjectInfo{}, classify(err, "get object %s/%s", bucket, key)
	}
	return out.Body, domain.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// classify maps an SDK error onto the domain taxonomy: a missing key or
// bucket becomes NotFound, a failure without any response from the store
// (or a 5xx/throttling response) becomes Unavailable, anything else is a
// StorageError carrying the store's error code.
func classify(err error, format string, args ...interface{}) error {
	what := fmt.Sprintf(format, args...)

	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noKey) || errors.As(err, &notFound) || errors.As(err, &noBucket) {
		return domain.ErrNotFound("%s: not found", what)
	}

	status := 0
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status = respErr.HTTPStatusCode()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return domain.ErrNotFound("%s: not found", what)
		case "ServiceUnavailable", "SlowDown", "RequestTimeout", "XMinioServerNotInitialized":
			return domain.ErrUnavailable(err, "%s", what)
		}
		if status >= http.StatusInternalServerError {
			return domain.ErrUnavailable(err, "%s", what)
		}
		return domain.ErrStorage(apiErr.ErrorCode(), err, "%s", what)
	}

	switch {
	case status == http.StatusNotFound:
		return domain.ErrNotFound("%s: not found", what)
	case status >= http.StatusInternalServerError:
		return domain.ErrUnavailable(err, "%s", what)
	case status != 0:
		return domain.ErrStorage(http.StatusText(status), err, "%s", what)
	}

	// No response at all: connection refused, DNS failure, timeout, or the
	// retryer gave up on transport errors.
	return domain.ErrUnavailable(err, "%s: object store unreachable", what)
}
