// Package s3 implements the object storage contract on top of AWS S3
// using the v2 SDK.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/weheartit/whi-url-fetcher/observability"
	"github.com/weheartit/whi-url-fetcher/storage"
)

// Config holds the S3 connection settings.
type Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	MaxRetries      int
	Timeout         time.Duration
}

// Validate checks that the required settings are present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("s3 bucket is required")
	}
	return nil
}

// Client implements storage.ObjectStorage for AWS S3.
type Client struct {
	s3Client *s3.Client
	config   *Config
	logger   observability.Logger
	metrics  observability.Metrics
}

// NewClient creates an S3 storage client and verifies the configured
// bucket exists.
func NewClient(cfg *Config, logger observability.Logger, metrics observability.Metrics) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid S3 configuration: %w", err)
	}

	awsCfg, err := buildAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	client := &Client{
		s3Client: s3.NewFromConfig(awsCfg),
		config:   cfg,
		logger:   logger.WithFields(observability.Fields{"component": "s3_storage"}),
		metrics:  metrics,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify bucket existence: %w", err)
	}

	return client, nil
}

// Put stores an object in S3.
func (c *Client) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata storage.ObjectMetadata) error {
	start := time.Now()
	defer func() {
		c.metrics.RecordDuration("storage.s3.put", time.Since(start).Seconds())
	}()

	if bucket == "" {
		bucket = c.config.Bucket
	}

	// The SDK needs a seekable body for retries, so stage the content
	// in a buffer first.
	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, reader); err != nil {
		c.metrics.RecordError("storage.s3.put", "read")
		c.logger.Error(ctx, "failed to read content", err, observability.Fields{
			"bucket": bucket,
			"key":    key,
		})
		return fmt.Errorf("failed to read content: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	}
	if metadata.ContentType != "" {
		input.ContentType = aws.String(metadata.ContentType)
	}
	if len(metadata.UserMetadata) > 0 {
		input.Metadata = metadata.UserMetadata
	}

	if _, err := c.s3Client.PutObject(ctx, input); err != nil {
		c.metrics.RecordError("storage.s3.put", "put")
		c.logger.Error(ctx, "failed to put object", err, observability.Fields{
			"bucket": bucket,
			"key":    key,
		})
		return fmt.Errorf("failed to put object: %w", err)
	}

	c.metrics.RecordSuccess("storage.s3.put")
	c.logger.Debug(ctx, "object stored", observability.Fields{
		"bucket": bucket,
		"key":    key,
		"size":   buf.Len(),
	})

	return nil
}

// Get retrieves an object from S3.
func (c *Client) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if bucket == "" {
		bucket = c.config.Bucket
	}

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			c.logger.Debug(ctx, "object not found", observability.Fields{
				"bucket": bucket,
				"key":    key,
			})
			return nil, storage.ErrObjectNotFound
		}
		c.metrics.RecordError("storage.s3.get", "get")
		c.logger.Error(ctx, "failed to get object", err, observability.Fields{
			"bucket": bucket,
			"key":    key,
		})
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	c.metrics.RecordSuccess("storage.s3.get")
	return result.Body, nil
}

// Exists reports whether an object is stored under bucket/key.
func (c *Client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if bucket == "" {
		bucket = c.config.Bucket
	}

	_, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		c.metrics.RecordError("storage.s3.exists", "head")
		return false, fmt.Errorf("failed to head object: %w", err)
	}

	return true, nil
}

// Delete removes an object from S3.
func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	if bucket == "" {
		bucket = c.config.Bucket
	}

	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		c.metrics.RecordError("storage.s3.delete", "delete")
		c.logger.Error(ctx, "failed to delete object", err, observability.Fields{
			"bucket": bucket,
			"key":    key,
		})
		return fmt.Errorf("failed to delete object: %w", err)
	}

	c.metrics.RecordSuccess("storage.s3.delete")
	return nil
}

// ensureBucketExists checks that the configured bucket is reachable.
func (c *Client) ensureBucketExists(ctx context.Context) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.Bucket),
	})
	if err != nil {
		var nse *s3types.NotFound
		if errors.As(err, &nse) {
			return fmt.Errorf("bucket %q does not exist", c.config.Bucket)
		}
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	return nil
}

// buildAWSConfig builds the AWS configuration from the S3 settings.
func buildAWSConfig(cfg *Config) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}

	// Use static credentials if provided, otherwise fall back to the
	// default credential chain.
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			),
		))
	}

	if cfg.MaxRetries > 0 {
		optFns = append(optFns, awsconfig.WithRetryMaxAttempts(cfg.MaxRetries))
	}
	if cfg.Timeout > 0 {
		optFns = append(optFns, awsconfig.WithHTTPClient(&http.Client{
			Timeout: cfg.Timeout,
		}))
	}

	return awsconfig.LoadDefaultConfig(context.Background(), optFns...)
}

// isNotFoundError checks if an error is a not found error.
func isNotFoundError(err error) bool {
	var nsk *s3types.NoSuchKey
	var nse *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nse)
}
