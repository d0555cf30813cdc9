// Package storage persists partitioned Parquet datasets to local disk,
// Amazon S3, or Google Cloud Storage behind one small client interface.
package storage

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Client is the storage backend interface. Keys are /-separated paths
// relative to the backend's root (bucket or base directory).
type Client interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	// List returns the keys under prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// ClientConfig selects and configures a storage backend.
type ClientConfig struct {
	StorageType string // "FS", "S3", "GCS"
	BucketName  string
	LocalPath   string // for FS
	Region      string // for S3
}

// NewClient creates the storage client for the configured backend, wrapped
// with write retries.
func NewClient(ctx context.Context, cfg ClientConfig) (Client, error) {
	var (
		client Client
		err    error
	)
	switch cfg.StorageType {
	case "FS":
		if cfg.LocalPath == "" {
			return nil, fmt.Errorf("local_path is required for FS storage type")
		}
		client, err = NewLocalFSClient(cfg.LocalPath)
	case "S3":
		if cfg.BucketName == "" {
			return nil, fmt.Errorf("bucket_name is required for S3 storage type")
		}
		region := cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		client, err = NewS3Client(ctx, cfg.BucketName, region)
	case "GCS":
		if cfg.BucketName == "" {
			return nil, fmt.Errorf("bucket_name is required for GCS storage type")
		}
		client, err = NewGCSClient(ctx, cfg.BucketName)
	default:
		return nil, fmt.Errorf("unsupported storage_type: %s", cfg.StorageType)
	}
	if err != nil {
		return nil, err
	}
	return NewRetryableClient(client, 3), nil
}

// RetryableClient wraps a Client with exponential-backoff retries on writes.
type RetryableClient struct {
	client     Client
	maxRetries int
	retryDelay time.Duration
}

// NewRetryableClient creates a storage client with retry capabilities.
func NewRetryableClient(client Client, maxRetries int) *RetryableClient {
	return &RetryableClient{
		client:     client,
		maxRetries: maxRetries,
		retryDelay: time.Second,
	}
}

// Write implements Client with retry logic.
func (r *RetryableClient) Write(ctx context.Context, key string, data []byte) error {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.retryDelay * time.Duration(1<<(attempt-1))
			if delay > 30*time.Second {
				delay = 30 * time.Second
			}

			log.Printf("Storage: retrying write of %s after %v (attempt %d/%d)", key, delay, attempt, r.maxRetries)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := r.client.Write(ctx, key, data)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return err
		}
	}

	return fmt.Errorf("failed after %d retries: %w", r.maxRetries, lastErr)
}

func (r *RetryableClient) Read(ctx context.Context, key string) ([]byte, error) {
	return r.client.Read(ctx, key)
}

func (r *RetryableClient) List(ctx context.Context, prefix string) ([]string, error) {
	return r.client.List(ctx, prefix)
}

func (r *RetryableClient) Delete(ctx context.Context, key string) error {
	return r.client.Delete(ctx, key)
}

func (r *RetryableClient) Close() error {
	return r.client.Close()
}

// isRetryableError determines if an error should trigger a retry.
func isRetryableError(err error) bool {
	if err == context.Canceled || err == context.DeadlineExceeded {
		return false
	}
	return true
}
