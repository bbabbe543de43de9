// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package storage provides the object-store client used for state
// backend buckets and backup bundle uploads.
//
// The ObjectStore interface is the only surface the lifecycle code
// sees; the production implementation speaks the GCS-compatible API
// that the platform's object storage exposes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	gstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// ObjectStore abstracts the bucket operations tidegate performs.
//
// # Description
//
// Covers exactly what the lifecycle needs: probing whether a state
// bucket exists, creating one, and uploading backup bundles. Listing
// or downloading objects is deliberately absent; terraform owns reads
// of the state bucket.
//
// # Error Semantics
//
// BucketExists distinguishes "confirmed absent" (false, nil) from
// "could not determine" (false, err). Callers must never treat a probe
// error as absence; doing so would re-bootstrap over live state.
type ObjectStore interface {
	// BucketExists reports whether the named bucket exists.
	BucketExists(ctx context.Context, bucket string) (bool, error)

	// CreateBucket creates the named bucket in the given region.
	CreateBucket(ctx context.Context, bucket, region string) error

	// UploadFile uploads a local file to bucket/objectPath.
	UploadFile(ctx context.Context, bucket, localPath, objectPath string) error

	// UploadDir uploads a directory tree under bucket/prefix,
	// preserving relative paths.
	UploadDir(ctx context.Context, bucket, localDir, prefix string) error
}

// -----------------------------------------------------------------------------
// Implementation
// -----------------------------------------------------------------------------

// Client implements ObjectStore against a GCS-compatible endpoint.
type Client struct {
	storageClient *gstorage.Client
	ProjectId     string
}

// NewClient creates an object-store client.
//
// When credsPath is non-empty it must point at a service credentials
// file; otherwise ambient credentials are used.
func NewClient(ctx context.Context, projectId, credsPath string) (*Client, error) {
	var opts []option.ClientOption
	if credsPath != "" {
		if _, err := os.Stat(credsPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("credentials file not found at path: %s", credsPath)
		}
		opts = append(opts, option.WithCredentialsFile(credsPath))
	}

	storageClient, err := gstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &Client{
		storageClient: storageClient,
		ProjectId:     projectId,
	}, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.storageClient.Close()
}

// BucketExists probes the bucket's attributes.
//
// ErrBucketNotExist maps to (false, nil); any other failure is
// returned so the caller can refuse to assume absence.
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := c.storageClient.Bucket(bucket).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gstorage.ErrBucketNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to probe bucket %s: %w", bucket, err)
	}
	return true, nil
}

// CreateBucket creates the bucket in the given region with versioning
// enabled, so state history survives accidental overwrites.
func (c *Client) CreateBucket(ctx context.Context, bucket, region string) error {
	attrs := &gstorage.BucketAttrs{
		Location:          region,
		VersioningEnabled: true,
	}
	if err := c.storageClient.Bucket(bucket).Create(ctx, c.ProjectId, attrs); err != nil {
		return fmt.Errorf("failed to create bucket %s in %s: %w", bucket, region, err)
	}
	return nil
}

// UploadFile uploads a local file to bucket/objectPath.
func (c *Client) UploadFile(ctx context.Context, bucket, localPath, objectPath string) error {
	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open the local file %s: %w", localPath, err)
	}
	defer localFile.Close()

	obj := c.storageClient.Bucket(bucket).Object(objectPath)
	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/octet-stream"
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := io.Copy(writer, localFile); err != nil {
		return fmt.Errorf("failed to copy %s to object %s: %w", localPath, objectPath, err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close object writer for %s: %w", objectPath, err)
	}
	return nil
}

// UploadDir uploads a directory tree under bucket/prefix, preserving
// paths relative to localDir.
func (c *Client) UploadDir(ctx context.Context, bucket, localDir, prefix string) error {
	return filepath.Walk(localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		return c.UploadFile(ctx, bucket, path, filepath.Join(prefix, rel))
	})
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockObjectStore is a test double for ObjectStore.
//
// Configure the mock by setting function fields before use. Unset
// fields return zero values rather than panicking: most tests only
// care about one or two methods.
type MockObjectStore struct {
	BucketExistsFunc func(ctx context.Context, bucket string) (bool, error)
	CreateBucketFunc func(ctx context.Context, bucket, region string) error
	UploadFileFunc   func(ctx context.Context, bucket, localPath, objectPath string) error
	UploadDirFunc    func(ctx context.Context, bucket, localDir, prefix string) error

	// Calls records all method invocations for verification
	Calls []ObjectStoreCall

	mu sync.Mutex
}

// ObjectStoreCall records a single method invocation.
type ObjectStoreCall struct {
	Method string
	Bucket string
	Path   string
	Region string
}

// BucketExists delegates to BucketExistsFunc and records the call.
func (m *MockObjectStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	m.record(ObjectStoreCall{Method: "BucketExists", Bucket: bucket})
	if m.BucketExistsFunc == nil {
		return false, nil
	}
	return m.BucketExistsFunc(ctx, bucket)
}

// CreateBucket delegates to CreateBucketFunc and records the call.
func (m *MockObjectStore) CreateBucket(ctx context.Context, bucket, region string) error {
	m.record(ObjectStoreCall{Method: "CreateBucket", Bucket: bucket, Region: region})
	if m.CreateBucketFunc == nil {
		return nil
	}
	return m.CreateBucketFunc(ctx, bucket, region)
}

// UploadFile delegates to UploadFileFunc and records the call.
func (m *MockObjectStore) UploadFile(ctx context.Context, bucket, localPath, objectPath string) error {
	m.record(ObjectStoreCall{Method: "UploadFile", Bucket: bucket, Path: objectPath})
	if m.UploadFileFunc == nil {
		return nil
	}
	return m.UploadFileFunc(ctx, bucket, localPath, objectPath)
}

// UploadDir delegates to UploadDirFunc and records the call.
func (m *MockObjectStore) UploadDir(ctx context.Context, bucket, localDir, prefix string) error {
	m.record(ObjectStoreCall{Method: "UploadDir", Bucket: bucket, Path: prefix})
	if m.UploadDirFunc == nil {
		return nil
	}
	return m.UploadDirFunc(ctx, bucket, localDir, prefix)
}

func (m *MockObjectStore) record(call ObjectStoreCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// Reset clears all recorded calls.
func (m *MockObjectStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// GetCalls returns a copy of all recorded calls.
func (m *MockObjectStore) GetCalls() []ObjectStoreCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ObjectStoreCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// CallsTo returns the number of recorded calls to the named method.
func (m *MockObjectStore) CallsTo(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Compile-time interface compliance check.
var (
	_ ObjectStore = (*Client)(nil)
	_ ObjectStore = (*MockObjectStore)(nil)
)
