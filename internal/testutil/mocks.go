// Package testutil provides test utilities and mocks for transfer
// operations. This package is internal and should only be used for testing
// within this module.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/datalift/objsync/internal/s3api"
	"github.com/datalift/objsync/synctypes"
)

// MockS3Client is a mock implementation of the S3API interface for testing.
// It allows customization of each S3 operation through function fields.
type MockS3Client struct {
	GetObjectFunc               func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObjectFunc               func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObjectFunc              func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucketFunc              func(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CopyObjectFunc              func(context.Context, *s3.CopyObjectInput, ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	CreateMultipartUploadFunc   func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPartFunc              func(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	UploadPartCopyFunc          func(context.Context, *s3.UploadPartCopyInput, ...func(*s3.Options)) (*s3.UploadPartCopyOutput, error)
	CompleteMultipartUploadFunc func(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUploadFunc    func(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// GetObject mocks the S3 GetObject operation.
func (m *MockS3Client) GetObject(
	ctx context.Context,
	params *s3.GetObjectInput,
	optFns ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	if m.GetObjectFunc != nil {
		return m.GetObjectFunc(ctx, params, optFns...)
	}
	return &s3.GetObjectOutput{}, nil
}

// PutObject mocks the S3 PutObject operation.
func (m *MockS3Client) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	optFns ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, params, optFns...)
	}
	return &s3.PutObjectOutput{}, nil
}

// HeadObject mocks the S3 HeadObject operation.
func (m *MockS3Client) HeadObject(
	ctx context.Context,
	params *s3.HeadObjectInput,
	optFns ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	if m.HeadObjectFunc != nil {
		return m.HeadObjectFunc(ctx, params, optFns...)
	}
	return &s3.HeadObjectOutput{}, nil
}

// HeadBucket mocks the S3 HeadBucket operation.
func (m *MockS3Client) HeadBucket(
	ctx context.Context,
	params *s3.HeadBucketInput,
	optFns ...func(*s3.Options),
) (*s3.HeadBucketOutput, error) {
	if m.HeadBucketFunc != nil {
		return m.HeadBucketFunc(ctx, params, optFns...)
	}
	return &s3.HeadBucketOutput{}, nil
}

// CopyObject mocks the S3 CopyObject operation.
func (m *MockS3Client) CopyObject(
	ctx context.Context,
	params *s3.CopyObjectInput,
	optFns ...func(*s3.Options),
) (*s3.CopyObjectOutput, error) {
	if m.CopyObjectFunc != nil {
		return m.CopyObjectFunc(ctx, params, optFns...)
	}
	return &s3.CopyObjectOutput{}, nil
}

// CreateMultipartUpload mocks the S3 CreateMultipartUpload operation.
func (m *MockS3Client) CreateMultipartUpload(
	ctx context.Context,
	params *s3.CreateMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	if m.CreateMultipartUploadFunc != nil {
		return m.CreateMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.CreateMultipartUploadOutput{}, nil
}

// UploadPart mocks the S3 UploadPart operation.
func (m *MockS3Client) UploadPart(
	ctx context.Context,
	params *s3.UploadPartInput,
	optFns ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	if m.UploadPartFunc != nil {
		return m.UploadPartFunc(ctx, params, optFns...)
	}
	return &s3.UploadPartOutput{}, nil
}

// UploadPartCopy mocks the S3 UploadPartCopy operation.
func (m *MockS3Client) UploadPartCopy(
	ctx context.Context,
	params *s3.UploadPartCopyInput,
	optFns ...func(*s3.Options),
) (*s3.UploadPartCopyOutput, error) {
	if m.UploadPartCopyFunc != nil {
		return m.UploadPartCopyFunc(ctx, params, optFns...)
	}
	return &s3.UploadPartCopyOutput{}, nil
}

// CompleteMultipartUpload mocks the S3 CompleteMultipartUpload operation.
func (m *MockS3Client) CompleteMultipartUpload(
	ctx context.Context,
	params *s3.CompleteMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	if m.CompleteMultipartUploadFunc != nil {
		return m.CompleteMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.CompleteMultipartUploadOutput{}, nil
}

// AbortMultipartUpload mocks the S3 AbortMultipartUpload operation.
func (m *MockS3Client) AbortMultipartUpload(
	ctx context.Context,
	params *s3.AbortMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	if m.AbortMultipartUploadFunc != nil {
		return m.AbortMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.AbortMultipartUploadOutput{}, nil
}

// Ensure MockS3Client implements s3api.S3API interface
var _ s3api.S3API = (*MockS3Client)(nil)

// FakeBackend is an instrumented TransferBackend for executor and
// coordinator tests. TransferFunc decides per-batch results; when nil every
// descriptor succeeds with its chunk size as the byte count.
type FakeBackend struct {
	BackendName  string
	AvailableErr error
	TransferFunc func(ctx context.Context, descs []synctypes.Descriptor) []synctypes.BackendResult

	calls     atomic.Int64
	inFlight  atomic.Int64
	maxSeen   int64
	maxSeenMu sync.Mutex

	mu      sync.Mutex
	batches [][]synctypes.Descriptor
}

// Name implements TransferBackend.
func (f *FakeBackend) Name() string {
	if f.BackendName != "" {
		return f.BackendName
	}
	return "fake"
}

// Available implements TransferBackend and CapabilityProbe.
func (f *FakeBackend) Available(ctx context.Context) error { return f.AvailableErr }

// Transfer records the batch, tracks concurrency, and delegates to
// TransferFunc.
func (f *FakeBackend) Transfer(ctx context.Context, descs []synctypes.Descriptor) []synctypes.BackendResult {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	f.maxSeenMu.Lock()
	if cur > f.maxSeen {
		f.maxSeen = cur
	}
	f.maxSeenMu.Unlock()
	defer f.inFlight.Add(-1)

	f.mu.Lock()
	f.batches = append(f.batches, append([]synctypes.Descriptor(nil), descs...))
	f.mu.Unlock()

	if f.TransferFunc != nil {
		return f.TransferFunc(ctx, descs)
	}

	results := make([]synctypes.BackendResult, len(descs))
	for i := range descs {
		results[i] = synctypes.BackendResult{BytesTransferred: descs[i].ChunkSize}
	}
	return results
}

// Calls returns how many Transfer invocations happened.
func (f *FakeBackend) Calls() int { return int(f.calls.Load()) }

// MaxInFlight returns the highest observed concurrent Transfer count.
func (f *FakeBackend) MaxInFlight() int {
	f.maxSeenMu.Lock()
	defer f.maxSeenMu.Unlock()
	return int(f.maxSeen)
}

// Batches returns copies of every descriptor batch Transfer received, in
// call order.
func (f *FakeBackend) Batches() [][]synctypes.Descriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]synctypes.Descriptor, len(f.batches))
	copy(out, f.batches)
	return out
}

var _ synctypes.TransferBackend = (*FakeBackend)(nil)
var _ synctypes.CapabilityProbe = (*FakeBackend)(nil)

// StaticProbe is a CapabilityProbe returning a fixed error.
type StaticProbe struct{ Err error }

// Available implements CapabilityProbe.
func (p StaticProbe) Available(ctx context.Context) error { return p.Err }
