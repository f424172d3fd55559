package objsync

import (
	"context"
	stderrors "errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalift/objsync/errors"
	"github.com/datalift/objsync/internal/testutil"
	"github.com/datalift/objsync/synctypes"
)

func syncTasks() []synctypes.Task {
	return []synctypes.Task{
		{SourceLocator: "s3://src-bucket/a.txt", DestinationPath: "a.txt", SizeHint: 100},
		{SourceLocator: "s3://src-bucket/b.txt", DestinationPath: "b.txt", SizeHint: 200},
	}
}

func syncConfig() synctypes.Config {
	incremental := false
	return synctypes.Config{
		DestinationContainer: "dest-bucket",
		Incremental:          &incremental,
	}
}

func noSleep() synctypes.SyncOption {
	return WithSyncSleep(func(ctx context.Context, d time.Duration) error { return ctx.Err() })
}

func TestSync_DirectModeEndToEnd(t *testing.T) {
	var copies atomic.Int64
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return &s3.HeadObjectOutput{ContentLength: aws.Int64(100)}, nil
		},
		CopyObjectFunc: func(ctx context.Context, params *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
			copies.Add(1)
			return &s3.CopyObjectOutput{}, nil
		},
	}

	client := NewWithClient(mock)
	result, err := client.Sync(context.Background(), syncTasks(), syncConfig(), noSleep())

	require.NoError(t, err)
	assert.Equal(t, synctypes.ModeDirect, result.Mode)
	assert.Equal(t, int64(2), copies.Load())

	require.Len(t, result.Outcomes, 2)
	for i, outcome := range result.Outcomes {
		assert.Equal(t, syncTasks()[i].SourceLocator, outcome.Task.SourceLocator)
		assert.Equal(t, synctypes.StatusSucceeded, outcome.Status)
	}
	assert.Equal(t, 2, result.Report.TasksSucceeded)
}

func TestSync_FallsBackToStreamingWhenDirectUnavailable(t *testing.T) {
	var puts atomic.Int64
	mock := &testutil.MockS3Client{
		HeadBucketFunc: func(ctx context.Context, params *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "NotFound"}
		},
		GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{
				Body:          io.NopCloser(strings.NewReader("payload")),
				ContentLength: aws.Int64(7),
			}, nil
		},
		PutObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			puts.Add(1)
			_, _ = io.Copy(io.Discard, params.Body)
			return &s3.PutObjectOutput{}, nil
		},
	}

	client := NewWithClient(mock)
	result, err := client.Sync(context.Background(), syncTasks(), syncConfig(), noSleep())

	require.NoError(t, err)
	assert.Equal(t, synctypes.ModeTraditional, result.Mode)
	assert.Equal(t, int64(2), puts.Load())
	assert.Equal(t, 2, result.Report.TasksSucceeded)
}

func TestSync_ForcedDirectUnavailableFailsFast(t *testing.T) {
	mock := &testutil.MockS3Client{
		HeadBucketFunc: func(ctx context.Context, params *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "NotFound"}
		},
	}

	cfg := syncConfig()
	cfg.Mode = synctypes.ModeDirect

	client := NewWithClient(mock)
	result, err := client.Sync(context.Background(), syncTasks(), cfg, noSleep())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, stderrors.Is(err, errors.ErrCapabilityUnavailable))
}

func TestSync_InvalidConfigIsFatal(t *testing.T) {
	client := NewWithClient(&testutil.MockS3Client{})

	cfg := syncConfig()
	cfg.MaxConcurrent = 10_000

	result, err := client.Sync(context.Background(), syncTasks(), cfg)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.IsConfiguration(err))
}

func TestSync_InvalidTaskIsFatal(t *testing.T) {
	client := NewWithClient(&testutil.MockS3Client{})

	tasks := []synctypes.Task{
		{SourceLocator: "ftp://nope/key", DestinationPath: "key"},
	}

	result, err := client.Sync(context.Background(), tasks, syncConfig())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.IsConfiguration(err))
}

func TestSync_EmptyTaskList(t *testing.T) {
	client := NewWithClient(&testutil.MockS3Client{})

	result, err := client.Sync(context.Background(), nil, syncConfig())
	require.NoError(t, err)
	assert.Empty(t, result.Outcomes)
	assert.Zero(t, result.Report.TasksTotal)
}

func TestSync_IncrementalSkipsUnchanged(t *testing.T) {
	var copies atomic.Int64
	mock := &testutil.MockS3Client{
		// Source and destination report identical sizes.
		HeadObjectFunc: func(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return &s3.HeadObjectOutput{ContentLength: aws.Int64(100)}, nil
		},
		CopyObjectFunc: func(ctx context.Context, params *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
			copies.Add(1)
			return &s3.CopyObjectOutput{}, nil
		},
	}

	cfg := synctypes.Config{DestinationContainer: "dest-bucket"}

	client := NewWithClient(mock)
	result, err := client.Sync(context.Background(), syncTasks(), cfg, noSleep())

	require.NoError(t, err)
	assert.Zero(t, copies.Load())
	assert.Equal(t, 2, result.Report.TasksSkipped)
	for _, outcome := range result.Outcomes {
		assert.Equal(t, synctypes.StatusSkipped, outcome.Status)
	}
}

func TestSync_InjectedBackendAndProbe(t *testing.T) {
	backend := &testutil.FakeBackend{BackendName: "injected"}

	client := NewWithClient(&testutil.MockS3Client{})
	result, err := client.Sync(context.Background(), syncTasks(), syncConfig(),
		WithSyncDirectBackend(backend),
		WithSyncProbe(testutil.StaticProbe{}),
		noSleep(),
	)

	require.NoError(t, err)
	assert.Equal(t, synctypes.ModeDirect, result.Mode)
	assert.Positive(t, backend.Calls())
}

func TestSync_DeadlineBoundsInvocation(t *testing.T) {
	blocked := &testutil.FakeBackend{
		TransferFunc: func(ctx context.Context, descs []synctypes.Descriptor) []synctypes.BackendResult {
			<-ctx.Done()
			results := make([]synctypes.BackendResult, len(descs))
			for i := range results {
				results[i] = synctypes.BackendResult{Err: ctx.Err()}
			}
			return results
		},
	}

	client := NewWithClient(&testutil.MockS3Client{})
	result, err := client.Sync(context.Background(), syncTasks(), syncConfig(),
		WithSyncDirectBackend(blocked),
		WithSyncProbe(testutil.StaticProbe{}),
		WithSyncDeadline(50*time.Millisecond),
		noSleep(),
	)

	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)
	for _, outcome := range result.Outcomes {
		assert.Equal(t, synctypes.StatusFailed, outcome.Status)
		assert.Equal(t, errors.KindCancelled, outcome.Kind)
	}
}

func TestSync_ReportQuantifiesImprovement(t *testing.T) {
	backend := &testutil.FakeBackend{
		TransferFunc: func(ctx context.Context, descs []synctypes.Descriptor) []synctypes.BackendResult {
			results := make([]synctypes.BackendResult, len(descs))
			for i := range results {
				results[i] = synctypes.BackendResult{BytesTransferred: 64 * 1024 * 1024}
			}
			return results
		},
	}

	client := NewWithClient(&testutil.MockS3Client{})
	result, err := client.Sync(context.Background(), syncTasks(), syncConfig(),
		WithSyncDirectBackend(backend),
		WithSyncProbe(testutil.StaticProbe{}),
		noSleep(),
	)

	require.NoError(t, err)
	report := result.Report
	assert.Positive(t, report.EstimatedBaselineTime)
	// The mocked run finishes in microseconds, so the estimated baseline
	// dominates and the ratio exceeds 1.
	assert.Greater(t, report.ImprovementRatio(), 1.0)
	assert.Positive(t, report.TimeSaved())
}
