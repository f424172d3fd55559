package shell

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalift/objsync/errors"
	"github.com/datalift/objsync/synctypes"
)

// fakeRunner records invocations and replays canned results.
type fakeRunner struct {
	fsys     *billy.FS
	names    []string
	args     [][]string
	manifest string
	err      error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.names = append(f.names, name)
	f.args = append(f.args, args)

	// Capture the manifest before the backend cleans it up.
	for i, arg := range args {
		if arg == "--manifest" && i+1 < len(args) {
			data, err := f.fsys.ReadFile(args[i+1])
			if err == nil {
				f.manifest = string(data)
			}
		}
	}

	if f.err != nil {
		return []byte("tool output line\nsecond line"), f.err
	}
	return []byte("ok"), nil
}

func shellDescs() []synctypes.Descriptor {
	return []synctypes.Descriptor{
		{
			Operation:     "copy",
			Source:        synctypes.Locator{Scheme: "s3", Container: "src", Key: "a.bin"},
			Destination:   synctypes.Locator{Scheme: "s3", Container: "dst", Key: "out/a.bin"},
			ChunkSize:     8 * 1024 * 1024,
			SkipUnchanged: true,
		},
		{
			Operation:   "copy",
			Source:      synctypes.Locator{Scheme: "s3", Container: "src", Key: "b.bin"},
			Destination: synctypes.Locator{Scheme: "s3", Container: "dst", Key: "out/b.bin"},
		},
	}
}

func TestAvailable(t *testing.T) {
	fsys := billy.NewInMemoryFS()

	t.Run("tool responds", func(t *testing.T) {
		runner := &fakeRunner{fsys: fsys}
		backend := New("bulkcp", runner, fsys, nil)

		require.NoError(t, backend.Available(context.Background()))
		require.Len(t, runner.args, 1)
		assert.Equal(t, "bulkcp", runner.names[0])
		assert.Equal(t, []string{"version"}, runner.args[0])
	})

	t.Run("tool missing", func(t *testing.T) {
		runner := &fakeRunner{fsys: fsys, err: stderrors.New("executable not found")}
		backend := New("bulkcp", runner, fsys, nil)

		err := backend.Available(context.Background())
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrCapabilityUnavailable))
	})

	t.Run("no tool configured", func(t *testing.T) {
		backend := New("", &fakeRunner{fsys: fsys}, fsys, nil)
		err := backend.Available(context.Background())
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrCapabilityUnavailable))
	})
}

func TestTransfer_WritesManifestAndInvokesTool(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	runner := &fakeRunner{fsys: fsys}
	backend := New("bulkcp", runner, fsys, nil)

	results := backend.Transfer(context.Background(), shellDescs())

	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.False(t, r.Skipped)
		// The tool does not report per-object bytes.
		assert.Zero(t, r.BytesTransferred)
	}

	require.Len(t, runner.names, 1)
	assert.Equal(t, "bulkcp", runner.names[0])
	assert.Equal(t, "copy", runner.args[0][0])

	lines := strings.Split(strings.TrimSpace(runner.manifest), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "copy s3://src/a.bin s3://dst/out/a.bin chunk=8388608 skip=true", lines[0])
	assert.Equal(t, "copy s3://src/b.bin s3://dst/out/b.bin chunk=0 skip=false", lines[1])
}

func TestTransfer_FailureFansOutTransient(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	runner := &fakeRunner{fsys: fsys, err: stderrors.New("exit status 2")}
	backend := New("bulkcp", runner, fsys, nil)

	results := backend.Transfer(context.Background(), shellDescs())

	require.Len(t, results, 2)
	for _, r := range results {
		require.Error(t, r.Err)
		assert.Equal(t, errors.KindTransient, errors.Classify(r.Err))
		assert.Contains(t, r.Err.Error(), "tool output line")
	}
}

func TestTransfer_EmptyBatch(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	runner := &fakeRunner{fsys: fsys}
	backend := New("bulkcp", runner, fsys, nil)

	results := backend.Transfer(context.Background(), nil)
	assert.Empty(t, results)
	assert.Empty(t, runner.names, "tool must not run for an empty batch")
}

func TestTransfer_CancelledContext(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	runner := &fakeRunner{fsys: fsys}
	backend := New("bulkcp", runner, fsys, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := backend.Transfer(ctx, shellDescs())
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Empty(t, runner.names)
}

func TestDefaultRunner(t *testing.T) {
	backend := New("bulkcp", nil, billy.NewInMemoryFS(), nil)
	assert.NotNil(t, backend.runner)
}
