// Package shell drives an external bulk-copy tool as a transfer backend.
//
// Descriptors for a batch are written to a manifest file and handed to the
// tool in a single invocation. The tool either moves the whole batch or the
// whole batch fails; per-object results are not available from its exit
// status, so a failure is fanned out to every descriptor as transient.
package shell

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/datalift/objsync/errors"
	"github.com/datalift/objsync/synctypes"
)

// CommandRunner executes an external command and returns its combined
// output. It exists so tests can intercept tool invocations.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Backend shells out to a bulk-copy tool for whole-batch transfers.
type Backend struct {
	tool   string
	runner CommandRunner
	fsys   fs.Filesystem
	logger *slog.Logger
}

// New creates a shell backend for the named tool. A nil runner defaults to
// os/exec execution.
func New(tool string, runner CommandRunner, fsys fs.Filesystem, logger *slog.Logger) *Backend {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Backend{
		tool:   tool,
		runner: runner,
		fsys:   fsys,
		logger: logger,
	}
}

// Name identifies the backend in logs.
func (b *Backend) Name() string { return "shell" }

// Available probes the tool by asking it for its version.
func (b *Backend) Available(ctx context.Context) error {
	if b.tool == "" {
		return errors.NewError("probe", errors.ErrCapabilityUnavailable).
			WithMessage("bulk tool not configured")
	}
	if _, err := b.runner.Run(ctx, b.tool, "version"); err != nil {
		return errors.NewError("probe", errors.ErrCapabilityUnavailable).
			WithMessage(fmt.Sprintf("bulk tool %q unavailable", b.tool))
	}
	return nil
}

// Transfer writes the batch manifest and invokes the tool once. Transferred
// byte counts are unknown to the caller and reported as zero.
func (b *Backend) Transfer(ctx context.Context, descs []synctypes.Descriptor) []synctypes.BackendResult {
	results := make([]synctypes.BackendResult, len(descs))
	if len(descs) == 0 {
		return results
	}

	fail := func(err error) []synctypes.BackendResult {
		for i := range results {
			results[i] = synctypes.BackendResult{Err: err}
		}
		return results
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	dir, err := b.fsys.TempDir("", "objsync-batch-")
	if err != nil {
		return fail(errors.NewError("manifest", err).WithMessage("create manifest dir"))
	}
	defer func() { _ = b.fsys.Remove(dir) }()

	manifest := filepath.Join(dir, "manifest.txt")
	if err := b.fsys.WriteFile(manifest, renderManifest(descs), 0o600); err != nil {
		return fail(errors.NewError("manifest", err).WithMessage("write manifest"))
	}
	defer func() { _ = b.fsys.Remove(manifest) }()

	b.log(ctx, "invoking bulk tool",
		slog.String("tool", b.tool),
		slog.Int("descriptors", len(descs)))

	out, err := b.runner.Run(ctx, b.tool, "copy", "--manifest", manifest)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fail(ctxErr)
		}
		return fail(errors.NewError("copy", errors.ErrTransient).
			WithMessage(fmt.Sprintf("bulk tool failed: %s", summarize(out))))
	}

	return results
}

// renderManifest encodes one descriptor per line in the tool's copy format.
func renderManifest(descs []synctypes.Descriptor) []byte {
	var sb strings.Builder
	for _, d := range descs {
		fmt.Fprintf(&sb, "copy %s %s chunk=%d skip=%t\n",
			d.Source.String(), d.Destination.String(), d.ChunkSize, d.SkipUnchanged)
	}
	return []byte(sb.String())
}

// summarize trims tool output to a single log-friendly line.
func summarize(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	if s == "" {
		return "no output"
	}
	return s
}

func (b *Backend) log(ctx context.Context, msg string, attrs ...any) {
	if b.logger != nil {
		b.logger.DebugContext(ctx, msg, attrs...)
	}
}

var _ synctypes.TransferBackend = (*Backend)(nil)
var _ synctypes.CapabilityProbe = (*Backend)(nil)
