// Package stream implements the traditional read-then-write transfer
// backend.
//
// Each object is fetched from the source and piped straight into the
// destination through the upload manager. Transfers buffer in memory only;
// no filesystem staging directory is required for correctness.
package stream

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"

	"github.com/datalift/objsync/errors"
	"github.com/datalift/objsync/internal/pool"
	"github.com/datalift/objsync/internal/s3api"
	"github.com/datalift/objsync/synctypes"
)

// Backend streams objects through memory from source to destination.
type Backend struct {
	s3Client s3api.S3API
	uploader *manager.Uploader
	logger   *slog.Logger
}

// New creates a streaming backend over the given S3 client.
func New(s3Client s3api.S3API, logger *slog.Logger) *Backend {
	return &Backend{
		s3Client: s3Client,
		uploader: manager.NewUploader(s3Client),
		logger:   logger,
	}
}

// Name identifies the backend in logs.
func (b *Backend) Name() string { return "traditional" }

// Available always reports ready; the streaming path has no external
// capability beyond the storage client itself.
func (b *Backend) Available(ctx context.Context) error { return nil }

// Transfer executes one batch of descriptors sequentially. Each descriptor
// fails or succeeds independently.
func (b *Backend) Transfer(ctx context.Context, descs []synctypes.Descriptor) []synctypes.BackendResult {
	results := make([]synctypes.BackendResult, len(descs))

	for i, desc := range descs {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(descs); j++ {
				results[j] = synctypes.BackendResult{Err: err}
			}
			break
		}
		results[i] = b.transferOne(ctx, desc)
	}

	return results
}

// transferOne performs one read-then-write cycle.
func (b *Backend) transferOne(ctx context.Context, desc synctypes.Descriptor) synctypes.BackendResult {
	if desc.SkipUnchanged {
		if skipped := b.destinationMatches(ctx, desc); skipped {
			b.log(ctx, "destination unchanged, skipping",
				slog.String("key", desc.Destination.Key))
			return synctypes.BackendResult{Skipped: true}
		}
	}

	obj, err := b.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(desc.Source.Container),
		Key:    aws.String(desc.Source.Key),
	})
	if err != nil {
		return synctypes.BackendResult{
			Err: errors.NewObjectError("get", desc.Source.Container, desc.Source.Key, err),
		}
	}
	defer obj.Body.Close()

	size := aws.ToInt64(obj.ContentLength)

	// Sniff a prefix for content-type detection, then stitch the prefix
	// back in front of the remaining body for the upload.
	sniff := pool.GetSniffBuffer()
	defer pool.PutSniffBuffer(sniff)

	n, readErr := io.ReadFull(obj.Body, sniff)
	if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
		return synctypes.BackendResult{
			Err: errors.NewObjectError("read", desc.Source.Container, desc.Source.Key, readErr),
		}
	}
	head := sniff[:n]

	contentType := detectContentType(head, obj.ContentType)
	body := io.MultiReader(bytes.NewReader(head), obj.Body)

	input := &s3.PutObjectInput{
		Bucket: aws.String(desc.Destination.Container),
		Key:    aws.String(desc.Destination.Key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.uploader.Upload(ctx, input, func(u *manager.Uploader) {
		if desc.ChunkSize >= manager.MinUploadPartSize {
			u.PartSize = desc.ChunkSize
		}
	}); err != nil {
		return synctypes.BackendResult{
			Err: errors.NewObjectError("put", desc.Destination.Container, desc.Destination.Key, err),
		}
	}

	return synctypes.BackendResult{BytesTransferred: size}
}

// destinationMatches reports whether the destination already holds an
// object with the source's size.
func (b *Backend) destinationMatches(ctx context.Context, desc synctypes.Descriptor) bool {
	src, err := b.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(desc.Source.Container),
		Key:    aws.String(desc.Source.Key),
	})
	if err != nil {
		return false
	}

	dst, err := b.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(desc.Destination.Container),
		Key:    aws.String(desc.Destination.Key),
	})
	if err != nil {
		return false
	}

	return aws.ToInt64(src.ContentLength) == aws.ToInt64(dst.ContentLength)
}

// detectContentType sniffs the payload prefix, preferring the source's
// declared type when sniffing finds nothing better than a generic octet
// stream.
func detectContentType(head []byte, declared *string) string {
	if len(head) > 0 {
		if mt := mimetype.Detect(head); mt != nil && mt.String() != "application/octet-stream" {
			return mt.String()
		}
	}
	return aws.ToString(declared)
}

func (b *Backend) log(ctx context.Context, msg string, attrs ...any) {
	if b.logger != nil {
		b.logger.DebugContext(ctx, msg, attrs...)
	}
}

var _ synctypes.TransferBackend = (*Backend)(nil)
