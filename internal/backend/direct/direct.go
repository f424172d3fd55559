// Package direct implements the bulk direct-copy transfer backend.
//
// Objects move server-side between containers via CopyObject, or via
// concurrent UploadPartCopy ranges for objects larger than the batch chunk
// size. Nothing is materialized locally.
package direct

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"github.com/datalift/objsync/errors"
	"github.com/datalift/objsync/internal/s3api"
	"github.com/datalift/objsync/synctypes"
)

const (
	// maxSimpleCopySize is the CopyObject ceiling; larger objects must
	// use multipart copy
	maxSimpleCopySize = 5 * 1024 * 1024 * 1024

	// minPartSize is the S3 minimum for any part except the last
	minPartSize = 5 * 1024 * 1024

	// partConcurrency bounds concurrent part copies within one object
	partConcurrency = 5
)

// Backend copies objects server-side between containers.
type Backend struct {
	s3Client      s3api.S3API
	destContainer string
	logger        *slog.Logger
}

// New creates a direct backend targeting the given destination container.
func New(s3Client s3api.S3API, destContainer string, logger *slog.Logger) *Backend {
	return &Backend{
		s3Client:      s3Client,
		destContainer: destContainer,
		logger:        logger,
	}
}

// Name identifies the backend in logs.
func (b *Backend) Name() string { return "direct" }

// Available probes the destination container with a HeadBucket call.
func (b *Backend) Available(ctx context.Context) error {
	_, err := b.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.destContainer),
	})
	if err != nil {
		return errors.NewContainerError("probe", b.destContainer, err)
	}
	return nil
}

// Transfer executes one batch of copy descriptors. Each descriptor fails or
// succeeds independently; a cancelled context finalizes the remaining
// descriptors without aborting the ones already done.
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

// transferOne copies a single object, honoring skip-if-unchanged.
func (b *Backend) transferOne(ctx context.Context, desc synctypes.Descriptor) synctypes.BackendResult {
	size, err := b.sourceSize(ctx, desc)
	if err != nil {
		return synctypes.BackendResult{Err: err}
	}

	if desc.SkipUnchanged {
		if unchanged := b.destinationMatches(ctx, desc, size); unchanged {
			b.log(ctx, "destination unchanged, skipping",
				slog.String("key", desc.Destination.Key))
			return synctypes.BackendResult{Skipped: true}
		}
	}

	if size > maxSimpleCopySize || (desc.ChunkSize > 0 && size > desc.ChunkSize) {
		if err := b.multipartCopy(ctx, desc, size); err != nil {
			return synctypes.BackendResult{Err: err}
		}
	} else {
		if err := b.simpleCopy(ctx, desc); err != nil {
			return synctypes.BackendResult{Err: err}
		}
	}

	return synctypes.BackendResult{BytesTransferred: size}
}

// sourceSize retrieves the source object size via HeadObject.
func (b *Backend) sourceSize(ctx context.Context, desc synctypes.Descriptor) (int64, error) {
	out, err := b.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(desc.Source.Container),
		Key:    aws.String(desc.Source.Key),
	})
	if err != nil {
		return 0, errors.NewObjectError("headSource", desc.Source.Container, desc.Source.Key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// destinationMatches reports whether the destination already holds an
// object of the same size. A missing destination or a failed head simply
// means "transfer it".
func (b *Backend) destinationMatches(ctx context.Context, desc synctypes.Descriptor, srcSize int64) bool {
	out, err := b.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(desc.Destination.Container),
		Key:    aws.String(desc.Destination.Key),
	})
	if err != nil {
		return false
	}
	return aws.ToInt64(out.ContentLength) == srcSize
}

// simpleCopy performs a single CopyObject call.
func (b *Backend) simpleCopy(ctx context.Context, desc synctypes.Descriptor) error {
	copySource := desc.Source.Container + "/" + desc.Source.Key

	_, err := b.s3Client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(desc.Destination.Container),
		Key:        aws.String(desc.Destination.Key),
		CopySource: aws.String(copySource),
	})
	if err != nil {
		return errors.NewObjectError("copy", desc.Destination.Container, desc.Destination.Key, err).
			WithMessage("failed to copy from " + copySource)
	}
	return nil
}

// multipartCopy copies a large object as concurrent UploadPartCopy ranges.
func (b *Backend) multipartCopy(ctx context.Context, desc synctypes.Descriptor, size int64) error {
	partSize := desc.ChunkSize
	if partSize < minPartSize {
		partSize = minPartSize
	}
	numParts := int((size + partSize - 1) / partSize)
	if numParts == 0 {
		numParts = 1
	}

	uploadID, err := b.createMultipartUpload(ctx, desc)
	if err != nil {
		return err
	}

	parts, err := b.copyParts(ctx, desc, uploadID, size, partSize, numParts)
	if err != nil {
		b.abortMultipartUpload(ctx, desc, uploadID)
		return err
	}

	return b.completeMultipartUpload(ctx, desc, uploadID, parts)
}

// createMultipartUpload initiates the multipart copy at the destination.
func (b *Backend) createMultipartUpload(ctx context.Context, desc synctypes.Descriptor) (string, error) {
	out, err := b.s3Client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(desc.Destination.Container),
		Key:    aws.String(desc.Destination.Key),
	})
	if err != nil {
		return "", errors.NewObjectError(
			"createMultipartUpload", desc.Destination.Container, desc.Destination.Key, err)
	}
	return aws.ToString(out.UploadId), nil
}

// copyParts copies all byte ranges concurrently, bounded by partConcurrency.
func (b *Backend) copyParts(
	ctx context.Context,
	desc synctypes.Descriptor,
	uploadID string,
	size, partSize int64,
	numParts int,
) ([]awstypes.CompletedPart, error) {
	parts := make([]awstypes.CompletedPart, numParts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(partConcurrency)

	for i := 0; i < numParts; i++ {
		partNum := int32(i + 1)
		g.Go(func() error {
			etag, err := b.copyPart(gctx, desc, uploadID, size, partSize, partNum)
			if err != nil {
				return err
			}
			parts[partNum-1] = awstypes.CompletedPart{
				ETag:       aws.String(etag),
				PartNumber: aws.Int32(partNum),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

// copyPart copies one byte range of the source object.
func (b *Backend) copyPart(
	ctx context.Context,
	desc synctypes.Descriptor,
	uploadID string,
	size, partSize int64,
	partNumber int32,
) (string, error) {
	offset := int64(partNumber-1) * partSize
	length := partSize
	if offset+length > size {
		length = size - offset
	}

	copySource := fmt.Sprintf("%s/%s", desc.Source.Container, desc.Source.Key)
	copyRange := fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)

	out, err := b.s3Client.UploadPartCopy(ctx, &s3.UploadPartCopyInput{
		Bucket:          aws.String(desc.Destination.Container),
		Key:             aws.String(desc.Destination.Key),
		CopySource:      aws.String(copySource),
		CopySourceRange: aws.String(copyRange),
		UploadId:        aws.String(uploadID),
		PartNumber:      aws.Int32(partNumber),
	})
	if err != nil {
		return "", errors.NewObjectError("copyPart", desc.Destination.Container, desc.Destination.Key, err).
			WithMessage(fmt.Sprintf("failed to copy part %d", partNumber))
	}

	return aws.ToString(out.CopyPartResult.ETag), nil
}

// completeMultipartUpload finishes the multipart copy.
func (b *Backend) completeMultipartUpload(
	ctx context.Context,
	desc synctypes.Descriptor,
	uploadID string,
	parts []awstypes.CompletedPart,
) error {
	_, err := b.s3Client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(desc.Destination.Container),
		Key:      aws.String(desc.Destination.Key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{
			Parts: parts,
		},
	})
	if err != nil {
		b.abortMultipartUpload(ctx, desc, uploadID)
		return errors.NewObjectError(
			"completeMultipartUpload", desc.Destination.Container, desc.Destination.Key, err)
	}
	return nil
}

// abortMultipartUpload cleans up a failed multipart copy.
func (b *Backend) abortMultipartUpload(ctx context.Context, desc synctypes.Descriptor, uploadID string) {
	// Ignore errors during cleanup
	_, _ = b.s3Client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(desc.Destination.Container),
		Key:      aws.String(desc.Destination.Key),
		UploadId: aws.String(uploadID),
	})
}

func (b *Backend) log(ctx context.Context, msg string, attrs ...any) {
	if b.logger != nil {
		b.logger.DebugContext(ctx, msg, attrs...)
	}
}

var _ synctypes.TransferBackend = (*Backend)(nil)
