package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/buildkite/azstore/internal/trace"
	"go.opentelemetry.io/otel/attribute"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/azureblob" // Azure driver, azblob://container
	_ "gocloud.dev/blob/fileblob"  // Local file driver for testing
	_ "gocloud.dev/blob/gcsblob"   // Google Cloud Storage driver
	_ "gocloud.dev/blob/memblob"   // In memory driver
	_ "gocloud.dev/blob/s3blob"    // AWS S3 driver
	"gocloud.dev/gcerrors"
)

// GocloudBlob implements the Blob interface using gocloud.dev. Every container
// is a top-level key prefix inside the one bucket, so "reports/2024/a.csv" is
// stored under the key "reports/2024/a.csv".
type GocloudBlob struct {
	bucket *blob.Bucket
}

// Ensure GocloudBlob implements the Blob interface
var _ Blob = (*GocloudBlob)(nil)

// NewGocloudBlob creates a new GocloudBlob instance using a blob URL
// For local development: "file:///path/to/directory"
// For tests: "mem://"
// For S3: "s3://bucket-name?region=us-east-1"
// For GCS: "gs://bucket-name"
func NewGocloudBlob(ctx context.Context, blobURL string) (*GocloudBlob, error) {
	bucket, err := blob.OpenBucket(ctx, blobURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob bucket: %w", err)
	}

	return &GocloudBlob{bucket: bucket}, nil
}

// Close closes the underlying bucket connection
func (b *GocloudBlob) Close() error {
	return b.bucket.Close()
}

// Upload writes data under container/blobPath. Without overwrite an existing
// key fails with ErrBlobExists.
func (b *GocloudBlob) Upload(ctx context.Context, container, blobPath string, data []byte, overwrite bool) (*UploadInfo, error) {
	ctx, span := trace.Start(ctx, "GocloudBlob.Upload")
	defer span.End()

	start := time.Now()
	key := blobKey(container, blobPath)

	if !overwrite {
		exists, err := b.bucket.Exists(ctx, key)
		if err != nil {
			return nil, trace.NewError(span, "failed to check blob %s: %w", key, err)
		}
		if exists {
			return nil, trace.NewError(span, "failed to upload blob %s: %w", key, ErrBlobExists)
		}
	}

	if err := b.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return nil, trace.NewError(span, "failed to upload blob %s: %w", key, err)
	}

	duration := time.Since(start)
	bytesWritten := int64(len(data))
	averageSpeed := calculateTransferSpeedMBps(bytesWritten, duration)

	span.SetAttributes(
		attribute.String("container", container),
		attribute.String("blob_path", blobPath),
		attribute.Int64("bytes_transferred", bytesWritten),
		attribute.String("transfer_speed", fmt.Sprintf("%.2fMB/s", averageSpeed)),
	)

	info := &UploadInfo{
		TransferInfo: TransferInfo{
			BytesTransferred: bytesWritten,
			TransferSpeed:    averageSpeed,
			RequestID:        "", // gocloud.dev doesn't expose request IDs
			Duration:         duration,
		},
	}

	// the driver decides what it reports after a write, so read it back
	if attrs, err := b.bucket.Attributes(ctx, key); err == nil {
		info.ETag = attrs.ETag
		info.LastModified = attrs.ModTime
		info.ContentMD5 = attrs.MD5
	}

	return info, nil
}

// Download opens a reader over the whole blob.
func (b *GocloudBlob) Download(ctx context.Context, container, blobPath string) (io.ReadCloser, error) {
	ctx, span := trace.Start(ctx, "GocloudBlob.Download")
	defer span.End()

	key := blobKey(container, blobPath)
	span.SetAttributes(attribute.String("blob_key", key))

	reader, err := b.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, trace.NewError(span, "failed to create blob reader for %s: %w", key, err)
	}

	return reader, nil
}

// List iterates lazily over the keys below container/prefix.
func (b *GocloudBlob) List(ctx context.Context, container, prefix string) iter.Seq2[*BlobInfo, error] {
	return func(yield func(*BlobInfo, error) bool) {
		ctx, span := trace.Start(ctx, "GocloudBlob.List")
		defer span.End()

		containerPrefix := container + "/"
		span.SetAttributes(attribute.String("prefix", containerPrefix+prefix))

		it := b.bucket.List(&blob.ListOptions{Prefix: containerPrefix + prefix})
		for {
			obj, err := it.Next(ctx)
			// prefixes without any blobs may not exist as directories in fileblob
			if errors.Is(err, io.EOF) || gcerrors.Code(err) == gcerrors.NotFound {
				return
			}
			if err != nil {
				yield(nil, trace.NewError(span, "failed to list blobs in %s: %w", container, err))
				return
			}

			if obj.IsDir {
				continue
			}

			info := &BlobInfo{
				Container:    container,
				Name:         strings.TrimPrefix(obj.Key, containerPrefix),
				Size:         obj.Size,
				LastModified: obj.ModTime,
				ContentMD5:   obj.MD5,
			}

			if !yield(info, nil) {
				return
			}
		}
	}
}

// Properties reads the blob attributes.
func (b *GocloudBlob) Properties(ctx context.Context, container, blobPath string) (*BlobInfo, error) {
	ctx, span := trace.Start(ctx, "GocloudBlob.Properties")
	defer span.End()

	key := blobKey(container, blobPath)
	span.SetAttributes(attribute.String("blob_key", key))

	attrs, err := b.bucket.Attributes(ctx, key)
	if err != nil {
		return nil, trace.NewError(span, "failed to get properties of %s: %w", key, err)
	}

	return &BlobInfo{
		Container:    container,
		Name:         blobPath,
		Size:         attrs.Size,
		ContentType:  attrs.ContentType,
		ETag:         attrs.ETag,
		LastModified: attrs.ModTime,
		CreatedOn:    attrs.CreateTime,
		ContentMD5:   attrs.MD5,
		Metadata:     attrs.Metadata,
	}, nil
}

// Delete removes the blob.
func (b *GocloudBlob) Delete(ctx context.Context, container, blobPath string) (*DeleteInfo, error) {
	ctx, span := trace.Start(ctx, "GocloudBlob.Delete")
	defer span.End()

	key := blobKey(container, blobPath)
	span.SetAttributes(attribute.String("blob_key", key))

	if err := b.bucket.Delete(ctx, key); err != nil {
		return nil, trace.NewError(span, "failed to delete blob %s: %w", key, err)
	}

	return &DeleteInfo{Date: time.Now()}, nil
}
