package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/buildkite/azstore/internal/credentials"
	"gocloud.dev/gcerrors"
)

// Blob interface defines the operations for blob storage
type Blob interface {
	// Upload writes data to container/blobPath.
	Upload(ctx context.Context, container, blobPath string, data []byte, overwrite bool) (*UploadInfo, error)

	// Download opens the full content of container/blobPath. The caller closes it.
	Download(ctx context.Context, container, blobPath string) (io.ReadCloser, error)

	// List yields every blob in container whose name starts with prefix.
	List(ctx context.Context, container, prefix string) iter.Seq2[*BlobInfo, error]

	// Properties returns the properties of container/blobPath.
	Properties(ctx context.Context, container, blobPath string) (*BlobInfo, error)

	// Delete removes container/blobPath.
	Delete(ctx context.Context, container, blobPath string) (*DeleteInfo, error)

	Close() error
}

// Config selects and configures a Blob implementation.
type Config struct {
	// BucketURL switches to a gocloud.dev bucket, e.g. "file:///tmp/blobs" or "mem://".
	BucketURL string

	// AccountName is the Azure storage account. Required unless BucketURL or ServiceURL is set.
	AccountName string

	// AccountKey enables shared key authentication instead of Credentials.
	AccountKey string

	// ServiceURL overrides https://{AccountName}.blob.core.windows.net/, e.g. for Azurite.
	ServiceURL string

	// Credentials is the resolved service principal.
	Credentials credentials.Credentials

	// TokenCredentialFactory defaults to credentials.DefaultTokenCredentialFactory.
	TokenCredentialFactory credentials.TokenCredentialFactory
}

// Open returns the Blob implementation described by cfg.
func Open(ctx context.Context, cfg Config) (Blob, error) {
	if cfg.BucketURL != "" {
		b, err := NewGocloudBlob(ctx, cfg.BucketURL)
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	b, err := NewAzureBlob(cfg)
	if err != nil {
		return nil, err
	}

	return b, nil
}

// NotFound reports whether err means the container or blob does not exist.
func NotFound(err error) bool {
	if err == nil {
		return false
	}

	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return true
	}

	return gcerrors.Code(err) == gcerrors.NotFound
}

// Exists reports whether err means the blob is already present.
func Exists(err error) bool {
	if errors.Is(err, ErrBlobExists) {
		return true
	}

	return bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet)
}

func blobKey(container, blobPath string) string {
	return fmt.Sprintf("%s/%s", container, blobPath)
}
