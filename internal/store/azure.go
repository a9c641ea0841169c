package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/buildkite/azstore/internal/credentials"
	"github.com/buildkite/azstore/internal/trace"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrMissingAccountName is returned when neither an account name nor a service URL is configured.
	ErrMissingAccountName = errors.New("storage account name is required")

	// ErrCredential wraps failures to build the token or shared key credential.
	ErrCredential = errors.New("failed to create credential")
)

// AzureBlob implements the Blob interface using Azure Blob Storage
type AzureBlob struct {
	client     *azblob.Client
	serviceURL string
}

// Ensure AzureBlob implements the Blob interface
var _ Blob = (*AzureBlob)(nil)

// ServiceURL returns the blob endpoint of a storage account.
func ServiceURL(accountName string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
}

// NewAzureBlob creates an azblob client. An account key selects shared key
// authentication, otherwise the token credential built from cfg.Credentials
// is used. No request is sent.
func NewAzureBlob(cfg Config) (*AzureBlob, error) {
	serviceURL := cfg.ServiceURL
	if serviceURL == "" {
		if cfg.AccountName == "" {
			return nil, ErrMissingAccountName
		}
		serviceURL = ServiceURL(cfg.AccountName)
	}

	log.Debug().Str("service_url", serviceURL).Bool("shared_key", cfg.AccountKey != "").Msg("creating azure blob client")

	if cfg.AccountKey != "" {
		cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("%w: shared key: %w", ErrCredential, err)
		}

		client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create azure client with shared key: %w", err)
		}

		return &AzureBlob{client: client, serviceURL: serviceURL}, nil
	}

	factory := cfg.TokenCredentialFactory
	if factory == nil {
		factory = credentials.DefaultTokenCredentialFactory
	}

	cred, err := factory(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredential, err)
	}

	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &AzureBlob{client: client, serviceURL: serviceURL}, nil
}

// Upload uploads data as a block blob. Without overwrite the request carries
// If-None-Match: * and fails if the blob exists.
func (b *AzureBlob) Upload(ctx context.Context, containerName, blobPath string, data []byte, overwrite bool) (*UploadInfo, error) {
	ctx, span := trace.Start(ctx, "AzureBlob.Upload")
	defer span.End()

	start := time.Now()

	opts := &azblob.UploadBufferOptions{}
	if !overwrite {
		opts.AccessConditions = &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{
				IfNoneMatch: to.Ptr(azcore.ETagAny),
			},
		}
	}

	resp, err := b.client.UploadBuffer(ctx, containerName, blobPath, data, opts)
	if err != nil {
		return nil, trace.NewError(span, "failed to upload blob %s: %w", blobKey(containerName, blobPath), err)
	}

	duration := time.Since(start)
	bytesWritten := int64(len(data))
	averageSpeed := calculateTransferSpeedMBps(bytesWritten, duration)

	span.SetAttributes(
		attribute.String("container", containerName),
		attribute.String("blob_path", blobPath),
		attribute.Int64("bytes_transferred", bytesWritten),
		attribute.String("transfer_speed", fmt.Sprintf("%.2fMB/s", averageSpeed)),
	)

	return &UploadInfo{
		ETag:         etag(resp.ETag),
		LastModified: deref(resp.LastModified),
		ContentMD5:   resp.ContentMD5,
		VersionID:    deref(resp.VersionID),
		TransferInfo: TransferInfo{
			BytesTransferred: bytesWritten,
			TransferSpeed:    averageSpeed,
			RequestID:        deref(resp.RequestID),
			Duration:         duration,
		},
	}, nil
}

// Download returns the blob body stream.
func (b *AzureBlob) Download(ctx context.Context, containerName, blobPath string) (io.ReadCloser, error) {
	ctx, span := trace.Start(ctx, "AzureBlob.Download")
	defer span.End()

	span.SetAttributes(
		attribute.String("container", containerName),
		attribute.String("blob_path", blobPath),
	)

	resp, err := b.client.DownloadStream(ctx, containerName, blobPath, nil)
	if err != nil {
		return nil, trace.NewError(span, "failed to download blob %s: %w", blobKey(containerName, blobPath), err)
	}

	return resp.Body, nil
}

// List pages through the container lazily; each page is fetched when the
// previous one has been consumed.
func (b *AzureBlob) List(ctx context.Context, containerName, prefix string) iter.Seq2[*BlobInfo, error] {
	return func(yield func(*BlobInfo, error) bool) {
		ctx, span := trace.Start(ctx, "AzureBlob.List")
		defer span.End()

		span.SetAttributes(
			attribute.String("container", containerName),
			attribute.String("prefix", prefix),
		)

		opts := &azblob.ListBlobsFlatOptions{
			Include: container.ListBlobsInclude{Metadata: true},
		}
		if prefix != "" {
			opts.Prefix = to.Ptr(prefix)
		}

		count := 0
		pager := b.client.NewListBlobsFlatPager(containerName, opts)
		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				yield(nil, trace.NewError(span, "failed to list blobs in %s: %w", containerName, err))
				return
			}

			if page.Segment == nil {
				continue
			}

			for _, item := range page.Segment.BlobItems {
				if item.Name == nil {
					continue
				}
				count++
				if !yield(blobItemInfo(containerName, item), nil) {
					span.SetAttributes(attribute.Int("blob_count", count))
					return
				}
			}
		}

		span.SetAttributes(attribute.Int("blob_count", count))
	}
}

// Properties fetches the blob properties.
func (b *AzureBlob) Properties(ctx context.Context, containerName, blobPath string) (*BlobInfo, error) {
	ctx, span := trace.Start(ctx, "AzureBlob.Properties")
	defer span.End()

	span.SetAttributes(
		attribute.String("container", containerName),
		attribute.String("blob_path", blobPath),
	)

	blobClient := b.client.ServiceClient().NewContainerClient(containerName).NewBlobClient(blobPath)
	props, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		return nil, trace.NewError(span, "failed to get properties of %s: %w", blobKey(containerName, blobPath), err)
	}

	return &BlobInfo{
		Container:    containerName,
		Name:         blobPath,
		Size:         deref(props.ContentLength),
		ContentType:  deref(props.ContentType),
		ETag:         etag(props.ETag),
		LastModified: deref(props.LastModified),
		CreatedOn:    deref(props.CreationTime),
		ContentMD5:   props.ContentMD5,
		Metadata:     metadata(props.Metadata),
	}, nil
}

// Delete deletes the blob.
func (b *AzureBlob) Delete(ctx context.Context, containerName, blobPath string) (*DeleteInfo, error) {
	ctx, span := trace.Start(ctx, "AzureBlob.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.String("container", containerName),
		attribute.String("blob_path", blobPath),
	)

	resp, err := b.client.DeleteBlob(ctx, containerName, blobPath, nil)
	if err != nil {
		return nil, trace.NewError(span, "failed to delete blob %s: %w", blobKey(containerName, blobPath), err)
	}

	return &DeleteInfo{
		RequestID: deref(resp.RequestID),
		Date:      deref(resp.Date),
	}, nil
}

// URL returns the blob service endpoint the client talks to.
func (b *AzureBlob) URL() string {
	return b.serviceURL
}

// Close is a no-op, the azblob client holds no resources of its own.
func (b *AzureBlob) Close() error {
	return nil
}

func blobItemInfo(containerName string, item *container.BlobItem) *BlobInfo {
	info := &BlobInfo{
		Container: containerName,
		Name:      *item.Name,
		Metadata:  metadata(item.Metadata),
	}

	if p := item.Properties; p != nil {
		info.Size = deref(p.ContentLength)
		info.ContentType = deref(p.ContentType)
		info.ETag = etag(p.ETag)
		info.LastModified = deref(p.LastModified)
		info.CreatedOn = deref(p.CreationTime)
		info.ContentMD5 = p.ContentMD5
	}

	return info
}

func metadata(m map[string]*string) map[string]string {
	if len(m) == 0 {
		return nil
	}

	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = deref(v)
	}

	return out
}

func etag(e *azcore.ETag) string {
	if e == nil {
		return ""
	}
	return string(*e)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
