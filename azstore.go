// Package azstore is a small library for moving files in and out of Azure Blob
// Storage using path-like references such as "mycontainer/dir/file.txt".
//
// The main entry point is NewGateway, which creates a Gateway for a storage
// account. Every call resolves the container from the path, resolves the
// service principal (explicit values, a JSON settings file, then the
// environment) and talks to the account through the Azure SDK.
//
// Basic usage:
//
//	gw, err := azstore.NewGateway(azstore.Config{
//	    AccountName:  "mystorageaccount",
//	    SettingsPath: "~/.azure/settings.json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Upload a file into container "reports"
//	result, err := gw.UploadFile(ctx, "summary.csv", "reports/2024/summary.csv", true)
//
//	// List everything below reports/2024/
//	for blob, err := range gw.List(ctx, "reports/2024/") {
//	    ...
//	}
package azstore

import (
	"errors"
	"time"

	"github.com/buildkite/azstore/internal/credentials"
	"github.com/buildkite/azstore/internal/store"
)

// Error kinds carried by ClientError. Use errors.Is to test for them.
var (
	// ErrConfiguration means the client could not be built from the supplied
	// configuration: missing account name, unreadable settings file, bad URL.
	ErrConfiguration = errors.New("configuration error")

	// ErrAuthentication means a credential could not be created or was rejected.
	ErrAuthentication = errors.New("authentication error")

	// ErrNetwork means the storage endpoint could not be reached.
	ErrNetwork = errors.New("network error")

	// ErrBlobExists is returned by uploads without overwrite when the blob is
	// already present in a gocloud bucket. Azure reports BlobAlreadyExists;
	// IsBlobExists matches both.
	ErrBlobExists = store.ErrBlobExists

	// ErrEscapesFolder is an item error of DownloadFiles when a blob path would
	// be written outside the download folder.
	ErrEscapesFolder = errors.New("download path escapes download folder")
)

// DefaultDownloadFolder is the DownloadFiles folder when none is given.
const DefaultDownloadFolder = "/adls"

// Credentials holds an Azure service principal. Empty fields are absent.
type Credentials = credentials.Credentials

// Config holds the defaults for every Gateway call.
type Config struct {
	// AccountName is the Azure storage account, "https://{AccountName}.blob.core.windows.net/".
	// It can be overridden per call with WithAccountName.
	AccountName string

	// AccountKey switches to shared key authentication.
	AccountKey string

	// ServiceURL overrides the account endpoint, for example an Azurite emulator.
	ServiceURL string

	// SettingsPath is an optional JSON file holding AZ_TENANT_ID, AZ_CLIENT_ID and
	// AZ_CLIENT_SECRET (or their AZURE_* spellings). It can be overridden per call
	// with WithSettingsPath.
	SettingsPath string

	// Credentials are explicit service principal values. They take precedence over
	// the settings file and the environment.
	Credentials Credentials

	// BucketURL replaces Azure with a gocloud.dev bucket ("file:///tmp/blobs",
	// "mem://", "s3://bucket"). Containers become top-level key prefixes.
	BucketURL string

	// ExportEnvironment writes the resolved service principal into the process
	// environment under both the AZ_* and AZURE_* names before each client is
	// built, for tools that discover credentials from the environment.
	ExportEnvironment bool

	// Env is an optional environment used instead of the process environment for
	// credential lookup and the DataLakeContainerName fallback.
	Env map[string]string

	// DownloadFolder is the DownloadFiles folder when none is passed.
	// Defaults to DefaultDownloadFolder.
	DownloadFolder string

	// OnProgress is an optional callback invoked once per item of UploadFiles
	// and DownloadFiles.
	OnProgress ProgressCallback

	tokenCredentialFactory credentials.TokenCredentialFactory
}

// ProgressCallback reports batch progress.
//
// Stages:
//   - "uploading": an UploadFiles item is about to be uploaded (current=item number, total=items)
//   - "downloading": a DownloadFiles item is about to be downloaded
//   - "complete": the batch finished, whether or not items failed
type ProgressCallback func(stage string, message string, current int, total int)

// TransferMetrics contains metrics about upload and download operations.
type TransferMetrics struct {
	// BytesTransferred is the number of bytes uploaded or downloaded.
	BytesTransferred int64

	// TransferSpeed is the transfer rate in MB/s.
	TransferSpeed float64

	// Duration is how long the transfer took.
	Duration time.Duration

	// RequestID is the Azure request id, empty for gocloud buckets.
	RequestID string
}

// UploadResult describes an uploaded blob.
type UploadResult struct {
	Container    string
	BlobPath     string
	ETag         string
	LastModified time.Time
	ContentMD5   []byte
	VersionID    string
	Transfer     TransferMetrics

	// LocalPath and UploadPath are set by UploadFiles to the item that produced
	// this result.
	LocalPath  string
	UploadPath string
}

// BlobMetadata holds the properties of a stored blob.
type BlobMetadata struct {
	Container    string
	Name         string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
	CreatedOn    time.Time
	ContentMD5   []byte
	Metadata     map[string]string
}

// DeleteResult describes a deleted blob.
type DeleteResult struct {
	Container string
	BlobPath  string
	RequestID string
	Date      time.Time
}

// UploadItem is one file of an UploadFiles batch.
type UploadItem struct {
	LocalPath  string `json:"localPath" yaml:"localPath"`
	UploadPath string `json:"uploadPath" yaml:"uploadPath"`
}

// UploadOutcome is the result of one UploadFiles item. Exactly one of Result
// and Err is set.
type UploadOutcome struct {
	Item   UploadItem
	Result *UploadResult
	Err    error
}

// DownloadOutcome is the result of one DownloadFiles item. LocalPath is the
// computed destination even when Err is set.
type DownloadOutcome struct {
	RemotePath string
	LocalPath  string
	Transfer   TransferMetrics
	Err        error
}

func (o UploadOutcome) outcomeErr() error   { return o.Err }
func (o DownloadOutcome) outcomeErr() error { return o.Err }

type outcome interface {
	outcomeErr() error
}

// BatchError joins the item errors of a batch, or returns nil when every item
// succeeded.
func BatchError[T outcome](outcomes []T) error {
	var errs []error
	for _, o := range outcomes {
		if err := o.outcomeErr(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsBlobExists reports whether err came from an upload without overwrite onto
// an existing blob.
func IsBlobExists(err error) bool {
	return store.Exists(err)
}

// IsNotFound reports whether err means the container or blob does not exist.
func IsNotFound(err error) bool {
	return store.NotFound(err)
}

func newUploadResult(container, blobPath string, info *store.UploadInfo) *UploadResult {
	return &UploadResult{
		Container:    container,
		BlobPath:     blobPath,
		ETag:         info.ETag,
		LastModified: info.LastModified,
		ContentMD5:   info.ContentMD5,
		VersionID:    info.VersionID,
		Transfer: TransferMetrics{
			BytesTransferred: info.BytesTransferred,
			TransferSpeed:    info.TransferSpeed,
			Duration:         info.Duration,
			RequestID:        info.RequestID,
		},
	}
}

func newBlobMetadata(info *store.BlobInfo) *BlobMetadata {
	return &BlobMetadata{
		Container:    info.Container,
		Name:         info.Name,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
		CreatedOn:    info.CreatedOn,
		ContentMD5:   info.ContentMD5,
		Metadata:     info.Metadata,
	}
}
