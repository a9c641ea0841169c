package store

import (
	"errors"
	"time"
)

// ErrBlobExists is returned by Upload when overwrite is false and the blob
// is already present.
var ErrBlobExists = errors.New("blob already exists")

type TransferInfo struct {
	BytesTransferred int64
	TransferSpeed    float64 // in MB/s
	RequestID        string
	Duration         time.Duration
}

// UploadInfo describes a committed upload.
type UploadInfo struct {
	ETag         string
	LastModified time.Time
	ContentMD5   []byte
	VersionID    string
	TransferInfo
}

// BlobInfo holds the properties of a stored blob.
type BlobInfo struct {
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

// DeleteInfo describes a completed delete.
type DeleteInfo struct {
	RequestID string
	Date      time.Time
}

// calculateTransferSpeedMBps calculates transfer speed in MB/s (decimal megabytes)
// using the formula: bytes / duration_in_seconds / 1,000,000
func calculateTransferSpeedMBps(bytes int64, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	return float64(bytes) / duration.Seconds() / 1000 / 1000
}

// NewTransferInfo builds the metrics for bytes moved in duration.
func NewTransferInfo(bytes int64, duration time.Duration) TransferInfo {
	return TransferInfo{
		BytesTransferred: bytes,
		TransferSpeed:    calculateTransferSpeedMBps(bytes, duration),
		Duration:         duration,
	}
}
