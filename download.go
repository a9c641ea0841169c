package azstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/buildkite/azstore/internal/store"
	"github.com/buildkite/azstore/internal/trace"
	"github.com/buildkite/azstore/pkg/paths"
	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// Download writes the blob named by remotePath to localDestination and returns
// localDestination.
//
// The content is written to a temporary file next to localDestination and
// renamed into place, so a failed download never leaves a partial file. The
// parent directory of localDestination must already exist.
func (g *Gateway) Download(ctx context.Context, remotePath, localDestination string, opts ...CallOption) (string, error) {
	ctx, span := trace.Start(ctx, "Gateway.Download")
	defer span.End()

	span.SetAttributes(attribute.String("local_path", localDestination))

	b, err := g.connect(ctx, "download", opts)
	if err != nil {
		return "", trace.Fail(span, err)
	}
	defer closeStore(b)

	if _, err := g.download(ctx, b, g.resolve(remotePath), localDestination); err != nil {
		return "", trace.Fail(span, err)
	}

	return localDestination, nil
}

// DownloadFiles downloads every remote path to {folder}/{container}/{blobPath},
// creating intermediate directories as needed. An empty folder uses
// Config.DownloadFolder. With removeSpaces every space in the destination is
// replaced with '-'.
//
// Outcomes are returned in input order, one per remote path. As with
// UploadFiles, item failures are reported on the outcome and the returned
// error is only set for client construction failures or cancellation. A blob
// path that would land outside the folder fails its item with
// ErrEscapesFolder.
func (g *Gateway) DownloadFiles(ctx context.Context, remotePaths []string, folder string, removeSpaces bool, opts ...CallOption) ([]DownloadOutcome, error) {
	ctx, span := trace.Start(ctx, "Gateway.DownloadFiles")
	defer span.End()

	if folder == "" {
		folder = g.downloadFolder
	}

	expanded, err := homedir.Expand(folder)
	if err != nil {
		return nil, trace.NewError(span, "failed to expand download folder %s: %w", folder, err)
	}
	folder = expanded

	batchID := uuid.NewString()
	span.SetAttributes(
		attribute.String("batch_id", batchID),
		attribute.String("folder", folder),
		attribute.Int("items", len(remotePaths)),
		attribute.Bool("remove_spaces", removeSpaces),
	)

	logger := log.With().Str("batch_id", batchID).Str("folder", folder).Logger()

	b, err := g.connect(ctx, "download_files", opts)
	if err != nil {
		return nil, trace.Fail(span, err)
	}
	defer closeStore(b)

	base := folder
	if removeSpaces {
		base = strings.ReplaceAll(base, " ", "-")
	}

	outcomes := make([]DownloadOutcome, 0, len(remotePaths))
	failed := 0

	for i, remotePath := range remotePaths {
		if err := ctx.Err(); err != nil {
			return outcomes, trace.NewError(span, "download batch %s interrupted after %d of %d items: %w", batchID, i, len(remotePaths), err)
		}

		g.callProgress("downloading", fmt.Sprintf("Downloading %s", remotePath), i+1, len(remotePaths))

		ref := g.resolve(remotePath)
		location := paths.DownloadLocation(folder, ref, removeSpaces)

		outcome := DownloadOutcome{RemotePath: remotePath, LocalPath: location}
		outcome.Transfer, outcome.Err = g.downloadInto(ctx, b, ref, base, location)

		if outcome.Err != nil {
			failed++
			logger.Warn().Err(outcome.Err).Str("remote_path", remotePath).Str("local_path", location).Msg("download failed")
		}

		outcomes = append(outcomes, outcome)
	}

	span.SetAttributes(attribute.Int("failed", failed))
	logger.Info().Int("items", len(remotePaths)).Int("failed", failed).Msg("download batch finished")

	g.callProgress("complete", "Download batch finished", len(remotePaths), len(remotePaths))

	return outcomes, nil
}

func (g *Gateway) downloadInto(ctx context.Context, b store.Blob, ref paths.Reference, base, location string) (TransferMetrics, error) {
	if paths.RelPathCheck(filepath.Clean(base), filepath.Clean(location)) == "" {
		return TransferMetrics{}, fmt.Errorf("%s: %w", ref, ErrEscapesFolder)
	}

	if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
		return TransferMetrics{}, fmt.Errorf("failed to create directory for %s: %w", location, err)
	}

	return g.download(ctx, b, ref, location)
}

func (g *Gateway) download(ctx context.Context, b store.Blob, ref paths.Reference, destination string) (TransferMetrics, error) {
	start := time.Now()

	log.Debug().Str("container", ref.Container).Str("blob_path", ref.BlobPath).Bool("container_from_path", ref.Embedded).
		Str("destination", destination).Msg("downloading blob")

	reader, err := b.Download(ctx, ref.Container, ref.BlobPath)
	if err != nil {
		return TransferMetrics{}, fmt.Errorf("failed to download %s: %w", ref, err)
	}
	defer reader.Close()

	written, err := writeFileAtomic(destination, reader)
	if err != nil {
		return TransferMetrics{}, fmt.Errorf("failed to write %s to %s: %w", ref, destination, err)
	}

	info := store.NewTransferInfo(written, time.Since(start))

	return TransferMetrics{
		BytesTransferred: info.BytesTransferred,
		TransferSpeed:    info.TransferSpeed,
		Duration:         info.Duration,
	}, nil
}

func writeFileAtomic(destination string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(destination), "."+filepath.Base(destination)+".*.tmp")
	if err != nil {
		return 0, err
	}

	// no-op once the rename succeeded
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return written, err
	}

	if err := tmp.Close(); err != nil {
		return written, err
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return written, err
	}

	return written, os.Rename(tmp.Name(), destination)
}
