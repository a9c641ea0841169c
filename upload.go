package azstore

import (
	"context"
	"fmt"
	"os"

	"github.com/buildkite/azstore/internal/store"
	"github.com/buildkite/azstore/internal/trace"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// UploadData uploads data to the blob named by path.
//
// The container comes from the path ("mycontainer/dir/a.txt" or
// "mycontainer:dir/a.txt"), falling back to DataLakeContainerName and then
// "default". Without overwrite an existing blob fails the upload; match that
// with IsBlobExists.
//
// Example:
//
//	result, err := gw.UploadData(ctx, []byte("hello"), "mycontainer/greetings/hello.txt", true)
//	if err != nil {
//	    log.Fatalf("upload failed: %v", err)
//	}
//	log.Printf("uploaded %s (etag %s)", result.BlobPath, result.ETag)
func (g *Gateway) UploadData(ctx context.Context, data []byte, path string, overwrite bool, opts ...CallOption) (*UploadResult, error) {
	ctx, span := trace.Start(ctx, "Gateway.UploadData")
	defer span.End()

	b, err := g.connect(ctx, "upload", opts)
	if err != nil {
		return nil, trace.Fail(span, err)
	}
	defer closeStore(b)

	result, err := g.upload(ctx, b, data, path, overwrite)
	if err != nil {
		return nil, trace.Fail(span, err)
	}

	return result, nil
}

// UploadFile reads localFilePath fully into memory and uploads it to path.
func (g *Gateway) UploadFile(ctx context.Context, localFilePath, path string, overwrite bool, opts ...CallOption) (*UploadResult, error) {
	ctx, span := trace.Start(ctx, "Gateway.UploadFile")
	defer span.End()

	span.SetAttributes(attribute.String("local_path", localFilePath))

	data, err := os.ReadFile(localFilePath)
	if err != nil {
		return nil, trace.NewError(span, "failed to read %s: %w", localFilePath, err)
	}

	b, err := g.connect(ctx, "upload", opts)
	if err != nil {
		return nil, trace.Fail(span, err)
	}
	defer closeStore(b)

	result, err := g.upload(ctx, b, data, path, overwrite)
	if err != nil {
		return nil, trace.Fail(span, err)
	}

	return result, nil
}

// UploadFiles uploads each item in order through a single storage client.
//
// A failing item does not stop the batch: its outcome carries the error and
// the next item is attempted. The returned error is only set when the client
// could not be built or ctx was cancelled, in which case the outcomes gathered
// so far are returned with it. Use BatchError to treat any item failure as a
// failure of the whole batch.
//
// Every successful result has LocalPath and UploadPath set to its item.
func (g *Gateway) UploadFiles(ctx context.Context, items []UploadItem, overwrite bool, opts ...CallOption) ([]UploadOutcome, error) {
	ctx, span := trace.Start(ctx, "Gateway.UploadFiles")
	defer span.End()

	batchID := uuid.NewString()
	span.SetAttributes(
		attribute.String("batch_id", batchID),
		attribute.Int("items", len(items)),
		attribute.Bool("overwrite", overwrite),
	)

	logger := log.With().Str("batch_id", batchID).Logger()

	b, err := g.connect(ctx, "upload_files", opts)
	if err != nil {
		return nil, trace.Fail(span, err)
	}
	defer closeStore(b)

	outcomes := make([]UploadOutcome, 0, len(items))
	failed := 0

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return outcomes, trace.NewError(span, "upload batch %s interrupted after %d of %d items: %w", batchID, i, len(items), err)
		}

		g.callProgress("uploading", fmt.Sprintf("Uploading %s", item.LocalPath), i+1, len(items))

		outcome := UploadOutcome{Item: item}

		data, err := os.ReadFile(item.LocalPath)
		if err != nil {
			outcome.Err = fmt.Errorf("failed to read %s: %w", item.LocalPath, err)
		} else {
			outcome.Result, outcome.Err = g.upload(ctx, b, data, item.UploadPath, overwrite)
		}

		if outcome.Err != nil {
			failed++
			logger.Warn().Err(outcome.Err).Str("local_path", item.LocalPath).Str("upload_path", item.UploadPath).Msg("upload failed")
		} else {
			outcome.Result.LocalPath = item.LocalPath
			outcome.Result.UploadPath = item.UploadPath
		}

		outcomes = append(outcomes, outcome)
	}

	span.SetAttributes(attribute.Int("failed", failed))
	logger.Info().Int("items", len(items)).Int("failed", failed).Msg("upload batch finished")

	g.callProgress("complete", "Upload batch finished", len(items), len(items))

	return outcomes, nil
}

func (g *Gateway) upload(ctx context.Context, b store.Blob, data []byte, path string, overwrite bool) (*UploadResult, error) {
	ref := g.resolve(path)

	log.Debug().Str("container", ref.Container).Str("blob_path", ref.BlobPath).Bool("container_from_path", ref.Embedded).
		Int("bytes", len(data)).Bool("overwrite", overwrite).Msg("uploading blob")

	info, err := b.Upload(ctx, ref.Container, ref.BlobPath, data, overwrite)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", ref, err)
	}

	return newUploadResult(ref.Container, ref.BlobPath, info), nil
}
