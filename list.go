package azstore

import (
	"context"
	"fmt"
	"iter"

	"github.com/buildkite/azstore/internal/trace"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// List returns a lazy sequence over every blob below directory.
//
// directory resolves like any other path: "mycontainer/2024/" lists the blobs
// of container "mycontainer" whose names start with "2024/". Nothing is fetched
// until the sequence is ranged over, and each range starts a fresh listing.
// A client construction failure is yielded as the only element.
//
// Example:
//
//	for blob, err := range gw.List(ctx, "reports/2024/") {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(blob.Name, blob.Size)
//	}
func (g *Gateway) List(ctx context.Context, directory string, opts ...CallOption) iter.Seq2[*BlobMetadata, error] {
	return func(yield func(*BlobMetadata, error) bool) {
		ctx, span := trace.Start(ctx, "Gateway.List")
		defer span.End()

		ref := g.resolve(directory)
		span.SetAttributes(
			attribute.String("container", ref.Container),
			attribute.String("prefix", ref.BlobPath),
		)

		b, err := g.connect(ctx, "list", opts)
		if err != nil {
			yield(nil, trace.Fail(span, err))
			return
		}
		defer closeStore(b)

		log.Debug().Str("container", ref.Container).Str("prefix", ref.BlobPath).Msg("listing blobs")

		count := 0
		for info, err := range b.List(ctx, ref.Container, ref.BlobPath) {
			if err != nil {
				yield(nil, trace.Fail(span, fmt.Errorf("failed to list %s: %w", ref, err)))
				return
			}

			count++
			if !yield(newBlobMetadata(info), nil) {
				break
			}
		}

		span.SetAttributes(attribute.Int("blobs", count))
	}
}

// GetFileInfo returns the properties of the blob named by path.
func (g *Gateway) GetFileInfo(ctx context.Context, path string, opts ...CallOption) (*BlobMetadata, error) {
	ctx, span := trace.Start(ctx, "Gateway.GetFileInfo")
	defer span.End()

	b, err := g.connect(ctx, "get_file_info", opts)
	if err != nil {
		return nil, trace.Fail(span, err)
	}
	defer closeStore(b)

	ref := g.resolve(path)

	info, err := b.Properties(ctx, ref.Container, ref.BlobPath)
	if err != nil {
		return nil, trace.NewError(span, "failed to get file info for %s: %w", ref, err)
	}

	return newBlobMetadata(info), nil
}

// DeleteFile deletes the blob named by path.
func (g *Gateway) DeleteFile(ctx context.Context, path string, opts ...CallOption) (*DeleteResult, error) {
	ctx, span := trace.Start(ctx, "Gateway.DeleteFile")
	defer span.End()

	b, err := g.connect(ctx, "delete_file", opts)
	if err != nil {
		return nil, trace.Fail(span, err)
	}
	defer closeStore(b)

	ref := g.resolve(path)

	log.Info().Str("container", ref.Container).Str("blob_path", ref.BlobPath).Msg("deleting blob")

	info, err := b.Delete(ctx, ref.Container, ref.BlobPath)
	if err != nil {
		return nil, trace.NewError(span, "failed to delete %s: %w", ref, err)
	}

	return &DeleteResult{
		Container: ref.Container,
		BlobPath:  ref.BlobPath,
		RequestID: info.RequestID,
		Date:      info.Date,
	}, nil
}
