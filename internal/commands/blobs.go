package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/buildkite/azstore/internal/trace"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

type ListCmd struct {
	Directory string `arg:"" optional:"" help:"Container and prefix to list, e.g. mycontainer/dir/."`
}

func (cmd *ListCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, span := trace.Start(ctx, "ListCmdRun")
	defer span.End()

	log.Info().Str("version", globals.Version).Msg("Running ListCmd")

	span.SetAttributes(attribute.String("directory", cmd.Directory))

	var (
		rows  [][]string
		total int64
	)

	for blob, err := range globals.Gateway.List(ctx, cmd.Directory) {
		if err != nil {
			return trace.NewError(span, "failed to list %s: %w", cmd.Directory, err)
		}

		rows = append(rows, []string{blob.Name, formatSize(blob.Size), formatTime(blob.LastModified)})
		total += blob.Size
	}

	span.SetAttributes(attribute.Int("blobs", len(rows)))

	if len(rows) == 0 {
		globals.Printer.Warn("🔍", "No blobs found in %s", cmd.Directory)
		return nil
	}

	_, err := fmt.Fprintln(globals.Stdout, globals.Printer.Table([]string{"Name", "Size", "Last Modified"}, rows))
	if err != nil {
		return trace.NewError(span, "failed to write listing: %w", err)
	}

	globals.Printer.Info("📊", "%d blobs, %s", len(rows), formatSize(total))

	return nil
}

type InfoCmd struct {
	Remote string `arg:"" help:"Blob to describe, e.g. mycontainer/dir/file.txt."`
}

func (cmd *InfoCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, span := trace.Start(ctx, "InfoCmdRun")
	defer span.End()

	log.Info().Str("version", globals.Version).Msg("Running InfoCmd")

	span.SetAttributes(attribute.String("remote", cmd.Remote))

	info, err := globals.Gateway.GetFileInfo(ctx, cmd.Remote)
	if err != nil {
		return trace.NewError(span, "failed to get file info for %s: %w", cmd.Remote, err)
	}

	rows := [][]string{
		{"Container", info.Container},
		{"Name", info.Name},
		{"Size", formatSize(info.Size)},
		{"Content Type", info.ContentType},
		{"ETag", info.ETag},
		{"Created", formatTime(info.CreatedOn)},
		{"Last Modified", formatTime(info.LastModified)},
	}

	keys := make([]string, 0, len(info.Metadata))
	for k := range info.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []string{"metadata." + k, info.Metadata[k]})
	}

	_, err = fmt.Fprintln(globals.Stdout, globals.Printer.Table([]string{"Property", "Value"}, rows))
	if err != nil {
		return trace.NewError(span, "failed to write file info: %w", err)
	}

	return nil
}

type DeleteCmd struct {
	Remote string `arg:"" help:"Blob to delete, e.g. mycontainer/dir/file.txt."`
}

func (cmd *DeleteCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, span := trace.Start(ctx, "DeleteCmdRun")
	defer span.End()

	log.Info().Str("version", globals.Version).Msg("Running DeleteCmd")

	span.SetAttributes(attribute.String("remote", cmd.Remote))

	result, err := globals.Gateway.DeleteFile(ctx, cmd.Remote)
	if err != nil {
		return trace.NewError(span, "failed to delete %s: %w", cmd.Remote, err)
	}

	globals.Printer.Success("🗑️", "Deleted %s", strings.Join([]string{result.Container, result.BlobPath}, "/"))

	return nil
}
