package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/buildkite/azstore"
	"github.com/buildkite/azstore/internal/trace"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

type UploadCmd struct {
	Local     string `arg:"" help:"Local file to upload." type:"existingfile"`
	Remote    string `arg:"" help:"Destination, e.g. mycontainer/dir/file.txt."`
	Overwrite bool   `help:"Replace the blob if it already exists."`
}

func (cmd *UploadCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, span := trace.Start(ctx, "UploadCmdRun")
	defer span.End()

	log.Info().Str("version", globals.Version).Msg("Running UploadCmd")

	span.SetAttributes(
		attribute.String("local", cmd.Local),
		attribute.String("remote", cmd.Remote),
		attribute.Bool("overwrite", cmd.Overwrite),
	)

	globals.Printer.Info("⬆️", "Uploading %s to %s", cmd.Local, cmd.Remote)

	result, err := globals.Gateway.UploadFile(ctx, cmd.Local, cmd.Remote, cmd.Overwrite)
	if err != nil {
		if azstore.IsBlobExists(err) {
			return trace.NewError(span, "%s already exists, use --overwrite to replace it: %w", cmd.Remote, err)
		}
		return trace.NewError(span, "failed to upload %s: %w", cmd.Local, err)
	}

	printUploadResult(globals, result)

	return nil
}

type UploadDataCmd struct {
	Remote    string `arg:"" help:"Destination, e.g. mycontainer/dir/file.txt."`
	Overwrite bool   `help:"Replace the blob if it already exists."`
}

func (cmd *UploadDataCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, span := trace.Start(ctx, "UploadDataCmdRun")
	defer span.End()

	log.Info().Str("version", globals.Version).Msg("Running UploadDataCmd")

	data, err := io.ReadAll(globals.Stdin)
	if err != nil {
		return trace.NewError(span, "failed to read stdin: %w", err)
	}

	span.SetAttributes(
		attribute.String("remote", cmd.Remote),
		attribute.Int("bytes", len(data)),
	)

	globals.Printer.Info("⬆️", "Uploading %s from stdin to %s", formatSize(int64(len(data))), cmd.Remote)

	result, err := globals.Gateway.UploadData(ctx, data, cmd.Remote, cmd.Overwrite)
	if err != nil {
		return trace.NewError(span, "failed to upload to %s: %w", cmd.Remote, err)
	}

	printUploadResult(globals, result)

	return nil
}

type UploadFilesCmd struct {
	Items     []string             `arg:"" optional:"" help:"Files to upload as local=remote pairs."`
	Manifest  []azstore.UploadItem `help:"YAML or JSON file listing {localPath, uploadPath} items." type:"yamlfile"`
	Overwrite bool                 `help:"Replace blobs that already exist."`
}

func (cmd *UploadFilesCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, span := trace.Start(ctx, "UploadFilesCmdRun")
	defer span.End()

	log.Info().Str("version", globals.Version).Msg("Running UploadFilesCmd")

	items, err := cmd.items()
	if err != nil {
		return trace.NewError(span, "failed to read upload items: %w", err)
	}

	span.SetAttributes(attribute.Int("items", len(items)))

	globals.Printer.Info("📦", "Uploading %d files", len(items))

	outcomes, err := globals.Gateway.UploadFiles(ctx, items, cmd.Overwrite)

	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			globals.Printer.Error("❌", "%s: %v", o.Item.LocalPath, o.Err)
			rows = append(rows, []string{o.Item.LocalPath, o.Item.UploadPath, "-", "failed"})
			continue
		}
		rows = append(rows, []string{o.Item.LocalPath, o.Result.Container + "/" + o.Result.BlobPath, formatSize(o.Result.Transfer.BytesTransferred), formatSpeed(o.Result.Transfer.TransferSpeed)})
	}

	if len(rows) > 0 {
		globals.Printer.Info("📊", "Upload summary:\n%s", globals.Printer.Table([]string{"Local", "Blob", "Size", "Speed"}, rows))
	}

	if err != nil {
		return trace.NewError(span, "upload batch failed: %w", err)
	}

	if err := azstore.BatchError(outcomes); err != nil {
		return trace.NewError(span, "some uploads failed: %w", err)
	}

	globals.Printer.Success("✅", "Uploaded %d files", len(outcomes))

	return nil
}

func (cmd *UploadFilesCmd) items() ([]azstore.UploadItem, error) {
	items := append([]azstore.UploadItem(nil), cmd.Manifest...)

	for _, arg := range cmd.Items {
		item, err := parseUploadItem(arg)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no files provided")
	}

	return items, nil
}

func printUploadResult(globals *Globals, result *azstore.UploadResult) {
	globals.Printer.Success("✅", "Upload completed: %s at %s",
		formatSize(result.Transfer.BytesTransferred),
		formatSpeed(result.Transfer.TransferSpeed))

	log.Info().
		Str("container", result.Container).
		Str("blob_path", result.BlobPath).
		Str("etag", result.ETag).
		Int64("bytes_transferred", result.Transfer.BytesTransferred).
		Str("request_id", result.Transfer.RequestID).
		Dur("duration_ms", result.Transfer.Duration).
		Msg("blob uploaded")

	globals.Printer.Summary("📊", "Upload summary", [][]string{
		{"Container", result.Container},
		{"Blob Path", result.BlobPath},
		{"ETag", result.ETag},
		{"Last Modified", formatTime(result.LastModified)},
		{"Size", formatSize(result.Transfer.BytesTransferred)},
		{"Upload Duration", result.Transfer.Duration.String()},
	})
}
