package commands

import (
	"context"

	"github.com/buildkite/azstore"
	"github.com/buildkite/azstore/internal/trace"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

type DownloadCmd struct {
	Remote string `arg:"" help:"Blob to download, e.g. mycontainer/dir/file.txt."`
	Local  string `arg:"" help:"Local destination file, its directory must exist."`
}

func (cmd *DownloadCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, span := trace.Start(ctx, "DownloadCmdRun")
	defer span.End()

	log.Info().Str("version", globals.Version).Msg("Running DownloadCmd")

	span.SetAttributes(
		attribute.String("remote", cmd.Remote),
		attribute.String("local", cmd.Local),
	)

	globals.Printer.Info("⬇️", "Downloading %s to %s", cmd.Remote, cmd.Local)

	dest, err := globals.Gateway.Download(ctx, cmd.Remote, cmd.Local)
	if err != nil {
		if azstore.IsNotFound(err) {
			return trace.NewError(span, "%s does not exist: %w", cmd.Remote, err)
		}
		return trace.NewError(span, "failed to download %s: %w", cmd.Remote, err)
	}

	globals.Printer.Success("✅", "Downloaded %s", dest)

	return nil
}

type DownloadFilesCmd struct {
	Remotes      []string `arg:"" help:"Blobs to download."`
	Folder       string   `help:"Folder to download into, files land in {folder}/{container}/{blob path}." env:"AZSTORE_DOWNLOAD_FOLDER"`
	RemoveSpaces bool     `help:"Replace spaces in destination paths with '-'."`
}

func (cmd *DownloadFilesCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, span := trace.Start(ctx, "DownloadFilesCmdRun")
	defer span.End()

	log.Info().Str("version", globals.Version).Msg("Running DownloadFilesCmd")

	span.SetAttributes(
		attribute.Int("items", len(cmd.Remotes)),
		attribute.String("folder", cmd.Folder),
		attribute.Bool("remove_spaces", cmd.RemoveSpaces),
	)

	globals.Printer.Info("📦", "Downloading %d files", len(cmd.Remotes))

	outcomes, err := globals.Gateway.DownloadFiles(ctx, cmd.Remotes, cmd.Folder, cmd.RemoveSpaces)

	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			globals.Printer.Error("❌", "%s: %v", o.RemotePath, o.Err)
			rows = append(rows, []string{o.RemotePath, o.LocalPath, "-", "failed"})
			continue
		}
		rows = append(rows, []string{o.RemotePath, o.LocalPath, formatSize(o.Transfer.BytesTransferred), formatSpeed(o.Transfer.TransferSpeed)})
	}

	if len(rows) > 0 {
		globals.Printer.Info("📊", "Download summary:\n%s", globals.Printer.Table([]string{"Blob", "Local", "Size", "Speed"}, rows))
	}

	if err != nil {
		return trace.NewError(span, "download batch failed: %w", err)
	}

	if err := azstore.BatchError(outcomes); err != nil {
		return trace.NewError(span, "some downloads failed: %w", err)
	}

	globals.Printer.Success("✅", "Downloaded %d files", len(outcomes))

	return nil
}
