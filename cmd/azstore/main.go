package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	"github.com/buildkite/azstore"
	"github.com/buildkite/azstore/internal/commands"
	"github.com/buildkite/azstore/internal/console"
	"github.com/buildkite/azstore/internal/trace"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	version = "dev"

	cli struct {
		Version       kong.VersionFlag
		Debug         bool            `help:"Enable debug mode." default:"false" env:"AZSTORE_DEBUG"`
		AccountName   string          `flag:"account-name" help:"The Azure storage account." env:"AZURE_STORAGE_ACCOUNT"`
		AccountKey    string          `flag:"account-key" help:"Shared key for the storage account, instead of a service principal." env:"AZURE_STORAGE_KEY"`
		ServiceURL    string          `flag:"service-url" help:"Blob service URL, defaults to https://{account}.blob.core.windows.net/." env:"AZSTORE_SERVICE_URL"`
		Settings      string          `flag:"settings" help:"JSON settings file holding AZ_TENANT_ID, AZ_CLIENT_ID and AZ_CLIENT_SECRET." env:"AZSTORE_SETTINGS"`
		TenantID      string          `flag:"tenant-id" help:"Service principal tenant, overrides the settings file and environment."`
		ClientID      string          `flag:"client-id" help:"Service principal client id, overrides the settings file and environment."`
		ClientSecret  string          `flag:"client-secret" help:"Service principal secret, overrides the settings file and environment."`
		BucketURL     string          `flag:"bucket-url" help:"Use a gocloud.dev bucket (file://, mem://, s3://, gs://) instead of Azure." env:"AZSTORE_BUCKET_URL"`
		ExportEnv     bool            `flag:"export-env" help:"Export the resolved service principal as AZ_* and AZURE_* variables before each call." env:"AZSTORE_EXPORT_ENV"`
		TraceExporter string          `flag:"trace-exporter" help:"The trace exporter to use. Defaults to 'noop'." default:"noop" enum:"noop,grpc" env:"AZSTORE_TRACE_EXPORTER"`
		Config        kong.ConfigFlag `flag:"config" help:"YAML file with flag defaults, .azstore.yml and ~/.azstore.yml are read when present." env:"AZSTORE_CONFIG"`

		Upload        commands.UploadCmd        `cmd:"" help:"upload a file."`
		UploadData    commands.UploadDataCmd    `cmd:"" help:"upload stdin."`
		UploadFiles   commands.UploadFilesCmd   `cmd:"" help:"upload several files."`
		Download      commands.DownloadCmd      `cmd:"" help:"download a blob."`
		DownloadFiles commands.DownloadFilesCmd `cmd:"" help:"download several blobs into a folder."`
		List          commands.ListCmd          `cmd:"" help:"list blobs."`
		Info          commands.InfoCmd          `cmd:"" help:"show blob properties."`
		Delete        commands.DeleteCmd        `cmd:"" help:"delete a blob."`
		Credentials   commands.CredentialsCmd   `cmd:"" help:"show the resolved service principal."`
	}
)

func main() {
	ctx := context.Background()

	// Overloads `cli` with configuration file values.
	cmd := kong.Parse(&cli,
		kong.Vars{"version": version},
		kong.NamedMapper("yamlfile", kongyaml.YAMLFileMapper),
		kong.Configuration(kongyaml.Loader, ".azstore.yml", "~/.azstore.yml"),
		kong.BindTo(ctx, (*context.Context)(nil)))

	err := Run(ctx, cmd)
	cmd.FatalIfErrorf(err)
}

func Run(ctx context.Context, cmd *kong.Context) error {
	start := time.Now()

	if cli.Debug {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(zerolog.ErrorLevel)
	}

	tp, err := trace.NewProvider(ctx, cli.TraceExporter, "github.com/buildkite/azstore", version)
	if err != nil {
		return fmt.Errorf("failed to create trace provider: %w", err)
	}
	defer func() {
		_ = tp.Shutdown(ctx)
	}()

	printer := console.NewPrinter(os.Stderr)

	gateway, err := azstore.NewGateway(azstore.Config{
		AccountName:  cli.AccountName,
		AccountKey:   cli.AccountKey,
		ServiceURL:   cli.ServiceURL,
		SettingsPath: cli.Settings,
		Credentials: azstore.Credentials{
			TenantID:     cli.TenantID,
			ClientID:     cli.ClientID,
			ClientSecret: cli.ClientSecret,
		},
		BucketURL:         cli.BucketURL,
		ExportEnvironment: cli.ExportEnv,
		OnProgress: func(stage, message string, current, total int) {
			if stage == "complete" {
				return
			}
			printer.Info("⏳", "[%d/%d] %s", current, total, message)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create storage gateway: %w", err)
	}

	err = cmd.Run(&commands.Globals{
		Debug:   cli.Debug,
		Version: version,
		Gateway: gateway,
		Printer: printer,
		Stdout:  os.Stdout,
		Stdin:   os.Stdin,
	})
	if err != nil {
		return fmt.Errorf("command %s failed: %w", cmd.Command(), err)
	}

	printer.Info("✅", "%s completed successfully in %s", cmd.Command(), time.Since(start).String())

	return nil
}
