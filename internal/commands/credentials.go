package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/buildkite/azstore/internal/credentials"
	"github.com/buildkite/azstore/internal/trace"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

type CredentialsCmd struct {
	Export      bool `help:"Print shell export lines for the AZ_* and AZURE_* variables."`
	ShowSecrets bool `help:"Print the client secret instead of a mask."`
}

func (cmd *CredentialsCmd) Run(ctx context.Context, globals *Globals) error {
	_, span := trace.Start(ctx, "CredentialsCmdRun")
	defer span.End()

	log.Info().Str("version", globals.Version).Msg("Running CredentialsCmd")

	creds, err := globals.Gateway.ResolveCredentials()
	if err != nil {
		return trace.NewError(span, "failed to resolve credentials: %w", err)
	}

	span.SetAttributes(
		attribute.Bool("complete", creds.Complete()),
		attribute.Bool("show_secrets", cmd.ShowSecrets),
	)

	if !cmd.ShowSecrets {
		creds = creds.Redacted()
	}

	if cmd.Export {
		err := credentials.Export(creds, func(key, value string) error {
			_, err := fmt.Fprintf(globals.Stdout, "export %s=%s\n", key, shellQuote(value))
			return err
		})
		if err != nil {
			return trace.NewError(span, "failed to write export lines: %w", err)
		}
		return nil
	}

	if creds.Empty() {
		globals.Printer.Warn("🔑", "No service principal configured, Azure's default credential chain will be used")
		return nil
	}

	_, err = fmt.Fprintln(globals.Stdout, globals.Printer.Table([]string{"Setting", "Value"}, [][]string{
		{"Tenant ID", orDash(creds.TenantID)},
		{"Client ID", orDash(creds.ClientID)},
		{"Client Secret", orDash(creds.ClientSecret)},
	}))
	if err != nil {
		return trace.NewError(span, "failed to write credentials: %w", err)
	}

	if !creds.Complete() {
		globals.Printer.Warn("⚠️", "Service principal is incomplete, Azure's default credential chain will be used")
	}

	return nil
}

// shellQuote wraps value in single quotes for POSIX shells.
func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
