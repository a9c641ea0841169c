package azstore

import (
	"context"
	"fmt"
	"os"

	"github.com/buildkite/azstore/internal/credentials"
	"github.com/buildkite/azstore/internal/store"
	"github.com/buildkite/azstore/internal/trace"
	"github.com/buildkite/azstore/pkg/paths"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// Gateway performs blob operations against one storage account.
//
// A Gateway holds configuration only. Every call builds its own storage
// client, so calls are independent. Calls with ExportEnvironment set write to
// the process environment and must not run concurrently with each other.
type Gateway struct {
	accountName            string
	accountKey             string
	serviceURL             string
	settingsPath           string
	credentials            Credentials
	bucketURL              string
	exportEnvironment      bool
	downloadFolder         string
	env                    map[string]string
	onProgress             ProgressCallback
	tokenCredentialFactory credentials.TokenCredentialFactory
}

// NewGateway creates a Gateway. Nothing is contacted until the first call, so
// a missing account name or credential surfaces as a ClientError from that call.
func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.DownloadFolder == "" {
		cfg.DownloadFolder = DefaultDownloadFolder
	}

	if cfg.AccountKey != "" && cfg.AccountName == "" {
		return nil, fmt.Errorf("%w: account key set without account name", ErrConfiguration)
	}

	return &Gateway{
		accountName:            cfg.AccountName,
		accountKey:             cfg.AccountKey,
		serviceURL:             cfg.ServiceURL,
		settingsPath:           cfg.SettingsPath,
		credentials:            cfg.Credentials,
		bucketURL:              cfg.BucketURL,
		exportEnvironment:      cfg.ExportEnvironment,
		downloadFolder:         cfg.DownloadFolder,
		env:                    cfg.Env,
		onProgress:             cfg.OnProgress,
		tokenCredentialFactory: cfg.tokenCredentialFactory,
	}, nil
}

// CallOption overrides a Gateway default for a single call.
type CallOption func(*callOptions)

type callOptions struct {
	accountName  string
	settingsPath string
}

// WithAccountName targets another storage account for this call. An empty
// name keeps the Gateway's account.
func WithAccountName(name string) CallOption {
	return func(o *callOptions) {
		if name != "" {
			o.accountName = name
		}
	}
}

// WithSettingsPath reads credentials from another settings file for this
// call. An empty path keeps the Gateway's settings file.
func WithSettingsPath(path string) CallOption {
	return func(o *callOptions) {
		if path != "" {
			o.settingsPath = path
		}
	}
}

func (g *Gateway) callOptions(opts []CallOption) callOptions {
	o := callOptions{
		accountName:  g.accountName,
		settingsPath: g.settingsPath,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ContainerName returns the container a path resolves to.
func (g *Gateway) ContainerName(path string) string {
	return paths.ContainerName(path, g.getenv)
}

// BlobPath returns the in-container blob path a path resolves to.
func (g *Gateway) BlobPath(path string) string {
	return paths.BlobPath(path, g.getenv)
}

func (g *Gateway) resolve(path string) paths.Reference {
	return paths.Resolve(path, g.getenv)
}

func (g *Gateway) getenv(key string) string {
	if g.env != nil {
		return g.env[key]
	}
	return os.Getenv(key)
}

func (g *Gateway) lookupEnv(key string) (string, bool) {
	if g.env != nil {
		v, ok := g.env[key]
		return v, ok
	}
	return os.LookupEnv(key)
}

// ResolveCredentials returns the service principal a call would use, from the
// configured credentials, the settings file and the environment in that order.
func (g *Gateway) ResolveCredentials(opts ...CallOption) (Credentials, error) {
	o := g.callOptions(opts)
	return g.resolveCredentials(o.settingsPath)
}

func (g *Gateway) resolveCredentials(settingsPath string) (Credentials, error) {
	return credentials.Resolve(g.credentials, settingsPath, credentials.WithLookupEnv(g.lookupEnv))
}

// connect builds the storage client for one call. Any failure is logged and
// returned as a *ClientError.
func (g *Gateway) connect(ctx context.Context, op string, opts []CallOption) (store.Blob, error) {
	ctx, span := trace.Start(ctx, "Gateway.connect")
	defer span.End()

	o := g.callOptions(opts)

	span.SetAttributes(
		attribute.String("op", op),
		attribute.String("account_name", o.accountName),
		attribute.Bool("settings_path_set", o.settingsPath != ""),
		attribute.Bool("bucket_url_set", g.bucketURL != ""),
	)

	log.Info().Str("op", op).Str("account_name", o.accountName).Msg("getting storage account client")

	fail := func(kind, err error) error {
		clientErr := &ClientError{Kind: kind, Op: op, AccountName: o.accountName, Err: err}
		log.Error().Err(err).Str("op", op).Str("account_name", o.accountName).Str("kind", kind.Error()).
			Msg("unable to get storage account client")
		return trace.Fail(span, clientErr)
	}

	creds, err := g.resolveCredentials(o.settingsPath)
	if err != nil {
		return nil, fail(ErrConfiguration, err)
	}

	if g.exportEnvironment {
		if err := credentials.ExportToEnvironment(creds); err != nil {
			return nil, fail(ErrConfiguration, err)
		}
	}

	b, err := store.Open(ctx, store.Config{
		BucketURL:              g.bucketURL,
		AccountName:            o.accountName,
		AccountKey:             g.accountKey,
		ServiceURL:             g.serviceURL,
		Credentials:            creds,
		TokenCredentialFactory: g.tokenCredentialFactory,
	})
	if err != nil {
		return nil, fail(classify(err), err)
	}

	return b, nil
}

// callProgress safely calls the progress callback if it exists
func (g *Gateway) callProgress(stage string, message string, current int, total int) {
	if g.onProgress != nil {
		defer func() {
			_ = recover() // a panicking callback must not abort the batch
		}()
		g.onProgress(stage, message, current, total)
	}
}

func closeStore(b store.Blob) {
	if err := b.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close storage client")
	}
}
