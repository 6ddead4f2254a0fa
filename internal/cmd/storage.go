package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/config"
	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/pkg/adapter"
	"github.com/3leaps/nimbusfs/pkg/provider"
	"github.com/3leaps/nimbusfs/pkg/provider/minio"
	"github.com/3leaps/nimbusfs/pkg/provider/s3"
)

// openAdapter builds the adapter for a loaded config. Tests swap it for one
// backed by the in-memory provider.
var openAdapter = newAdapter

// storageFor loads config and opens the adapter for a command. The returned
// close func releases the provider.
func storageFor(cmd *cobra.Command) (*adapter.Adapter, *config.Config, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	fs, err := openAdapter(cmd.Context(), cfg)
	if err != nil {
		observability.CLILogger.Error("Failed to create storage adapter",
			zap.String("backend", cfg.Storage.Backend),
			zap.String("bucket", cfg.Storage.Bucket),
			zap.Error(err))
		return nil, nil, nil, exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", err)
	}

	observability.CLILogger.Debug("Opened storage",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("bucket", fs.Bucket()),
		zap.String("root", fs.Root()))

	return fs, cfg, func() { _ = fs.Client().Close() }, nil
}

func newAdapter(ctx context.Context, cfg *config.Config) (*adapter.Adapter, error) {
	sc := cfg.Storage

	client, err := newProvider(ctx, sc)
	if err != nil {
		return nil, err
	}

	opts, err := adapterOptions(cfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	fs, err := adapter.New(client, sc.Bucket, opts...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return fs, nil
}

func newProvider(ctx context.Context, sc config.StorageConfig) (provider.Provider, error) {
	switch sc.Backend {
	case config.BackendMinio:
		host, secure := splitScheme(sc.Endpoint, sc.UseSSL)
		return minio.New(minio.Config{
			Endpoint:  host,
			AccessKey: sc.AccessKeyID,
			SecretKey: sc.SecretAccessKey,
			UseSSL:    secure,
			Region:    sc.Region,
			MaxKeys:   sc.ListPageSize,
		})
	case config.BackendS3, "":
		return s3.New(ctx, s3.Config{
			Region:          sc.Region,
			Endpoint:        sc.Endpoint,
			Profile:         sc.Profile,
			AccessKeyID:     sc.AccessKeyID,
			SecretAccessKey: sc.SecretAccessKey,
			IMDSRegion:      sc.IMDSRegion,
			ForcePathStyle:  sc.ForcePathStyle,
			MaxKeys:         sc.ListPageSize,
		})
	default:
		return nil, fmt.Errorf("unsupported backend %q", sc.Backend)
	}
}

// adapterOptions maps storage settings and the logger onto adapter options.
func adapterOptions(cfg *config.Config) ([]adapter.Option, error) {
	sc := cfg.Storage

	dirVis, err := adapter.ParseVisibility(sc.DirectoryVisibility)
	if err != nil {
		return nil, err
	}
	strategy, err := adapter.ParseListStrategy(sc.ListStrategy)
	if err != nil {
		return nil, err
	}
	defaults, err := adapter.DecodeWriteOptions(sc.WriteDefaults)
	if err != nil {
		return nil, err
	}

	// --verbose routes adapter debug output through the console logger;
	// otherwise log.level drives a JSON logger.
	logger := observability.CLILogger
	if !verbose {
		if logger, err = observability.NewLogger(cfg.Log.Level); err != nil {
			return nil, err
		}
	}

	urlEndpoint := sc.Endpoint
	if urlEndpoint == "" && sc.Region != "" {
		urlEndpoint = "https://s3." + sc.Region + ".amazonaws.com"
	}

	return []adapter.Option{
		adapter.WithRoot(sc.Root),
		adapter.WithVisibilityConverter(adapter.NewPortableVisibilityConverter(
			adapter.WithDirectoryVisibility(dirVis),
		)),
		adapter.WithLogger(logger.Named("adapter")),
		adapter.WithListStrategy(strategy),
		adapter.WithListPageSize(sc.ListPageSize),
		adapter.WithListRateLimit(sc.ListRateLimit),
		adapter.WithURLConfig(adapter.URLConfig{
			PublicURL:    sc.PublicURL,
			CDNURL:       sc.CDNURL,
			TemporaryURL: sc.TemporaryURL,
			Endpoint:     urlEndpoint,
			IsCName:      sc.IsCName,
		}),
		adapter.WithWriteDefaults(defaults),
	}, nil
}

// splitScheme strips an http(s) scheme from endpoint; the scheme, when
// present, decides TLS.
func splitScheme(endpoint string, useSSL bool) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"), false
	default:
		return strings.TrimSuffix(endpoint, "/"), useSSL
	}
}

// storageError logs a failed adapter call and picks the exit code from its
// error kind.
func storageError(message, p string, err error) error {
	observability.CLILogger.Error(message, zap.String("path", p), zap.Error(err))

	code := foundry.ExitFailure
	switch {
	case adapter.IsNotFound(err):
		code = foundry.ExitFileNotFound
	case adapter.IsAccessDenied(err):
		code = foundry.ExitPermissionDenied
	case adapter.IsInvalidArgument(err):
		code = foundry.ExitInvalidArgument
	case adapter.IsUnavailable(err):
		code = foundry.ExitExternalServiceUnavailable
	}
	return exitError(code, message, err)
}
