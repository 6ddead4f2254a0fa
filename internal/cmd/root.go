// Package cmd implements the nimbusfs command-line interface.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/config"
	"github.com/3leaps/nimbusfs/internal/observability"
)

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "unknown",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata injected by the linker.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	cfgFile      string
	verbose      bool
	flagBucket   string
	flagRoot     string
	flagBackend  string
	flagEndpoint string
	flagRegion   string
	flagProfile  string
)

var rootCmd = &cobra.Command{
	Use:   "nimbusfs",
	Short: "Browse and manage object storage as a filesystem",
	Long: `nimbusfs presents an S3-compatible bucket (AWS S3, Huawei OBS, MinIO)
as a hierarchical filesystem: list directories, read and write files,
manage visibility and build public or signed URLs.

Configuration is read from --config, ./nimbusfs.yaml or the user config
directory, then NIMBUSFS_* environment variables, then flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		observability.InitCLILogger(config.AppName, verbose)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ./nimbusfs.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVarP(&flagBucket, "bucket", "b", "", "Bucket name")
	flags.StringVar(&flagRoot, "root", "", "Key prefix every path is resolved under")
	flags.StringVar(&flagBackend, "backend", "", "Storage backend: s3 or minio")
	flags.StringVar(&flagEndpoint, "endpoint", "", "Custom S3-compatible endpoint")
	flags.StringVarP(&flagRegion, "region", "r", "", "Region")
	flags.StringVarP(&flagProfile, "profile", "p", "", "AWS shared config profile")
}

// Execute runs the root command and exits with a foundry exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    foundry.ExitCode
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func exitError(code foundry.ExitCode, message string, err error) error {
	return &ExitError{Code: code, Message: message, Err: err}
}

func exitCode(err error) foundry.ExitCode {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err != nil {
		return foundry.ExitInvalidArgument
	}
	return foundry.ExitSuccess
}

// flagOverrides turns explicitly set persistent flags into config overrides.
func flagOverrides(cmd *cobra.Command) map[string]any {
	storage := map[string]any{}
	set := func(name, key, value string) {
		if cmd.Flags().Changed(name) {
			storage[key] = value
		}
	}
	set("bucket", "bucket", flagBucket)
	set("root", "root", flagRoot)
	set("backend", "backend", flagBackend)
	set("endpoint", "endpoint", flagEndpoint)
	set("region", "region", flagRegion)
	set("profile", "profile", flagProfile)

	overrides := map[string]any{}
	if len(storage) > 0 {
		overrides["storage"] = storage
	}
	return overrides
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFile(cmd.Context(), cfgFile, flagOverrides(cmd))
	if err != nil {
		observability.CLILogger.Error("Failed to load config", zap.String("file", cfgFile), zap.Error(err))
		var fileErr *config.FileError
		if errors.As(err, &fileErr) && errors.Is(err, os.ErrNotExist) {
			return nil, exitError(foundry.ExitConfigFileNotFound, "Config file not found", err)
		}
		return nil, exitError(foundry.ExitConfigInvalid, "Failed to load config", err)
	}
	if err := cfg.Validate(); err != nil {
		observability.CLILogger.Error("Invalid config", zap.Error(err))
		return nil, exitError(foundry.ExitConfigInvalid, "Invalid config", err)
	}
	return cfg, nil
}
