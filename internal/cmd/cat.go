package cmd

import (
	"io"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
)

var catCmd = &cobra.Command{
	Use:   "cat <path>...",
	Short: "Stream file contents to stdout",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCat,
}

func init() {
	rootCmd.AddCommand(catCmd)
}

func runCat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	out := cmd.OutOrStdout()
	for _, p := range args {
		body, err := fs.ReadStream(ctx, p)
		if err != nil {
			return storageError("Failed to read file", p, err)
		}
		n, err := io.Copy(out, body)
		_ = body.Close()
		if err != nil {
			observability.CLILogger.Error("Failed to stream file", zap.String("path", p), zap.Error(err))
			return exitError(foundry.ExitFileWriteError, "Failed to stream file", err)
		}
		observability.CLILogger.Debug("Streamed file", zap.String("path", p), zap.Int64("bytes", n))
	}
	return nil
}
