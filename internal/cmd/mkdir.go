package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <dir>...",
	Short: "Create directory marker objects",
	Long: `Create a zero-byte marker object for each directory so it is listed
even while empty. Without --visibility the configured directory
visibility applies.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMkdir,
}

var mkdirWrite writeFlags

func init() {
	rootCmd.AddCommand(mkdirCmd)
	mkdirWrite.register(mkdirCmd)
}

func runMkdir(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	opts, err := mkdirWrite.options()
	if err != nil {
		observability.CLILogger.Error("Invalid write options", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid write options", err)
	}

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	for _, dir := range args {
		if err := fs.CreateDirectory(ctx, dir, opts...); err != nil {
			return storageError("Failed to create directory", dir, err)
		}
	}
	return nil
}
