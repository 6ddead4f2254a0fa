package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
)

var cpCmd = &cobra.Command{
	Use:   "cp <src> <dst>",
	Short: "Copy a file within the bucket",
	Long: `Copy a file server-side. The copy keeps the source visibility unless
--visibility or --acl is given.`,
	Args: cobra.ExactArgs(2),
	RunE: runCp,
}

var mvCmd = &cobra.Command{
	Use:   "mv <src> <dst>",
	Short: "Move a file within the bucket",
	Long: `Copy a file server-side, then delete the source. The source is left in
place when the copy fails.`,
	Args: cobra.ExactArgs(2),
	RunE: runMv,
}

var (
	cpWrite writeFlags
	mvWrite writeFlags
)

func init() {
	rootCmd.AddCommand(cpCmd)
	rootCmd.AddCommand(mvCmd)
	cpWrite.register(cpCmd)
	mvWrite.register(mvCmd)
}

func runCp(cmd *cobra.Command, args []string) error {
	return transferFile(cmd, args[0], args[1], &cpWrite, false)
}

func runMv(cmd *cobra.Command, args []string) error {
	return transferFile(cmd, args[0], args[1], &mvWrite, true)
}

func transferFile(cmd *cobra.Command, src, dst string, wf *writeFlags, move bool) error {
	ctx := cmd.Context()

	opts, err := wf.options()
	if err != nil {
		observability.CLILogger.Error("Invalid write options", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid write options", err)
	}

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if move {
		if err := fs.Move(ctx, src, dst, opts...); err != nil {
			return storageError("Failed to move file", src, err)
		}
		return nil
	}
	if err := fs.Copy(ctx, src, dst, opts...); err != nil {
		return storageError("Failed to copy file", src, err)
	}
	return nil
}
