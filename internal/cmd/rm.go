package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
)

var rmCmd = &cobra.Command{
	Use:   "rm <path>...",
	Short: "Delete files",
	Long: `Delete one or more files. Deleting a missing file succeeds.

Use rmdir to delete a directory and everything below it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

var rmdirCmd = &cobra.Command{
	Use:   "rmdir <dir>",
	Short: "Delete a directory and everything below it",
	Long: `Delete every object under a directory, including its marker.

The root directory cannot be deleted this way.`,
	Args: cobra.ExactArgs(1),
	RunE: runRmdir,
}

func init() {
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(rmdirCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	for _, p := range args {
		if err := fs.Delete(ctx, p); err != nil {
			return storageError("Failed to delete file", p, err)
		}
		observability.CLILogger.Debug("Deleted", zap.String("path", p))
	}
	return nil
}

func runRmdir(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := args[0]

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := fs.DeleteDirectory(ctx, dir); err != nil {
		return storageError("Failed to delete directory", dir, err)
	}
	return nil
}
