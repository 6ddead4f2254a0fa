package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
)

var existsCmd = &cobra.Command{
	Use:   "exists <path>",
	Short: "Report whether a file (or directory) exists",
	Long: `Print true or false. With --dir the path is checked as a directory: it
exists when a marker object or any file below it exists.

With --quiet nothing is printed and a missing path exits non-zero.`,
	Args: cobra.ExactArgs(1),
	RunE: runExists,
}

var (
	existsDir   bool
	existsQuiet bool
)

func init() {
	rootCmd.AddCommand(existsCmd)
	existsCmd.Flags().BoolVarP(&existsDir, "dir", "d", false, "Check for a directory")
	existsCmd.Flags().BoolVarP(&existsQuiet, "quiet", "q", false, "Exit status only")
}

func runExists(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := args[0]

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	var found bool
	if existsDir {
		found, err = fs.DirectoryExists(ctx, p)
	} else {
		found, err = fs.FileExists(ctx, p)
	}
	if err != nil {
		return storageError("Failed to check existence", p, err)
	}

	if existsQuiet {
		if !found {
			return exitError(foundry.ExitFileNotFound, "Not found", fmt.Errorf("%s", p))
		}
		return nil
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), found)
	return err
}
