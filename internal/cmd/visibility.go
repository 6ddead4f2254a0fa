package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/pkg/adapter"
)

var visibilityCmd = &cobra.Command{
	Use:   "visibility",
	Short: "Get or set file visibility",
	Long: `Visibility is public when anonymous users may read a file and private
otherwise. It is derived from the object ACL and written as a canned ACL.`,
}

var visibilityGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Print the visibility of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runVisibilityGet,
}

var visibilitySetCmd = &cobra.Command{
	Use:   "set <path> <public|private>",
	Short: "Change the visibility of a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runVisibilitySet,
}

func init() {
	rootCmd.AddCommand(visibilityCmd)
	visibilityCmd.AddCommand(visibilityGetCmd)
	visibilityCmd.AddCommand(visibilitySetCmd)
}

func runVisibilityGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := args[0]

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	v, err := fs.Visibility(ctx, p)
	if err != nil {
		return storageError("Failed to read visibility", p, err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
	return err
}

func runVisibilitySet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := args[0]

	v, err := adapter.ParseVisibility(args[1])
	if err != nil {
		observability.CLILogger.Error("Invalid visibility", zap.String("visibility", args[1]), zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid visibility", err)
	}

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := fs.SetVisibility(ctx, p, v); err != nil {
		return storageError("Failed to set visibility", p, err)
	}
	return nil
}
