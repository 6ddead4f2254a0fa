package cmd

import (
	"encoding/json"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/3leaps/nimbusfs/pkg/adapter"
)

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Show file or directory attributes",
	Long: `Show the attributes of a file, or confirm a directory.

A file is described from a single metadata request: size, last
modification time, mime type and extra fields (ETag, storage class,
version id, user metadata). A path with no object but with files below
it is reported as a directory.

Examples:
  nimbusfs stat images/cat.png
  nimbusfs stat images --json`,
	Args: cobra.ExactArgs(1),
	RunE: runStat,
}

var statJSON bool

func init() {
	rootCmd.AddCommand(statCmd)
	statCmd.Flags().BoolVar(&statJSON, "json", false, "Output as JSON")
}

func runStat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := args[0]

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	attrs, err := fs.Stat(ctx, p)
	if adapter.IsNotFound(err) {
		isDir, dirErr := fs.DirectoryExists(ctx, p)
		if dirErr != nil {
			return storageError("Failed to stat path", p, dirErr)
		}
		if isDir {
			attrs, err = &adapter.DirectoryAttributes{Path: strings.Trim(p, "/")}, nil
		}
	}
	if err != nil {
		return storageError("Failed to stat path", p, err)
	}

	out := cmd.OutOrStdout()
	if statJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(attrs); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
		return nil
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(attrs); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
	}
	return enc.Close()
}
