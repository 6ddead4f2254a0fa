package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/3leaps/nimbusfs/pkg/adapter"
)

var checksumCmd = &cobra.Command{
	Use:   "checksum <path>...",
	Short: "Print file checksums",
	Long: `Print a hex checksum for each file, followed by its path.

The default algorithm, etag, reads the stored ETag without downloading
the file. Other algorithms stream the content: ` + strings.Join(adapter.ChecksumAlgorithms, ", ") + `.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChecksum,
}

var checksumAlgo string

func init() {
	rootCmd.AddCommand(checksumCmd)
	checksumCmd.Flags().StringVarP(&checksumAlgo, "algo", "a", adapter.ChecksumETag, "Checksum algorithm")
}

func runChecksum(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	out := cmd.OutOrStdout()
	for _, p := range args {
		sum, err := fs.Checksum(ctx, p, checksumAlgo)
		if err != nil {
			return storageError("Failed to compute checksum", p, err)
		}
		if _, err := fmt.Fprintf(out, "%s  %s\n", sum, p); err != nil {
			return err
		}
	}
	return nil
}
