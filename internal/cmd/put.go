package cmd

import (
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/pkg/adapter"
)

var putCmd = &cobra.Command{
	Use:   "put <local-file|-> <path>",
	Short: "Upload a local file (or stdin) to a path",
	Long: `Upload a local file, or stdin when the source is "-", creating or
replacing the object at path.

The content type comes from --content-type, else the file extension,
else the first bytes of the content.

Examples:
  nimbusfs put ./cat.png images/cat.png --visibility public
  tar cz src | nimbusfs put - backups/src.tgz --storage-class STANDARD_IA
  nimbusfs put report.pdf docs/report.pdf --meta owner=finance`,
	Args: cobra.ExactArgs(2),
	RunE: runPut,
}

var putWrite writeFlags

func init() {
	rootCmd.AddCommand(putCmd)
	putWrite.register(putCmd)
}

func runPut(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	src, dst := args[0], args[1]

	opts, err := putWrite.options()
	if err != nil {
		observability.CLILogger.Error("Invalid write options", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid write options", err)
	}

	var body io.Reader
	if src == "-" {
		body = cmd.InOrStdin()
	} else {
		f, err := os.Open(src)
		if err != nil {
			observability.CLILogger.Error("Failed to open local file", zap.String("file", src), zap.Error(err))
			return exitError(foundry.ExitFileReadError, "Failed to open local file", err)
		}
		defer func() { _ = f.Close() }()
		if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
			opts = append(opts, adapter.WithContentLength(info.Size()))
		}
		body = f
	}

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := fs.WriteStream(ctx, dst, body, opts...); err != nil {
		return storageError("Failed to write file", dst, err)
	}
	observability.CLILogger.Debug("Uploaded", zap.String("source", src), zap.String("path", dst))
	return nil
}
