package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/pkg/adapter"
	"github.com/3leaps/nimbusfs/pkg/output"
)

var urlCmd = &cobra.Command{
	Use:   "url",
	Short: "Build public, signed and temporary URLs",
}

var urlPublicCmd = &cobra.Command{
	Use:   "public <path>",
	Short: "Print the unsigned public URL of a file",
	Long: `Print the public URL of a file. The base is the configured CDN URL,
else the public URL, else the endpoint with the bucket as a virtual
host (or the endpoint itself when it is a CNAME).`,
	Args: cobra.ExactArgs(1),
	RunE: runURLPublic,
}

var urlSignCmd = &cobra.Command{
	Use:   "sign <path>",
	Short: "Print a pre-signed URL valid for a duration",
	Long: `Print a pre-signed URL.

Examples:
  nimbusfs url sign docs/report.pdf --expires 15m
  nimbusfs url sign uploads/new.bin --method PUT --expires 1h
  nimbusfs url sign docs/report.pdf --param response-content-disposition=attachment`,
	Args: cobra.ExactArgs(1),
	RunE: runURLSign,
}

var urlTempCmd = &cobra.Command{
	Use:   "temp <path>",
	Short: "Print a pre-signed URL valid until a point in time",
	Long: `Print a pre-signed URL that expires at --at (RFC3339). When a temporary
URL base is configured it replaces the scheme and host of the URL.`,
	Args: cobra.ExactArgs(1),
	RunE: runURLTemp,
}

var urlPostCmd = &cobra.Command{
	Use:   "post <prefix>",
	Short: "Print a signed browser upload form for keys under a prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runURLPost,
}

var (
	urlSignExpires time.Duration
	urlPostExpires time.Duration
	urlAt          string
	urlMethod      string
	urlParams      []string
	urlJSON        bool
	urlRedirect    string
	urlPost        writeFlags
)

func init() {
	rootCmd.AddCommand(urlCmd)
	urlCmd.AddCommand(urlPublicCmd, urlSignCmd, urlTempCmd, urlPostCmd)

	urlCmd.PersistentFlags().BoolVar(&urlJSON, "json", false, "Output as JSON")

	for _, c := range []*cobra.Command{urlSignCmd, urlTempCmd} {
		c.Flags().StringVarP(&urlMethod, "method", "m", "GET", "HTTP method the URL is valid for")
		c.Flags().StringArrayVar(&urlParams, "param", nil, "Signed query parameter key=value (repeatable)")
	}
	urlSignCmd.Flags().DurationVarP(&urlSignExpires, "expires", "e", 15*time.Minute, "Validity duration")
	urlTempCmd.Flags().StringVar(&urlAt, "at", "", "Expiry time (RFC3339)")
	_ = urlTempCmd.MarkFlagRequired("at")

	urlPostCmd.Flags().DurationVarP(&urlPostExpires, "expires", "e", time.Hour, "Validity duration")
	urlPostCmd.Flags().StringVar(&urlRedirect, "redirect", "", "success_action_redirect URL")
	urlPost.register(urlPostCmd)
}

func runURLPublic(cmd *cobra.Command, args []string) error {
	p := args[0]

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	u, err := fs.PublicURL(p)
	if err != nil {
		return storageError("Failed to build public URL", p, err)
	}
	return printURL(cmd.OutOrStdout(), fs.Bucket(), &output.URLRecord{Path: p, Kind: "public", URL: u})
}

func runURLSign(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := args[0]

	opts, err := signOptions()
	if err != nil {
		return err
	}

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	u, err := fs.SignURL(ctx, p, adapter.ExpiresIn(urlSignExpires), opts...)
	if err != nil {
		return storageError("Failed to sign URL", p, err)
	}
	expires := time.Now().Add(urlSignExpires).UTC().Truncate(time.Second)
	return printURL(cmd.OutOrStdout(), fs.Bucket(), &output.URLRecord{
		Path: p, Kind: "signed", URL: u, Method: strings.ToUpper(urlMethod), ExpiresAt: &expires,
	})
}

func runURLTemp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := args[0]

	at, err := time.Parse(time.RFC3339, urlAt)
	if err != nil {
		observability.CLILogger.Error("Invalid expiry time", zap.String("at", urlAt), zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid expiry time", err)
	}
	opts, err := signOptions()
	if err != nil {
		return err
	}

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	u, err := fs.TemporaryURL(ctx, p, at, opts...)
	if err != nil {
		return storageError("Failed to sign URL", p, err)
	}
	at = at.UTC()
	return printURL(cmd.OutOrStdout(), fs.Bucket(), &output.URLRecord{
		Path: p, Kind: "temporary", URL: u, Method: strings.ToUpper(urlMethod), ExpiresAt: &at,
	})
}

// postForm is the printed shape of a browser upload form.
type postForm struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

func runURLPost(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	prefix := args[0]

	opts, err := urlPost.options()
	if err != nil {
		observability.CLILogger.Error("Invalid write options", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid write options", err)
	}
	if urlRedirect != "" {
		opts = append(opts, adapter.WithSuccessRedirect(urlRedirect))
	}

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	policy, err := fs.PostPolicy(ctx, prefix, urlPostExpires, opts...)
	if err != nil {
		return storageError("Failed to sign post policy", prefix, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(postForm{URL: policy.URL, Fields: policy.Fields}); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
	}
	return nil
}

func signOptions() ([]adapter.SignOption, error) {
	opts := []adapter.SignOption{adapter.WithMethod(urlMethod)}
	for _, kv := range urlParams {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			err := fmt.Errorf("%w: --param %q must be key=value", adapter.ErrInvalidArgument, kv)
			observability.CLILogger.Error("Invalid query parameter", zap.Error(err))
			return nil, exitError(foundry.ExitInvalidArgument, "Invalid query parameter", err)
		}
		opts = append(opts, adapter.WithQueryParam(k, v))
	}
	return opts, nil
}

func printURL(w io.Writer, bucket string, rec *output.URLRecord) error {
	if urlJSON {
		jw := output.NewJSONLWriter(w, output.NewRunID(), bucket)
		defer func() { _ = jw.Close() }()
		if err := jw.WriteURL(context.Background(), rec); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
		return nil
	}
	_, err := fmt.Fprintln(w, rec.URL)
	return err
}
