package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/pkg/adapter"
	"github.com/3leaps/nimbusfs/pkg/match"
	"github.com/3leaps/nimbusfs/pkg/output"
)

var lsCmd = &cobra.Command{
	Use:   "ls [dir]",
	Short: "List files and directories",
	Long: `List the contents of a directory.

Directories are derived from key delimiters; a directory with no marker
object still appears when files exist below it. Include patterns imply a
recursive listing and, when no directory is given, start it at the
deepest directory all patterns share.

Examples:
  nimbusfs ls
  nimbusfs ls images -R
  nimbusfs ls --include 'images/**/*.png' --exclude '**/thumbs/**'
  nimbusfs ls logs -R --min-size 1MiB --after 2024-06-01 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

var (
	lsRecursive bool
	lsIncludes  []string
	lsExcludes  []string
	lsHidden    bool
	lsMinSize   string
	lsMaxSize   string
	lsAfter     string
	lsBefore    string
	lsRegex     string
	lsLimit     int
	lsJSON      bool
)

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().BoolVarP(&lsRecursive, "recursive", "R", false, "List all descendants")
	lsCmd.Flags().StringArrayVar(&lsIncludes, "include", nil, "Glob pattern paths must match (repeatable)")
	lsCmd.Flags().StringArrayVar(&lsExcludes, "exclude", nil, "Glob pattern paths must not match (repeatable)")
	lsCmd.Flags().BoolVar(&lsHidden, "hidden", false, "Include paths with a segment starting with '.'")
	lsCmd.Flags().StringVar(&lsMinSize, "min-size", "", "Minimum file size (e.g. 1KB, 10MiB)")
	lsCmd.Flags().StringVar(&lsMaxSize, "max-size", "", "Maximum file size")
	lsCmd.Flags().StringVar(&lsAfter, "after", "", "Files modified at or after (2024-01-15 or RFC3339)")
	lsCmd.Flags().StringVar(&lsBefore, "before", "", "Files modified before")
	lsCmd.Flags().StringVar(&lsRegex, "regex", "", "Regular expression paths must match")
	lsCmd.Flags().IntVarP(&lsLimit, "limit", "n", 0, "Stop after this many entries (0 = no limit)")
	lsCmd.Flags().BoolVar(&lsJSON, "json", false, "Output as JSONL records")
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	matcher, err := match.New(match.Config{
		Includes:      lsIncludes,
		Excludes:      lsExcludes,
		IncludeHidden: lsHidden,
	})
	if err != nil {
		observability.CLILogger.Error("Invalid pattern", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid pattern", err)
	}

	filter, err := match.NewFilterFromConfig(&match.FilterConfig{
		Size:      &match.SizeFilterConfig{Min: lsMinSize, Max: lsMaxSize},
		Modified:  &match.DateFilterConfig{After: lsAfter, Before: lsBefore},
		PathRegex: lsRegex,
	})
	if err != nil {
		observability.CLILogger.Error("Invalid filter", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid filter", err)
	}

	dir := matcher.Root()
	if len(args) == 1 {
		dir = args[0]
	}
	recursive := lsRecursive || len(lsIncludes) > 0

	fs, _, closeFn, err := storageFor(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	observability.CLILogger.Debug("Listing",
		zap.String("dir", dir),
		zap.Bool("recursive", recursive),
		zap.Strings("include", matcher.IncludePatterns()),
		zap.String("filters", filter.String()))

	out := cmd.OutOrStdout()
	var sink entrySink
	if lsJSON {
		sink = newJSONLSink(ctx, out, fs.Bucket())
	} else {
		sink = newTableSink(out)
	}

	start := time.Now()
	var listErr error
	for entry, err := range fs.List(ctx, dir, recursive) {
		if err != nil {
			listErr = err
			break
		}
		if !matcher.Match(entry.EntryPath()) || !filter.Match(entry) {
			continue
		}
		if err := sink.add(entry); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
		if lsLimit > 0 && sink.count() >= lsLimit {
			break
		}
	}

	if err := sink.finish(listErr, dir, time.Since(start)); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
	}
	if listErr != nil {
		return storageError("Failed to list directory", dir, listErr)
	}
	return nil
}

// entrySink renders listing entries in one output format.
type entrySink interface {
	add(entry adapter.Attributes) error
	count() int
	finish(listErr error, dir string, elapsed time.Duration) error
}

type tally struct {
	files, dirs int64
	bytes       int64
}

func (t *tally) record(entry adapter.Attributes) {
	if f, ok := entry.(*adapter.FileAttributes); ok {
		t.files++
		if f.Size != nil {
			t.bytes += *f.Size
		}
		return
	}
	t.dirs++
}

func (t *tally) count() int { return int(t.files + t.dirs) }

type tableSink struct {
	tally
	out io.Writer
	tw  *tabwriter.Writer
}

func newTableSink(out io.Writer) *tableSink {
	return &tableSink{out: out, tw: tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)}
}

func (s *tableSink) add(entry adapter.Attributes) error {
	if s.count() == 0 {
		if _, err := fmt.Fprintln(s.tw, "PATH\tSIZE\tMODIFIED"); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	s.record(entry)

	name, size, modified := entry.EntryPath()+"/", "-", "-"
	if f, ok := entry.(*adapter.FileAttributes); ok {
		name = f.Path
		if f.Size != nil {
			size = formatSize(*f.Size)
		}
		if f.LastModified != nil {
			modified = time.Unix(*f.LastModified, 0).UTC().Format("2006-01-02 15:04:05")
		}
	}
	if _, err := fmt.Fprintf(s.tw, "%s\t%s\t%s\n", name, size, modified); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	return nil
}

func (s *tableSink) finish(_ error, _ string, _ time.Duration) error {
	if s.count() == 0 {
		_, err := fmt.Fprintln(s.out, "No entries found.")
		return err
	}
	if err := s.tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	_, err := fmt.Fprintf(s.out, "\n%d file(s), %d director(ies) (%s total)\n", s.files, s.dirs, formatSize(s.bytes))
	return err
}

type jsonlSink struct {
	tally
	ctx context.Context
	w   *output.JSONLWriter
}

func newJSONLSink(ctx context.Context, out io.Writer, bucket string) *jsonlSink {
	return &jsonlSink{ctx: ctx, w: output.NewJSONLWriter(out, output.NewRunID(), bucket)}
}

func (s *jsonlSink) add(entry adapter.Attributes) error {
	s.record(entry)
	return s.w.WriteEntry(s.ctx, output.NewEntryRecord(entry))
}

// finish writes the error record, if any, and the summary. The summary is
// written even when ctx is done so consumers see how far the listing got.
func (s *jsonlSink) finish(listErr error, dir string, elapsed time.Duration) error {
	defer func() { _ = s.w.Close() }()
	ctx := context.WithoutCancel(s.ctx)
	var errs int64
	if listErr != nil {
		errs = 1
		if err := s.w.WriteError(ctx, output.NewErrorRecord(dir, listErr)); err != nil {
			return err
		}
	}
	return s.w.WriteSummary(ctx, &output.SummaryRecord{
		Files:         s.files,
		Directories:   s.dirs,
		BytesTotal:    s.bytes,
		Duration:      elapsed,
		DurationHuman: elapsed.Round(time.Millisecond).String(),
		Errors:        errs,
	})
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
