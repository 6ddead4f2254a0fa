package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output as JSON")
}

type versionReport struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Gofulmen  string `json:"gofulmen,omitempty"`
	Crucible  string `json:"crucible,omitempty"`
}

func currentVersion() versionReport {
	deps := crucible.GetVersion()
	return versionReport{
		Version:   versionInfo.Version,
		Commit:    versionInfo.Commit,
		BuildDate: versionInfo.BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Gofulmen:  deps.Gofulmen,
		Crucible:  deps.Crucible,
	}
}

func runVersion(cmd *cobra.Command, _ []string) error {
	v := currentVersion()
	out := cmd.OutOrStdout()

	if versionJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
		return nil
	}

	_, _ = fmt.Fprintf(out, "nimbusfs %s\n", v.Version)
	_, _ = fmt.Fprintf(out, "  commit:     %s\n", v.Commit)
	_, _ = fmt.Fprintf(out, "  built:      %s\n", v.BuildDate)
	_, _ = fmt.Fprintf(out, "  go:         %s (%s)\n", v.GoVersion, v.Platform)
	if v.Gofulmen != "" {
		_, _ = fmt.Fprintf(out, "  gofulmen:   %s\n", v.Gofulmen)
	}
	if v.Crucible != "" {
		_, _ = fmt.Fprintf(out, "  crucible:   %s\n", v.Crucible)
	}
	return nil
}
