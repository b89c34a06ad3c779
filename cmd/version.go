package cmd

import (
	"encoding/json"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/cirrusidentity/siem-client/internal/output"
)

var (
	commit    = "unknown"
	buildTime = "unknown"
)

// SetBuildInfo sets the commit hash and build time
func SetBuildInfo(c, bt string) {
	commit = c
	buildTime = bt
}

// userAgent is sent with every API request
func userAgent() string {
	return "siem-client/" + version
}

// buildInfo is what `version --json` prints
type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Built     string `json:"built"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	UserAgent string `json:"user_agent"`
	APIURL    string `json:"api_url"`
}

func currentBuildInfo() buildInfo {
	info := buildInfo{
		Version:   version,
		Commit:    commit,
		Built:     buildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		UserAgent: userAgent(),
	}
	if cfg != nil {
		info.APIURL = cfg.API.URL
	}
	return info
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the client version, the User-Agent sent to the log search API and
the API URL requests would go to.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().Bool("short", false, "print version string only")
	versionCmd.Flags().Bool("json", false, "output as JSON")
}

func runVersion(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	info := currentBuildInfo()

	if short, _ := cmd.Flags().GetBool("short"); short {
		_, err := w.Write([]byte(info.Version + "\n"))
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	table := output.NewTable(w, []string{"KEY", "VALUE"})
	table.AddRow("version", info.Version)
	table.AddRow("commit", info.Commit)
	table.AddRow("built", info.Built)
	table.AddRow("go", info.GoVersion)
	table.AddRow("platform", info.Platform)
	table.AddRow("user agent", info.UserAgent)
	table.AddRow("api url", info.APIURL)
	return table.Render()
}
