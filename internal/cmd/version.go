package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/oasislearninghub/oasis/internal/output"
	"github.com/oasislearninghub/oasis/internal/server/handlers"
)

var (
	extended      bool
	versionFormat string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for full details including Crucible and Go versions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(versionFormat)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		info := handlers.CurrentVersion()

		if format == output.FormatJSON {
			payload, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(payload))
			return err
		}

		if !extended {
			_, err := fmt.Fprintf(w, "%s %s\n", info.App.Name, info.App.Version)
			return err
		}

		lines := []string{
			fmt.Sprintf("%s %s", info.App.Name, info.App.Version),
			"",
			"Commit:   " + info.App.Commit,
			"Built:    " + info.App.BuildDate,
			"Go:       " + info.App.GoVersion,
			"Platform: " + info.Runtime.Platform,
			"",
			"Gofulmen: " + info.Dependencies.Gofulmen,
			"Crucible: " + info.Dependencies.Crucible,
		}
		_, err = fmt.Fprint(w, ascii.DrawBox(strings.Join(lines, "\n"), 0))
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
	versionCmd.Flags().StringVar(&versionFormat, "output-format", string(output.FormatTable), "Output format: table|json")
}
