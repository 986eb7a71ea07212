package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Set via ldflags at build time.
var (
	version   = "0.0.0-dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

type versionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitCommit string `json:"gitCommit"`
}

func newVersionCommand() *cobra.Command {
	var quiet bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display ytsum version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if jsonOut {
				data, err := json.MarshalIndent(versionInfo{
					Version:   version,
					BuildDate: buildDate,
					GitCommit: gitCommit,
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			if quiet {
				fmt.Fprintln(out, version)
				return nil
			}

			fmt.Fprintf(out, "ytsum version %s (commit: %s, built: %s)\n", version, gitCommit, buildDate)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print version number")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print version information as JSON")
	return cmd
}
