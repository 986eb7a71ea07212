package main

import (
	"github.com/spf13/cobra"

	"github.com/ytsum/ytsum/mcptool"
)

func newMCPCommand(configPath *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the summarize_video MCP tool over stdio",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath, *debug)
			if err != nil {
				return err
			}

			secrets, err := buildSecrets(cfg, "")
			if err != nil {
				return err
			}
			p, err := buildPipeline(cfg, secrets)
			if err != nil {
				return err
			}

			opts := mcptool.Options{
				Version:    version,
				Summarizer: p.gemini,
				Cache:      p.cache,
			}
			if p.notes != nil {
				opts.Notes = p.notes
			}

			srv, err := mcptool.New(opts)
			if err != nil {
				return err
			}
			return srv.ServeStdio()
		},
	}
}
