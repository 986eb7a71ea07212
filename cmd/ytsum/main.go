// ytsum summarizes YouTube videos with Gemini and files the results in
// Notion. It runs either as an HTTP service or as a one-shot CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ytsum/ytsum/cache"
	"github.com/ytsum/ytsum/config"
	"github.com/ytsum/ytsum/gemini"
	"github.com/ytsum/ytsum/keyvault"
	"github.com/ytsum/ytsum/logutil"
	"github.com/ytsum/ytsum/mailer"
	"github.com/ytsum/ytsum/notion"
	"github.com/ytsum/ytsum/server"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	var debug bool

	root := &cobra.Command{
		Use:           "ytsum",
		Short:         "Summarize YouTube videos into Notion",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default "+config.DefaultPath+")")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newServeCommand(&configPath, &debug),
		newSummarizeCommand(&configPath, &debug),
		newMCPCommand(&configPath, &debug),
		newVersionCommand(),
	)
	return root
}

// loadConfig reads the configuration and configures the global logger.
func loadConfig(path string, debug bool) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	if err := logutil.Setup(cfg.Logging); err != nil {
		return config.Config{}, fmt.Errorf("failed to set up logging: %w", err)
	}
	return cfg, nil
}

// buildSecrets assembles the secret resolution chain: a prompted API key
// first, then Key Vault when configured, then YTSUM_* environment
// variables.
func buildSecrets(cfg config.Config, promptedAPIKey string) (keyvault.Source, error) {
	var chain keyvault.Chain
	if promptedAPIKey != "" {
		chain = append(chain, keyvault.StaticSource{gemini.SecretName: promptedAPIKey})
	}
	if cfg.KeyVault.URL != "" {
		vault, err := keyvault.NewSecretSource(cfg.KeyVault.URL)
		if err != nil {
			return nil, err
		}
		chain = append(chain, vault)
	}
	chain = append(chain, keyvault.EnvSource{})
	return chain, nil
}

// pipeline holds the constructed collaborators. notes, mail, and cache
// are nil when not configured.
type pipeline struct {
	gemini *gemini.Client
	notes  *notion.Client
	mail   *mailer.Client
	cache  *cache.SummaryCache
}

func buildPipeline(cfg config.Config, secrets keyvault.Source) (*pipeline, error) {
	p := &pipeline{
		gemini: gemini.NewClient(secrets, gemini.Options{
			Model:           cfg.Gemini.Model,
			Timeout:         cfg.Gemini.Timeout,
			OnBreakerChange: server.RecordBreakerState,
		}),
	}

	if cfg.Notion.DatabaseID != "" {
		notes, err := notion.NewClient(secrets, cfg.Notion, notion.Options{
			OnBreakerChange: server.RecordBreakerState,
		})
		if err != nil {
			return nil, err
		}
		p.notes = notes
	}

	if cfg.Email.Enabled() {
		mail, err := mailer.NewClient(cfg.Email.ConnectionString, cfg.Email.From, cfg.Email.To)
		if err != nil {
			return nil, err
		}
		p.mail = mail
	}

	if cfg.Cache.Dir != "" {
		p.cache = cache.New(cache.Options{
			Dir:     cfg.Cache.Dir,
			TTL:     cfg.Cache.TTL,
			Version: version,
		})
	}
	return p, nil
}
