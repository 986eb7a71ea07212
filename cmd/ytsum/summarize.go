package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ytsum/ytsum/gemini"
	"github.com/ytsum/ytsum/notify"
	"github.com/ytsum/ytsum/yturl"
)

func newSummarizeCommand(configPath *string, debug *bool) *cobra.Command {
	var openPage bool
	var desktopNotify bool
	var apiKeyStdin bool

	cmd := &cobra.Command{
		Use:   "summarize <url>",
		Short: "Summarize a single video and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, *debug)
			if err != nil {
				return err
			}

			canonical, err := yturl.Validate(args[0])
			if err != nil {
				return err
			}
			videoID, err := yturl.ExtractVideoID(canonical)
			if err != nil {
				return err
			}

			apiKey, err := readAPIKey(apiKeyStdin, cfg.KeyVault.URL)
			if err != nil {
				return err
			}
			secrets, err := buildSecrets(cfg, apiKey)
			if err != nil {
				return err
			}
			p, err := buildPipeline(cfg, secrets)
			if err != nil {
				return err
			}

			var summary *gemini.Summary
			cached := false
			if p.cache != nil {
				if s, ok, err := p.cache.Get(videoID); err == nil && ok {
					summary = s
					cached = true
				}
			}
			if summary == nil {
				summary, err = p.gemini.Summarize(cmd.Context(), canonical)
				if err != nil {
					return err
				}
				if p.cache != nil {
					if err := p.cache.Set(videoID, summary); err != nil {
						slog.Warn("failed to cache summary", "error", err)
					}
				}
			}

			notionURL := ""
			if p.notes != nil {
				notionURL, err = p.notes.CreatePage(cmd.Context(), summary)
				if err != nil {
					slog.Warn("failed to create Notion page", "error", err)
					notionURL = ""
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(map[string]any{
				"youtube_url": canonical,
				"summary":     summary,
				"notion_url":  notionURL,
				"cached":      cached,
			}); err != nil {
				return err
			}

			if desktopNotify {
				sendDesktopNotification(summary, notionURL)
			}
			if openPage && notionURL != "" {
				if err := browser.OpenURL(notionURL); err != nil {
					slog.Warn("failed to open browser", "error", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&openPage, "open", false, "Open the created Notion page in a browser")
	cmd.Flags().BoolVar(&desktopNotify, "notify", false, "Show a desktop notification when done")
	cmd.Flags().BoolVar(&apiKeyStdin, "api-key-stdin", false, "Read the Gemini API key from stdin")
	return cmd
}

// readAPIKey resolves the Gemini API key for one-shot runs: from stdin
// when requested, or via an interactive prompt when neither a vault nor
// the environment can supply it.
func readAPIKey(fromStdin bool, vaultURL string) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("failed to read API key from stdin: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	if vaultURL != "" || os.Getenv("YTSUM_GOOGLE_API_KEY") != "" {
		return "", nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}

	fmt.Fprint(os.Stderr, "Gemini API key: ")
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return strings.TrimSpace(string(key)), nil
}

func sendDesktopNotification(summary *gemini.Summary, notionURL string) {
	notifier, err := notify.New(notify.DefaultConfig())
	if err != nil {
		slog.Warn("desktop notifications unavailable", "error", err)
		return
	}
	defer notifier.Close()

	message := "Summary ready"
	if notionURL != "" {
		message = "Summary ready, filed in Notion"
	}
	if err := notifier.Send(context.Background(), notify.Notification{
		Title:    summary.Title,
		Message:  message,
		Severity: "info",
		URL:      notionURL,
	}); err != nil {
		slog.Warn("failed to send desktop notification", "error", err)
	}
}
