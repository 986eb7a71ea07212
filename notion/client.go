// Package notion creates summary pages in a Notion database.
package notion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/ytsum/ytsum/gemini"
	"github.com/ytsum/ytsum/keyvault"
)

// ErrAPI indicates a failed Notion API interaction.
var ErrAPI = errors.New("notion API request failed")

const (
	// SecretName is the Key Vault secret holding the Notion integration token.
	SecretName = "NOTION-API-KEY"

	defaultBaseURL = "https://api.notion.com"
	notionVersion  = "2022-06-28"
	defaultTimeout = 30 * time.Second
)

// Config describes the target database and how summary fields map onto its
// properties. PropertyMapping keys are the logical names "title", "tags",
// and "url"; values are the database's property names.
type Config struct {
	DatabaseID      string            `yaml:"databaseId"`
	DatabaseName    string            `yaml:"databaseName"`
	PropertyMapping map[string]string `yaml:"propertyMapping"`
}

// Validate checks that the config identifies a database.
func (c Config) Validate() error {
	if c.DatabaseID == "" {
		return fmt.Errorf("notion databaseId is not configured")
	}
	return nil
}

// property returns the database property name for a logical field.
func (c Config) property(logical, fallback string) string {
	if name, ok := c.PropertyMapping[logical]; ok && name != "" {
		return name
	}
	return fallback
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration

	OnBreakerChange func(name string, to gobreaker.State)
}

// Client writes summaries into a Notion database.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	secrets keyvault.Source
	cfg     Config
}

// NewClient creates a Notion client for the configured database.
func NewClient(secrets keyvault.Source, cfg Config, opts Options) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		SetHeader("User-Agent", "ytsum/1.0").
		SetHeader("Notion-Version", notionVersion)

	httpClient.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() >= 500 || r.StatusCode() == 429
	})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notion",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			if opts.OnBreakerChange != nil {
				opts.OnBreakerChange(name, to)
			}
		},
	})

	return &Client{
		http:    httpClient,
		breaker: breaker,
		secrets: secrets,
		cfg:     cfg,
	}, nil
}

type createPageResponse struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Message string `json:"message"` // set on error responses
}

// CreatePage creates a database page for the summary and returns the page URL.
func (c *Client) CreatePage(ctx context.Context, summary *gemini.Summary) (string, error) {
	token, err := c.secrets.GetSecret(ctx, SecretName)
	if err != nil {
		return "", err
	}

	body := c.buildPage(summary)

	result, err := c.breaker.Execute(func() (any, error) {
		var respBody createPageResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			SetResult(&respBody).
			SetError(&respBody).
			Post("/v1/pages")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAPI, err)
		}
		if resp.IsError() {
			if respBody.Message != "" {
				return nil, fmt.Errorf("%w: HTTP %d: %s", ErrAPI, resp.StatusCode(), respBody.Message)
			}
			return nil, fmt.Errorf("%w: HTTP %d", ErrAPI, resp.StatusCode())
		}
		return &respBody, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: circuit breaker open: %v", ErrAPI, err)
		}
		return "", err
	}

	return result.(*createPageResponse).URL, nil
}

// buildPage assembles the Notion page request: mapped properties plus
// content blocks for the brief summary, bullets, and tools.
func (c *Client) buildPage(summary *gemini.Summary) map[string]any {
	title := summary.Title
	if title == "" {
		title = "Untitled video summary"
	}

	properties := map[string]any{
		c.cfg.property("title", "Name"): map[string]any{
			"title": []map[string]any{{"text": map[string]any{"content": title}}},
		},
		c.cfg.property("url", "URL"): map[string]any{
			"url": summary.URL,
		},
	}

	if len(summary.Tags) > 0 {
		options := make([]map[string]any, 0, len(summary.Tags))
		for _, tag := range summary.Tags {
			options = append(options, map[string]any{"name": tag})
		}
		properties[c.cfg.property("tags", "Tags")] = map[string]any{"multi_select": options}
	}

	children := make([]map[string]any, 0, len(summary.SummaryBullets)+len(summary.Tools)+2)
	if summary.BriefSummary != "" {
		children = append(children, paragraphBlock(summary.BriefSummary))
	}
	if summary.RawResponse != "" {
		children = append(children, paragraphBlock(summary.RawResponse))
	}
	for _, bullet := range summary.SummaryBullets {
		children = append(children, bulletBlock(bullet))
	}
	for _, tool := range summary.Tools {
		children = append(children, bulletBlock(fmt.Sprintf("%s: %s", tool.Tool, tool.Purpose)))
	}

	return map[string]any{
		"parent":     map[string]any{"database_id": c.cfg.DatabaseID},
		"properties": properties,
		"children":   children,
	}
}

func paragraphBlock(text string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "paragraph",
		"paragraph": map[string]any{
			"rich_text": []map[string]any{{"text": map[string]any{"content": text}}},
		},
	}
}

func bulletBlock(text string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "bulleted_list_item",
		"bulleted_list_item": map[string]any{
			"rich_text": []map[string]any{{"text": map[string]any{"content": text}}},
		},
	}
}
