// Package gemini summarizes YouTube videos through the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/ytsum/ytsum/keyvault"
)

// ErrAPI indicates a failed Gemini API interaction.
var ErrAPI = errors.New("gemini API request failed")

const (
	// SecretName is the Key Vault secret holding the Gemini API key.
	SecretName = "GOOGLE-API-KEY"

	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 5 * time.Minute
	defaultRetries = 2
)

// Summary is the structured result of a video summarization.
type Summary struct {
	Title          string      `json:"title"`
	Tags           []string    `json:"tags"`
	URL            string      `json:"url"`
	BriefSummary   string      `json:"brief_summary"`
	SummaryBullets []string    `json:"summary_bullets"`
	Tools          []ToolUsage `json:"tools_and_technologies,omitempty"`

	// RawResponse carries the model output verbatim when it could not be
	// parsed as the expected JSON structure.
	RawResponse string `json:"raw_response,omitempty"`
	Note        string `json:"note,omitempty"`
}

// ToolUsage names a tool mentioned in the video and what it was used for.
type ToolUsage struct {
	Tool    string `json:"tool"`
	Purpose string `json:"purpose"`
}

// Options configures a Client. Zero values use defaults.
type Options struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Retries int

	// OnBreakerChange is called when the circuit breaker changes state,
	// typically to record a metric.
	OnBreakerChange func(name string, to gobreaker.State)
}

// Client calls the Gemini generateContent API to summarize videos. The API
// key comes from a keyvault.Source on first use; transient failures retry
// at the transport level and repeated failures trip a circuit breaker.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	secrets keyvault.Source
	model   string
}

// NewClient creates a Gemini client. secrets must supply SecretName.
func NewClient(secrets keyvault.Source, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retries == 0 {
		opts.Retries = defaultRetries
	}

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(30 * time.Second).
		SetHeader("User-Agent", "ytsum/1.0")

	httpClient.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() >= 500 || r.StatusCode() == 429
	})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gemini",
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
		model:   opts.Model,
	}
}

// generateContent request/response wire types (v1beta).
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	FileURI string `json:"file_uri"`
}

type generationConfig struct {
	// LOW keeps token usage down and supports videos up to roughly three
	// hours.
	MediaResolution string `json:"media_resolution,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize sends the canonical video URL to Gemini and returns the parsed
// summary. The url must already have passed yturl.Validate; it is embedded
// verbatim in the prompt and request.
func (c *Client) Summarize(ctx context.Context, url string) (*Summary, error) {
	apiKey, err := c.secrets.GetSecret(ctx, SecretName)
	if err != nil {
		return nil, err
	}

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{FileData: &fileData{FileURI: url}},
				{Text: buildPrompt(url)},
			},
		}},
		GenerationConfig: &generationConfig{MediaResolution: "MEDIA_RESOLUTION_LOW"},
	}

	result, err := c.breaker.Execute(func() (any, error) {
		var respBody generateResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("x-goog-api-key", apiKey).
			SetHeader("Content-Type", "application/json").
			SetBody(reqBody).
			SetResult(&respBody).
			SetError(&respBody).
			Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.model))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAPI, err)
		}
		if resp.IsError() {
			if respBody.Error != nil {
				return nil, fmt.Errorf("%w: %d %s", ErrAPI, respBody.Error.Code, respBody.Error.Message)
			}
			return nil, fmt.Errorf("%w: HTTP %d", ErrAPI, resp.StatusCode())
		}
		return &respBody, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker open: %v", ErrAPI, err)
		}
		return nil, err
	}

	respBody := result.(*generateResponse)
	if len(respBody.Candidates) == 0 || len(respBody.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response from model", ErrAPI)
	}

	summary := parseSummary(respBody.Candidates[0].Content.Parts[0].Text)
	if summary.URL == "" {
		summary.URL = url
	}
	return summary, nil
}

// buildPrompt produces the structured summarization prompt. The model is
// asked for a fixed JSON shape so the result can land in Notion unchanged.
func buildPrompt(url string) string {
	return fmt.Sprintf(`Please analyze this attached YouTube video and provide a comprehensive summary in JSON format.
Provide insights I can save on a second brain system. The Title should be the original video title from YouTube.
If the native language of the video is in spanish, match the summary language to spanish, otherwise use english.

Return your response as a JSON object with the following structure:
{
    "title": "The original title from YouTube",
    "tags": ["tag1", "tag2", "tag3"],
    "url": "%s",
    "brief_summary": "Concise paragraph summarizing the video content.",
    "summary_bullets": ["Key point 1", "Key point 2", "Key point 3"],
    "tools_and_technologies": [{"tool": "Tool name", "purpose": "What it was used for in the video"}]
}

Make the summary informative and actionable. Focus on key takeaways, main concepts, and practical applications.`, url)
}

// parseSummary decodes the model output, tolerating markdown code fences.
// Output that is not the expected JSON comes back as a fallback Summary
// with RawResponse set rather than an error; the model answered, just not
// in shape.
func parseSummary(text string) *Summary {
	payload := strings.TrimSpace(text)

	if idx := strings.Index(payload, "```json"); idx >= 0 {
		payload = payload[idx+len("```json"):]
		if end := strings.Index(payload, "```"); end >= 0 {
			payload = payload[:end]
		}
	} else if idx := strings.Index(payload, "```"); idx >= 0 {
		payload = payload[idx+len("```"):]
		if end := strings.Index(payload, "```"); end >= 0 {
			payload = payload[:end]
		}
	}

	var summary Summary
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &summary); err != nil {
		return &Summary{
			RawResponse: text,
			Note:        "Response was not in expected JSON format",
		}
	}
	return &summary
}
