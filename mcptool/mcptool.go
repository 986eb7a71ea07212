// Package mcptool exposes the summarization pipeline as a Model Context
// Protocol tool so agent hosts can summarize videos over stdio.
package mcptool

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ytsum/ytsum/cache"
	"github.com/ytsum/ytsum/gemini"
	"github.com/ytsum/ytsum/yturl"
)

// ToolName is the MCP tool identifier for video summarization.
const ToolName = "summarize_video"

// Summarizer produces a summary for a canonical video URL.
type Summarizer interface {
	Summarize(ctx context.Context, url string) (*gemini.Summary, error)
}

// NoteCreator stores a summary and returns the created page URL.
type NoteCreator interface {
	CreatePage(ctx context.Context, summary *gemini.Summary) (string, error)
}

// Options wires the tool server collaborators. Notes and Cache are
// optional.
type Options struct {
	Version    string
	Summarizer Summarizer
	Notes      NoteCreator
	Cache      *cache.SummaryCache

	// Burst and RefillRate configure the per-tool rate limiter. Zero
	// values fall back to 5 burst calls refilling at 0.5/second.
	Burst      float64
	RefillRate float64
}

// Server hosts the summarize_video MCP tool over stdio.
type Server struct {
	mcp        *server.MCPServer
	summarizer Summarizer
	notes      NoteCreator
	cache      *cache.SummaryCache
	limiter    *RateLimiter
}

// New creates the MCP tool server. Options.Summarizer is required.
func New(opts Options) (*Server, error) {
	if opts.Summarizer == nil {
		return nil, errors.New("summarizer is required")
	}

	burst := opts.Burst
	if burst <= 0 {
		burst = 5
	}
	refill := opts.RefillRate
	if refill <= 0 {
		refill = 0.5
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		summarizer: opts.Summarizer,
		notes:      opts.Notes,
		cache:      opts.Cache,
		limiter:    NewRateLimiter(burst, refill),
	}

	s.mcp = server.NewMCPServer("ytsum", version, server.WithToolCapabilities(false))
	s.mcp.AddTool(
		mcp.NewTool(ToolName,
			mcp.WithDescription("Summarize a YouTube video. Validates the URL, generates a structured summary, and optionally stores it in Notion."),
			mcp.WithString("url",
				mcp.Required(),
				mcp.Description("YouTube video URL (youtube.com or youtu.be)"),
			),
		),
		s.handleSummarizeVideo,
	)
	return s, nil
}

// ServeStdio runs the MCP server over stdin/stdout until the host
// disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// toolResult is the JSON payload returned to the MCP host.
type toolResult struct {
	Status     string          `json:"status"`
	YouTubeURL string          `json:"youtube_url"`
	Summary    *gemini.Summary `json:"summary"`
	NotionURL  string          `json:"notion_url,omitempty"`
	Cached     bool            `json:"cached,omitempty"`
}

func (s *Server) handleSummarizeVideo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.limiter.CheckRateLimit(ToolName); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := GetArgsMap(request)
	raw, ok := GetStringParam(args, "url")
	if !ok || raw == "" {
		return mcp.NewToolResultError("missing required parameter: url"), nil
	}

	canonical, err := yturl.Validate(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	videoID, err := yturl.ExtractVideoID(canonical)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if s.cache != nil {
		if cached, ok, err := s.cache.Get(videoID); err == nil && ok {
			return MarshalToolResult(toolResult{
				Status:     "success",
				YouTubeURL: canonical,
				Summary:    cached,
				Cached:     true,
			})
		}
	}

	summary, err := s.summarizer.Summarize(ctx, canonical)
	if err != nil {
		slog.Error("summarization failed", "video_id", videoID, "error", err)
		return mcp.NewToolResultError("summarization failed: " + err.Error()), nil
	}

	if s.cache != nil {
		if err := s.cache.Set(videoID, summary); err != nil {
			slog.Warn("failed to cache summary", "error", err)
		}
	}

	notionURL := ""
	if s.notes != nil {
		notionURL, err = s.notes.CreatePage(ctx, summary)
		if err != nil {
			slog.Warn("failed to create Notion page", "error", err)
			notionURL = ""
		}
	}

	return MarshalToolResult(toolResult{
		Status:     "success",
		YouTubeURL: canonical,
		Summary:    summary,
		NotionURL:  notionURL,
	})
}
