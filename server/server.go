// Package server orchestrates the summarization pipeline behind an HTTP
// endpoint: validate the URL, summarize through Gemini, store the result
// in Notion, and send a notification email.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ytsum/ytsum/cache"
	"github.com/ytsum/ytsum/config"
	"github.com/ytsum/ytsum/gemini"
	"github.com/ytsum/ytsum/logcapture"
	"github.com/ytsum/ytsum/yturl"
)

const maxBodyBytes = 64 * 1024

// Summarizer produces a summary for a canonical video URL.
type Summarizer interface {
	Summarize(ctx context.Context, url string) (*gemini.Summary, error)
}

// NoteCreator stores a summary and returns the created page URL.
type NoteCreator interface {
	CreatePage(ctx context.Context, summary *gemini.Summary) (string, error)
}

// Notifier sends success and failure notifications.
type Notifier interface {
	SendSuccess(ctx context.Context, summary *gemini.Summary, notionURL string) error
	SendFailure(ctx context.Context, report string) error
}

// Options wires the pipeline collaborators. Notes, Mail, and Cache are
// optional; a nil value disables that step.
type Options struct {
	Config     config.ServerConfig
	Summarizer Summarizer
	Notes      NoteCreator
	Mail       Notifier
	Cache      *cache.SummaryCache
}

// Server handles summarization requests. All collaborators are explicit
// constructor arguments; the server holds no global state.
type Server struct {
	summarizer Summarizer
	notes      NoteCreator
	mail       Notifier
	cache      *cache.SummaryCache
	limiter    *rate.Limiter
	addr       string
}

// New creates a Server. Options.Summarizer is required.
func New(opts Options) (*Server, error) {
	if opts.Summarizer == nil {
		return nil, errors.New("summarizer is required")
	}

	var limiter *rate.Limiter
	if opts.Config.RateLimit > 0 {
		burst := opts.Config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.Config.RateLimit), burst)
	}

	return &Server{
		summarizer: opts.Summarizer,
		notes:      opts.Notes,
		mail:       opts.Mail,
		cache:      opts.Cache,
		limiter:    limiter,
		addr:       opts.Config.Addr,
	}, nil
}

// Handler returns the HTTP handler for the summarization API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/summarize", s.handleSummarize)
	return mux
}

// NewHTTPServer wraps Handler in an http.Server with sane timeouts. The
// write timeout is generous because a cold summarization can take minutes.
func (s *Server) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
}

// successResponse is the JSON body for a completed summarization.
type successResponse struct {
	Status     string          `json:"status"`
	YouTubeURL string          `json:"youtube_url"`
	Summary    *gemini.Summary `json:"summary"`
	NotionURL  string          `json:"notion_url,omitempty"`
	Cached     bool            `json:"cached,omitempty"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		recordRequest(status, time.Since(start))
	}()

	if r.Method != http.MethodPost {
		status = http.StatusMethodNotAllowed
		writeError(w, status, "method not allowed")
		return
	}

	if s.limiter != nil && !s.limiter.Allow() {
		status = http.StatusTooManyRequests
		writeError(w, status, "rate limit exceeded, please retry later")
		return
	}

	capture := logcapture.New()
	logger := slog.New(capture.Handler(slog.Default().Handler()))
	ctx := r.Context()

	var body map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		logger.Error("invalid JSON in request body", "error", err)
		status = http.StatusBadRequest
		writeError(w, status, "Invalid JSON format")
		return
	}
	capture.SetRequestData(body, r.Header)

	raw, err := yturl.ValidateRequestBody(body)
	if err != nil {
		logger.Error("request validation failed", "error", err)
		validationFailures.WithLabelValues("body").Inc()
		status = http.StatusBadRequest
		writeError(w, status, err.Error())
		return
	}

	canonical, err := yturl.Validate(raw)
	if err != nil {
		logger.Error("URL validation failed", "error", err)
		validationFailures.WithLabelValues("url").Inc()
		status = http.StatusBadRequest
		writeError(w, status, err.Error())
		return
	}
	logger.Info("processing YouTube URL", "url", canonical)

	// The ID is safe as a cache key: Validate just vouched for it.
	videoID, err := yturl.ExtractVideoID(canonical)
	if err != nil {
		status = http.StatusBadRequest
		writeError(w, status, err.Error())
		return
	}

	if s.cache != nil {
		if cached, ok, err := s.cache.Get(videoID); err == nil && ok {
			cacheResults.WithLabelValues("hit").Inc()
			logger.Info("serving cached summary", "video_id", videoID)
			writeJSON(w, http.StatusOK, successResponse{
				Status:     "success",
				YouTubeURL: canonical,
				Summary:    cached,
				Cached:     true,
			})
			return
		}
		cacheResults.WithLabelValues("miss").Inc()
	}

	summary, err := s.summarizer.Summarize(ctx, canonical)
	recordOutbound("gemini", err)
	if err != nil {
		logger.Error("summarization failed", "error", err)
		capture.SetError(err, map[string]any{"video_id": videoID, "url": canonical})
		s.notifyFailure(ctx, logger, capture)

		if errors.Is(err, gemini.ErrAPI) {
			status = http.StatusBadGateway
		} else {
			status = http.StatusInternalServerError
		}
		writeError(w, status, err.Error())
		return
	}
	logger.Info("video summarized", "video_id", videoID)

	if s.cache != nil {
		if err := s.cache.Set(videoID, summary); err != nil {
			logger.Warn("failed to cache summary", "error", err)
		}
	}

	// Notion and email failures don't fail the request; the summary is
	// already produced and returned.
	notionURL := ""
	if s.notes != nil {
		notionURL, err = s.notes.CreatePage(ctx, summary)
		recordOutbound("notion", err)
		if err != nil {
			logger.Warn("failed to create Notion page", "error", err)
			notionURL = ""
		} else {
			logger.Info("Notion page created", "page_url", notionURL)
		}
	}

	if s.mail != nil {
		if err := s.mail.SendSuccess(ctx, summary, notionURL); err != nil {
			recordOutbound("email", err)
			logger.Warn("failed to send success email", "error", err)
		} else {
			recordOutbound("email", nil)
		}
	}

	writeJSON(w, http.StatusOK, successResponse{
		Status:     "success",
		YouTubeURL: canonical,
		Summary:    summary,
		NotionURL:  notionURL,
	})
}

// notifyFailure emails the captured failure report when a mailer is wired.
func (s *Server) notifyFailure(ctx context.Context, logger *slog.Logger, capture *logcapture.Capture) {
	if s.mail == nil {
		return
	}
	if err := s.mail.SendFailure(ctx, capture.MarkdownReport()); err != nil {
		recordOutbound("email", err)
		logger.Warn("failed to send failure email", "error", err)
		return
	}
	recordOutbound("email", nil)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
