// Package cache stores finished video summaries on disk so repeated
// submissions of the same video skip the Gemini call.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/ytsum/ytsum/gemini"
)

// videoIDPattern guards cache keys: only validated video IDs may be used,
// which also makes every key filesystem-safe.
var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// Options configures a SummaryCache.
type Options struct {
	Dir     string        // Directory to store cache files
	TTL     time.Duration // Time-to-live for entries; 0 disables expiry
	Version string        // Entries with a different version are invalidated
}

// Stats tracks cache hit/miss statistics.
type Stats struct {
	Hits   int
	Misses int
	Errors int
}

// envelope is the on-disk format wrapping a summary with metadata.
type envelope struct {
	CachedAt time.Time       `json:"cachedAt"`
	Version  string          `json:"version"`
	Summary  json.RawMessage `json:"summary"`
}

// SummaryCache is a thread-safe file-based cache keyed by video ID.
type SummaryCache struct {
	dir     string
	ttl     time.Duration
	version string
	mu      sync.RWMutex
	statsMu sync.Mutex
	stats   Stats
}

// New creates a summary cache rooted at opts.Dir.
func New(opts Options) *SummaryCache {
	return &SummaryCache{
		dir:     opts.Dir,
		ttl:     opts.TTL,
		version: opts.Version,
	}
}

// Get loads the cached summary for a video ID. The second return value is
// false on a miss (absent, expired, or wrong version).
func (c *SummaryCache) Get(videoID string) (*gemini.Summary, bool, error) {
	if !videoIDPattern.MatchString(videoID) {
		return nil, false, fmt.Errorf("invalid cache key %q: not a video ID", videoID)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.keyPath(videoID))
	if err != nil {
		if os.IsNotExist(err) {
			c.recordMiss()
			return nil, false, nil
		}
		c.recordError()
		return nil, false, fmt.Errorf("failed to read cache file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.recordError()
		return nil, false, fmt.Errorf("failed to parse cache file: %w", err)
	}

	if c.version != "" && env.Version != c.version {
		c.recordMiss()
		return nil, false, nil
	}
	if c.ttl > 0 && time.Since(env.CachedAt) > c.ttl {
		c.recordMiss()
		return nil, false, nil
	}

	var summary gemini.Summary
	if err := json.Unmarshal(env.Summary, &summary); err != nil {
		c.recordError()
		return nil, false, fmt.Errorf("failed to unmarshal cached summary: %w", err)
	}

	c.recordHit()
	return &summary, true, nil
}

// Set stores a summary under the video ID.
func (c *SummaryCache) Set(videoID string, summary *gemini.Summary) error {
	if !videoIDPattern.MatchString(videoID) {
		return fmt.Errorf("invalid cache key %q: not a video ID", videoID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	data, err := json.Marshal(envelope{
		CachedAt: time.Now().UTC(),
		Version:  c.version,
		Summary:  raw,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache envelope: %w", err)
	}

	if err := os.WriteFile(c.keyPath(videoID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Invalidate removes the entry for a video ID if present.
func (c *SummaryCache) Invalidate(videoID string) error {
	if !videoIDPattern.MatchString(videoID) {
		return fmt.Errorf("invalid cache key %q: not a video ID", videoID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.keyPath(videoID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	return nil
}

// GetStats returns a snapshot of hit/miss statistics.
func (c *SummaryCache) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

func (c *SummaryCache) keyPath(videoID string) string {
	return filepath.Join(c.dir, videoID+".json")
}

func (c *SummaryCache) recordHit() {
	c.statsMu.Lock()
	c.stats.Hits++
	c.statsMu.Unlock()
}

func (c *SummaryCache) recordMiss() {
	c.statsMu.Lock()
	c.stats.Misses++
	c.statsMu.Unlock()
}

func (c *SummaryCache) recordError() {
	c.statsMu.Lock()
	c.stats.Errors++
	c.statsMu.Unlock()
}
