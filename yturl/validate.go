package yturl

import (
	"errors"
	"fmt"
	neturl "net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL indicates an input that is not a safe, well-formed YouTube
// video URL. Every rejection wraps this sentinel with a specific reason.
var ErrInvalidURL = errors.New("invalid YouTube URL")

// CanonicalHost is the host used in every canonical URL, regardless of
// which allowed host variant the input carried.
const CanonicalHost = "www.youtube.com"

// allowedHosts is the closed set of accepted YouTube host variants.
var allowedHosts = map[string]bool{
	"youtube.com":     true,
	"www.youtube.com": true,
	"m.youtube.com":   true,
	"youtu.be":        true,
}

// allowedQueryParams are the only query parameters carried into the
// canonical output. Anything else is dropped, never propagated.
var allowedQueryParams = map[string]bool{
	"v":     true,
	"t":     true,
	"list":  true,
	"index": true,
	"start": true,
}

var (
	// videoIDPattern matches a YouTube video identifier: exactly 11
	// characters of alphanumerics, underscore, or hyphen.
	videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

	// safeValuePattern matches query parameter values that are safe to
	// forward: no punctuation, no percent-encoded payloads.
	safeValuePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// maliciousPatterns are cheap, high-confidence rejection signals checked on
// the lowercased raw input before structural parsing. A structural parser
// might normalize or tolerate these; they never get that far.
var maliciousPatterns = []string{
	"../",
	"./",
	"%2e%2e",
	"%2e%2f",
	"<script",
	"javascript:",
	"data:",
	"file:",
	"ftp:",
}

// Validate checks a raw, untrusted string claiming to be a YouTube video
// URL and returns its canonical form, or an error wrapping ErrInvalidURL.
//
// The canonical form is always https, always www.youtube.com, always the
// /watch path, with the validated video ID in the v parameter and any
// allow-listed extra parameters sorted by name. Feeding a canonical URL
// back through Validate returns it unchanged.
func Validate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url must be a non-empty string", ErrInvalidURL)
	}

	lower := strings.ToLower(raw)
	for _, pattern := range maliciousPatterns {
		if strings.Contains(lower, pattern) {
			return "", fmt.Errorf("%w: contains potentially malicious pattern %q", ErrInvalidURL, pattern)
		}
	}

	// Embedded credentials (user:pass@host) must never reach a downstream
	// API. Check the portion before the scheme separator, or the whole
	// string when no separator is present.
	prefix := raw
	if idx := strings.Index(raw, "://"); idx >= 0 {
		prefix = raw[:idx]
	}
	if strings.Contains(prefix, "@") {
		return "", fmt.Errorf("%w: must not contain authentication credentials", ErrInvalidURL)
	}

	parsed, err := neturl.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse: %v", ErrInvalidURL, err)
	}

	if parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: only HTTPS URLs are allowed, got scheme %q", ErrInvalidURL, parsed.Scheme)
	}

	host := strings.ToLower(parsed.Host)
	if !allowedHosts[host] {
		return "", fmt.Errorf("%w: domain %q is not an allowed YouTube host", ErrInvalidURL, host)
	}

	videoID, err := extractVideoID(host, parsed)
	if err != nil {
		return "", err
	}

	if !videoIDPattern.MatchString(videoID) {
		return "", fmt.Errorf("%w: invalid video ID %q: must be exactly 11 alphanumeric characters, underscores, or hyphens", ErrInvalidURL, videoID)
	}

	// Keep only allow-listed parameters with safe values, first value only.
	safe := neturl.Values{}
	if parsed.RawQuery != "" {
		for name, values := range parsed.Query() {
			if !allowedQueryParams[name] || len(values) == 0 {
				continue
			}
			if safeValuePattern.MatchString(values[0]) {
				safe.Set(name, values[0])
			}
		}
	}

	// The validated ID always wins over any v passed through above.
	safe.Set("v", videoID)

	canonical := neturl.URL{
		Scheme:   "https",
		Host:     CanonicalHost,
		Path:     "/watch",
		RawQuery: safe.Encode(), // Encode sorts by parameter name
	}
	return canonical.String(), nil
}

// extractVideoID pulls the candidate video identifier out of the parsed
// URL. The shape depends on the host variant: youtu.be carries the ID as
// the sole path segment, the full hosts use /watch?v= or /embed/<id>.
func extractVideoID(host string, parsed *neturl.URL) (string, error) {
	if host == "youtu.be" {
		parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		if len(parts) != 1 || parts[0] == "" {
			return "", fmt.Errorf("%w: invalid youtu.be format, expected https://youtu.be/VIDEO_ID", ErrInvalidURL)
		}
		return parts[0], nil
	}

	switch {
	case strings.HasPrefix(parsed.Path, "/watch"):
		values := parsed.Query()["v"]
		if len(values) == 0 || values[0] == "" {
			return "", fmt.Errorf("%w: missing v parameter in watch URL", ErrInvalidURL)
		}
		return values[0], nil

	case strings.HasPrefix(parsed.Path, "/embed/"):
		parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		if len(parts) != 2 || parts[0] != "embed" || parts[1] == "" {
			return "", fmt.Errorf("%w: invalid embed URL format", ErrInvalidURL)
		}
		return parts[1], nil

	default:
		return "", fmt.Errorf("%w: unrecognized path, expected /watch?v=... or /embed/...", ErrInvalidURL)
	}
}

// ExtractVideoID validates raw and returns just the 11-character video
// identifier. Useful as a cache key: the ID alphabet is filesystem-safe.
func ExtractVideoID(raw string) (string, error) {
	canonical, err := Validate(raw)
	if err != nil {
		return "", err
	}
	parsed, err := neturl.Parse(canonical)
	if err != nil {
		return "", fmt.Errorf("%w: failed to re-parse canonical URL: %v", ErrInvalidURL, err)
	}
	return parsed.Query().Get("v"), nil
}

// ValidateRequestBody checks that a decoded JSON request body is an object
// carrying a non-empty string "url" field, and returns that raw value. The
// value itself still has to pass Validate.
func ValidateRequestBody(body map[string]any) (string, error) {
	if body == nil {
		return "", fmt.Errorf("%w: request body must be a JSON object", ErrInvalidURL)
	}

	value, ok := body["url"]
	if !ok {
		return "", fmt.Errorf("%w: missing url field in request body", ErrInvalidURL)
	}

	raw, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: url field must be a string", ErrInvalidURL)
	}
	if raw == "" {
		return "", fmt.Errorf("%w: url field cannot be empty", ErrInvalidURL)
	}

	return raw, nil
}
