// Package yturl validates and canonicalizes YouTube video URLs.
//
// It accepts the small closed grammar of YouTube video links (watch, embed,
// and youtu.be short links) and turns any accepted input into a single
// canonical form:
//
//	https://www.youtube.com/watch?v=<VIDEO_ID>
//
// plus a sorted, allow-listed set of extra query parameters. Everything
// else is rejected before any downstream service sees the value.
//
// # Usage
//
//	canonical, err := yturl.Validate(raw)
//	if err != nil {
//		// errors.Is(err, yturl.ErrInvalidURL) is always true here
//		return err
//	}
//
// # Validation Rules
//
// Validate enforces, in order:
//   - input must be a non-empty string after trimming whitespace
//   - the raw string must not contain traversal or injection patterns
//     (../, ./, %2e%2e, %2e%2f, <script, javascript:, data:, file:, ftp:)
//   - no embedded credentials (an @ before the scheme separator)
//   - the URL must parse under RFC 3986 rules (net/url)
//   - scheme must be exactly https
//   - host must be one of youtube.com, www.youtube.com, m.youtube.com,
//     youtu.be
//   - a video ID must be extractable from the path or query and match
//     ^[A-Za-z0-9_-]{11}$
//
// Query parameters outside the allow-list (v, t, list, index, start), or
// whose values contain anything beyond [A-Za-z0-9_-], are silently dropped
// from the canonical output.
//
// # Security Considerations
//
// The pre-parse substring checks are deliberately coarse: a benign URL
// containing an encoded "data:" substring is rejected. That trade is
// intentional; the validator sits in front of outbound API calls and
// prefers false positives over letting an ambiguous input through.
//
// Validate is a pure function with no shared state and is safe for
// concurrent use.
package yturl
