package fetch

import (
	"errors"
)

// Sentinel errors for content fetching operations, shared by
// internal/crawler's article fetch path and internal/infra/fetcher's URL
// validation.
// These errors allow callers to distinguish between different failure modes
// and implement appropriate fallback strategies.
var (
	// ErrInvalidURL indicates the URL format is invalid or uses an unsupported scheme.
	// Only http:// and https:// schemes are supported.
	//
	// Example:
	//   - "not-a-url" → ErrInvalidURL
	//   - "file:///etc/passwd" → ErrInvalidURL
	//   - "ftp://example.com" → ErrInvalidURL
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP indicates the URL resolves to a private IP address.
	// This error prevents Server-Side Request Forgery (SSRF) attacks.
	//
	// Blocked IP ranges:
	//   - 127.0.0.0/8 (loopback)
	//   - 10.0.0.0/8 (private)
	//   - 172.16.0.0/12 (private)
	//   - 192.168.0.0/16 (private)
	//   - 169.254.0.0/16 (link-local)
	//   - ::1 (IPv6 loopback)
	//   - fc00::/7 (IPv6 private)
	//   - fe80::/10 (IPv6 link-local)
	//
	// Example:
	//   - "http://localhost" → ErrPrivateIP
	//   - "http://192.168.1.1" → ErrPrivateIP
	//   - "http://10.0.0.1" → ErrPrivateIP
	ErrPrivateIP = errors.New("private IP access denied (SSRF prevention)")

	// ErrTooManyRedirects indicates the redirect chain exceeded the configured maximum.
	// This prevents infinite redirect loops and redirect-based attacks.
	//
	// Example:
	//   - URL redirects 6 times when max is 5 → ErrTooManyRedirects
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response body exceeded the size limit.
	// This prevents memory exhaustion attacks from oversized responses.
	//
	// Example:
	//   - Response is 15MB when max is 10MB → ErrBodyTooLarge
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates the request exceeded the configured timeout.
	// This prevents resource starvation from slow or unresponsive servers.
	//
	// Example:
	//   - Request takes 15s when timeout is 10s → ErrTimeout
	ErrTimeout = errors.New("request timeout")

	// ErrReadabilityFailed indicates content extraction failed.
	// This can occur when:
	//   - HTML structure is invalid or cannot be parsed
	//   - No article content found (page has no readable text)
	//   - Extraction algorithm failed
	//
	// Callers should fall back to RSS content when this error occurs.
	ErrReadabilityFailed = errors.New("content extraction failed")
)
