package logging

import (
	"regexp"
)

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

var (
	// Matches the remote store access key passed as a query parameter or
	// header-style assignment: apikey=xxx, api_key=xxx, access_token=xxx.
	apiKeyPattern = regexp.MustCompile(`(?i)(apikey|api[_-]?key|access[_-]?token)=[A-Za-z0-9-_.]{8,}`)

	// Matches bearer tokens (JWTs: three base64url segments separated by dots).
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// Matches credentials embedded in URLs (user:pass@host).
	urlCredsPattern = regexp.MustCompile(`://[^:/\s]+:[^@/\s]+@[^/\s]+`)
)

// SanitizeURL removes the access key and any embedded credentials from a URL
// before it is logged.
func SanitizeURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	sanitized := apiKeyPattern.ReplaceAllString(rawURL, "${1}="+RedactedText)
	return urlCredsPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeError sanitizes error messages that might echo request URLs or
// authorization headers. Use this before logging any error from remote calls.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	sanitized := apiKeyPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	return urlCredsPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
