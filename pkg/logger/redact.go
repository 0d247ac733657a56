package logger

import (
	"log/slog"
	"regexp"
	"strings"
)

var credentialPatterns = []struct {
	regex       *regexp.Regexp
	replacement string
}{
	{regex: regexp.MustCompile(`lin_(api|oauth)_[A-Za-z0-9]+`), replacement: "lin_$1_[redacted]"},
	{regex: regexp.MustCompile(`figd_[A-Za-z0-9_\-]+`), replacement: "figd_[redacted]"},
	{regex: regexp.MustCompile(`(?i)password=[^\s&]+`), replacement: "password=[redacted]"},
	{regex: regexp.MustCompile(`(?i)api_key=[^\s&]+`), replacement: "api_key=[redacted]"},
	{regex: regexp.MustCompile(`(?i)secret=[^\s&]+`), replacement: "secret=[redacted]"},
	{regex: regexp.MustCompile(`(?i)token=[^\s&]+`), replacement: "token=[redacted]"},
	{regex: regexp.MustCompile(`(?i)authorization:\s*bearer\s+[a-z0-9\-._~+/=]+`), replacement: "authorization: Bearer [redacted]"},
	{regex: regexp.MustCompile(`(?i)https?://[^:@\s]+:[^@\s]+@`), replacement: "http://[redacted]:[redacted]@"},
	{regex: regexp.MustCompile(`(?i)(password|secret|token)\s*"[^"]+"`), replacement: "$1\"[redacted]\""},
}

// sensitiveKeys are attribute keys whose values are never logged.
var sensitiveKeys = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"authorization": true,
	"token":         true,
	"password":      true,
	"secret":        true,
}

// SanitizeLine redacts credentials from a single log line or message.
func SanitizeLine(line string) string {
	for _, pattern := range credentialPatterns {
		line = pattern.regex.ReplaceAllString(line, pattern.replacement)
	}
	return line
}

// SanitizeLogLines performs minimal redaction on log lines for safe exposure
func SanitizeLogLines(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = SanitizeLine(l)
	}
	return out
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "[redacted]")
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, SanitizeLine(a.Value.String()))
	}
	return a
}
