package downloader

import "strings"

const maxRawErrorLen = 200

type classifyRule struct {
	substrings []string
	message    string
}

// Rules are matched in order against the lowercased raw error, so the same
// input always classifies the same way.
var classifyRules = []classifyRule{
	{[]string{"404", "not found", "no longer available", "has been removed", "unavailable"}, "content is unavailable"},
	{[]string{"private", "login required", "401", "403", "no access", "requested content is not available"}, "content is private or requires access"},
	{[]string{"geo", "region", "country", "not available in your"}, "content is blocked in this region"},
	{[]string{"429", "rate limit", "too many requests"}, "source is rate-limiting downloads"},
	{[]string{"timeout", "timed out", "deadline exceeded", "connection reset", "connection refused", "no such host"}, "network timeout while downloading"},
	{[]string{"unsupported url", "unsupported format", "no video formats", "no extractor"}, "unsupported link or format"},
}

// ClassifyError maps a raw downloader error onto a user-meaningful category.
// Unrecognized errors are passed through truncated rather than dropped.
func ClassifyError(raw string) string {
	lowered := strings.ToLower(raw)
	for _, rule := range classifyRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lowered, sub) {
				return rule.message
			}
		}
	}
	if len(raw) > maxRawErrorLen {
		return raw[:maxRawErrorLen]
	}
	return raw
}
