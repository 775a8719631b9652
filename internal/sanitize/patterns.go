// Package sanitize redacts credentials from error text before it is written
// to project memory. Matching is best effort.
package sanitize

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

// Rule is one redaction: every match of Regex is replaced with Replacement,
// which may reference capture groups. When Accept is set, a match is only
// replaced if Accept returns true for its last capture group.
type Rule struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Accept      func(value string) bool
}

// defaultRules cover credentials that commonly leak into build output,
// stack traces and connection errors. Key Assignment runs last, skips
// values that are already placeholders and leaves short or plain-word values
// such as "token: '}'" alone.
var defaultRules = []Rule{
	{
		Name:        "PEM Block",
		Regex:       regexp.MustCompile(`-----BEGIN [A-Z ]+-----[\s\S]+?-----END [A-Z ]+-----`),
		Replacement: "[PEM_BLOCK_REDACTED]",
	},
	{
		Name:        "URL Credentials",
		Regex:       regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://[^:@/\s]+):[^@/\s]+@`),
		Replacement: "$1:[REDACTED]@",
	},
	{
		Name:        "AWS Access Key",
		Regex:       regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
		Replacement: "[AWS_ACCESS_KEY_REDACTED]",
	},
	{
		Name:        "JWT",
		Regex:       regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`),
		Replacement: "[JWT_REDACTED]",
	},
	{
		Name:        "GitHub Token",
		Regex:       regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,}`),
		Replacement: "[GITHUB_TOKEN_REDACTED]",
	},
	{
		Name:        "npm Token",
		Regex:       regexp.MustCompile(`npm_[A-Za-z0-9]{36}`),
		Replacement: "[NPM_TOKEN_REDACTED]",
	},
	{
		Name:        "Slack Token",
		Regex:       regexp.MustCompile(`xox[baprs]-[0-9a-zA-Z-]+`),
		Replacement: "[SLACK_TOKEN_REDACTED]",
	},
	{
		Name:        "Stripe Key",
		Regex:       regexp.MustCompile(`(?:sk|rk)_(?:live|test)_[A-Za-z0-9]{16,}`),
		Replacement: "[STRIPE_KEY_REDACTED]",
	},
	{
		Name:        "Bearer Token",
		Regex:       regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/-]{20,}=*`),
		Replacement: "Bearer [TOKEN_REDACTED]",
	},
	{
		Name:        "Basic Auth",
		Regex:       regexp.MustCompile(`(?i)basic\s+[A-Za-z0-9+/=]{20,}`),
		Replacement: "Basic [CREDENTIALS_REDACTED]",
	},
	{
		Name:        "Key Assignment",
		Regex:       regexp.MustCompile(`(?i)\b([a-z0-9_]*(?:password|passwd|secret|token|api_?key|private_?key|access_?key))(["']?\s*[=:]\s*["']?)([^\s"',;\[][^\s"',;]*)`),
		Replacement: "$1$2[REDACTED]",
		Accept:      looksSecret,
	},
}

const (
	minSecretLen   = 8
	longSecretLen  = 20
	minSecretMixes = 2
)

// looksSecret reports whether an assigned value could be a credential:
// at least minSecretLen runes drawn from two or more character classes
// (lower, upper, digit, symbol), or any value of longSecretLen runes.
func looksSecret(value string) bool {
	n := utf8.RuneCountInString(value)
	if n < minSecretLen {
		return false
	}
	if n >= longSecretLen {
		return true
	}
	var lower, upper, digit, symbol int
	for _, r := range value {
		switch {
		case unicode.IsLower(r):
			lower = 1
		case unicode.IsUpper(r):
			upper = 1
		case unicode.IsDigit(r):
			digit = 1
		default:
			symbol = 1
		}
	}
	return lower+upper+digit+symbol >= minSecretMixes
}

// DefaultRules returns a copy of the built-in rules.
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}
