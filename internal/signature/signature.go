// Package signature computes stable content-addressed keys for error messages.
// Errors that differ only in numbers, quoting or whitespace map to the same key.
package signature

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

// NumPlaceholder replaces every maximal run of digits.
const NumPlaceholder = "<num>"

var (
	digitRun   = regexp.MustCompile(`[0-9]+`)
	whitespace = regexp.MustCompile(`\s+`)

	quoteStripper = strings.NewReplacer(
		`'`, "",
		`"`, "",
		"‘", "",
		"’", "",
		"“", "",
		"”", "",
	)
)

// Normalize lowercases the message, collapses digit runs to NumPlaceholder,
// strips straight and curly quotes and collapses whitespace.
func Normalize(message string) string {
	s := strings.ToLower(message)
	s = digitRun.ReplaceAllString(s, NumPlaceholder)
	s = quoteStripper.Replace(s)
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Key returns the normalized form that is hashed: the normalized message,
// prefixed with "code:" when an error code is given.
func Key(message, code string) string {
	norm := Normalize(message)
	if code != "" {
		return code + ":" + norm
	}
	return norm
}

// Compute returns the MD5 hex digest of Key(message, code).
func Compute(message, code string) string {
	sum := md5.Sum([]byte(Key(message, code)))
	return hex.EncodeToString(sum[:])
}
