package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/shlex"
)

// writeJSON encodes v to stdout, indented.
func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printHeader prints a bold title and a rule sized to the terminal.
func printHeader(title string) {
	fmt.Printf("%s%s%s\n", colorBold, title, colorReset)
	fmt.Println(strings.Repeat("-", min(terminalWidth(), 40)))
}

// splitList parses a list flag. Items are separated by commas outside
// quotes, or by whitespace when the value has no such comma:
//
//	--files "src/app.tsx 'src/my file.ts'"     ->  [src/app.tsx, src/my file.ts]
//	--issues "flaky e2e,'needs staging db'"   ->  [flaky e2e, needs staging db]
func splitList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts, err := splitOutsideQuotes(raw, ',')
	if err != nil {
		return nil, fmt.Errorf("invalid list %q: %w", raw, err)
	}
	if len(parts) == 1 {
		items, err := shlex.Split(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid list %q: %w", raw, err)
		}
		return nonEmpty(items), nil
	}

	items := make([]string, 0, len(parts))
	for _, part := range parts {
		words, err := shlex.Split(part)
		if err != nil {
			return nil, fmt.Errorf("invalid list %q: %w", raw, err)
		}
		items = append(items, strings.Join(words, " "))
	}
	return nonEmpty(items), nil
}

// splitOutsideQuotes splits s on sep, ignoring separators inside single
// or double quotes.
func splitOutsideQuotes(s string, sep rune) ([]string, error) {
	var (
		parts []string
		quote rune
		start int
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	return append(parts, s[start:]), nil
}

func nonEmpty(items []string) []string {
	out := items[:0]
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// truncate shortens s to n runes with a trailing ellipsis.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n || n < 2 {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatBool(b bool) string {
	if b {
		return colorGreen + "yes" + colorReset
	}
	return colorDim + "no" + colorReset
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func orDash(s string) string {
	if s == "" {
		return colorDim + "-" + colorReset
	}
	return s
}
