package extract

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const maxLineSize = 1 << 20

// logRecord is one line of a JSON-lines error log as written by
// application-side error hooks.
type logRecord struct {
	Timestamp string         `json:"timestamp"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context"`
	Traceback string         `json:"traceback"`
}

// LooksLikeJSONLines reports whether data starts with a JSON object.
func LooksLikeJSONLines(data []byte) bool {
	data = bytes.TrimLeft(data, " \t\r\n")
	return len(data) > 0 && data[0] == '{'
}

// JSONLines reads an error log with one JSON object per line. Records
// without a message are skipped; malformed lines are an error.
func JSONLines(r io.Reader) ([]Finding, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		out    []Finding
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec logRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if f, ok := rec.finding(); ok {
			out = append(out, f)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read error log: %w", err)
	}
	return out, nil
}

func (rec logRecord) finding() (Finding, bool) {
	f := Finding{
		Pattern: "jsonl",
		Code:    rec.Type,
		Message: Clean(rec.Message),
		Stack:   strings.TrimRight(rec.Traceback, "\n"),
	}
	if f.Message == "" {
		return f, false
	}
	if frames := pyFrameRe.FindAllStringSubmatch(f.Stack, -1); len(frames) > 0 {
		last := frames[len(frames)-1]
		f.File, f.Line = last[1], atoi(last[2])
	}

	if len(rec.Context) > 0 || rec.Timestamp != "" {
		f.Attrs = make(map[string]string, len(rec.Context)+1)
		for k, v := range rec.Context {
			f.Attrs[k] = stringify(v)
		}
		if rec.Timestamp != "" {
			f.Attrs["logged_at"] = rec.Timestamp
		}
	}
	return f, true
}

func stringify(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
