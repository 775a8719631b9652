// Package extract pulls error reports out of build, test and runtime output
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Finding is one error found in captured output.
type Finding struct {
	Pattern string            `json:"pattern"`
	File    string            `json:"file,omitempty"`
	Line    int               `json:"line,omitempty"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Stack   string            `json:"stack,omitempty"`
	Attrs   map[string]string `json:"attributes,omitempty"`
}

// Pattern recognizes one output format. Build turns a submatch slice into a
// Finding; it returns false to reject the match.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
	Build func(m []string) (Finding, bool)
}

var (
	pyFrameRe   = regexp.MustCompile(`File "([^"]+)", line (\d+)`)
	nodeFrameRe = regexp.MustCompile(`\(?((?:[A-Za-z]:)?[^\s():]+):(\d+):\d+\)?\s*$`)
)

// Patterns contains all extraction patterns. Overlapping matches are
// resolved by position, then by order in this list.
var Patterns = []Pattern{
	{
		// src/app.ts(12,5): error TS2304: Cannot find name 'foo'.
		Name:  "tsc",
		Regex: regexp.MustCompile(`(?m)^(\S+?\.[cm]?[jt]sx?)\((\d+),\d+\): error (TS\d+): (.+)$`),
		Build: func(m []string) (Finding, bool) {
			return Finding{File: m[1], Line: atoi(m[2]), Code: m[3], Message: m[4]}, true
		},
	},
	{
		// src/app.ts:12:5 - error TS2304: Cannot find name 'foo'.
		Name:  "tsc-pretty",
		Regex: regexp.MustCompile(`(?m)^(\S+?\.[cm]?[jt]sx?):(\d+):\d+ - error (TS\d+): (.+)$`),
		Build: func(m []string) (Finding, bool) {
			return Finding{File: m[1], Line: atoi(m[2]), Code: m[3], Message: m[4]}, true
		},
	},
	{
		// error[E0425]: cannot find value `x` in this scope
		//   --> src/main.rs:2:13
		Name:  "rustc",
		Regex: regexp.MustCompile(`(?m)^error\[(E\d{4})\]: (.+)\n\s*--> ([^:\s]+):(\d+):\d+`),
		Build: func(m []string) (Finding, bool) {
			return Finding{File: m[3], Line: atoi(m[4]), Code: m[1], Message: m[2]}, true
		},
	},
	{
		// Traceback (most recent call last): ... ValueError: bad input
		Name:  "python",
		Regex: regexp.MustCompile(`(?ms)^Traceback \(most recent call last\):\n(.*?)^([A-Za-z_][\w.]*(?:Error|Exception|Exit|Interrupt|Warning)): ?([^\n]*)$`),
		Build: func(m []string) (Finding, bool) {
			f := Finding{Code: lastSegment(m[2]), Message: m[3], Stack: strings.TrimRight(m[1], "\n")}
			if f.Message == "" {
				f.Message = m[2]
			}
			if frames := pyFrameRe.FindAllStringSubmatch(m[1], -1); len(frames) > 0 {
				last := frames[len(frames)-1]
				f.File, f.Line = last[1], atoi(last[2])
			}
			return f, true
		},
	},
	{
		// TypeError: Cannot read properties of undefined
		//     at render (/app/src/page.js:10:5)
		Name:  "node",
		Regex: regexp.MustCompile(`(?m)^(?:Uncaught )?([A-Z]\w*Error|Error): (.+)\n((?:[ \t]+at .+(?:\n|$))+)`),
		Build: func(m []string) (Finding, bool) {
			f := Finding{Code: m[1], Message: m[2], Stack: strings.TrimRight(m[3], "\n")}
			for _, line := range strings.Split(f.Stack, "\n") {
				if strings.Contains(line, "node_modules") || strings.Contains(line, "node:internal") {
					continue
				}
				if fm := nodeFrameRe.FindStringSubmatch(line); fm != nil {
					f.File, f.Line = fm[1], atoi(fm[2])
					break
				}
			}
			return f, true
		},
	},
	{
		// ./main.go:12:5: undefined: foo
		Name:  "go",
		Regex: regexp.MustCompile(`(?m)^(\S+?\.go):(\d+):(?:\d+:)? (.+)$`),
		Build: func(m []string) (Finding, bool) {
			return Finding{File: m[1], Line: atoi(m[2]), Message: m[3]}, true
		},
	},
}

type match struct {
	start, end int
	order      int
	finding    Finding
}

// Errors returns every error found in output, in order of appearance.
// A region claimed by one pattern is not reported again by another.
func Errors(output string) []Finding {
	return ErrorsWithPatterns(output, Patterns)
}

// ErrorsWithPatterns is Errors with a custom pattern list.
func ErrorsWithPatterns(output string, patterns []Pattern) []Finding {
	output = strings.ReplaceAll(output, "\r\n", "\n")

	var matches []match
	for i, p := range patterns {
		for _, loc := range p.Regex.FindAllStringSubmatchIndex(output, -1) {
			m := make([]string, len(loc)/2)
			for g := range m {
				if loc[2*g] >= 0 {
					m[g] = output[loc[2*g]:loc[2*g+1]]
				}
			}
			f, ok := p.Build(m)
			if !ok {
				continue
			}
			f.Pattern = p.Name
			f.Message = Clean(f.Message)
			if f.Message == "" {
				continue
			}
			matches = append(matches, match{start: loc[0], end: loc[1], order: i, finding: f})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].start != matches[b].start {
			return matches[a].start < matches[b].start
		}
		return matches[a].order < matches[b].order
	})

	var (
		out     []Finding
		claimed = -1
	)
	for _, m := range matches {
		if m.start < claimed {
			continue
		}
		out = append(out, m.finding)
		claimed = m.end
	}
	return out
}

// Clean trims whitespace and a trailing colon from a message.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ":")
	return strings.TrimSpace(s)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
