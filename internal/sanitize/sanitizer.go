package sanitize

// Sanitizer applies redaction rules in order.
type Sanitizer struct {
	rules []Rule
}

// New returns a Sanitizer with the default rules.
func New() *Sanitizer {
	return &Sanitizer{rules: DefaultRules()}
}

// NewWithRules returns a Sanitizer with custom rules.
func NewWithRules(rules []Rule) *Sanitizer {
	return &Sanitizer{rules: rules}
}

// Sanitize returns input with every rule applied.
func (s *Sanitizer) Sanitize(input string) string {
	if input == "" {
		return input
	}
	for _, r := range s.rules {
		input = r.apply(input)
	}
	return input
}

func (r Rule) apply(input string) string {
	if r.Accept == nil {
		return r.Regex.ReplaceAllString(input, r.Replacement)
	}
	matches := r.Regex.FindAllStringSubmatchIndex(input, -1)
	if matches == nil {
		return input
	}
	var (
		out  []byte
		last int
	)
	for _, m := range matches {
		if !r.accepts(input, m) {
			continue
		}
		out = append(out, input[last:m[0]]...)
		out = r.Regex.ExpandString(out, r.Replacement, input, m)
		last = m[1]
	}
	return string(append(out, input[last:]...))
}

// accepts applies Accept to the last capture group of match m.
func (r Rule) accepts(input string, m []int) bool {
	g := len(m) - 2
	if m[g] < 0 {
		return false
	}
	return r.Accept(input[m[g]:m[g+1]])
}

// Matches returns the names of the rules that fire on input.
func (s *Sanitizer) Matches(input string) []string {
	var names []string
	for _, r := range s.rules {
		if r.matches(input) {
			names = append(names, r.Name)
		}
	}
	return names
}

func (r Rule) matches(input string) bool {
	if r.Accept == nil {
		return r.Regex.MatchString(input)
	}
	for _, m := range r.Regex.FindAllStringSubmatchIndex(input, -1) {
		if r.accepts(input, m) {
			return true
		}
	}
	return false
}

// SanitizeMap returns a copy of m with every value sanitized. Keys are kept.
func (s *Sanitizer) SanitizeMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = s.Sanitize(v)
	}
	return out
}
