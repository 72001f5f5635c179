package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParse indicates LLM output could not be repaired into plan JSON.
var ErrParse = errors.New("plan json parse failed")

// ParseError carries the offending slice of text that defeated every
// repair stage.
type ParseError struct {
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("plan json parse failed near %q: %v", e.Snippet, e.Err)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// ParsePlanJSON parses untrusted LLM output into a PlanJSON. Repair stages
// are applied cumulatively in a fixed order; each stage only runs when the
// text still fails to parse. The result is not yet schema-validated.
func ParsePlanJSON(text string) (*PlanJSON, error) {
	stages := []func(string) string{
		unwrapJSON,
		normalizeQuotes,
		removeEllipses,
		stripTrailingCommas,
		quoteBareKeys,
		balanceBrackets,
	}

	s := text
	p, lastErr := tryParse(s)
	if lastErr == nil {
		return p, nil
	}
	for _, stage := range stages {
		s = stage(s)
		if p, lastErr = tryParse(s); lastErr == nil {
			return p, nil
		}
	}
	return nil, &ParseError{Snippet: snippet(s), Err: lastErr}
}

func tryParse(s string) (*PlanJSON, error) {
	var p PlanJSON
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// unwrapJSON strips markdown code fences and trims the text to the substring
// between the first '{' and the last '}'.
func unwrapJSON(s string) string {
	lines := strings.Split(s, "\n")
	var kept []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	s = strings.Join(kept, "\n")

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, // “ ”
	"„", `"`, "‟", `"`, // „ ‟
	"«", `"`, "»", `"`, // « »
	"‘", "'", "’", "'", // ‘ ’
	"\uFEFF", "", // BOM
	"\r\n", "\n",
	"\r", "\n",
)

// normalizeQuotes replaces typographic quotes with ASCII ones and removes
// BOM and CR artifacts.
func normalizeQuotes(s string) string {
	return quoteReplacer.Replace(s)
}

var (
	// standalone ellipsis as the last array/object item: ", ..." before a closer
	trailingEllipsisRe = regexp.MustCompile(`,\s*(?:\.\.\.|\x{2026})\s*([\]\}])`)
	// standalone ellipsis between items or right after an opener
	innerEllipsisRe = regexp.MustCompile(`([\[\{,]\s*)(?:\.\.\.|\x{2026})\s*,`)
	// bare ellipsis as an object value: quote it
	valueEllipsisRe = regexp.MustCompile(`:\s*(?:\.\.\.|\x{2026})\s*([,\}\]])`)
)

// removeEllipses elides standalone "..." items the model uses to abbreviate
// lists, and quotes bare ellipses used as values.
func removeEllipses(s string) string {
	s = trailingEllipsisRe.ReplaceAllString(s, "$1")
	s = innerEllipsisRe.ReplaceAllString(s, "$1")
	s = valueEllipsisRe.ReplaceAllString(s, `: "..."$1`)
	return s
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// stripTrailingCommas removes trailing commas before } or ].
func stripTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// quoteBareKeys wraps bare identifiers on the left of ':' in double quotes,
// respecting string state so values containing colons are untouched.
func quoteBareKeys(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	escaped := false
	expectKey := false // just saw '{' or ',' at object level

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if escaped {
			b.WriteByte(ch)
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			b.WriteByte(ch)
			escaped = true
			continue
		}
		if ch == '"' {
			b.WriteByte(ch)
			inString = !inString
			expectKey = false
			continue
		}
		if inString {
			b.WriteByte(ch)
			continue
		}

		switch {
		case ch == '{' || ch == ',':
			expectKey = true
			b.WriteByte(ch)
		case ch == ' ' || ch == '\n' || ch == '\t':
			b.WriteByte(ch)
		case expectKey && isIdentStart(ch):
			j := i
			for j < len(s) && isIdentChar(s[j]) {
				j++
			}
			// Only a bare identifier directly followed by ':' is a key.
			k := j
			for k < len(s) && (s[k] == ' ' || s[k] == '\t') {
				k++
			}
			if k < len(s) && s[k] == ':' {
				b.WriteByte('"')
				b.WriteString(s[i:j])
				b.WriteByte('"')
				i = j - 1
			} else {
				b.WriteString(s[i:j])
				i = j - 1
			}
			expectKey = false
		default:
			expectKey = false
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

// balanceBrackets appends missing closers in correct nesting order and
// inserts a ']' before a stray '}' that closes an open array.
func balanceBrackets(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if escaped {
			b.WriteByte(ch)
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			b.WriteByte(ch)
			escaped = true
			continue
		}
		if ch == '"' {
			b.WriteByte(ch)
			inString = !inString
			continue
		}
		if inString {
			b.WriteByte(ch)
			continue
		}

		switch ch {
		case '{', '[':
			stack = append(stack, ch)
			b.WriteByte(ch)
		case '}':
			// A '}' while an array is open means the model forgot ']'.
			for len(stack) > 0 && stack[len(stack)-1] == '[' {
				b.WriteByte(']')
				stack = stack[:len(stack)-1]
			}
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
			b.WriteByte(ch)
		case ']':
			for len(stack) > 0 && stack[len(stack)-1] == '{' {
				b.WriteByte('}')
				stack = stack[:len(stack)-1]
			}
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
			b.WriteByte(ch)
		default:
			b.WriteByte(ch)
		}
	}

	// Close whatever is still open, innermost first.
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

func snippet(s string) string {
	const max = 160
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
