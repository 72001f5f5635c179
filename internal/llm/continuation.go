package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var dayNumberRe = regexp.MustCompile(`"day"\s*:\s*(\d+)`)

// continueTruncated handles finish_reason=length: it keeps the complete day
// objects already received, asks the model for only the remaining days, and
// splices the two arrays. On any failure the complete prefix is returned so
// the repair step can still salvage a partial plan.
func (c *openAIClient) continueTruncated(ctx context.Context, req JSONRequest, first *JSONResult) *JSONResult {
	days, lastDay, ok := completeDayObjects(first.Text)
	if !ok || len(days) == 0 {
		return first
	}

	prefix := spliceDays(days, nil)

	cont, err := c.generateOnce(ctx, req, continuationPrompt(req, lastDay))
	if err != nil {
		first.Text = prefix
		return first
	}

	contDays, _, contOK := completeDayObjects(cont.Text)
	if !contOK || len(contDays) == 0 {
		first.Text = prefix
		first.TokensUsed += cont.TokensUsed
		return first
	}

	return &JSONResult{
		Text:         spliceDays(days, contDays),
		FinishReason: cont.FinishReason,
		TokensUsed:   first.TokensUsed + cont.TokensUsed,
		Model:        first.Model,
	}
}

func continuationPrompt(req JSONRequest, lastDay int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The previous JSON plan was cut off after day %d.\n", lastDay)
	b.WriteString("Continue the SAME plan without repeating earlier days.\n")
	if req.TotalDays > lastDay {
		fmt.Fprintf(&b, "Return ONLY a JSON object {\"days\": [...]} containing days %d through %d.\n", lastDay+1, req.TotalDays)
	} else {
		fmt.Fprintf(&b, "Return ONLY a JSON object {\"days\": [...]} containing the remaining days starting at day %d.\n", lastDay+1)
	}
	b.WriteString("\nOriginal request:\n")
	b.WriteString(req.UserPrompt)
	return b.String()
}

// completeDayObjects extracts every balanced object from the "days" array of
// raw, stopping at the first incomplete one. Returns the raw object slices
// and the highest day number seen.
func completeDayObjects(raw string) (days []string, lastDay int, ok bool) {
	idx := strings.Index(raw, `"days"`)
	if idx == -1 {
		return nil, 0, false
	}
	arrStart := strings.IndexByte(raw[idx:], '[')
	if arrStart == -1 {
		return nil, 0, false
	}

	i := idx + arrStart + 1
	for i < len(raw) {
		// Skip separators between elements.
		for i < len(raw) && (raw[i] == ' ' || raw[i] == '\n' || raw[i] == '\r' || raw[i] == '\t' || raw[i] == ',') {
			i++
		}
		if i >= len(raw) || raw[i] == ']' {
			break
		}
		if raw[i] != '{' {
			break
		}

		end, complete := scanBalancedObject(raw, i)
		if !complete {
			break
		}

		obj := raw[i : end+1]
		days = append(days, obj)
		if m := dayNumberRe.FindStringSubmatch(obj); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > lastDay {
				lastDay = n
			}
		}
		i = end + 1
	}

	if lastDay == 0 {
		lastDay = len(days)
	}
	return days, lastDay, len(days) > 0
}

// scanBalancedObject scans a {...} block starting at start, tracking string
// and escape state. Returns the index of the closing brace and whether the
// object was complete.
func scanBalancedObject(s string, start int) (end int, complete bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]

		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return len(s) - 1, false
}

// spliceDays rebuilds a {"days":[...]} document from raw day objects.
func spliceDays(first, second []string) string {
	var b strings.Builder
	b.WriteString(`{"days": [`)
	for i, obj := range first {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(obj)
	}
	for _, obj := range second {
		if b.Len() > len(`{"days": [`) {
			b.WriteString(", ")
		}
		b.WriteString(obj)
	}
	b.WriteString(`]}`)
	return b.String()
}
