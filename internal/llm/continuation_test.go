package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteDayObjects_TruncatedTail(t *testing.T) {
	raw := `{"days":[{"day":1,"tasks":[{"time":"09:00","activity":"Теория"}]},{"day":2,"tasks":[{"time":"09:00","activity":"Практика"}]},{"day":3,"tasks":[{"time":"09`

	days, lastDay, ok := completeDayObjects(raw)

	require.True(t, ok)
	require.Len(t, days, 2)
	assert.Equal(t, 2, lastDay)
	assert.Contains(t, days[0], `"day":1`)
	assert.Contains(t, days[1], `"day":2`)
}

func TestCompleteDayObjects_CompleteDocument(t *testing.T) {
	raw := `{"days": [ {"day": 1, "tasks": []}, {"day": 2, "tasks": []} ]}`

	days, lastDay, ok := completeDayObjects(raw)

	require.True(t, ok)
	assert.Len(t, days, 2)
	assert.Equal(t, 2, lastDay)
}

func TestCompleteDayObjects_NoDaysArray(t *testing.T) {
	_, _, ok := completeDayObjects(`{"plan": "text"}`)
	assert.False(t, ok)

	_, _, ok = completeDayObjects(`не JSON вовсе`)
	assert.False(t, ok)
}

func TestCompleteDayObjects_BracesInsideStrings(t *testing.T) {
	raw := `{"days":[{"day":1,"tasks":[{"time":"09:00","activity":"Скобки } в { тексте"}]}]}`

	days, lastDay, ok := completeDayObjects(raw)

	require.True(t, ok)
	require.Len(t, days, 1)
	assert.Equal(t, 1, lastDay)
}

func TestSpliceDays(t *testing.T) {
	first := []string{`{"day":1}`, `{"day":2}`}
	second := []string{`{"day":3}`}

	assert.Equal(t, `{"days": [{"day":1}, {"day":2}, {"day":3}]}`, spliceDays(first, second))
	assert.Equal(t, `{"days": [{"day":1}, {"day":2}]}`, spliceDays(first, nil))
	assert.Equal(t, `{"days": [{"day":3}]}`, spliceDays(nil, second))
	assert.Equal(t, `{"days": []}`, spliceDays(nil, nil))
}

func TestContinuationPrompt(t *testing.T) {
	req := JSONRequest{UserPrompt: "составь план", TotalDays: 14}

	prompt := continuationPrompt(req, 6)

	assert.Contains(t, prompt, "after day 6")
	assert.Contains(t, prompt, "days 7 through 14")
	assert.Contains(t, prompt, "составь план")
}
