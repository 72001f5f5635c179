package llm

import (
	"fmt"
	"io"
	"time"
)

// CallEvent records metadata about a single chat-completion invocation.
type CallEvent struct {
	Op           string
	Model        string
	LatencyMs    int64
	Success      bool
	ErrorCode    string
	FinishReason string
	TokensUsed   int
}

// Observer receives events about LLM calls for logging and metrics.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// LogObserver writes LLM call events to an io.Writer.
type LogObserver struct {
	w io.Writer
}

// NewLogObserver creates an Observer that logs events to w.
func NewLogObserver(w io.Writer) *LogObserver {
	return &LogObserver{w: w}
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	ts := time.Now().UTC().Format(time.RFC3339)
	status := "ok"
	if !event.Success {
		status = "err:" + event.ErrorCode
	}
	fmt.Fprintf(o.w, "[%s] llm_call op=%s model=%s latency_ms=%d finish=%s tokens=%d status=%s\n",
		ts, event.Op, event.Model, event.LatencyMs, event.FinishReason, event.TokensUsed, status)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}
