package bot

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
)

// ConsoleMessenger writes replies to a local stream. It stands in for a chat
// transport during development and in tests; message ids are a local counter.
type ConsoleMessenger struct {
	mu   sync.Mutex
	out  io.Writer
	next int
}

// NewConsoleMessenger creates a messenger writing to out.
func NewConsoleMessenger(out io.Writer) *ConsoleMessenger {
	return &ConsoleMessenger{out: out}
}

func (m *ConsoleMessenger) Send(ctx context.Context, userID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := strconv.Itoa(m.next)
	_, err := fmt.Fprintf(m.out, "[%s] %s\n", userID, text)
	return id, err
}

func (m *ConsoleMessenger) Edit(ctx context.Context, chatID, messageID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := fmt.Fprintf(m.out, "[%s:%s] %s\n", chatID, messageID, text)
	return err
}
