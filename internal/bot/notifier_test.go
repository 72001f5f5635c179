package bot

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelichko/focusbot/internal/domain"
)

type trackingMessenger struct {
	mu      sync.Mutex
	sends   []string
	edits   []string
	editErr error
}

func (m *trackingMessenger) Send(_ context.Context, _ string, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, text)
	return "msg-" + strconv.Itoa(len(m.sends)), nil
}

func (m *trackingMessenger) Edit(_ context.Context, _, messageID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editErr != nil {
		return m.editErr
	}
	m.edits = append(m.edits, messageID+": "+text)
	return nil
}

func workSession() *domain.FocusSession {
	return &domain.FocusSession{ID: "s1", UserID: "u1", Type: domain.SessionWork, DurationMinutes: 25}
}

func TestCompletionNotifier_TickEditsOneMessage(t *testing.T) {
	msgr := &trackingMessenger{}
	n := NewCompletionNotifier(msgr)
	ctx := context.Background()

	require.NoError(t, n.SessionTick(ctx, "u1", workSession(), 24))
	require.NoError(t, n.SessionTick(ctx, "u1", workSession(), 23))
	require.NoError(t, n.SessionTick(ctx, "u1", workSession(), 22))

	// One countdown message, then in-place updates.
	assert.Len(t, msgr.sends, 1)
	assert.Contains(t, msgr.sends[0], "осталось 24 мин")
	require.Len(t, msgr.edits, 2)
	assert.Contains(t, msgr.edits[0], "msg-1")
	assert.Contains(t, msgr.edits[1], "осталось 22 мин")
}

func TestCompletionNotifier_TickResendsWhenEditFails(t *testing.T) {
	msgr := &trackingMessenger{editErr: errors.New("message gone")}
	n := NewCompletionNotifier(msgr)
	ctx := context.Background()

	require.NoError(t, n.SessionTick(ctx, "u1", workSession(), 24))
	require.NoError(t, n.SessionTick(ctx, "u1", workSession(), 23))

	assert.Len(t, msgr.sends, 2)
}

func TestCompletionNotifier_CompletionStartsFreshCountdown(t *testing.T) {
	msgr := &trackingMessenger{}
	n := NewCompletionNotifier(msgr)
	ctx := context.Background()

	require.NoError(t, n.SessionTick(ctx, "u1", workSession(), 24))
	require.NoError(t, n.SessionCompleted(ctx, "u1", workSession()))

	// The next session's first tick must not edit the finished countdown.
	require.NoError(t, n.SessionTick(ctx, "u1", workSession(), 24))

	assert.Len(t, msgr.sends, 3)
	assert.Len(t, msgr.edits, 0)
	assert.Contains(t, msgr.sends[1], "Сессия завершена")
}

func TestCompletionNotifier_BreakTexts(t *testing.T) {
	msgr := &trackingMessenger{}
	n := NewCompletionNotifier(msgr)
	ctx := context.Background()

	b := &domain.FocusSession{ID: "b1", UserID: "u1", Type: domain.SessionShortBreak, DurationMinutes: 5}
	require.NoError(t, n.SessionTick(ctx, "u1", b, 4))
	require.NoError(t, n.SessionCompleted(ctx, "u1", b))

	assert.Contains(t, msgr.sends[0], "Перерыв")
	assert.Contains(t, msgr.sends[1], "Перерыв окончен")
}
