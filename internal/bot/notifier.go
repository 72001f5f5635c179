package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/avelichko/focusbot/internal/domain"
)

// CompletionNotifier adapts a Messenger to the focus service's Notifier.
// Tick updates edit one countdown message per user instead of flooding the
// chat; the completion message is always a fresh send.
type CompletionNotifier struct {
	msgr Messenger

	mu        sync.Mutex
	countdown map[string]string // userID -> messageID of the live countdown
}

// NewCompletionNotifier wraps a Messenger.
func NewCompletionNotifier(msgr Messenger) *CompletionNotifier {
	return &CompletionNotifier{msgr: msgr, countdown: make(map[string]string)}
}

func (n *CompletionNotifier) SessionTick(ctx context.Context, userID string, s *domain.FocusSession, remainingMinutes int) error {
	var text string
	switch s.Type {
	case domain.SessionShortBreak, domain.SessionLongBreak:
		text = fmt.Sprintf("Перерыв: осталось %d мин.", remainingMinutes)
	default:
		text = fmt.Sprintf("Фокус: осталось %d мин.", remainingMinutes)
	}

	n.mu.Lock()
	messageID, ok := n.countdown[userID]
	n.mu.Unlock()

	if ok {
		if err := n.msgr.Edit(ctx, userID, messageID, text); err == nil {
			return nil
		}
		// The message may have been deleted; fall through to a fresh send.
	}
	messageID, err := n.msgr.Send(ctx, userID, text)
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.countdown[userID] = messageID
	n.mu.Unlock()
	return nil
}

func (n *CompletionNotifier) SessionCompleted(ctx context.Context, userID string, s *domain.FocusSession) error {
	n.mu.Lock()
	delete(n.countdown, userID)
	n.mu.Unlock()

	var text string
	switch s.Type {
	case domain.SessionShortBreak, domain.SessionLongBreak:
		text = "Перерыв окончен. Готовы к следующей сессии? /focus start"
	default:
		text = fmt.Sprintf("Сессия завершена: %d минут фокуса. Отличная работа!", s.DurationMinutes)
	}
	_, err := n.msgr.Send(ctx, userID, text)
	return err
}
