// Package bot maps user commands onto the planner and focus services and
// replies through a pluggable messenger transport.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avelichko/focusbot/internal/domain"
	"github.com/avelichko/focusbot/internal/focus"
	"github.com/avelichko/focusbot/internal/onboarding"
	"github.com/avelichko/focusbot/internal/planner"
	"github.com/avelichko/focusbot/internal/repository"
)

// Messenger delivers text to a user. Implementations wrap a chat transport.
// Send returns the transport's id for the new message so callers can edit it
// later.
type Messenger interface {
	Send(ctx context.Context, userID, text string) (string, error)
	Edit(ctx context.Context, chatID, messageID, text string) error
}

// Dispatcher routes parsed commands to the services. Precondition failures
// become user-facing replies; unexpected errors are logged and answered with
// a generic message.
type Dispatcher struct {
	users     repository.UserRepo
	planner   *planner.Generator
	focus     *focus.Service
	questions *onboarding.Pack
	msgr      Messenger
	logger    *slog.Logger
}

// NewDispatcher wires a Dispatcher.
func NewDispatcher(users repository.UserRepo, gen *planner.Generator, svc *focus.Service, questions *onboarding.Pack, msgr Messenger, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		users:     users,
		planner:   gen,
		focus:     svc,
		questions: questions,
		msgr:      msgr,
		logger:    logger,
	}
}

// Dispatch handles one command for a user. The returned error covers only
// transport failures; domain errors are already converted into replies.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, command string, args []string) error {
	switch command {
	case "/setup":
		return d.handleSetup(ctx, userID, args)
	case "/plan":
		return d.handlePlan(ctx, userID)
	case "/focus":
		return d.handleFocus(ctx, userID, args)
	case "/settings":
		return d.handleSettings(ctx, userID, args)
	default:
		return d.reply(ctx, userID, "Неизвестная команда. Доступны: /setup, /plan, /focus, /settings")
	}
}

// handleSetup records onboarding answers: "/setup <category> key=value ...".
func (d *Dispatcher) handleSetup(ctx context.Context, userID string, args []string) error {
	if len(args) == 0 {
		return d.reply(ctx, userID, "Укажите категорию: exam, skill, habit, health или time")
	}
	category := domain.Category(args[0])
	if !domain.ValidCategories[category] {
		return d.reply(ctx, userID, fmt.Sprintf("Неизвестная категория %q", args[0]))
	}

	// Create the profile first so a rejected answer still leaves the user
	// known to later commands.
	profile, err := d.users.GetOrCreate(ctx, userID)
	if err != nil {
		return d.internalError(ctx, userID, "loading profile", err)
	}

	answers := parsePairs(args[1:])
	if err := d.questions.ValidateAnswers(category, answers); err != nil {
		return d.reply(ctx, userID, "Не получилось сохранить ответы: "+err.Error())
	}

	now := time.Now().UTC()
	profile.ActiveCategory = category
	profile.Onboarding = domain.Onboarding{Completed: true, Answers: answers, CompletedAt: &now}
	profile.Constraints = mergeConstraints(profile.Constraints, onboarding.BuildConstraints(answers))
	if err := d.users.Upsert(ctx, profile); err != nil {
		return d.internalError(ctx, userID, "saving profile", err)
	}

	return d.reply(ctx, userID, "Ответы сохранены. Команда /plan соберёт план.")
}

func (d *Dispatcher) handlePlan(ctx context.Context, userID string) error {
	profile, err := d.users.GetOrCreate(ctx, userID)
	if err != nil {
		return d.internalError(ctx, userID, "loading profile", err)
	}
	if !profile.Onboarding.Completed || profile.ActiveCategory == "" {
		return d.reply(ctx, userID, "Сначала пройдите настройку: /setup <категория>")
	}

	plan := d.planner.GeneratePlan(ctx, planner.GenerateRequest{
		UserID:      userID,
		Category:    profile.ActiveCategory,
		Answers:     profile.Onboarding.Answers,
		Constraints: profile.Constraints,
		Preferences: profile.Preferences,
	})
	if err := d.users.ReplacePlan(ctx, userID, plan); err != nil {
		return d.internalError(ctx, userID, "storing plan", err)
	}

	taskDays := make(map[int]bool)
	for _, t := range plan.Days {
		taskDays[t.DayNumber] = true
	}
	return d.reply(ctx, userID, fmt.Sprintf(
		"Готово! План на %d дней: %d учебных дней, %d контрольных точек, %d дней отдыха.",
		plan.HorizonDays, len(taskDays), len(plan.Checkpoints), len(plan.BufferDays)))
}

func (d *Dispatcher) handleFocus(ctx context.Context, userID string, args []string) error {
	sub := "status"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "start":
		session, err := d.focus.Start(ctx, userID, domain.SessionWork, 0)
		if errors.Is(err, focus.ErrAlreadyActive) {
			return d.reply(ctx, userID, "Сессия уже идёт. /focus status покажет остаток.")
		}
		if err != nil {
			return d.internalError(ctx, userID, "starting session", err)
		}
		return d.reply(ctx, userID, fmt.Sprintf("Фокус на %d минут. Поехали!", session.DurationMinutes))

	case "pause":
		_, err := d.focus.Pause(ctx, userID)
		switch {
		case errors.Is(err, focus.ErrNoSession):
			return d.reply(ctx, userID, "Нет активной сессии.")
		case errors.Is(err, focus.ErrAlreadyPaused):
			return d.reply(ctx, userID, "Сессия уже на паузе.")
		case err != nil:
			return d.internalError(ctx, userID, "pausing session", err)
		}
		return d.reply(ctx, userID, "Пауза. /focus resume продолжит.")

	case "resume":
		_, err := d.focus.Resume(ctx, userID)
		switch {
		case errors.Is(err, focus.ErrNoSession):
			return d.reply(ctx, userID, "Нет активной сессии.")
		case errors.Is(err, focus.ErrNotPaused):
			return d.reply(ctx, userID, "Сессия и так идёт.")
		case err != nil:
			return d.internalError(ctx, userID, "resuming session", err)
		}
		return d.reply(ctx, userID, "Продолжаем!")

	case "stop":
		session, err := d.focus.Stop(ctx, userID, false)
		if errors.Is(err, focus.ErrNoSession) {
			return d.reply(ctx, userID, "Нет активной сессии.")
		}
		if err != nil {
			return d.internalError(ctx, userID, "stopping session", err)
		}
		return d.reply(ctx, userID, fmt.Sprintf("Остановлено. Засчитано %d минут.", session.CompletedMinutes))

	case "done":
		session, err := d.focus.Stop(ctx, userID, true)
		if errors.Is(err, focus.ErrNoSession) {
			return d.reply(ctx, userID, "Нет активной сессии.")
		}
		if err != nil {
			return d.internalError(ctx, userID, "finishing session", err)
		}
		return d.reply(ctx, userID, fmt.Sprintf("Завершено досрочно: %d минут в копилку.", session.CompletedMinutes))

	case "status":
		info, err := d.focus.Info(ctx, userID)
		if errors.Is(err, focus.ErrNoSession) {
			return d.reply(ctx, userID, "Нет активной сессии. /focus start начнёт новую.")
		}
		if err != nil {
			return d.internalError(ctx, userID, "reading session", err)
		}
		state := "идёт"
		if info.Session.Status == domain.SessionPaused {
			state = "на паузе"
		}
		return d.reply(ctx, userID, fmt.Sprintf(
			"Сессия %s: прошло %d мин, осталось %d мин.", state, info.ElapsedMinutes, info.RemainingMinutes))

	default:
		return d.reply(ctx, userID, "Использование: /focus start|pause|resume|stop|done|status")
	}
}

// handleSettings processes "/settings pomodoro [key=value ...]".
func (d *Dispatcher) handleSettings(ctx context.Context, userID string, args []string) error {
	if len(args) == 0 || args[0] != "pomodoro" {
		return d.reply(ctx, userID, "Использование: /settings pomodoro [work_duration=25 short_break=5 ...]")
	}

	updates := parsePairs(args[1:])
	if len(updates) == 0 {
		settings, err := d.focus.Settings(ctx, userID)
		if err != nil {
			return d.internalError(ctx, userID, "loading settings", err)
		}
		return d.reply(ctx, userID, formatSettings(settings))
	}

	settings, err := d.focus.UpdateSettings(ctx, userID, updates)
	if err != nil {
		return d.reply(ctx, userID, "Не получилось обновить настройки: "+err.Error())
	}
	return d.reply(ctx, userID, "Сохранено.\n"+formatSettings(settings))
}

func (d *Dispatcher) internalError(ctx context.Context, userID, op string, err error) error {
	d.logger.Error("command failed", "user_id", userID, "op", op, "error", err)
	return d.reply(ctx, userID, "Что-то пошло не так, попробуйте ещё раз.")
}

// reply sends a one-off message, discarding the message id.
func (d *Dispatcher) reply(ctx context.Context, userID, text string) error {
	_, err := d.msgr.Send(ctx, userID, text)
	return err
}

func parsePairs(args []string) map[string]string {
	pairs := make(map[string]string, len(args))
	for _, a := range args {
		key, value, ok := strings.Cut(a, "=")
		if !ok || key == "" {
			continue
		}
		pairs[key] = value
	}
	return pairs
}

func mergeConstraints(current, derived domain.Constraints) domain.Constraints {
	out := current
	if derived.DailyMinutes > 0 {
		out.DailyMinutes = derived.DailyMinutes
	}
	return out
}

func formatSettings(s domain.PomodoroSettings) string {
	return fmt.Sprintf(
		"Работа: %d мин\nКороткий перерыв: %d мин\nДлинный перерыв: %d мин\nЗвук: %v\nАвто-перерыв: %v",
		s.WorkDuration, s.ShortBreak, s.LongBreak, s.SoundEnabled, s.AutoStartBreak)
}
