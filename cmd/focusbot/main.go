package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/avelichko/focusbot/internal/bot"
	"github.com/avelichko/focusbot/internal/config"
	"github.com/avelichko/focusbot/internal/db"
	"github.com/avelichko/focusbot/internal/focus"
	"github.com/avelichko/focusbot/internal/llm"
	"github.com/avelichko/focusbot/internal/onboarding"
	"github.com/avelichko/focusbot/internal/planner"
	"github.com/avelichko/focusbot/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:   "focusbot",
		Short: "Personal study planner and focus timer",
	}
	root.AddCommand(newServeCmd(cfg, logger), newPlanCmd(cfg, logger))
	return root.Execute()
}

// app bundles the wired services for a command's lifetime.
type app struct {
	database   *sql.DB
	dispatcher *bot.Dispatcher
	service    *focus.Service
	sweeper    *focus.Sweeper
	scheduler  *focus.Scheduler
}

func buildApp(cfg config.Config, logger *slog.Logger, msgr bot.Messenger) (*app, error) {
	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	users := repository.NewSQLiteUserRepo(database)
	sessions := repository.NewSQLiteFocusSessionRepo(database)
	sweeps := repository.NewSQLiteSweepRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)

	llmCfg := llm.LoadConfig()
	var observer llm.Observer = llm.NoopObserver{}
	if cfg.LogLevel == slog.LevelDebug {
		observer = llm.NewLogObserver(os.Stderr)
	}
	client := llm.NewOpenAIClient(llmCfg, observer)

	prompts, err := planner.LoadPromptPack()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("loading prompt pack: %w", err)
	}
	questions, err := onboarding.LoadPack()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("loading question pack: %w", err)
	}

	notifier := bot.NewCompletionNotifier(msgr)
	scheduler := focus.NewScheduler(logger)
	service := focus.NewService(sessions, users, sweeps, scheduler, notifier, logger)
	sweeper := focus.NewSweeper(uow, sweeps, scheduler, notifier, cfg.SweepInterval, logger)
	generator := planner.NewGenerator(client, prompts, logger)

	return &app{
		database:   database,
		dispatcher: bot.NewDispatcher(users, generator, service, questions, msgr, logger),
		service:    service,
		sweeper:    sweeper,
		scheduler:  scheduler,
	}, nil
}

func (a *app) close() {
	a.scheduler.Close()
	a.database.Close()
}

// newServeCmd runs the bot loop: restore timers, start the sweeper, then
// read "<user_id> /command args" lines until EOF or a signal.
func newServeCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot with the focus sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cfg, logger, bot.NewConsoleMessenger(os.Stdout))
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.service.RestoreActiveSessions(ctx); err != nil {
				logger.Warn("restoring sessions failed", "error", err)
			}
			go a.sweeper.Run(ctx)

			logger.Info("focusbot serving", "db", cfg.DBPath, "sweep_interval", cfg.SweepInterval)

			lines := make(chan string)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(os.Stdin)
				for scanner.Scan() {
					lines <- scanner.Text()
				}
			}()

			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					userID, command, cmdArgs, ok := parseLine(line)
					if !ok {
						continue
					}
					if err := a.dispatcher.Dispatch(ctx, userID, command, cmdArgs); err != nil {
						logger.Warn("dispatch failed", "user_id", userID, "error", err)
					}
				}
			}
		},
	}
}

// newPlanCmd generates and stores a plan for one user, then exits.
func newPlanCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate a plan for a user and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			a, err := buildApp(cfg, logger, bot.NewConsoleMessenger(os.Stdout))
			if err != nil {
				return err
			}
			defer a.close()
			return a.dispatcher.Dispatch(cmd.Context(), userID, "/plan", nil)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to plan for")
	return cmd
}

// parseLine splits "user42 /focus start" into its parts.
func parseLine(line string) (userID, command string, args []string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasPrefix(fields[1], "/") {
		return "", "", nil, false
	}
	return fields[0], fields[1], fields[2:], true
}

func newLogger(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
