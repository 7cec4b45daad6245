package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/rkalmar/fleetmate/internal/api"
	"github.com/rkalmar/fleetmate/internal/app"
	"github.com/rkalmar/fleetmate/internal/counter"
	"github.com/rkalmar/fleetmate/internal/credential"
	"github.com/rkalmar/fleetmate/internal/model"
	"github.com/rkalmar/fleetmate/internal/notify"
)

func main() {
	cfgPath := model.DefaultConfigPath()
	if env := os.Getenv("FLEETMATE_CONFIG"); env != "" {
		cfgPath = env
	}

	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Log.Level
	if env := os.Getenv("FLEETMATE_LOG"); env != "" {
		level = env
	}
	logger := newLogger(level)

	// The token lives in the system keyring and is read per request, so
	// a re-login takes effect without rebuilding the client.
	tokens := func() (string, error) {
		return credential.Get(credential.TokenKey)
	}
	_, tokenErr := credential.Get(credential.TokenKey)
	hasToken := tokenErr == nil

	// The unauthorized hook needs the program to deliver its message,
	// and the program needs the client. Bind through a pointer that is
	// set before the program starts processing messages.
	var program *tea.Program
	client := api.New(
		cfg.Server.BaseURL,
		tokens,
		api.WithLogger(logger),
		api.WithOnUnauthorized(func() {
			if program != nil {
				program.Send(app.AuthLostMsg{})
			}
		}),
	)

	syncer := notify.NewSync(client, logger)
	guard := counter.NewGuard(client, logger)
	poller := notify.NewPoller(
		syncer, time.Duration(cfg.Server.PollIntervalSec)*time.Second,
	)

	root := app.New(cfg, cfgPath, client, syncer, guard, poller, logger, hasToken)
	program = tea.NewProgram(root, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		logger.Error("program terminated", "err", err)
		os.Exit(1)
	}
}

// newLogger builds the application logger. TUI apps must not write to
// stdout, so diagnostics go to a file under the config directory when
// possible and are discarded otherwise.
func newLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.WarnLevel
	}

	out := os.Stderr
	if f, err := os.OpenFile(
		logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600,
	); err == nil {
		out = f
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Level:           lvl,
	})
	return logger
}

func logFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "fleetmate.log"
	}
	return home + "/.config/fleetmate/fleetmate.log"
}
