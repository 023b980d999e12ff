package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"remoasset/internal/config"
	"remoasset/internal/inbox"
	"remoasset/internal/leads"
	"remoasset/internal/model"
	"remoasset/internal/tui"
)

func main() {
	// .env is optional; real env vars take precedence either way.
	_ = godotenv.Load()

	cfg := config.Load()

	if err := os.MkdirAll(cfg.ConfigDir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot create config directory: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns stdout, so logs go to a file.
	logFile, err := os.OpenFile(filepath.Join(cfg.ConfigDir, "remoasset.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewJSONHandler(logFile, nil))

	dir, err := leads.NewSQLiteDirectory(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open database: %v\n", err)
		os.Exit(1)
	}
	defer dir.Close()

	if cfg.LeadsCSV != "" {
		f, err := os.Open(cfg.LeadsCSV)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open leads file: %v\n", err)
			os.Exit(1)
		}
		n, err := dir.ImportCSV(context.Background(), f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot import leads from %s: %v\n", cfg.LeadsCSV, err)
			os.Exit(1)
		}
		logger.Info("imported leads", "path", cfg.LeadsCSV, "count", n)
	}

	appModel := tui.NewAppModel(tui.Deps{
		Directory:    dir,
		Cache:        inbox.NewSessionCache(),
		Limits:       cfg.Limits(),
		Logger:       logger,
		User:         model.Identity{ID: cfg.UserID, Admin: cfg.Admin},
		ConfigDir:    cfg.ConfigDir,
		RefreshEvery: cfg.RefreshInterval,
	})
	p := tea.NewProgram(&appModel, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Alas, there's been an error: %v\n", err)
		os.Exit(1)
	}
	if m, ok := finalModel.(*tui.AppModel); ok && m.Err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", m.Err)
		os.Exit(1)
	}
}
