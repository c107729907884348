package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"nutribudget"
	"nutribudget/app"
	"nutribudget/session"
	"nutribudget/telegram"
)

func main() {
	dump := flag.Bool("dump", false, "dump the finished meal plan with go-spew")
	quiet := flag.Bool("quiet", true, "only log warnings and errors")
	flag.Parse()

	if *quiet {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	}

	ctx := context.Background()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("SETUP: Failed to load config", "error", err)
		os.Exit(1)
	}

	logger, cleanup, err := newGenerationLogger(cfg.Model.ModelID)
	if err != nil {
		slog.Error("SETUP: Failed to create generation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush generation log", "error", err)
		}
	}()

	a, err := app.Build(ctx, cfg, app.Options{GenerationLogger: logger})
	if err != nil {
		slog.Error("SETUP: Failed to build service", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	id := session.NewID()
	fmt.Println("NutriBudget. Say hi to begin, Ctrl-D to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	var seen uint64
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		res, err := a.Service.SubmitMessage(ctx, id, scanner.Text())
		if err != nil {
			fmt.Println("error:", err)
			continue
		}

		for _, e := range res.Activity {
			if e.Seq > seen {
				fmt.Println("  ·", e.Message)
				seen = e.Seq
			}
		}
		fmt.Println(res.Reply)

		if res.ReadyForMealPlan && res.Plan != nil {
			fmt.Println()
			fmt.Println(telegram.FormatPlan(*res.Plan))
			if *dump {
				nutribudget.DumpTo(os.Stdout, *res.Plan)
			}
		}
	}
}

func newGenerationLogger(modelID string) (nutribudget.GenerationLogger, func() error, error) {
	logFilePath := nutribudget.NewGenerationLogFilePath(modelID)
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := nutribudget.NewFileGenerationLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
