package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lysyi3m/press-comb/app/cfg"
	"github.com/lysyi3m/press-comb/app/fetch"
	"github.com/lysyi3m/press-comb/app/profile"
	"github.com/lysyi3m/press-comb/app/ratelimit"
	"github.com/lysyi3m/press-comb/app/tasks"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	config, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return exitFailure
	}
	if config == nil {
		return exitOK
	}

	setupLogger(config.Debug)

	slog.Info("Starting Press Comb", "version", config.Version, "profiles_dir", config.ProfilesDir)

	profiles := profile.NewCache(config.ProfilesDir)
	if err := profiles.Run(); err != nil {
		slog.Error("Failed to load publisher profiles", "error", err)
		return exitFailure
	}
	slog.Info("Publisher profiles loaded", "count", profiles.Count())

	if config.List {
		if err := listProfiles(os.Stdout, profiles); err != nil {
			slog.Error("Failed to list profiles", "error", err)
			return exitFailure
		}
		return exitOK
	}

	selected, err := selectProfiles(profiles, config.Publishers, config.All)
	if err != nil {
		slog.Error("Failed to select publishers", "error", err)
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := tasks.NewRunner(tasks.RunnerConfig{
		Fetch: fetch.Options{
			UserAgents:     config.UserAgents,
			FeedTimeout:    config.FeedTimeout,
			ArticleTimeout: config.ArticleTimeout,
			MaxRPS:         config.MaxRPS,
		},
		Policy: ratelimit.Policy{
			ArticleDelayMin: config.ArticleDelayMin,
			ArticleDelayMax: config.ArticleDelayMax,
			CategoryDelay:   config.CategoryDelay,
		},
	})

	opts := tasks.RunOptions{
		Categories:   config.Categories,
		Limit:        config.Limit,
		MinBodyChars: config.MinBodyChars,
		OutputDir:    config.OutputDir,
		Workers:      config.Workers,
		Companion:    config.Companion,
		Now: func() time.Time {
			return time.Now().In(config.Location)
		},
	}

	code := exitOK
	var reports []*tasks.Report
	for _, p := range selected {
		report, err := runner.Run(ctx, p, opts)
		if report != nil {
			reports = append(reports, report)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			slog.Warn("Interrupted, partial output kept", "publisher", p.ID)
			code = exitInterrupted
			break
		}
		slog.Error("Publisher run failed", "publisher", p.ID, "error", err)
		code = exitFailure
	}

	if len(reports) > 0 {
		if err := tasks.WriteSummary(os.Stdout, reports); err != nil {
			slog.Error("Failed to print summary", "error", err)
		}
	}

	return code
}

// selectProfiles resolves the publishers to run. Running nothing is an
// error.
func selectProfiles(profiles *profile.Cache, ids []string, all bool) ([]*profile.Profile, error) {
	if all {
		ids = profiles.IDs()
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no publisher profiles to run")
	}

	selected := make([]*profile.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := profiles.Get(id)
		if err != nil {
			return nil, err
		}
		selected = append(selected, p)
	}
	return selected, nil
}

func setupLogger(debug bool) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	if debug {
		level.Set(slog.LevelDebug)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func listProfiles(w io.Writer, profiles *profile.Cache) error {
	for _, id := range profiles.IDs() {
		p, err := profiles.Get(id)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", id, p.Name, strings.Join(p.Categories(), ", ")); err != nil {
			return err
		}
	}
	return nil
}
