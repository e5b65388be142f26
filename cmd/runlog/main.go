package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/adapter/repo"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/domain"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/infra"
)

func main() {
	_ = godotenv.Load()

	var (
		dsnFlag    string
		limitFlag  int
		failedFlag bool
		jsonFlag   bool
	)
	flag.StringVar(&dsnFlag, "dsn", "", "run journal DSN (postgres://... or sqlite:<path>); defaults to RUN_JOURNAL_DSN")
	flag.IntVar(&limitFlag, "limit", 20, "number of runs to show, newest first")
	flag.BoolVar(&failedFlag, "failed", false, "show the most recent failed runs only")
	flag.BoolVar(&jsonFlag, "json", false, "print runs as JSON lines")
	flag.Parse()

	dsn := strings.TrimSpace(dsnFlag)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("RUN_JOURNAL_DSN"))
	}
	if dsn == "" {
		exitWithError(errors.New("-dsn or RUN_JOURNAL_DSN is required"))
	}
	if limitFlag <= 0 {
		exitWithError(errors.New("-limit must be positive"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := infra.NewLogger("cli").With().Str("cmd", "runlog").Logger()
	runs, closeRuns, err := repo.Open(ctx, dsn, logger)
	if err != nil {
		exitWithError(err)
	}
	defer closeRuns()

	var status domain.RunStatus
	if failedFlag {
		status = domain.RunStatusFailed
	}
	items, err := runs.ListRecent(ctx, limitFlag, status)
	if err != nil {
		exitWithError(fmt.Errorf("failed to list runs: %w", err))
	}

	if jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		for _, run := range items {
			if err := enc.Encode(run); err != nil {
				exitWithError(err)
			}
		}
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tID\tMODE\tSTATUS\tDURATION\tERROR")
	for _, run := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			run.StartedAt.Local().Format(time.DateTime),
			run.ID,
			run.Mode,
			run.Status,
			run.Duration.Round(time.Second),
			truncate(run.ErrorMessage, 80),
		)
	}
	_ = tw.Flush()
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
