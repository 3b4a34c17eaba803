package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/presentbetter/coach-engine/internal/logging"
	"github.com/presentbetter/coach-engine/internal/record"
	"github.com/presentbetter/coach-engine/internal/replay"
	"github.com/presentbetter/coach-engine/internal/session"
	"github.com/presentbetter/coach-engine/internal/store"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture (.json, .yaml)")
	dbPath := flag.String("db", envOr("PRESENTBETTER_STORE_PATH", ""), "save the replayed record to this database")
	jsonOut := flag.Bool("json", false, "print the result as JSON")
	verbose := flag.Bool("v", false, "log session progress to stderr")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.yaml [--db path/to/presentbetter.db] [--json] [-v]")
		os.Exit(2)
	}
	os.Exit(run(*fixturePath, *dbPath, *jsonOut, *verbose))
}

// #endregion main

// #region run

func run(path, dbPath string, jsonOut, verbose bool) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	logger := logging.Discard()
	if verbose {
		if logger, err = logging.NewLogger("debug", "text"); err != nil {
			fmt.Fprintf(os.Stderr, "logger: %v\n", err)
			return 2
		}
	}

	res, err := replay.RunFixture(context.Background(), f, session.DefaultConfig(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	if dbPath != "" && res.Record != nil && res.Record.Mode == string(session.Presenting) {
		st, err := store.NewStore(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open db: %v\n", err)
			return 2
		}
		defer st.Close()
		if err := st.Save(*res.Record); err != nil {
			fmt.Fprintf(os.Stderr, "save record: %v\n", err)
			return 2
		}
	}

	diffs := f.Check(res)
	if jsonOut {
		printJSON(res, diffs)
	} else {
		printReport(f, res, diffs)
	}
	if len(diffs) > 0 {
		return 1
	}
	return 0
}

// #endregion run

// #region output

type jsonResult struct {
	SessionID string                  `json:"session_id"`
	Summary   replay.Summary          `json:"summary"`
	Feedback  []session.Feedback      `json:"feedback"`
	Record    *record.ScoreRecord     `json:"record,omitempty"`
	Training  *session.TrainingResult `json:"training,omitempty"`
	Abort     string                  `json:"abort,omitempty"`
	Diffs     []string                `json:"diffs"`
}

func printJSON(res replay.Result, diffs []string) {
	out := jsonResult{
		SessionID: res.SessionID,
		Summary:   replay.Summarize(res),
		Feedback:  res.Feedback,
		Record:    res.Record,
		Training:  res.Training,
		Diffs:     diffs,
	}
	if res.AbortErr != nil {
		out.Abort = res.AbortErr.Error()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}

func printReport(f *replay.Fixture, res replay.Result, diffs []string) {
	if f.Description != "" {
		fmt.Println(f.Description)
	}
	if len(res.Feedback) > 0 {
		fmt.Printf("%-6s| %-12s| %-9s| %s\n", "Tick", "Modality", "State", "Tip")
		fmt.Printf("%-6s+%-13s+%-10s+%s\n", "------", "-------------", "----------", "----------------")
		for _, fb := range res.Feedback {
			fmt.Printf("%-6d| %-12s| %-9s| %s\n", fb.TicksRemaining, fb.Modality, fb.StateName, fb.Tip)
		}
		fmt.Println()
	}

	sum := replay.Summarize(res)
	fmt.Printf("Totals: %d smiles, %d hand moves, %d looks over %d ticks\n", sum.Smiles, sum.HandMoves, sum.Looks, sum.Ticks)
	switch {
	case res.Aborted:
		fmt.Printf("Aborted: %v\n", res.AbortErr)
	case res.Record != nil:
		rec := res.Record
		eye := "n/a"
		if rec.EyeContactScore != nil {
			eye = fmt.Sprintf("%d", *rec.EyeContactScore)
		}
		fmt.Printf("Scores: facial %d, gesture %d, eye contact %s, composite %s\n",
			rec.FacialScore, rec.GestureScore, eye, rec.TotalScore)
		fmt.Printf("Speech: %.0f wpm (%s)\n", rec.VerbalRate, rec.VerbalRating)
	}
	if res.Training != nil {
		fmt.Printf("Training: %d passes, %s\n%s\n", res.Training.Passes, res.Training.State, res.Training.Tip)
	}

	if len(diffs) == 0 {
		fmt.Println("\nExpectations: OK")
		return
	}
	fmt.Printf("\nExpectations: %d mismatch(es)\n", len(diffs))
	for _, d := range diffs {
		fmt.Printf("  - %s\n", d)
	}
}

// #endregion output

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
