package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/presentbetter/coach-engine/internal/logging"
	"github.com/presentbetter/coach-engine/internal/record"
	"github.com/presentbetter/coach-engine/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", envOr("PRESENTBETTER_STORE_PATH", ""), "path to presentbetter.db")
	user := flag.String("user", "", "list this user's score history")
	last := flag.Int("last", 20, "show N most recent records (0 for all)")
	sessionID := flag.String("session", "", "show one session's event log")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" || (*user == "" && *sessionID == "") {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/presentbetter.db --user id [--last N] [--json]")
		fmt.Fprintln(os.Stderr, "       inspect --db path/to/presentbetter.db --session id [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if *sessionID != "" {
		err = runEventsMode(st, *sessionID, *jsonOut)
	} else {
		err = runHistoryMode(st, *user, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region history-mode

type historyOutput struct {
	Summary store.Summary        `json:"summary"`
	Records []record.ScoreRecord `json:"records"`
}

func runHistoryMode(st *store.Store, user string, last int, jsonOut bool) error {
	records, err := st.QueryHistory(user, last)
	if err != nil {
		return err
	}
	sum, err := st.Summary(user)
	if err != nil {
		return err
	}

	if jsonOut {
		if records == nil {
			records = []record.ScoreRecord{}
		}
		return printJSON(historyOutput{Summary: sum, Records: records})
	}
	if len(records) == 0 {
		fmt.Fprintf(os.Stderr, "no records for user %s\n", user)
		return nil
	}

	fmt.Printf("%-10s  %-20s  %6s  %7s  %5s  %9s  %-8s  %s\n",
		"Record", "Time", "Facial", "Gesture", "Eye", "Composite", "Pace", "Speed")
	fmt.Printf("%-10s+-%-20s+-%6s+-%7s+-%5s+-%9s+-%-8s+-%s\n",
		"----------", "--------------------", "------", "-------", "-----", "---------", "--------", "------")
	for _, r := range records {
		eye := "n/a"
		if r.EyeContactScore != nil {
			eye = fmt.Sprintf("%d", *r.EyeContactScore)
		}
		fmt.Printf("%-10s  %-20s  %6d  %7d  %5s  %9s  %-8s  %.0f wpm\n",
			shortID(r.ID), r.Time().Format("2006-01-02T15:04:05Z"),
			r.FacialScore, r.GestureScore, eye, r.TotalScore, r.VerbalRating, r.VerbalRate)
	}
	fmt.Printf("\n%d records, high score %d%%, last score %d%%\n", sum.Count, sum.HighScore, sum.LastScore)
	return nil
}

// #endregion history-mode

// #region events-mode

type eventRow struct {
	Event     string `json:"event"`
	Modality  string `json:"modality,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Tick      *int   `json:"tick,omitempty"`
	RecordID  string `json:"record_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

func runEventsMode(st *store.Store, sessionID string, jsonOut bool) error {
	events, err := logging.ListEvents(st.DB(), sessionID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("no events for session %s", sessionID)
	}

	rows := make([]eventRow, len(events))
	for i, e := range events {
		rows[i] = eventRow{
			Event:     string(e.EventType),
			Modality:  e.Modality,
			From:      e.FromState,
			To:        e.ToState,
			RecordID:  e.RecordID,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if e.Tick >= 0 {
			tick := e.Tick
			rows[i].Tick = &tick
		}
	}
	if jsonOut {
		return printJSON(rows)
	}

	first := events[0]
	fmt.Printf("Session %s  user=%s  mode=%s\n\n", sessionID, first.UserID, first.Mode)
	fmt.Printf("%-11s  %4s  %-11s  %-9s  %-9s  %s\n", "Event", "Tick", "Modality", "From", "To", "Detail")
	fmt.Printf("%-11s+-%4s+-%-11s+-%-9s+-%-9s+-%s\n",
		"-----------", "----", "-----------", "---------", "---------", "--------------------")
	for _, r := range rows {
		tick := "-"
		if r.Tick != nil {
			tick = fmt.Sprintf("%d", *r.Tick)
		}
		detail := r.Reason
		if r.RecordID != "" {
			detail = "record " + shortID(r.RecordID)
		}
		fmt.Printf("%-11s  %4s  %-11s  %-9s  %-9s  %s\n", r.Event, tick, r.Modality, r.From, r.To, detail)
	}
	return nil
}

// #endregion events-mode

// #region output

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion output
