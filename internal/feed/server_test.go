package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/presentbetter/coach-engine/internal/logging"
	"github.com/presentbetter/coach-engine/internal/record"
	"github.com/presentbetter/coach-engine/internal/session"
	"github.com/presentbetter/coach-engine/internal/signals"
	"github.com/presentbetter/coach-engine/internal/store"
)

// #region mocks
type mockClassifier struct {
	label signals.EmotionLabel
	err   error
	calls atomic.Int32
}

func (m *mockClassifier) ClassifyEmotion(_ context.Context, _ []byte) (signals.EmotionLabel, bool, error) {
	m.calls.Add(1)
	if m.err != nil {
		return "", false, m.err
	}
	return m.label, true, nil
}

// #endregion mocks

// #region helpers
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Session.PresentingTicks = 6
	cfg.Session.TrainingTicks = 12
	cfg.Session.PrerollSteps = 1
	cfg.Session.PrerollInterval = time.Millisecond
	cfg.Session.TickInterval = 10 * time.Millisecond
	cfg.Session.SpeechFinalizeTimeout = 50 * time.Millisecond
	cfg.StartTimeout = time.Second
	return cfg
}

func tempStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "feed.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestServer(t *testing.T, srv *Server) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/session"
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg Inbound) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msg.Type, err)
	}
}

// collect reads messages until one of type stop arrives, calling onMsg for
// each message first.
func collect(t *testing.T, conn *websocket.Conn, stop MessageType, onMsg func(Outbound)) []Outbound {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msgs []Outbound
	for {
		var out Outbound
		if err := conn.ReadJSON(&out); err != nil {
			t.Fatalf("read (waiting for %s, got %d messages): %v", stop, len(msgs), err)
		}
		msgs = append(msgs, out)
		if onMsg != nil {
			onMsg(out)
		}
		if out.Type == stop {
			return msgs
		}
	}
}

// waitClosed drains the connection until the server closes it.
func waitClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				t.Fatal("server did not close the connection")
			}
			return
		}
	}
}

func count(msgs []Outbound, typ MessageType) int {
	n := 0
	for _, m := range msgs {
		if m.Type == typ {
			n++
		}
	}
	return n
}

func eventTypes(t *testing.T, st *store.Store, sessionID string) []logging.EventType {
	t.Helper()
	events, err := logging.ListEvents(st.DB(), sessionID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	var types []logging.EventType
	for _, e := range events {
		types = append(types, e.EventType)
	}
	return types
}

// #endregion helpers

// #region session-tests
func TestPresentingSessionCompletesAndPersists(t *testing.T) {
	st := tempStore(t)
	ts := newTestServer(t, NewServer(testConfig(), st, nil))
	conn := dial(t, ts)

	send(t, conn, Inbound{Type: TypeStart, Mode: "presenting", UserID: "u1"})
	msgs := collect(t, conn, TypeComplete, func(out Outbound) {
		if out.Type == TypeTick || (out.Type == TypePreroll && out.Preroll == 0) {
			send(t, conn, Inbound{Type: TypeFace, Label: "happy"})
		}
	})
	waitClosed(t, conn)

	if msgs[0].Type != TypeStarted || msgs[0].Display != "00:03" {
		t.Fatalf("unexpected first message %+v", msgs[0])
	}
	if n := count(msgs, TypeTick); n != 6 {
		t.Fatalf("expected 6 ticks, got %d", n)
	}
	done := msgs[len(msgs)-1]
	if done.Record == nil || done.Training != nil {
		t.Fatalf("expected a presentation record without training result: %+v", done)
	}
	if done.Record.TotalSmiles < 1 || done.Record.UserID != "u1" {
		t.Fatalf("unexpected record %+v", done.Record)
	}
	if !done.Saved || done.SaveError != "" {
		t.Fatalf("expected a saved record, got saved=%v error=%q", done.Saved, done.SaveError)
	}

	saved, err := st.Get(done.Record.ID)
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if saved.CompositeScore != done.Record.CompositeScore {
		t.Fatalf("persisted composite %d != delivered %d", saved.CompositeScore, done.Record.CompositeScore)
	}

	types := eventTypes(t, st, done.SessionID)
	if len(types) < 2 || types[0] != logging.EventStarted || types[len(types)-1] != logging.EventCompleted {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestSaveFailureReachesDevice(t *testing.T) {
	st := tempStore(t)
	ts := newTestServer(t, NewServer(testConfig(), st, nil))
	conn := dial(t, ts)

	send(t, conn, Inbound{Type: TypeStart, Mode: "presenting", UserID: "u5"})
	collect(t, conn, TypeStarted, nil)
	if _, err := st.DB().Exec(`DROP TABLE score_records`); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	msgs := collect(t, conn, TypeComplete, nil)
	waitClosed(t, conn)

	done := msgs[len(msgs)-1]
	if done.Record == nil || done.Record.UserID != "u5" {
		t.Fatalf("record must still be delivered, got %+v", done)
	}
	if done.Saved || !strings.Contains(done.SaveError, "insert record") {
		t.Fatalf("expected save failure notice, got saved=%v error=%q", done.Saved, done.SaveError)
	}

	types := eventTypes(t, st, done.SessionID)
	var failed bool
	for _, e := range types {
		if e == logging.EventSaveFailed {
			failed = true
		}
	}
	if !failed || types[len(types)-1] != logging.EventCompleted {
		t.Fatalf("expected save_failed then completed events, got %v", types)
	}
}

func TestTrainingSessionStreamsTipsWithoutPersisting(t *testing.T) {
	st := tempStore(t)
	ts := newTestServer(t, NewServer(testConfig(), st, nil))
	conn := dial(t, ts)

	send(t, conn, Inbound{Type: TypeStart, Mode: "training_facial", UserID: "u2"})
	msgs := collect(t, conn, TypeComplete, func(out Outbound) {
		if out.Type == TypeTick || out.Type == TypePreroll {
			send(t, conn, Inbound{Type: TypeFace, Label: "Happy"})
		}
	})
	waitClosed(t, conn)

	if count(msgs, TypeTip) == 0 {
		t.Fatal("expected at least one coaching tip")
	}
	for _, m := range msgs {
		if m.Type == TypeTip && (m.Feedback == nil || m.Feedback.Modality != signals.Facial || m.Feedback.Tip == "") {
			t.Fatalf("malformed tip %+v", m)
		}
	}
	done := msgs[len(msgs)-1]
	if done.Training == nil || done.Training.Modality != signals.Facial {
		t.Fatalf("expected training result, got %+v", done)
	}
	if _, err := st.Get(done.Record.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("training record should not be persisted, got %v", err)
	}
	if types := eventTypes(t, st, done.SessionID); types[len(types)-1] != logging.EventCompleted {
		t.Fatalf("expected completed event, got %v", types)
	}
}

func TestFaceImageUsesClassifier(t *testing.T) {
	srv := NewServer(testConfig(), nil, nil)
	cls := &mockClassifier{label: signals.Happy}
	srv.SetPerception(cls, nil)
	ts := newTestServer(t, srv)
	conn := dial(t, ts)

	send(t, conn, Inbound{Type: TypeStart, Mode: "presenting"})
	msgs := collect(t, conn, TypeComplete, func(out Outbound) {
		if out.Type == TypeTick || (out.Type == TypePreroll && out.Preroll == 0) {
			send(t, conn, Inbound{Type: TypeFaceImage, Image: []byte{0xff, 0xd8}})
		}
	})

	if cls.calls.Load() == 0 {
		t.Fatal("classifier was never called")
	}
	if rec := msgs[len(msgs)-1].Record; rec == nil || rec.TotalSmiles < 1 {
		t.Fatalf("expected smiles from classified images, got %+v", rec)
	}
}

func TestPoseImageWithoutDetectorReportsError(t *testing.T) {
	ts := newTestServer(t, NewServer(testConfig(), nil, nil))
	conn := dial(t, ts)

	send(t, conn, Inbound{Type: TypeStart, Mode: "presenting"})
	collect(t, conn, TypeStarted, nil)
	send(t, conn, Inbound{Type: TypePoseImage, Image: []byte("frame")})
	msgs := collect(t, conn, TypeError, nil)
	if !strings.Contains(msgs[len(msgs)-1].Error, "pose detector") {
		t.Fatalf("unexpected error %q", msgs[len(msgs)-1].Error)
	}
	collect(t, conn, TypeComplete, nil)
}

func TestDeviceAbort(t *testing.T) {
	st := tempStore(t)
	ts := newTestServer(t, NewServer(testConfig(), st, nil))
	conn := dial(t, ts)

	send(t, conn, Inbound{Type: TypeStart, Mode: "presenting", UserID: "u3"})
	collect(t, conn, TypeStarted, nil)
	send(t, conn, Inbound{Type: TypeAbort, Reason: ReasonPermissionDenied})
	msgs := collect(t, conn, TypeAborted, nil)
	waitClosed(t, conn)

	aborted := msgs[len(msgs)-1]
	if !strings.Contains(aborted.Error, session.ErrPermissionDenied.Error()) {
		t.Fatalf("expected permission denied reason, got %q", aborted.Error)
	}
	if count(msgs, TypeComplete) != 0 {
		t.Fatal("aborted session must not complete")
	}
	records, err := st.QueryHistory("u3", 0)
	if err != nil || len(records) != 0 {
		t.Fatalf("expected no records after abort, got %d (%v)", len(records), err)
	}
	types := eventTypes(t, st, aborted.SessionID)
	if types[len(types)-1] != logging.EventAborted {
		t.Fatalf("expected aborted event, got %v", types)
	}
}

func TestFirstMessageMustBeStart(t *testing.T) {
	ts := newTestServer(t, NewServer(testConfig(), nil, nil))
	conn := dial(t, ts)

	send(t, conn, Inbound{Type: TypeFace, Label: "Happy"})
	msgs := collect(t, conn, TypeError, nil)
	if !strings.Contains(msgs[0].Error, "start") {
		t.Fatalf("unexpected error %q", msgs[0].Error)
	}
	waitClosed(t, conn)
}

func TestStartRejectsUnknownMode(t *testing.T) {
	ts := newTestServer(t, NewServer(testConfig(), nil, nil))
	conn := dial(t, ts)

	send(t, conn, Inbound{Type: TypeStart, Mode: "karaoke"})
	msgs := collect(t, conn, TypeError, nil)
	if !strings.Contains(msgs[0].Error, "karaoke") {
		t.Fatalf("unexpected error %q", msgs[0].Error)
	}
}

func TestSecondConnectionRejected(t *testing.T) {
	ts := newTestServer(t, NewServer(testConfig(), nil, nil))
	dial(t, ts)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Fatalf("expected bad handshake, got %v", err)
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %v", resp)
	}
}

func TestDisconnectReleasesSlot(t *testing.T) {
	ts := newTestServer(t, NewServer(testConfig(), nil, nil))
	conn := dial(t, ts)
	send(t, conn, Inbound{Type: TypeStart, Mode: "presenting"})
	collect(t, conn, TypeStarted, nil)
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		next, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
		if err == nil {
			next.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("slot was not released after disconnect")
}

// #endregion session-tests

// #region history-tests
func TestHistoryEndpoint(t *testing.T) {
	st := tempStore(t)
	for i, composite := range []int{50, 80, 66} {
		rec := record.ScoreRecord{
			ID:             uuid.New().String(),
			UserID:         "u4",
			Mode:           "presenting",
			CompositeScore: composite,
			VerbalRating:   "No data",
			Timestamp:      int64(1000 + i),
		}
		if err := st.Save(rec); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	ts := newTestServer(t, NewServer(testConfig(), st, nil))

	resp, err := http.Get(ts.URL + "/history?user=u4&limit=2")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Records) != 2 || body.Records[0].CompositeScore != 66 {
		t.Fatalf("expected newest two records, got %+v", body.Records)
	}
	if body.Summary.Count != 3 || body.Summary.HighScore != 80 || body.Summary.LastScore != 66 {
		t.Fatalf("unexpected summary %+v", body.Summary)
	}
}

func TestHistoryErrors(t *testing.T) {
	withStore := newTestServer(t, NewServer(testConfig(), tempStore(t), nil))
	without := newTestServer(t, NewServer(testConfig(), nil, nil))

	tests := []struct {
		name string
		url  string
		want int
	}{
		{"missing user", withStore.URL + "/history", http.StatusBadRequest},
		{"bad limit", withStore.URL + "/history?user=u&limit=x", http.StatusBadRequest},
		{"no store", without.URL + "/history?user=u", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(tt.url)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("status %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

// #endregion history-tests
