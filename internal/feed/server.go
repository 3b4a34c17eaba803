package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/presentbetter/coach-engine/internal/logging"
	"github.com/presentbetter/coach-engine/internal/record"
	"github.com/presentbetter/coach-engine/internal/session"
	"github.com/presentbetter/coach-engine/internal/signals"
	"github.com/presentbetter/coach-engine/internal/store"
)

// ErrBusy is returned to a second device while a session is running.
var ErrBusy = errors.New("a session is already active")

// #region config
// Config tunes the feed server.
type Config struct {
	Session           session.Config
	PerceptionTimeout time.Duration // per remote classify/detect call
	StartTimeout      time.Duration // time allowed for the start message
	HistoryLimit      int           // default page size for /history
}

// DefaultConfig returns the server defaults around session.DefaultConfig.
func DefaultConfig() Config {
	return Config{
		Session:           session.DefaultConfig(),
		PerceptionTimeout: 2 * time.Second,
		StartTimeout:      10 * time.Second,
		HistoryLimit:      50,
	}
}

// #endregion config

// #region server
// Server hosts /session and /history. At most one session runs at a time.
type Server struct {
	cfg        Config
	store      *store.Store
	classifier signals.EmotionClassifier
	detector   signals.PoseDetector
	logger     logrus.FieldLogger
	upgrader   websocket.Upgrader

	mu     sync.Mutex
	active bool
}

// NewServer creates a server. store may be nil, in which case records are
// delivered but not persisted and /history is unavailable.
func NewServer(cfg Config, st *store.Store, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		cfg:    cfg,
		store:  st,
		logger: logger.WithField("component", "feed"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// SetPerception wires remote models used for face_image and pose_image
// messages. Either may be nil.
func (s *Server) SetPerception(c signals.EmotionClassifier, d signals.PoseDetector) {
	s.classifier = c
	s.detector = d
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/session", s.handleSession)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.logger.WithField("addr", addr).Info("feed listening")
	select {
	case err := <-errCh:
		return fmt.Errorf("feed serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("feed shutdown: %w", err)
	}
	return nil
}

func (s *Server) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return false
	}
	s.active = true
	return true
}

func (s *Server) release() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// #endregion server

// #region session-handler
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !s.acquire() {
		http.Error(w, ErrBusy.Error(), http.StatusConflict)
		return
	}
	defer s.release()

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := &client{conn: ws}
	defer c.close()

	sess, err := s.start(c)
	if err != nil {
		c.send(Outbound{Type: TypeError, Error: err.Error()})
		return
	}
	c.send(Outbound{Type: TypeStarted, SessionID: sess.ID(), Display: sess.Display(), TicksRemaining: sess.TicksRemaining()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.run(ctx, sess, c)
		c.close()
	}()

	s.readLoop(ctx, sess, c)
	cancel()
	<-done
}

// start reads the start message and creates the session.
func (s *Server) start(c *client) (*session.Session, error) {
	if s.cfg.StartTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(s.cfg.StartTimeout))
		defer c.conn.SetReadDeadline(time.Time{})
	}
	var msg Inbound
	if err := c.conn.ReadJSON(&msg); err != nil {
		return nil, fmt.Errorf("read start: %w", err)
	}
	if msg.Type != TypeStart {
		return nil, fmt.Errorf("expected %q message, got %q", TypeStart, msg.Type)
	}
	opts, err := msg.options()
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	sess, err := session.New(s.cfg.Session, opts, s.logger)
	if err != nil {
		return nil, err
	}
	s.logEvent(sess, logging.EventEntry{EventType: logging.EventStarted, Tick: -1})
	return sess, nil
}

// run drives the session to completion or abort.
func (s *Server) run(ctx context.Context, sess *session.Session, c *client) {
	l := &sessionListener{server: s, session: sess, client: c}
	if _, err := session.NewRunner(sess, l).Run(ctx); err != nil {
		s.logger.WithField("session_id", sess.ID()).WithError(err).Info("session ended without a record")
	}
}

// readLoop applies device messages until the connection closes.
func (s *Server) readLoop(ctx context.Context, sess *session.Session, c *client) {
	for {
		var msg Inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.send(Outbound{Type: TypeError, Error: err.Error()})
				continue
			}
			if !sess.Phase().Terminal() {
				sess.Abort(fmt.Errorf("device disconnected: %w", err))
			}
			return
		}
		if err := s.apply(ctx, sess, msg); err != nil {
			s.logger.WithField("session_id", sess.ID()).WithError(err).Warn("observation skipped")
			c.send(Outbound{Type: TypeError, SessionID: sess.ID(), Error: err.Error()})
		}
	}
}

// apply routes one device message into the session.
func (s *Server) apply(ctx context.Context, sess *session.Session, msg Inbound) error {
	switch msg.Type {
	case TypeFace:
		if !msg.detected() {
			sess.ObserveFace("", false)
			return nil
		}
		label, ok := signals.ParseEmotionLabel(msg.Label)
		if !ok {
			return fmt.Errorf("unknown emotion label %q", msg.Label)
		}
		sess.ObserveFace(label, true)
	case TypeFaceImage:
		if s.classifier == nil {
			return errors.New("no emotion classifier configured")
		}
		rctx, cancel := s.perceptionContext(ctx)
		defer cancel()
		label, ok, err := s.classifier.ClassifyEmotion(rctx, msg.Image)
		if err != nil {
			return err
		}
		sess.ObserveFace(label, ok)
	case TypePose:
		sess.ObservePose(msg.Joints, msg.detected() && len(msg.Joints) > 0)
	case TypePoseImage:
		if s.detector == nil {
			return errors.New("no pose detector configured")
		}
		rctx, cancel := s.perceptionContext(ctx)
		defer cancel()
		joints, ok, err := s.detector.DetectJoints(rctx, msg.Image)
		if err != nil {
			return err
		}
		sess.ObservePose(joints, ok)
	case TypeGaze:
		sess.ObserveGaze(msg.Gaze)
	case TypeTranscript:
		sess.ObserveTranscript(msg.Words)
	case TypeSpeechFinal:
		sess.FinalizeSpeech(msg.Segments)
	case TypeAbort:
		sess.Abort(msg.abortReason())
	default:
		return fmt.Errorf("unexpected message type %q", msg.Type)
	}
	return nil
}

func (s *Server) perceptionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.PerceptionTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.PerceptionTimeout)
}

// #endregion session-handler

// #region completion
// complete persists a presentation record and logs the completion. The
// returned error is the save failure, if any; the record itself stays valid.
func (s *Server) complete(sess *session.Session, rec record.ScoreRecord) (saved bool, err error) {
	if s.store == nil {
		return false, nil
	}
	if sess.Options().Mode == session.Presenting {
		if err = s.store.Save(rec); err != nil {
			s.logger.WithField("record_id", rec.ID).WithError(err).Error("save record failed")
			s.logEvent(sess, logging.EventEntry{EventType: logging.EventSaveFailed, Tick: -1, RecordID: rec.ID, Reason: err.Error()})
		} else {
			saved = true
		}
	}
	s.logEvent(sess, logging.EventEntry{EventType: logging.EventCompleted, Tick: -1, RecordID: rec.ID})
	return saved, err
}

func (s *Server) logEvent(sess *session.Session, e logging.EventEntry) {
	if s.store == nil {
		return
	}
	opts := sess.Options()
	e.SessionID = sess.ID()
	e.UserID = opts.UserID
	e.Mode = string(opts.Mode)
	if err := logging.LogEvent(s.store.DB(), e); err != nil {
		s.logger.WithError(err).Warn("event log failed")
	}
}

// #endregion completion

// #region history
type historyResponse struct {
	Summary store.Summary        `json:"summary"`
	Records []record.ScoreRecord `json:"records"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "history unavailable", http.StatusServiceUnavailable)
		return
	}
	user := r.URL.Query().Get("user")
	if user == "" {
		http.Error(w, "missing user", http.StatusBadRequest)
		return
	}
	limit := s.cfg.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.store.QueryHistory(user, limit)
	if err != nil {
		s.logger.WithError(err).Error("query history failed")
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	sum, err := s.store.Summary(user)
	if err != nil {
		s.logger.WithError(err).Error("summary failed")
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []record.ScoreRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(historyResponse{Summary: sum, Records: records})
}

// #endregion history
