package feed

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/presentbetter/coach-engine/internal/logging"
	"github.com/presentbetter/coach-engine/internal/record"
	"github.com/presentbetter/coach-engine/internal/session"
)

// #region client
// client serialises writes to one websocket connection.
type client struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func (c *client) send(msg Outbound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.closed = true
		c.conn.Close()
	}
}

// close sends a normal closure frame once and closes the socket.
func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.conn.Close()
}

// #endregion client

// #region listener
// sessionListener forwards runner events to the device and the event log.
type sessionListener struct {
	server  *Server
	session *session.Session
	client  *client
}

func (l *sessionListener) OnPreroll(res session.PrerollResult) {
	l.client.send(Outbound{
		Type:           TypePreroll,
		SessionID:      l.session.ID(),
		Preroll:        res.Remaining,
		Display:        res.Display,
		TicksRemaining: l.session.TicksRemaining(),
	})
}

func (l *sessionListener) OnTick(res session.TickResult) {
	l.client.send(Outbound{
		Type:           TypeTick,
		SessionID:      l.session.ID(),
		Display:        res.Display,
		TicksRemaining: res.TicksRemaining,
	})
}

func (l *sessionListener) OnFeedback(fb session.Feedback) {
	l.client.send(Outbound{Type: TypeTip, SessionID: l.session.ID(), Feedback: &fb, TicksRemaining: fb.TicksRemaining})
	l.server.logEvent(l.session, logging.EventEntry{
		EventType: logging.EventFeedback,
		Modality:  string(fb.Modality),
		FromState: fb.Previous,
		ToState:   fb.StateName,
		Tick:      fb.TicksRemaining,
		Reason:    fb.Tip,
	})
}

func (l *sessionListener) OnComplete(rec record.ScoreRecord) {
	out := Outbound{Type: TypeComplete, SessionID: l.session.ID(), Record: &rec}
	if tr, ok := l.session.TrainingResult(); ok {
		out.Training = &tr
	}
	saved, err := l.server.complete(l.session, rec)
	out.Saved = saved
	if err != nil {
		out.SaveError = err.Error()
	}
	l.client.send(out)
}

func (l *sessionListener) OnAbort(reason error) {
	l.client.send(Outbound{Type: TypeAborted, SessionID: l.session.ID(), Error: reason.Error()})
	l.server.logEvent(l.session, logging.EventEntry{EventType: logging.EventAborted, Tick: -1, Reason: reason.Error()})
}

// #endregion listener
