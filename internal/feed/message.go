package feed

import (
	"errors"

	"github.com/presentbetter/coach-engine/internal/gaze"
	"github.com/presentbetter/coach-engine/internal/record"
	"github.com/presentbetter/coach-engine/internal/session"
	"github.com/presentbetter/coach-engine/internal/signals"
)

// #region message-types
// MessageType tags every websocket message.
type MessageType string

// Device to server.
const (
	TypeStart       MessageType = "start"
	TypeFace        MessageType = "face"       // classifier label computed on device
	TypeFaceImage   MessageType = "face_image" // raw face crop, classified remotely
	TypePose        MessageType = "pose"
	TypePoseImage   MessageType = "pose_image"
	TypeGaze        MessageType = "gaze"
	TypeTranscript  MessageType = "transcript"
	TypeSpeechFinal MessageType = "speech_final"
	TypeAbort       MessageType = "abort"
)

// Server to device.
const (
	TypeStarted  MessageType = "started"
	TypePreroll  MessageType = "preroll"
	TypeTick     MessageType = "tick"
	TypeTip      MessageType = "tip"
	TypeComplete MessageType = "complete"
	TypeAborted  MessageType = "aborted"
	TypeError    MessageType = "error"
)

// Abort reasons a device may send.
const (
	ReasonPermissionDenied = "permission_denied"
	ReasonSensorFailure    = "sensor_failure"
)

// #endregion message-types

// #region inbound
// Inbound is a device message. Only the fields of its Type are read.
type Inbound struct {
	Type MessageType `json:"type"`

	// start
	Mode                 string `json:"mode,omitempty"`
	UserID               string `json:"user_id,omitempty"`
	EyeTrackingSupported bool   `json:"eye_tracking_supported,omitempty"`
	SpeechEnabled        bool   `json:"speech_enabled,omitempty"`

	// face, pose
	Label    string           `json:"label,omitempty"`
	Detected *bool            `json:"detected,omitempty"` // defaults to true
	Joints   signals.JointMap `json:"joints,omitempty"`

	// face_image, pose_image
	Image []byte `json:"image,omitempty"`

	// gaze; null means no face anchor
	Gaze *gaze.EyePose `json:"gaze,omitempty"`

	// transcript, speech_final
	Words    int                         `json:"words,omitempty"`
	Segments []signals.TranscriptSegment `json:"segments,omitempty"`

	// abort
	Reason string `json:"reason,omitempty"`
}

func (m Inbound) detected() bool {
	return m.Detected == nil || *m.Detected
}

func (m Inbound) options() (session.Options, error) {
	mode, err := session.ParseMode(m.Mode)
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		Mode:                 mode,
		UserID:               m.UserID,
		EyeTrackingSupported: m.EyeTrackingSupported,
		SpeechEnabled:        m.SpeechEnabled,
	}, nil
}

// abortReason maps a device reason onto the session sentinels.
func (m Inbound) abortReason() error {
	switch m.Reason {
	case ReasonPermissionDenied:
		return session.ErrPermissionDenied
	case ReasonSensorFailure:
		return session.ErrSensorFailure
	case "":
		return nil
	default:
		return errors.New(m.Reason)
	}
}

// #endregion inbound

// #region outbound
// Outbound is a server message.
type Outbound struct {
	Type           MessageType             `json:"type"`
	SessionID      string                  `json:"session_id,omitempty"`
	Display        string                  `json:"display,omitempty"`
	TicksRemaining int                     `json:"ticks_remaining"`
	Preroll        int                     `json:"preroll,omitempty"`
	Feedback       *session.Feedback       `json:"feedback,omitempty"`
	Record         *record.ScoreRecord     `json:"record,omitempty"`
	Training       *session.TrainingResult `json:"training,omitempty"`
	Saved          bool                    `json:"saved,omitempty"`      // complete: record persisted
	SaveError      string                  `json:"save_error,omitempty"` // complete: persistence failed
	Error          string                  `json:"error,omitempty"`
}

// #endregion outbound
