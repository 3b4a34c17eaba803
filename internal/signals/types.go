package signals

import (
	"context"
	"strings"
)

// #region modality
// Modality is one measured presentation skill.
type Modality string

const (
	Facial     Modality = "facial"
	Gesture    Modality = "gesture"
	EyeContact Modality = "eye_contact"
	Speech     Modality = "speech"
)

// Modalities lists every modality in display order.
var Modalities = []Modality{Facial, Gesture, EyeContact, Speech}

// #endregion modality

// #region signal
// Signal is one normalized per-tick observation for a modality. Hit carries
// the boolean verdict ("smiled", "moved", "looked"), Value the continuous
// measurement behind it (arm-angle spread, focus ratio, word count).
type Signal struct {
	Modality Modality
	Tick     int
	Hit      bool
	Value    float64
}

// #endregion signal

// #region emotion
// EmotionLabel is one of the seven classes produced by the face classifier.
type EmotionLabel string

const (
	Angry    EmotionLabel = "Angry"
	Disgust  EmotionLabel = "Disgust"
	Fear     EmotionLabel = "Fear"
	Happy    EmotionLabel = "Happy"
	Sad      EmotionLabel = "Sad"
	Surprise EmotionLabel = "Surprise"
	Neutral  EmotionLabel = "Neutral"
)

var emotionLabels = []EmotionLabel{Angry, Disgust, Fear, Happy, Sad, Surprise, Neutral}

// ParseEmotionLabel maps a classifier label (case-insensitive) to an
// EmotionLabel. Unknown labels report false.
func ParseEmotionLabel(s string) (EmotionLabel, bool) {
	for _, l := range emotionLabels {
		if strings.EqualFold(string(l), strings.TrimSpace(s)) {
			return l, true
		}
	}
	return "", false
}

// #endregion emotion

// #region joints
// Joint names the body points the gesture collector needs.
type Joint string

const (
	LeftWrist     Joint = "left_wrist"
	LeftElbow     Joint = "left_elbow"
	LeftShoulder  Joint = "left_shoulder"
	RightWrist    Joint = "right_wrist"
	RightElbow    Joint = "right_elbow"
	RightShoulder Joint = "right_shoulder"
)

// JointPoint is a detected joint in normalized image coordinates.
type JointPoint struct {
	X          float64 `json:"x" yaml:"x"`
	Y          float64 `json:"y" yaml:"y"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// JointMap is one pose detection keyed by joint name.
type JointMap map[Joint]JointPoint

// #endregion joints

// #region speech
// TranscriptSegment is one recognized word with its timing in seconds.
type TranscriptSegment struct {
	Timestamp float64 `json:"timestamp" yaml:"timestamp"`
	Duration  float64 `json:"duration" yaml:"duration"`
}

// WordSample is a cumulative word count observed at a countdown value.
type WordSample struct {
	TotalWords     int
	TicksRemaining int
}

// #endregion speech

// #region collaborators
// EmotionClassifier labels a cropped face image. ok is false when no face
// could be classified.
type EmotionClassifier interface {
	ClassifyEmotion(ctx context.Context, faceImage []byte) (label EmotionLabel, ok bool, err error)
}

// PoseDetector finds body joints in a frame. ok is false when no body was
// detected.
type PoseDetector interface {
	DetectJoints(ctx context.Context, frame []byte) (joints JointMap, ok bool, err error)
}

// #endregion collaborators
