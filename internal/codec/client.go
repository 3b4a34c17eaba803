package codec

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/presentbetter/coach-engine/internal/signals"
)

// #region methods
// Full method names served by the perception service. Payloads are
// google.protobuf.Struct messages.
const (
	MethodClassifyEmotion = "/presentbetter.perception.v1.Perception/ClassifyEmotion"
	MethodDetectJoints    = "/presentbetter.perception.v1.Perception/DetectJoints"
)

const maxRetries = 2 // max 2 retries = 3 total attempts

// #endregion methods

// #region client-struct
// PerceptionClient calls the remote emotion and pose models over gRPC.
type PerceptionClient struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

var (
	_ signals.EmotionClassifier = (*PerceptionClient)(nil)
	_ signals.PoseDetector      = (*PerceptionClient)(nil)
)

// #endregion client-struct

// #region constructor
// NewPerceptionClient connects to the perception gRPC server.
func NewPerceptionClient(addr string) (*PerceptionClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &PerceptionClient{conn: conn, cc: conn}, nil
}

// NewPerceptionClientWithConn creates a PerceptionClient on an existing
// connection. Used for testing without a real server.
func NewPerceptionClientWithConn(cc grpc.ClientConnInterface) *PerceptionClient {
	return &PerceptionClient{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection if this client owns one.
func (c *PerceptionClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region classify-emotion
// ClassifyEmotion sends a cropped face image and returns the predicted
// label. ok is false when the model found no face.
func (c *PerceptionClient) ClassifyEmotion(ctx context.Context, faceImage []byte) (signals.EmotionLabel, bool, error) {
	req, err := structpb.NewStruct(map[string]interface{}{
		"image": base64.StdEncoding.EncodeToString(faceImage),
	})
	if err != nil {
		return "", false, fmt.Errorf("classify emotion request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := c.invoke(ctx, MethodClassifyEmotion, req, resp); err != nil {
		return "", false, fmt.Errorf("classify emotion rpc: %w", err)
	}

	fields := resp.GetFields()
	if !fields["detected"].GetBoolValue() {
		return "", false, nil
	}
	raw := fields["label"].GetStringValue()
	label, ok := signals.ParseEmotionLabel(raw)
	if !ok {
		return "", false, fmt.Errorf("classify emotion: unknown label %q", raw)
	}
	return label, true, nil
}

// #endregion classify-emotion

// #region detect-joints
// DetectJoints sends a camera frame and returns the arm joints found.
// ok is false when no body was detected. Joints the model did not report are
// absent from the map.
func (c *PerceptionClient) DetectJoints(ctx context.Context, frame []byte) (signals.JointMap, bool, error) {
	req, err := structpb.NewStruct(map[string]interface{}{
		"frame": base64.StdEncoding.EncodeToString(frame),
	})
	if err != nil {
		return nil, false, fmt.Errorf("detect joints request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := c.invoke(ctx, MethodDetectJoints, req, resp); err != nil {
		return nil, false, fmt.Errorf("detect joints rpc: %w", err)
	}

	fields := resp.GetFields()
	if !fields["detected"].GetBoolValue() {
		return nil, false, nil
	}

	joints := signals.JointMap{}
	for name, v := range fields["joints"].GetStructValue().GetFields() {
		p := v.GetStructValue().GetFields()
		if p == nil {
			return nil, false, fmt.Errorf("detect joints: joint %q is not an object", name)
		}
		joints[signals.Joint(name)] = signals.JointPoint{
			X:          p["x"].GetNumberValue(),
			Y:          p["y"].GetNumberValue(),
			Confidence: p["confidence"].GetNumberValue(),
		}
	}
	return joints, true, nil
}

// #endregion detect-joints

// #region retry
// invoke calls method, retrying while the server reports Unavailable and ctx
// is still live.
func (c *PerceptionClient) invoke(ctx context.Context, method string, req, resp *structpb.Struct) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = c.cc.Invoke(ctx, method, req, resp)
		if status.Code(err) != codes.Unavailable || ctx.Err() != nil {
			return err
		}
		resp.Reset()
	}
	return err
}

// #endregion retry
