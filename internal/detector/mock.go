package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	result Detection
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPose sets the pose that will be returned by Detect.
func (m *MockDetector) SetPose(p *Pose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result.Pose = p
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result.Hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured detection or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return Detection{}, m.err
	}
	return m.result, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// StandingPose returns a MoveNet-style pose of a person standing with arms
// relaxed, all keypoints confident.
func StandingPose() *Pose {
	return &Pose{
		Score: 0.9,
		Keypoints: []Keypoint{
			{Name: "nose", X: 0.50, Y: 0.15, Score: 0.95},
			{Name: "left_eye", X: 0.52, Y: 0.13, Score: 0.93},
			{Name: "right_eye", X: 0.48, Y: 0.13, Score: 0.93},
			{Name: "left_ear", X: 0.54, Y: 0.14, Score: 0.80},
			{Name: "right_ear", X: 0.46, Y: 0.14, Score: 0.80},
			{Name: "left_shoulder", X: 0.60, Y: 0.30, Score: 0.90},
			{Name: "right_shoulder", X: 0.40, Y: 0.30, Score: 0.90},
			{Name: "left_elbow", X: 0.64, Y: 0.45, Score: 0.85},
			{Name: "right_elbow", X: 0.36, Y: 0.45, Score: 0.85},
			{Name: "left_wrist", X: 0.65, Y: 0.60, Score: 0.85},
			{Name: "right_wrist", X: 0.35, Y: 0.60, Score: 0.85},
			{Name: "left_hip", X: 0.56, Y: 0.62, Score: 0.88},
			{Name: "right_hip", X: 0.44, Y: 0.62, Score: 0.88},
			{Name: "left_knee", X: 0.56, Y: 0.80, Score: 0.80},
			{Name: "right_knee", X: 0.44, Y: 0.80, Score: 0.80},
			{Name: "left_ankle", X: 0.56, Y: 0.95, Score: 0.70},
			{Name: "right_ankle", X: 0.44, Y: 0.95, Score: 0.70},
		},
	}
}

// ArmsRaisedPose returns StandingPose with both wrists and elbows above the
// head.
func ArmsRaisedPose() *Pose {
	p := StandingPose()
	for i, kp := range p.Keypoints {
		switch kp.Name {
		case "left_elbow":
			p.Keypoints[i].Y = 0.18
		case "right_elbow":
			p.Keypoints[i].Y = 0.18
		case "left_wrist":
			p.Keypoints[i].X, p.Keypoints[i].Y = 0.62, 0.05
		case "right_wrist":
			p.Keypoints[i].X, p.Keypoints[i].Y = 0.38, 0.05
		}
	}
	return p
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm.
// All fingers are extended outward.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}
