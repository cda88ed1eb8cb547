package detector

import "gocv.io/x/gocv"

// Detection is the result of running the pose and hand estimators on one
// video frame. Coordinates are normalized to the frame size.
type Detection struct {
	Pose  *Pose           `json:"pose,omitempty"`
	Hands []HandLandmarks `json:"hands,omitempty"`
}

// Detector defines the interface for pose/hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the pose and hand landmarks.
	// Pose is nil and Hands empty when nobody is in view.
	Detect(frame *gocv.Mat) (Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for detection.
type Config struct {
	// Script is the path of the estimator service script. Empty means search
	// the usual locations.
	Script string

	// Python is the interpreter used to run Script. Empty means search for a
	// virtualenv, then fall back to python3.
	Python string

	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// Hands enables the hand landmark model in addition to body pose.
	Hands bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:      2,
		MinConfidence: 0.5,
		Hands:         true,
	}
}
