package detector

import "fmt"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// FingertipIndices lists the tip landmark of each finger, thumb first.
var FingertipIndices = [5]int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Fingertip is a fingertip position tagged with the finger and hand it
// belongs to.
type Fingertip struct {
	Point3D
	Finger string `json:"finger"`
	Hand   string `json:"hand"`
}

// Key returns the stable tracking key for the fingertip, e.g. "left_index".
func (f Fingertip) Key() string {
	return fmt.Sprintf("%s_%s", f.Hand, f.Finger)
}

// FingerName returns the finger name for a fingertip landmark index.
func FingerName(tipIndex int) string {
	switch tipIndex {
	case ThumbTip:
		return "thumb"
	case IndexTip:
		return "index"
	case MiddleTip:
		return "middle"
	case RingTip:
		return "ring"
	case PinkyTip:
		return "pinky"
	default:
		return "unknown"
	}
}

// Fingertips returns the five fingertip positions of the hand.
func (h *HandLandmarks) Fingertips() []Fingertip {
	if h == nil {
		return nil
	}
	hand := "right"
	if h.Handedness == "Left" {
		hand = "left"
	}

	tips := make([]Fingertip, 0, len(FingertipIndices))
	for _, idx := range FingertipIndices {
		tips = append(tips, Fingertip{
			Point3D: h.Points[idx],
			Finger:  FingerName(idx),
			Hand:    hand,
		})
	}
	return tips
}
