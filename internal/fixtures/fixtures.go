// Package fixtures builds synthetic pose, hand and image sequences for tests.
package fixtures

import (
	"image"
	"image/color"
	"math"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/nritya/internal/detector"
)

// Start is the timestamp of the first fixture frame.
var Start = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Times returns n timestamps step apart beginning at Start.
func Times(n int, step time.Duration) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = Start.Add(time.Duration(i) * step)
	}
	return out
}

// With returns a copy of p with part moved to (x, y). The keypoint is added
// under its snake_case name if missing.
func With(p *detector.Pose, part detector.BodyPart, x, y float64) *detector.Pose {
	out := &detector.Pose{Score: p.Score, Keypoints: append([]detector.Keypoint(nil), p.Keypoints...)}
	names := part.RawNames()
	for i, kp := range out.Keypoints {
		for _, n := range names {
			if kp.Name == n {
				out.Keypoints[i].X, out.Keypoints[i].Y = x, y
				return out
			}
		}
	}
	out.Keypoints = append(out.Keypoints, detector.Keypoint{Name: names[0], X: x, Y: y, Score: 0.9})
	return out
}

// Occluded returns a copy of p with part's score dropped to zero.
func Occluded(p *detector.Pose, part detector.BodyPart) *detector.Pose {
	out := &detector.Pose{Score: p.Score, Keypoints: append([]detector.Keypoint(nil), p.Keypoints...)}
	for i, kp := range out.Keypoints {
		for _, n := range part.RawNames() {
			if kp.Name == n {
				out.Keypoints[i].Score = 0
			}
		}
	}
	return out
}

// Still returns n identical standing poses.
func Still(n int) []*detector.Pose {
	out := make([]*detector.Pose, n)
	for i := range out {
		out[i] = detector.StandingPose()
	}
	return out
}

// Sweep moves part linearly from fromX to toX at height y over n frames.
func Sweep(part detector.BodyPart, n int, fromX, toX, y float64) []*detector.Pose {
	out := make([]*detector.Pose, n)
	for i := range out {
		f := 0.0
		if n > 1 {
			f = float64(i) / float64(n-1)
		}
		out[i] = With(detector.StandingPose(), part, fromX+f*(toX-fromX), y)
	}
	return out
}

// Wave alternates part left and right of centerX by amp every frame.
func Wave(part detector.BodyPart, n int, centerX, amp, y float64) []*detector.Pose {
	out := make([]*detector.Pose, n)
	for i := range out {
		x := centerX + amp
		if i%2 == 1 {
			x = centerX - amp
		}
		out[i] = With(detector.StandingPose(), part, x, y)
	}
	return out
}

// Circle moves part once around a circle of radius r centred on (cx, cy).
func Circle(part detector.BodyPart, n int, cx, cy, r float64) []*detector.Pose {
	out := make([]*detector.Pose, n)
	for i := range out {
		a := 2 * math.Pi * float64(i) / float64(n)
		out[i] = With(detector.StandingPose(), part, cx+r*math.Cos(a), cy+r*math.Sin(a))
	}
	return out
}

// Clap brings both wrists from apart to touching over n frames; the last
// frame has the wrists together.
func Clap(n int) []*detector.Pose {
	out := make([]*detector.Pose, n)
	for i := range out {
		f := 1.0
		if n > 1 {
			f = float64(i) / float64(n-1)
		}
		gap := 0.4 * (1 - f)
		p := With(detector.StandingPose(), detector.LeftWrist, 0.5+gap/2+0.01, 0.4)
		out[i] = With(p, detector.RightWrist, 0.5-gap/2-0.01, 0.4)
	}
	return out
}

// Hand returns an open palm for handedness ("Left" or "Right") shifted so
// the index fingertip sits at x.
func Hand(handedness string, x float64) detector.HandLandmarks {
	h := detector.OpenPalmLandmarks()
	h.Handedness = handedness
	dx := x - h.Points[detector.IndexTip].X
	for i := range h.Points {
		h.Points[i].X += dx
	}
	return h
}

// BlankFrame returns a black BGR image. The caller closes it.
func BlankFrame(width, height int) gocv.Mat {
	m := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	m.SetTo(gocv.NewScalar(0, 0, 0, 0))
	return m
}

// DotFrame returns a black frame with a white dot at the normalized point.
func DotFrame(width, height int, x, y float64) gocv.Mat {
	m := BlankFrame(width, height)
	c := image.Pt(int(x*float64(width)), int(y*float64(height)))
	gocv.Circle(&m, c, 4, color.RGBA{255, 255, 255, 0}, -1)
	return m
}
