package capture

import (
	"image"
	"image/color"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/ayusman/nritya/internal/detector"
	"github.com/ayusman/nritya/internal/harp"
)

var (
	pluckedColor    = color.RGBA{255, 215, 0, 0}
	keypointColor   = color.RGBA{0, 255, 0, 0}
	fingertipColor  = color.RGBA{255, 0, 255, 0}
	defaultStrColor = color.RGBA{255, 255, 255, 0}
)

// Overlay draws harp strings and tracked points onto preview frames.
// Layout positions are in normalized image width.
type Overlay struct {
	Layout    harp.Layout
	Threshold float64
}

// NewOverlay returns an overlay for layout that hides keypoints scored at
// or below threshold.
func NewOverlay(layout harp.Layout, threshold float64) *Overlay {
	return &Overlay{Layout: layout, Threshold: threshold}
}

// StringColumn returns the pixel column of displayed string i on an image
// cols wide.
func (o *Overlay) StringColumn(i, cols int) int {
	return int(o.Layout.StringX(i) * float64(cols))
}

// Draw paints the strings, highlighting plucked ones, then the pose
// keypoints and fingertips of f.
func (o *Overlay) Draw(img *gocv.Mat, f detector.Frame, plucks []harp.Pluck) {
	if img == nil || img.Empty() {
		return
	}
	cols, rows := img.Cols(), img.Rows()

	plucked := make(map[int]bool, len(plucks))
	for _, p := range plucks {
		plucked[p.String] = true
	}

	for i := 0; i < o.Layout.Len(); i++ {
		x := o.StringColumn(i, cols)
		c, thickness := hexColor(harp.StringColor(o.Layout.Base(i))), 1
		if plucked[i] {
			c, thickness = pluckedColor, 3
		}
		gocv.Line(img, image.Pt(x, 0), image.Pt(x, rows-1), c, thickness)
	}

	if f.Pose != nil {
		for _, kp := range f.Pose.Keypoints {
			if !kp.Valid(o.Threshold) {
				continue
			}
			gocv.Circle(img, toPixel(kp.X, kp.Y, cols, rows), 4, keypointColor, -1)
		}
	}
	for _, h := range f.Hands {
		for _, tip := range h.Fingertips() {
			gocv.Circle(img, toPixel(tip.X, tip.Y, cols, rows), 3, fingertipColor, -1)
		}
	}
}

func toPixel(x, y float64, cols, rows int) image.Point {
	return image.Pt(int(x*float64(cols)), int(y*float64(rows)))
}

// hexColor parses "#rrggbb", falling back to white.
func hexColor(s string) color.RGBA {
	if len(s) != 7 || s[0] != '#' {
		return defaultStrColor
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return defaultStrColor
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0}
}
