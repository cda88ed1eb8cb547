package chord

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/nritya/internal/detector"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newAcc(t *testing.T) *Accumulator {
	t.Helper()
	a, err := New(Config{Threshold: 1.0, Cooldown: 2 * time.Second, ConfidenceThreshold: 0.3, Progression: Ambient})
	require.NoError(t, err)
	return a
}

func TestAccumulator_AdvancesOnce(t *testing.T) {
	a := newAcc(t)

	changes := 0
	for i := 0; i < 5; i++ {
		changed, _ := a.Accumulate(0.25, t0.Add(time.Duration(i)*100*time.Millisecond))
		if changed {
			changes++
		}
	}
	assert.Equal(t, 1, changes)
	assert.Equal(t, 1, a.Index())
	assert.Zero(t, a.Sum())
}

func TestAccumulator_Cooldown(t *testing.T) {
	a := newAcc(t)

	changed, idx := a.Accumulate(1.5, t0)
	require.True(t, changed)
	assert.Equal(t, 1, idx)

	changed, _ = a.Accumulate(1.5, t0.Add(time.Second))
	assert.False(t, changed)
	assert.Equal(t, 1.5, a.Sum())

	changed, idx = a.Accumulate(0.1, t0.Add(2*time.Second))
	assert.True(t, changed)
	assert.Equal(t, 2, idx)
}

func TestAccumulator_Wraps(t *testing.T) {
	a := newAcc(t)
	for i := 0; i < len(Ambient); i++ {
		changed, _ := a.Accumulate(2, t0.Add(time.Duration(i)*3*time.Second))
		require.True(t, changed)
	}
	assert.Equal(t, 0, a.Index())
	assert.Equal(t, Ambient[0].Name, a.Current().Name)
}

func TestAccumulator_IgnoresBadDeltas(t *testing.T) {
	a := newAcc(t)
	for _, d := range []float64{-1, 0, math.NaN(), math.Inf(1)} {
		changed, _ := a.Accumulate(d, t0)
		assert.False(t, changed)
	}
	assert.Zero(t, a.Sum())
}

func pose(lx, rx float64) *detector.Pose {
	return &detector.Pose{Keypoints: []detector.Keypoint{
		{Name: "left_wrist", X: lx, Y: 0.5, Score: 0.9},
		{Name: "right_wrist", X: rx, Y: 0.5, Score: 0.9},
	}}
}

func TestAccumulator_ObserveLeftSideOnly(t *testing.T) {
	a := newAcc(t)
	assert.True(t, a.Designated(detector.LeftShoulder))
	assert.False(t, a.Designated(detector.RightWrist))
	assert.False(t, a.Designated(detector.Nose))

	changed, _ := a.Observe(pose(0.2, 0.2), t0)
	assert.False(t, changed)

	// right hand sweeps, left still
	changed, _ = a.Observe(pose(0.2, 0.9), t0.Add(100*time.Millisecond))
	assert.False(t, changed)
	assert.Zero(t, a.Sum())

	changed, _ = a.Observe(pose(0.8, 0.9), t0.Add(200*time.Millisecond))
	assert.False(t, changed)
	assert.InDelta(t, 0.6, a.Sum(), 1e-9)

	changed, idx := a.Observe(pose(0.2, 0.9), t0.Add(300*time.Millisecond))
	assert.True(t, changed)
	assert.Equal(t, 1, idx)

	a.Reset()
	assert.Zero(t, a.Index())
	changed, _ = a.Observe(pose(0.9, 0.9), t0.Add(400*time.Millisecond))
	assert.False(t, changed)
	assert.Zero(t, a.Sum())
}

func TestNew_Validates(t *testing.T) {
	_, err := New(Config{Threshold: 1})
	assert.Error(t, err)
	_, err = New(Config{Threshold: 0, Progression: Ambient})
	assert.Error(t, err)

	a, err := New(Config{Threshold: 1, Parts: []detector.BodyPart{detector.RightWrist}, Progression: Ambient})
	require.NoError(t, err)
	assert.True(t, a.Designated(detector.RightWrist))
	assert.False(t, a.Designated(detector.LeftWrist))
}

func TestEntry_Events(t *testing.T) {
	pad := Ambient[0].PadEvent(0.3)
	assert.Equal(t, Ambient[0].Pad, pad.Notes)
	assert.Equal(t, "Cmaj7", pad.Name)

	bass := Ambient[0].BassEvent(0.5)
	assert.Equal(t, []string{"C2", "G2"}, bass.Notes)

	// voicings must stay independent of the table
	pad.Notes[0] = "X"
	assert.Equal(t, "C4", Ambient[0].Pad[0])
}
