package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/nritya/internal/capture"
	"github.com/ayusman/nritya/internal/detector"
	"github.com/ayusman/nritya/internal/engine"
)

// runPipeline pulls camera frames until stopCh closes. It idles at IdleFPS
// without running the detector until the motion gate opens, then runs
// detection and the session at ActiveFPS until the scene has been still for
// IdleTimeout.
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	active := false
	lastMotion := time.Now()
	ticker := time.NewTicker(time.Second / IdleFPS)
	defer ticker.Stop()

	setRate := func(fps int) {
		a.camera.SetFPS(fps)
		ticker.Reset(time.Second / time.Duration(fps))
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		if !a.IsEnabled() {
			continue
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			a.log.Debug("read frame", zap.Error(err))
			continue
		}

		now := time.Now()
		if moving, change := a.motion.Check(frame); moving {
			lastMotion = now
			if !active {
				active = true
				setRate(ActiveFPS)
				a.log.Info("pipeline active", zap.Float64("change", change))
			}
		} else if active && now.Sub(lastMotion) > IdleTimeout {
			active = false
			setRate(IdleFPS)
			a.flushRecording()
			a.log.Info("pipeline idle")
		}

		if !active {
			a.updatePreview(frame, detector.Frame{}, engine.Result{})
			frame.Close()
			continue
		}

		if _, err := a.process(ctx, frame, now); err != nil {
			a.log.Warn("process frame", zap.Error(err))
		}
		frame.Close()
	}
}

// process runs detection and one session tick on frame, then delivers the
// result to the sinks, the landmarks publisher and the preview.
func (a *App) process(ctx context.Context, frame *gocv.Mat, now time.Time) (engine.Result, error) {
	a.mu.RLock()
	det, session, emitter := a.detector, a.session, a.emitter
	a.mu.RUnlock()

	d, err := det.Detect(frame)
	if err != nil {
		return engine.Result{}, fmt.Errorf("detect: %w", err)
	}

	f := detector.Frame{Pose: d.Pose, Hands: d.Hands, Timestamp: now}
	res, err := session.Tick(f)
	if err != nil {
		return res, fmt.Errorf("tick: %w", err)
	}

	emitter.Emit(ctx, res)
	if a.config.Landmarks != nil {
		a.config.Landmarks.Publish(f, res)
	}
	a.updateTempo(res.Tempo)
	a.updatePreview(frame, f, res)
	return res, nil
}

func (a *App) updatePreview(frame *gocv.Mat, f detector.Frame, res engine.Result) {
	a.mu.RLock()
	overlay := capture.NewOverlay(a.session.Layout(), a.config.Engine.Mapper.ConfidenceThreshold)
	harpMode := a.session.Mode() == engine.Harp
	a.mu.RUnlock()

	a.preview.set(frame, func(m *gocv.Mat) {
		if !harpMode {
			overlay.Layout.Strings = nil
		}
		overlay.Draw(m, f, res.Plucks)
	})
}

// flushRecording persists the events recorded so far.
func (a *App) flushRecording() {
	a.mu.RLock()
	rec := a.recorder
	a.mu.RUnlock()
	if rec == nil {
		return
	}
	if err := rec.Flush(); err != nil {
		a.log.Error("flush session events", zap.Error(err))
	}
}
