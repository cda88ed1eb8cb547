package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// ErrScriptNotFound is returned when the estimator service script is missing.
var ErrScriptNotFound = errors.New("pose_service.py not found")

// idleShutdown is how long the estimator process may sit unused before it
// is stopped. It is restarted on the next Detect.
const idleShutdown = 30 * time.Second

// SubprocessDetector implements Detector by streaming JPEG frames to a Python
// pose/hand estimator over stdin and reading one JSON line per frame.
//
// Wire format: 4-byte big-endian length followed by the JPEG bytes; the reply
// is {"pose": {...} | null, "hands": [...]} terminated by a newline. Pose
// keypoints are in pixels, hand points are already normalized.
type SubprocessDetector struct {
	config    Config
	script    string
	python    string
	log       *zap.Logger
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewSubprocessDetector locates the estimator script and interpreter. The
// process itself is started lazily on first detection.
func NewSubprocessDetector(config Config, log *zap.Logger) (*SubprocessDetector, error) {
	script := config.Script
	if script == "" {
		script = findScript()
	}
	if script == "" {
		return nil, ErrScriptNotFound
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, script)
	}

	python := config.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &SubprocessDetector{
		config: config,
		script: script,
		python: python,
		log:    log.Named("detector"),
	}, nil
}

// Detect analyzes a frame and returns the pose and hands it contains.
func (d *SubprocessDetector) Detect(frame *gocv.Mat) (Detection, error) {
	if frame == nil || frame.Empty() {
		return Detection{}, errors.New("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return Detection{}, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return Detection{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))

	if _, err := d.stdin.Write(length[:]); err != nil {
		return Detection{}, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return Detection{}, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return Detection{}, fmt.Errorf("read response: %w", err)
	}

	var resp wireResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return Detection{}, fmt.Errorf("parse response: %w", err)
	}

	d.resetIdleTimer()

	return resp.toDetection(float64(frame.Cols()), float64(frame.Rows())), nil
}

// Close shuts down the estimator process.
func (d *SubprocessDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *SubprocessDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	args := []string{
		d.script,
		"--max-hands", fmt.Sprint(d.config.MaxHands),
		"--min-confidence", fmt.Sprint(d.config.MinConfidence),
	}
	if !d.config.Hands {
		args = append(args, "--no-hands")
	}
	d.cmd = exec.Command(d.python, args...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start estimator service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	d.log.Info("estimator started", zap.String("python", d.python), zap.String("script", d.script))
	return nil
}

func (d *SubprocessDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	d.log.Info("estimator stopped")
	return err
}

func (d *SubprocessDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.shutdown(); err != nil {
			d.log.Warn("idle shutdown", zap.Error(err))
		}
	})
}

func findScript() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}
	home, _ := os.UserHomeDir()

	return firstExisting(
		"scripts/pose_service.py",
		"../scripts/pose_service.py",
		filepath.Join(execDir, "scripts/pose_service.py"),
		filepath.Join(home, ".nritya/scripts/pose_service.py"),
	)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}
	home, _ := os.UserHomeDir()

	return firstExisting(
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(home, ".nritya/venv/bin/python"),
	)
}

func firstExisting(candidates ...string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

// wireResponse is the JSON reply of the estimator service.
type wireResponse struct {
	Pose *struct {
		Score     float64    `json:"score"`
		Keypoints []Keypoint `json:"keypoints"`
	} `json:"pose"`
	Hands []wireHand `json:"hands"`
}

type wireHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

// toDetection converts pixel pose coordinates into normalized space.
func (r wireResponse) toDetection(width, height float64) Detection {
	var det Detection

	if r.Pose != nil && width > 0 && height > 0 {
		pose := &Pose{Score: r.Pose.Score, Keypoints: make([]Keypoint, len(r.Pose.Keypoints))}
		for i, kp := range r.Pose.Keypoints {
			pose.Keypoints[i] = Keypoint{
				Name:  kp.Name,
				X:     kp.X / width,
				Y:     kp.Y / height,
				Score: kp.Score,
			}
		}
		det.Pose = pose
	}

	for _, h := range r.Hands {
		lm := HandLandmarks{Handedness: h.Handedness, Score: h.Score}
		for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
			lm.Points[i] = h.Points[i]
		}
		det.Hands = append(det.Hands, lm)
	}

	return det
}
