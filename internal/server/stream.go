package server

import (
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

const (
	streamBoundary = "frame"
	streamInterval = 66 * time.Millisecond
	streamRetry    = 100 * time.Millisecond
)

// FrameSource yields preview frames. The caller closes each frame.
type FrameSource interface {
	ReadFrame() (*gocv.Mat, error)
}

// StreamHandler serves a FrameSource as MJPEG at about 15 FPS.
type StreamHandler struct {
	source FrameSource
	log    *zap.Logger
}

// NewStreamHandler creates a StreamHandler over source.
func NewStreamHandler(source FrameSource, log *zap.Logger) *StreamHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &StreamHandler{source: source, log: log}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(streamBoundary); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, _ := w.(http.Flusher)

	for {
		wait := streamInterval
		if err := h.writeFrame(mw); err != nil {
			if isClientGone(r) {
				return
			}
			h.log.Debug("preview frame skipped", zap.Error(err))
			wait = streamRetry
		} else if flusher != nil {
			flusher.Flush()
		}

		select {
		case <-r.Context().Done():
			return
		case <-time.After(wait):
		}
	}
}

func (h *StreamHandler) writeFrame(mw *multipart.Writer) error {
	frame, err := h.source.ReadFrame()
	if err != nil {
		return err
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	frame.Close()
	if err != nil {
		return err
	}
	defer buf.Close()

	data := buf.GetBytes()
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":   {"image/jpeg"},
		"Content-Length": {strconv.Itoa(len(data))},
	})
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

func isClientGone(r *http.Request) bool {
	return r.Context().Err() != nil
}
