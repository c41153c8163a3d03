package processing

import (
	"context"
	"errors"
	"log"
	"time"

	"livevision/internal/models"
	"livevision/internal/state"
	"livevision/processing/capture"
)

// Processor is the frame handler for a capture session: it sends each frame
// to the detector and writes the outcome into the shared state.
type Processor struct {
	det   *RemoteDetector
	state *state.State

	// OnResponse sees every accepted response, after state has been updated.
	OnResponse func(resp *models.VisionResponse)
}

func NewProcessor(det *RemoteDetector, st *state.State) *Processor {
	return &Processor{det: det, state: st}
}

// HandleFrame matches capture.FrameHandler. A response that arrives after
// ctx was cancelled belongs to a stopped session and is dropped.
func (p *Processor) HandleFrame(ctx context.Context, frame []byte) {
	p.state.SetScanning(true)

	start := time.Now()
	resp, err := p.det.SendFrame(ctx, frame)

	if ctx.Err() != nil {
		return
	}

	if err != nil {
		log.Printf("send frame: %v", err)
		p.state.SetError(UserMessage(err))
		return
	}

	p.state.ApplyResponse(resp, time.Since(start))

	if p.OnResponse != nil {
		p.OnResponse(resp)
	}
}

// UserMessage maps an error to the text shown in the results panel.
func UserMessage(err error) string {
	var httpErr *HTTPError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &httpErr):
		return httpErr.Error()
	case errors.Is(err, ErrConnection):
		return ErrConnection.Error()
	case errors.Is(err, capture.ErrPermissionDenied):
		return capture.ErrPermissionDenied.Error()
	default:
		return err.Error()
	}
}
