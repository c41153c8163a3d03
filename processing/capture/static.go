package capture

import (
	"image"
	"sync"
	"sync/atomic"
	"time"
)

// StaticStreamer repeats one image forever. It is the headless frame source
// used by tests and by `scan --source static`.
type StaticStreamer struct {
	stopOnce  sync.Once
	startOnce sync.Once

	Image image.Image
	Every time.Duration

	// StartErr is returned from Start, simulating a refused device.
	StartErr error
	// FailWith, when set, is reported on ErrorChan instead of any frame.
	FailWith error

	starts atomic.Int32

	frameChan chan image.Image
	errChan   chan error
	stopChan  chan struct{}
}

func NewStaticStreamer(img image.Image) *StaticStreamer {
	return &StaticStreamer{
		Image:     img,
		Every:     5 * time.Millisecond,
		frameChan: make(chan image.Image, 1),
		errChan:   make(chan error, 1),
		stopChan:  make(chan struct{}),
	}
}

func (s *StaticStreamer) Start() error {
	s.starts.Add(1)
	if s.StartErr != nil {
		return s.StartErr
	}

	s.startOnce.Do(func() { go s.loop() })
	return nil
}

func (s *StaticStreamer) loop() {
	defer close(s.frameChan)
	defer close(s.errChan)

	if s.FailWith != nil {
		s.errChan <- s.FailWith
		<-s.stopChan
		return
	}

	ticker := time.NewTicker(s.Every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case s.frameChan <- s.Image:
		}

		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
		}
	}
}

func (s *StaticStreamer) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Stopped reports whether Stop has been called.
func (s *StaticStreamer) Stopped() bool {
	select {
	case <-s.stopChan:
		return true
	default:
		return false
	}
}

func (s *StaticStreamer) Starts() int { return int(s.starts.Load()) }

func (s *StaticStreamer) FrameChan() <-chan image.Image { return s.frameChan }
func (s *StaticStreamer) ErrorChan() <-chan error       { return s.errChan }
