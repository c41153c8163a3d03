package capture

import (
	"image"
	"sync"
)

// LatestFrame drains a streamer and keeps only the newest frame, so a slow
// consumer always sees the current picture rather than a backlog.
type LatestFrame struct {
	mu     sync.RWMutex
	frame  image.Image
	frames uint64

	readyOnce sync.Once
	ready     chan struct{}
	errc      chan error
	done      chan struct{}
}

func Watch(s VideoStreamer) *LatestFrame {
	lf := &LatestFrame{
		ready: make(chan struct{}),
		errc:  make(chan error, 1),
		done:  make(chan struct{}),
	}

	go lf.run(s.FrameChan(), s.ErrorChan())

	return lf
}

func (lf *LatestFrame) run(frames <-chan image.Image, errs <-chan error) {
	defer close(lf.done)

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if frame == nil {
				continue
			}

			lf.mu.Lock()
			lf.frame = frame
			lf.frames++
			lf.mu.Unlock()

			lf.readyOnce.Do(func() { close(lf.ready) })

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				select {
				case lf.errc <- err:
				default:
				}
			}
		}
	}
}

// Frame returns the newest frame, or nil before the first one arrives.
func (lf *LatestFrame) Frame() image.Image {
	lf.mu.RLock()
	defer lf.mu.RUnlock()
	return lf.frame
}

func (lf *LatestFrame) Count() uint64 {
	lf.mu.RLock()
	defer lf.mu.RUnlock()
	return lf.frames
}

// Ready is closed when the first frame arrives.
func (lf *LatestFrame) Ready() <-chan struct{} { return lf.ready }

// Err delivers the first stream error.
func (lf *LatestFrame) Err() <-chan error { return lf.errc }

// Done is closed when the streamer's frame channel closes.
func (lf *LatestFrame) Done() <-chan struct{} { return lf.done }
