package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"livevision/internal/schedule"
)

var (
	ErrPermissionDenied  = errors.New("Camera access denied. Please allow camera permissions.")
	ErrSourceUnavailable = errors.New("Video source unavailable")
	ErrNoFrames          = errors.New("stream closed before the first frame")
)

const (
	DefaultInterval = time.Second
	DefaultWarmup   = 5 * time.Second
)

// FrameHandler receives one JPEG per tick. ctx is cancelled when the session
// stops, so handlers can abandon in-flight work.
type FrameHandler func(ctx context.Context, frame []byte)

type SessionOptions struct {
	Interval    time.Duration
	JPEGQuality int
	// Warmup bounds how long Start waits for the first frame.
	Warmup time.Duration

	OnFrame FrameHandler
	// OnError is called when an active stream fails. The session has
	// already stopped itself by then.
	OnError func(error)
}

// Session owns at most one open device at a time and feeds its newest frame
// to OnFrame on a fixed period.
type Session struct {
	mu sync.Mutex

	factory StreamerFactory
	opts    SessionOptions

	generation uint64
	streamer   VideoStreamer
	task       *schedule.Task

	// Read without mu so that frame handlers and renderers never wait on a
	// Stop that is itself waiting for them.
	active   atomic.Bool
	id       atomic.Value
	grabber  atomic.Pointer[LatestFrame]
	interval atomic.Int64
}

func NewSession(factory StreamerFactory, opts SessionOptions) *Session {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 80
	}
	if opts.Warmup <= 0 {
		opts.Warmup = DefaultWarmup
	}

	s := &Session{factory: factory, opts: opts}
	s.interval.Store(int64(opts.Interval))
	return s
}

// Start opens the device and begins ticking. Calling Start on an active
// session does nothing. A source that cannot be built from the current
// settings yields ErrSourceUnavailable; a device that refuses to deliver
// frames yields ErrPermissionDenied.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streamer != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	streamer, err := s.factory()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	if err := streamer.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}

	grabber := Watch(streamer)

	select {
	case <-grabber.Ready():
	case err := <-grabber.Err():
		streamer.Stop()
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	case <-grabber.Done():
		streamer.Stop()
		return fmt.Errorf("%w: %w", ErrPermissionDenied, ErrNoFrames)
	case <-time.After(s.opts.Warmup):
		streamer.Stop()
		return fmt.Errorf("%w: no frame within %s", ErrPermissionDenied, s.opts.Warmup)
	case <-ctx.Done():
	}

	if err := ctx.Err(); err != nil {
		streamer.Stop()
		return err
	}

	id := uuid.New().String()

	s.generation++
	s.id.Store(id)
	s.streamer = streamer
	s.grabber.Store(grabber)
	s.active.Store(true)
	s.task = schedule.Start(ctx, s.Interval(), s.tick(grabber))

	log.Printf("capture session %s started (interval %s)", id, s.Interval())

	go s.watch(grabber, s.generation)

	return nil
}

func (s *Session) tick(grabber *LatestFrame) func(ctx context.Context) {
	return func(ctx context.Context) {
		data, err := EncodeJPEG(grabber.Frame(), s.opts.JPEGQuality)
		if err != nil {
			return
		}

		if s.opts.OnFrame != nil {
			s.opts.OnFrame(ctx, data)
		}
	}
}

func (s *Session) watch(grabber *LatestFrame, generation uint64) {
	select {
	case err := <-grabber.Err():
		if s.stopGeneration(generation) {
			log.Printf("capture stream failed: %v", err)
			if s.opts.OnError != nil {
				s.opts.OnError(err)
			}
		}
	case <-grabber.Done():
		if s.stopGeneration(generation) && s.opts.OnError != nil {
			s.opts.OnError(ErrNoFrames)
		}
	}
}

// stopGeneration stops the session only if it is still the one that was
// started as generation, so a stale watcher cannot stop a newer session.
func (s *Session) stopGeneration(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streamer == nil || s.generation != generation {
		return false
	}
	s.teardown()
	return true
}

// Stop releases the device and halts ticking. In-flight handlers see their
// context cancelled; Stop waits for them to return. Safe to call when
// already stopped.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardown()
}

func (s *Session) teardown() {
	if s.streamer == nil {
		return
	}

	s.active.Store(false)

	if s.task != nil {
		s.task.Stop()
		log.Printf("capture session %s stopped (%d frames captured, %d sent, %d ticks dropped)",
			s.ID(), s.grabber.Load().Count(), s.task.Runs(), s.task.Dropped())
	}
	s.streamer.Stop()

	s.streamer = nil
	s.grabber.Store(nil)
	s.task = nil
}

func (s *Session) IsActive() bool {
	return s.active.Load()
}

// ID identifies the current or last session; empty before the first Start.
func (s *Session) ID() string {
	id, _ := s.id.Load().(string)
	return id
}

// Preview returns the newest frame for display, or nil when inactive.
func (s *Session) Preview() image.Image {
	grabber := s.grabber.Load()
	if grabber == nil {
		return nil
	}
	return grabber.Frame()
}

func (s *Session) Interval() time.Duration {
	return time.Duration(s.interval.Load())
}

// SetInterval changes the tick period. It applies from the next Start.
func (s *Session) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}
	s.interval.Store(int64(d))
}
