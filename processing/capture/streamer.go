package capture

import (
	"bytes"
	"image"
	"sync"
)

// VideoStreamer is a live frame source. Instances are single-use: once
// stopped, build a new one.
type VideoStreamer interface {
	Start() error
	Stop()
	FrameChan() <-chan image.Image
	ErrorChan() <-chan error
}

// StreamerFactory builds a fresh streamer for each capture session.
type StreamerFactory func() (VideoStreamer, error)

// lockedBuffer collects ffmpeg stderr while the process is still writing.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
