package capture

import (
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"
	"sync"
)

const bytesPerPixel = 4

// ffmpegPipe runs ffmpeg with raw RGBA output on stdout and cuts the stream
// into frames of width*height*4 bytes.
type ffmpegPipe struct {
	stopOnce sync.Once
	waitOnce sync.Once

	name   string
	input  []string
	fps    uint
	width  int
	height int

	cmd    *exec.Cmd
	stderr lockedBuffer

	frameChan chan image.Image
	errChan   chan error
	stopChan  chan struct{}
}

func newFFmpegPipe(name string, input []string, fps uint, width, height int) *ffmpegPipe {
	if fps == 0 {
		fps = previewFPS
	}

	return &ffmpegPipe{
		name:      name,
		input:     input,
		fps:       fps,
		width:     width,
		height:    height,
		frameChan: make(chan image.Image, 1),
		errChan:   make(chan error, 1),
		stopChan:  make(chan struct{}),
	}
}

func (p *ffmpegPipe) args() []string {
	return append(append([]string{"-hide_banner", "-loglevel", "error"}, p.input...),
		"-vf", fmt.Sprintf("fps=%d,scale=%d:%d", p.fps, p.width, p.height),
		"-f", "image2pipe",
		"-pix_fmt", "rgba",
		"-vcodec", "rawvideo",
		"-",
	)
}

func (p *ffmpegPipe) Start() error {
	if p.width <= 0 || p.height <= 0 {
		return fmt.Errorf("%s: invalid size %dx%d", p.name, p.width, p.height)
	}

	p.cmd = exec.Command("ffmpeg", p.args()...)
	p.cmd.Stderr = &p.stderr

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return err
	}

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("%s: start ffmpeg: %w", p.name, err)
	}

	go p.readLoop(stdout)

	return nil
}

func (p *ffmpegPipe) readLoop(stdout io.ReadCloser) {
	defer close(p.frameChan)
	defer close(p.errChan)
	defer stdout.Close()
	defer p.kill()

	frameSize := p.width * p.height * bytesPerPixel

	for {
		pix := make([]byte, frameSize)

		if _, err := io.ReadFull(stdout, pix); err != nil {
			select {
			case <-p.stopChan:
			default:
				p.errChan <- fmt.Errorf("%s: %v: %s", p.name, err, lastLine(p.stderr.String()))
			}
			return
		}

		img := &image.RGBA{
			Pix:    pix,
			Stride: p.width * bytesPerPixel,
			Rect:   image.Rect(0, 0, p.width, p.height),
		}

		select {
		case p.frameChan <- img:
		case <-p.stopChan:
			return
		}
	}
}

func (p *ffmpegPipe) kill() {
	p.waitOnce.Do(func() {
		if p.cmd != nil && p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
			_ = p.cmd.Wait()
		}
	})
}

func (p *ffmpegPipe) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
		p.kill()
	})
}

func (p *ffmpegPipe) FrameChan() <-chan image.Image { return p.frameChan }
func (p *ffmpegPipe) ErrorChan() <-chan error       { return p.errChan }

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
