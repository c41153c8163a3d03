//go:build gocv

package capture

import (
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// OpenCVStreamer reads frames straight from the device through OpenCV,
// without an ffmpeg subprocess.
type OpenCVStreamer struct {
	stopOnce sync.Once

	deviceID  string
	targetFPS uint

	webcam    *gocv.VideoCapture
	frameChan chan image.Image
	errChan   chan error
	stopChan  chan struct{}
}

func NewOpenCVStreamer(deviceID string, targetFPS uint) (VideoStreamer, error) {
	if targetFPS == 0 {
		targetFPS = previewFPS
	}

	return &OpenCVStreamer{
		deviceID:  deviceID,
		targetFPS: targetFPS,
		frameChan: make(chan image.Image, 1),
		errChan:   make(chan error, 1),
		stopChan:  make(chan struct{}),
	}, nil
}

func (cs *OpenCVStreamer) Start() error {
	webcam, err := gocv.OpenVideoCapture(cs.deviceID)
	if err != nil {
		return fmt.Errorf("open video capture %s: %w", cs.deviceID, err)
	}
	cs.webcam = webcam

	go cs.readLoop()

	return nil
}

func (cs *OpenCVStreamer) readLoop() {
	defer close(cs.frameChan)
	defer close(cs.errChan)
	defer cs.webcam.Close()

	img := gocv.NewMat()
	defer img.Close()

	ticker := time.NewTicker(time.Second / time.Duration(cs.targetFPS))
	defer ticker.Stop()

	for {
		select {
		case <-cs.stopChan:
			return
		case <-ticker.C:
		}

		if ok := cs.webcam.Read(&img); !ok {
			cs.errChan <- fmt.Errorf("camera %s: device closed", cs.deviceID)
			return
		}
		if img.Empty() {
			continue
		}

		frame, err := img.ToImage()
		if err != nil {
			continue
		}

		select {
		case cs.frameChan <- frame:
		default:
		}
	}
}

func (cs *OpenCVStreamer) Stop() {
	cs.stopOnce.Do(func() {
		close(cs.stopChan)
	})
}

func (cs *OpenCVStreamer) FrameChan() <-chan image.Image { return cs.frameChan }
func (cs *OpenCVStreamer) ErrorChan() <-chan error       { return cs.errChan }
