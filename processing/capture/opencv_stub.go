//go:build !gocv

package capture

import "errors"

var ErrOpenCVUnavailable = errors.New("OpenCV capture not compiled in; rebuild with -tags gocv")

func NewOpenCVStreamer(deviceID string, targetFPS uint) (VideoStreamer, error) {
	return nil, ErrOpenCVUnavailable
}
