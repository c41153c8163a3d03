package capture

import (
	"fmt"
	"log"

	config "livevision/internal/config"
)

// previewFPS is how often the device is sampled. The send interval is
// usually much longer; the preview just needs to look live.
const previewFPS uint = 15

func NewStreamer(t *config.Config) (VideoStreamer, error) {
	switch t.GetSource() {
	case config.SourceWebcam:
		return NewFFmpegWebcam(t.GetDeviceID(), previewFPS, t.GetWidth(), t.GetHeight()), nil
	case config.SourceLocal:
		ls, err := NewLocalStreamer(t.GetLocalPath(), previewFPS, t.GetWidth(), t.GetHeight())
		if err != nil {
			return nil, err
		}
		w, h := ls.SourceSize()
		log.Printf("local source %s: %dx%d", t.GetLocalPath(), w, h)
		return ls, nil
	case config.SourceOpenCV:
		return NewOpenCVStreamer(t.GetDeviceID(), previewFPS)
	default:
		return nil, fmt.Errorf("unknown source: %s", t.GetSource())
	}
}

// FactoryFor re-reads the config on every call so that source changes made
// in the settings panel apply to the next session.
func FactoryFor(t *config.Config) StreamerFactory {
	return func() (VideoStreamer, error) {
		return NewStreamer(t)
	}
}
