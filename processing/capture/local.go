package capture

import (
	"encoding/json"
	"fmt"
	"os/exec"
)

// LocalFileStreamer plays a video file in a loop at its native speed. Handy
// for demos without a camera.
type LocalFileStreamer struct {
	*ffmpegPipe

	sourceWidth  uint16
	sourceHeight uint16
}

func NewLocalStreamer(path string, targetFPS uint, scaledWidth int, scaledHeight int) (*LocalFileStreamer, error) {
	if path == "" {
		return nil, fmt.Errorf("no video file selected")
	}

	w, h, err := probeVideoDimensions(path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video: %w", err)
	}

	input := []string{"-stream_loop", "-1", "-re", "-i", path}

	return &LocalFileStreamer{
		ffmpegPipe:   newFFmpegPipe(path, input, targetFPS, scaledWidth, scaledHeight),
		sourceWidth:  w,
		sourceHeight: h,
	}, nil
}

// SourceSize is the probed size of the file before scaling.
func (ls *LocalFileStreamer) SourceSize() (int, int) {
	return int(ls.sourceWidth), int(ls.sourceHeight)
}

type probeData struct {
	Streams []struct {
		Width  uint16 `json:"width"`
		Height uint16 `json:"height"`
	} `json:"streams"`
}

func probeVideoDimensions(path string) (uint16, uint16, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, 0, err
	}

	return parseProbe(output)
}

func parseProbe(output []byte) (uint16, uint16, error) {
	var data probeData
	if err := json.Unmarshal(output, &data); err != nil {
		return 0, 0, err
	}

	if len(data.Streams) == 0 {
		return 0, 0, fmt.Errorf("no video streams found")
	}

	return data.Streams[0].Width, data.Streams[0].Height, nil
}
