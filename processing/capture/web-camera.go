package capture

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
)

// FFmpegWebcamStreamer captures a local camera through ffmpeg's platform
// input device.
type FFmpegWebcamStreamer struct {
	*ffmpegPipe
}

func NewFFmpegWebcam(deviceName string, targetFps uint, scaledWidth int, scaledHeight int) *FFmpegWebcamStreamer {
	return &FFmpegWebcamStreamer{
		ffmpegPipe: newFFmpegPipe("camera "+deviceName, cameraInput(runtime.GOOS, deviceName), targetFps, scaledWidth, scaledHeight),
	}
}

func cameraInput(goos, device string) []string {
	switch goos {
	case "windows":
		return []string{"-f", "dshow", "-i", fmt.Sprintf("video=%s", device)}
	case "darwin":
		return []string{"-f", "avfoundation", "-framerate", "30", "-i", device}
	default:
		return []string{"-f", "v4l2", "-i", device}
	}
}

var dshowDevice = regexp.MustCompile(`"([^"]+)"\s+\(video\)`)

// ListCameras returns the devices NewFFmpegWebcam accepts on this OS.
func ListCameras() ([]string, error) {
	var cameras []string

	switch runtime.GOOS {
	case "windows":
		cmd := exec.Command("ffmpeg", "-list_devices", "true", "-f", "dshow", "-i", "dummy")
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		// ffmpeg always exits non-zero here; the listing is on stderr.
		_ = cmd.Run()

		cameras = parseDshowDevices(stderr.String())
	case "linux":
		devices, err := filepath.Glob("/dev/video*")
		if err != nil {
			return nil, err
		}
		cameras = devices
	default:
		cameras = []string{"0"}
	}

	sort.Strings(cameras)
	return cameras, nil
}

func parseDshowDevices(listing string) []string {
	var names []string
	seen := make(map[string]bool)

	for _, m := range dshowDevice.FindAllStringSubmatch(listing, -1) {
		name := m[1]
		if name == "dummy" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
