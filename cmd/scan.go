package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"log"
	"sync/atomic"
	"time"

	"livevision/internal/models"
	"livevision/internal/monitor"
	"livevision/internal/recording"
	"livevision/internal/settings"
	"livevision/internal/state"
	"livevision/processing/capture"
	processing "livevision/processing/detector"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

const sourceStatic = "static"

// ScanOptions configures the headless capture loop.
type ScanOptions struct {
	Source    string
	Interval  time.Duration
	Frames    int
	Check     bool
	Serve     bool
	Addr      string
	Record    bool
	RecordDir string
}

var scanOpts ScanOptions

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Capture frames and send them to the backend without a window",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := scanOpts
		if !cmd.Flags().Changed("addr") {
			opts.Addr = cfg.GetMonitorAddr()
		}
		if !cmd.Flags().Changed("record-dir") {
			opts.RecordDir = cfg.GetRecordingDir()
		}
		return runScan(cmd.Context(), opts, cmd.ErrOrStderr())
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanOpts.Source, "source", "s", "", "Frame source: empty for the configured device, or \"static\" for a synthetic frame")
	scanCmd.Flags().DurationVarP(&scanOpts.Interval, "interval", "i", 0, "Send interval (default: interval_ms from the config)")
	scanCmd.Flags().IntVarP(&scanOpts.Frames, "frames", "n", 0, "Stop after this many backend responses (0 runs until Ctrl+C)")
	scanCmd.Flags().BoolVar(&scanOpts.Check, "check", false, "Check backend health before scanning")
	scanCmd.Flags().BoolVar(&scanOpts.Serve, "serve", false, "Serve live state over HTTP and websocket")
	scanCmd.Flags().StringVar(&scanOpts.Addr, "addr", "", "Monitor listen address (default: monitor_addr from the config)")
	scanCmd.Flags().BoolVarP(&scanOpts.Record, "record", "r", false, "Append raw backend responses to a recording file")
	scanCmd.Flags().StringVar(&scanOpts.RecordDir, "record-dir", "", "Directory for recording files")

	rootCmd.AddCommand(scanCmd)
}

func runScan(ctx context.Context, opts ScanOptions, out io.Writer) error {
	store := settings.NewConfigStore(cfg, configPath)
	store.OnSaveError = func(err error) { log.Printf("save config: %v", err) }

	det := newDetector(urlStore(store))

	if opts.Check {
		if err := checkHealth(ctx, det, out); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := state.New()
	proc := processing.NewProcessor(det, st)

	var rec *recording.Writer
	if opts.Record {
		w, err := recording.NewWriter(opts.RecordDir, "scan")
		if err != nil {
			return fmt.Errorf("open recording: %w", err)
		}
		defer w.Close()
		rec = w
		fmt.Fprintf(out, "Recording to %s\n", rec.Path())
	}

	if opts.Serve {
		mon := monitor.New(st)
		go func() {
			if err := mon.Run(ctx, opts.Addr); err != nil {
				log.Printf("monitor: %v", err)
			}
		}()
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Scanning"),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
	)

	var (
		session   *capture.Session
		responses atomic.Int64
		streamErr error
	)

	proc.OnResponse = func(resp *models.VisionResponse) {
		snap := st.Snapshot()
		bar.Describe(describe(snap))
		_ = bar.Add(1)

		if rec != nil {
			if err := rec.Record(session.ID(), resp.Raw); err != nil {
				log.Printf("record response: %v", err)
			}
		}

		if n := responses.Add(1); opts.Frames > 0 && n >= int64(opts.Frames) {
			cancel()
		}
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = cfg.GetInterval()
	}

	session = capture.NewSession(scanFactory(opts.Source), capture.SessionOptions{
		Interval:    interval,
		JPEGQuality: cfg.GetJPEGQuality(),
		OnFrame:     proc.HandleFrame,
		OnError: func(err error) {
			streamErr = err
			cancel()
		},
	})

	if err := session.Start(ctx); err != nil {
		return err
	}
	st.Started(session.ID())

	fmt.Fprintf(out, "Session %s: sending to %s every %s\n", session.ID(), det.BaseURL(), interval)

	<-ctx.Done()

	session.Stop()
	st.Stopped()
	_ = bar.Finish()

	fmt.Fprintf(out, "\nScan complete. %s received.\n", state.FormatFrames(int(responses.Load())))

	if streamErr != nil {
		return fmt.Errorf("capture stopped: %w", streamErr)
	}
	return nil
}

func describe(snap state.Snapshot) string {
	return fmt.Sprintf("faces %s | %s | %s",
		state.FormatCount(snap.Result.FaceCount),
		state.FormatLabel(snap.Result.Sentiment),
		state.FormatLatency(snap.LatencyMs),
	)
}

func checkHealth(ctx context.Context, det *processing.RemoteDetector, out io.Writer) error {
	ctx, cancel := requestTimeout(ctx)
	defer cancel()

	health, err := det.Health(ctx)
	if err != nil {
		return fmt.Errorf("backend %s: %s", det.BaseURL(), processing.UserMessage(err))
	}
	if health.Status != "ok" {
		return errors.New("backend reports status " + health.Status)
	}

	fmt.Fprintf(out, "Backend %s is healthy\n", det.BaseURL())
	return nil
}

func scanFactory(source string) capture.StreamerFactory {
	if source != sourceStatic {
		return capture.FactoryFor(cfg)
	}

	img := image.NewRGBA(image.Rect(0, 0, cfg.GetWidth(), cfg.GetHeight()))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.Gray{Y: 0x80}}, image.Point{}, draw.Src)

	return func() (capture.VideoStreamer, error) {
		return capture.NewStaticStreamer(img), nil
	}
}
