package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livevision/internal/config"
	"livevision/internal/settings"
	"livevision/internal/state"
	"livevision/internal/ui"
	"livevision/processing/capture"
	processing "livevision/processing/detector"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

const appID = "com.hpe.livevision"

var (
	// cfg is loaded once in PersistentPreRunE and shared by every subcommand.
	cfg        *config.Config
	configPath string

	backendOverride string
)

var rootCmd = &cobra.Command{
	Use:     "livevision",
	Short:   "Webcam client for the live vision backend",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			path, err := config.DefaultPath()
			if err != nil {
				return err
			}
			configPath = path
		}

		cfg = config.LoadConfigFile(configPath)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGUI()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json (default: $LIVEVISION_CONFIG_DIR, $XDG_CONFIG_HOME/livevision or the user config dir)")
	rootCmd.PersistentFlags().StringVar(&backendOverride, "backend", "", "Vision backend base URL for this run only")
}

// urlStore wraps persistent so that --backend wins for the whole run.
func urlStore(persistent settings.Store) settings.Store {
	if backendOverride != "" {
		return settings.FixedStore(settings.Normalize(backendOverride))
	}
	return persistent
}

func newDetector(urls settings.Store) *processing.RemoteDetector {
	return processing.NewRemoteDetector(urls, cfg.GetTimeout())
}

func runGUI() error {
	a := app.NewWithID(appID)

	file := settings.NewConfigStore(cfg, configPath)
	file.OnSaveError = func(err error) { log.Printf("save backend url: %v", err) }

	urls := urlStore(settings.NewPreferencesStore(a.Preferences(), file))
	det := newDetector(urls)
	st := state.New()
	proc := processing.NewProcessor(det, st)

	session := capture.NewSession(capture.FactoryFor(cfg), capture.SessionOptions{
		Interval:    cfg.GetInterval(),
		JPEGQuality: cfg.GetJPEGQuality(),
		OnFrame:     proc.HandleFrame,
		OnError: func(err error) {
			st.Stopped()
			st.SetError(processing.UserMessage(err))
		},
	})

	log.Printf("livevision %s, backend %s, config %s", Version, det.BaseURL(), configPath)

	ui.CreateApp(a, ui.Deps{
		Config:     cfg,
		ConfigPath: configPath,
		URLs:       urls,
		Detector:   det,
		Session:    session,
		State:      st,
	}).Run()

	return nil
}

// requestTimeout bounds the one-shot commands.
func requestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, cfg.GetTimeout()+time.Second)
}
