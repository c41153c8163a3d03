package ui

import (
	"context"
	"errors"
	"image"
	"log"
	"sync"
	"time"

	"livevision/internal/config"
	"livevision/internal/settings"
	"livevision/internal/state"
	"livevision/internal/ui/cwidget"
	"livevision/processing/capture"
	processing "livevision/processing/detector"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const previewRefresh = 66 * time.Millisecond

type Deps struct {
	Config     *config.Config
	ConfigPath string
	URLs       settings.Store
	Detector   *processing.RemoteDetector
	Session    *capture.Session
	State      *state.State
}

type DetectApp struct {
	fyneApp fyne.App
	mainWin fyne.Window

	config     *config.Config
	configPath string
	urls       settings.Store
	detector   *processing.RemoteDetector
	session    *capture.Session
	state      *state.State

	ctx    context.Context
	cancel context.CancelFunc

	// runMu orders StartProcessing against StopProcessing. runCancel
	// aborts the current start or run; starting is set while the device
	// is warming up.
	runMu     sync.Mutex
	runCancel context.CancelFunc
	starting  bool

	playerMu   sync.Mutex
	playerStop chan struct{}

	dynamicSettings *fyne.Container
	staticSettings  *fyne.Container

	video   *videoView
	results *resultsPanel

	framesBadge *widget.Label
	rateLabel   *widget.Label
	startBtn    *widget.Button
	stopBtn     *widget.Button

	backend *backendPopover
	emotion *emotionPopover

	sentimentEntry  *widget.Entry
	sentimentResult *widget.Label
}

func CreateApp(a fyne.App, deps Deps) *DetectApp {
	w := a.NewWindow("Live Vision")
	w.Resize(fyne.NewSize(1200, 720))

	ctx, cancel := context.WithCancel(context.Background())

	return &DetectApp{
		fyneApp:    a,
		mainWin:    w,
		config:     deps.Config,
		configPath: deps.ConfigPath,
		urls:       deps.URLs,
		detector:   deps.Detector,
		session:    deps.Session,
		state:      deps.State,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Build creates every widget and returns the window content. Run calls it;
// tests call it directly.
func (a *DetectApp) Build() fyne.CanvasObject {
	a.video = newVideoView()
	a.results = newResultsPanel()

	a.framesBadge = widget.NewLabel("")
	a.framesBadge.Hide()
	a.rateLabel = widget.NewLabel("")
	a.rateLabel.Hide()

	a.startBtn = widget.NewButtonWithIcon("Start Scan", theme.MediaPlayIcon(), a.onStart)
	a.startBtn.Importance = widget.HighImportance
	a.stopBtn = widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), a.onStop)
	a.stopBtn.Hide()

	a.backend = newBackendPopover(a.mainWin.Canvas(), a.urls)
	a.emotion = newEmotionPopover(a.ctx, a.mainWin.Canvas(), a.detector)

	backendBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), nil)
	backendBtn.OnTapped = func() { a.backend.Toggle(a.positionBelow(backendBtn)) }

	emotionBtn := widget.NewButtonWithIcon("Emotion model", theme.ComputerIcon(), nil)
	emotionBtn.OnTapped = func() { a.emotion.Toggle(a.positionBelow(emotionBtn)) }

	title := widget.NewLabelWithStyle("Live Vision", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	subtitle := canvas.NewText("HPE DEMO", theme.Color(theme.ColorNamePrimary))
	subtitle.TextSize = 10
	subtitle.TextStyle = fyne.TextStyle{Bold: true}

	header := container.NewHBox(
		container.NewVBox(title, subtitle),
		layout.NewSpacer(),
		a.framesBadge,
		emotionBtn,
		backendBtn,
	)

	controls := container.NewHBox(a.startBtn, a.stopBtn, layout.NewSpacer(), a.rateLabel)

	content := container.NewBorder(
		container.NewVBox(header, widget.NewSeparator()),
		nil, nil, nil,
		container.NewVScroll(container.NewVBox(
			a.video.Object(),
			controls,
			a.results.Object(),
		)),
	)

	sidebar := container.NewVBox(
		widget.NewLabelWithStyle("Configuration", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewSeparator(),
		widget.NewLabel("Source Type:"),
		a.sourceSelect(),
		widget.NewSeparator(),
		a.setupDynamicSettings(),
		a.setupConfigSettings(),
		widget.NewSeparator(),
		a.setupSentimentProbe(),
	)

	split := container.NewHSplit(
		container.NewPadded(container.NewVScroll(sidebar)),
		container.NewPadded(content),
	)
	split.SetOffset(0.28)

	a.state.Subscribe(func(snap state.Snapshot) {
		fyne.Do(func() { a.Render(snap) })
	})
	a.Render(a.state.Snapshot())

	return split
}

func (a *DetectApp) Run() {
	a.mainWin.SetContent(a.Build())

	a.mainWin.SetCloseIntercept(func() {
		a.Shutdown()
		a.mainWin.Close()
	})

	a.mainWin.CenterOnScreen()
	a.mainWin.ShowAndRun()
}

// Shutdown releases the camera and saves the config. Safe to call twice.
func (a *DetectApp) Shutdown() {
	a.cancel()
	a.StopProcessing()

	if a.configPath == "" {
		return
	}
	if err := a.config.Save(a.configPath); err != nil {
		log.Printf("save config: %v", err)
	}
}

func (a *DetectApp) positionBelow(obj fyne.CanvasObject) fyne.Position {
	pos := a.fyneApp.Driver().AbsolutePositionForObject(obj)
	return pos.Add(fyne.NewPos(0, obj.Size().Height))
}

func (a *DetectApp) onStart() {
	a.startBtn.Disable()

	go func() {
		err := a.StartProcessing()

		fyne.Do(func() {
			a.startBtn.Enable()
			if err != nil && !errors.Is(err, context.Canceled) {
				dialog.ShowError(err, a.mainWin)
			}
		})
	}()
}

func (a *DetectApp) onStop() {
	a.StopProcessing()
}

// StartProcessing opens the camera and starts sending frames. It blocks
// until the first frame arrives, the device is refused, or StopProcessing
// is called, in which case it returns context.Canceled.
func (a *DetectApp) StartProcessing() error {
	a.runMu.Lock()
	if a.starting || a.session.IsActive() {
		a.runMu.Unlock()
		return nil
	}
	if a.runCancel != nil {
		a.runCancel()
	}
	ctx, cancel := context.WithCancel(a.ctx)
	a.runCancel = cancel
	a.starting = true
	a.runMu.Unlock()

	a.session.SetInterval(a.config.GetInterval())
	err := a.session.Start(ctx)

	a.runMu.Lock()
	defer a.runMu.Unlock()

	if ctx.Err() != nil {
		return context.Canceled
	}

	a.starting = false

	if err == nil && !a.session.IsActive() {
		err = capture.ErrNoFrames
	}
	if err != nil {
		cancel()
		a.runCancel = nil
		log.Printf("start capture: %v", err)
		a.state.SetError(processing.UserMessage(err))
		return err
	}

	a.state.Started(a.session.ID())
	a.startPlayerLoop()

	return nil
}

// StopProcessing aborts a start in progress or ends the running session.
func (a *DetectApp) StopProcessing() {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.runCancel != nil {
		a.runCancel()
		a.runCancel = nil
	}
	a.starting = false

	a.stopPlayerLoop()
	a.session.Stop()
	a.state.Stopped()
}

func (a *DetectApp) startPlayerLoop() {
	a.playerMu.Lock()
	defer a.playerMu.Unlock()

	if a.playerStop != nil {
		return
	}
	a.playerStop = make(chan struct{})
	go a.runPlayerLoop(a.playerStop)
}

func (a *DetectApp) stopPlayerLoop() {
	a.playerMu.Lock()
	defer a.playerMu.Unlock()

	if a.playerStop != nil {
		close(a.playerStop)
		a.playerStop = nil
	}
}

func (a *DetectApp) runPlayerLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(previewRefresh)
	defer ticker.Stop()

	var last image.Image

	for {
		select {
		case <-ticker.C:
			frame := a.session.Preview()
			if frame == nil || frame == last {
				continue
			}
			last = frame
			fyne.Do(func() { a.video.SetFrame(frame) })

		case <-stop:
			return
		}
	}
}

// Render maps a state snapshot onto the widgets. It holds no logic beyond
// choosing display strings and visibility.
func (a *DetectApp) Render(snap state.Snapshot) {
	a.video.Render(snap)
	a.results.Render(snap)

	if snap.Active {
		a.startBtn.Hide()
		a.stopBtn.Show()
		a.framesBadge.SetText(state.FormatFrames(snap.FrameCount))
		a.framesBadge.Show()
		a.rateLabel.SetText(state.FormatRate(a.session.Interval()))
		a.rateLabel.Show()
	} else {
		a.stopBtn.Hide()
		a.startBtn.Show()
		a.framesBadge.Hide()
		a.rateLabel.Hide()
	}
}

func (a *DetectApp) sourceSelect() *widget.Select {
	sel := widget.NewSelect(config.SourcesList[:], func(s string) {
		a.config.SetSource(config.SourceType(s))
		a.refreshSettingsUI(s)
	})
	sel.SetSelected(string(a.config.GetSource()))
	return sel
}

func (a *DetectApp) setupDynamicSettings() *fyne.Container {
	if a.dynamicSettings == nil {
		a.dynamicSettings = container.NewVBox()
	}
	return a.dynamicSettings
}

func (a *DetectApp) setupConfigSettings() *fyne.Container {
	a.staticSettings = container.NewVBox()

	intervalInput := cwidget.NewIntInput(
		"Interval (ms)",
		"1000",
		int(a.config.GetInterval().Milliseconds()),
		100,
		func(i int) {
			a.config.SetIntervalMs(uint(i))
		},
	)

	widthInput := cwidget.NewIntInput(
		"Width",
		"640",
		a.config.GetWidth(),
		16,
		func(i int) {
			a.config.SetWidth(i)
		},
	)

	heightInput := cwidget.NewIntInput(
		"Height",
		"480",
		a.config.GetHeight(),
		16,
		func(i int) {
			a.config.SetHeight(i)
		},
	)

	applyCfg := widget.NewButton("Apply and restart", func() {
		if a.session.IsActive() {
			a.StopProcessing()
			a.onStart()
		}
	})

	a.staticSettings.Add(intervalInput)
	a.staticSettings.Add(widthInput)
	a.staticSettings.Add(heightInput)
	a.staticSettings.Add(applyCfg)

	return a.staticSettings
}

func (a *DetectApp) setupSentimentProbe() fyne.CanvasObject {
	a.sentimentEntry = widget.NewEntry()
	a.sentimentEntry.SetPlaceHolder("Type a sentence…")
	a.sentimentResult = widget.NewLabel(state.Placeholder)

	analyze := widget.NewButton("Analyze text", func() {
		text := a.sentimentEntry.Text
		go func() {
			label := a.AnalyzeText(a.ctx, text)
			fyne.Do(func() { a.sentimentResult.SetText(label) })
		}()
	})

	return container.NewVBox(
		widget.NewLabelWithStyle("Text Sentiment", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		a.sentimentEntry,
		analyze,
		a.sentimentResult,
	)
}

// AnalyzeText returns the sentiment label, or the error text to show.
func (a *DetectApp) AnalyzeText(ctx context.Context, text string) string {
	resp, err := a.detector.SendSentiment(ctx, text)
	if err != nil {
		log.Printf("sentiment: %v", err)
		return processing.UserMessage(err)
	}
	return resp.Sentiment
}

func (a *DetectApp) refreshSettingsUI(sourceType string) {
	a.setupDynamicSettings()
	a.dynamicSettings.Objects = nil

	switch config.SourceType(sourceType) {
	case config.SourceLocal:
		pathEntry := widget.NewEntry()
		pathEntry.SetPlaceHolder("/path/to/video.mp4")
		pathEntry.SetText(a.config.GetLocalPath())

		pathEntry.OnChanged = func(s string) {
			a.config.SetLocalPath(s)
		}

		fileBtn := widget.NewButtonWithIcon("Open File", theme.FolderOpenIcon(), func() {
			dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
				if err == nil && reader != nil {
					pathEntry.SetText(reader.URI().Path())
					reader.Close()
				}
			}, a.mainWin)
		})

		a.dynamicSettings.Add(widget.NewLabel("Video Path:"))
		a.dynamicSettings.Add(container.NewBorder(nil, nil, nil, fileBtn, pathEntry))

	case config.SourceWebcam, config.SourceOpenCV:
		const loading = "Loading cameras..."

		deviceSelect := widget.NewSelect([]string{loading}, func(s string) {
			if s != loading && s != "No cameras found" {
				a.config.SetDeviceID(s)
			}
		})
		deviceSelect.SetSelected(loading)
		deviceSelect.Disable()

		a.dynamicSettings.Add(widget.NewLabel("Select Camera:"))
		a.dynamicSettings.Add(deviceSelect)

		go func() {
			devices, err := capture.ListCameras()

			fyne.Do(func() {
				switch {
				case err != nil:
					deviceSelect.Options = []string{"Error listing cameras"}
				case len(devices) == 0:
					deviceSelect.Options = []string{"No cameras found"}
				default:
					deviceSelect.Options = devices
					deviceSelect.Enable()

					if id := a.config.GetDeviceID(); id != "" {
						deviceSelect.SetSelected(id)
					} else {
						deviceSelect.SetSelected(devices[0])
					}
				}
				deviceSelect.Refresh()
			})
		}()
	}

	a.dynamicSettings.Refresh()
}
