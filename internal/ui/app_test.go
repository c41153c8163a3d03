package ui

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"livevision/internal/config"
	"livevision/internal/models"
	"livevision/internal/settings"
	"livevision/internal/state"
	"livevision/processing/capture"
	processing "livevision/processing/detector"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendStub struct {
	visionStatus int
	configStatus int
	config       models.EmotionConfig
}

func (b *backendStub) serve(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/vision", func(w http.ResponseWriter, r *http.Request) {
		if b.visionStatus != http.StatusOK {
			w.WriteHeader(b.visionStatus)
			return
		}
		_, _ = w.Write([]byte(`{"face_count":3,"sentiment":"happy","emotion_counts":{"happy":2,"neutral":1}}`))
	})
	mux.HandleFunc("/sentiment", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sentiment":"positive"}`))
	})
	mux.HandleFunc("/emotion-config", func(w http.ResponseWriter, r *http.Request) {
		if b.configStatus != http.StatusOK {
			w.WriteHeader(b.configStatus)
			return
		}
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&b.config)
		}
		_ = json.NewEncoder(w).Encode(b.config)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	app      *DetectApp
	state    *state.State
	streamer *capture.StaticStreamer
	urls     settings.Store
}

func newFixture(t *testing.T, backend *backendStub) *fixture {
	t.Helper()

	fyneApp := test.NewTempApp(t)
	srv := backend.serve(t)

	cfg := config.NewDefaultConfig()
	cfg.SetSource(config.SourceLocal)

	urls := settings.NewPreferencesStore(fyneApp.Preferences(), nil)
	urls.Set(srv.URL)

	st := state.New()
	det := processing.NewRemoteDetector(urls, time.Second)
	proc := processing.NewProcessor(det, st)

	streamer := capture.NewStaticStreamer(image.NewRGBA(image.Rect(0, 0, 32, 24)))
	session := capture.NewSession(
		func() (capture.VideoStreamer, error) { return streamer, nil },
		capture.SessionOptions{OnFrame: proc.HandleFrame},
	)

	a := CreateApp(fyneApp, Deps{
		Config:   cfg,
		URLs:     urls,
		Detector: det,
		Session:  session,
		State:    st,
	})
	a.mainWin.SetContent(a.Build())
	t.Cleanup(a.Shutdown)

	return &fixture{app: a, state: st, streamer: streamer, urls: urls}
}

func TestIdleRender(t *testing.T) {
	f := newFixture(t, &backendStub{visionStatus: http.StatusOK, configStatus: http.StatusOK})
	a := f.app

	assert.True(t, a.video.placeholder.Visible())
	assert.Equal(t, idleHint, a.video.placeholder.Text)
	assert.True(t, a.startBtn.Visible())
	assert.False(t, a.stopBtn.Visible())
	assert.False(t, a.framesBadge.Visible())

	assert.Equal(t, state.Placeholder, a.results.faces.Text)
	assert.Equal(t, state.Placeholder, a.results.sentiment.Text)
	assert.False(t, a.results.live.Visible())
	assert.False(t, a.results.rawBox.Visible())
}

func TestStartStopShowsResults(t *testing.T) {
	f := newFixture(t, &backendStub{visionStatus: http.StatusOK, configStatus: http.StatusOK})
	a := f.app

	require.NoError(t, a.StartProcessing())
	assert.True(t, a.session.IsActive())

	require.Eventually(t, func() bool {
		return f.state.Snapshot().FrameCount >= 1
	}, 2*time.Second, 10*time.Millisecond)

	a.StopProcessing()
	assert.False(t, a.session.IsActive())
	assert.True(t, f.streamer.Stopped())

	snap := f.state.Snapshot()
	assert.False(t, snap.Active)
	assert.NotEmpty(t, snap.SessionID)

	a.Render(snap)
	assert.Equal(t, "3", a.results.faces.Text)
	assert.Equal(t, "happy", a.results.sentiment.Text)
	assert.Equal(t, "happy: 2, neutral: 1", a.results.counts.Text)
	assert.True(t, a.results.rawBox.Visible())
	assert.True(t, a.video.placeholder.Visible())
	assert.True(t, a.startBtn.Visible())
}

func TestActiveRender(t *testing.T) {
	f := newFixture(t, &backendStub{visionStatus: http.StatusOK, configStatus: http.StatusOK})
	a := f.app

	a.Render(state.Snapshot{Active: true, Scanning: true, FrameCount: 2})

	assert.False(t, a.video.placeholder.Visible())
	assert.True(t, a.stopBtn.Visible())
	assert.False(t, a.startBtn.Visible())
	assert.Equal(t, "2 frames", a.framesBadge.Text)
	assert.Equal(t, "Sending 1 frame/sec", a.rateLabel.Text)
	assert.True(t, a.results.live.Visible())
}

func TestErrorReplacesResults(t *testing.T) {
	f := newFixture(t, &backendStub{visionStatus: http.StatusInternalServerError, configStatus: http.StatusOK})
	a := f.app

	require.NoError(t, a.StartProcessing())
	require.Eventually(t, func() bool {
		return f.state.Snapshot().Error != ""
	}, 2*time.Second, 10*time.Millisecond)
	a.StopProcessing()

	snap := f.state.Snapshot()
	assert.Contains(t, snap.Error, "500")

	a.Render(snap)
	assert.True(t, a.results.errorBox.Visible())
	assert.False(t, a.results.values.Visible())
	assert.Equal(t, snap.Error, a.results.errorText.Text)
}

func TestDeniedCameraSetsError(t *testing.T) {
	f := newFixture(t, &backendStub{visionStatus: http.StatusOK, configStatus: http.StatusOK})
	f.streamer.StartErr = assert.AnError

	err := f.app.StartProcessing()
	require.ErrorIs(t, err, capture.ErrPermissionDenied)

	snap := f.state.Snapshot()
	assert.False(t, snap.Active)
	assert.Equal(t, capture.ErrPermissionDenied.Error(), snap.Error)
}

func TestMissingVideoFileIsNotAPermissionError(t *testing.T) {
	f := newFixture(t, &backendStub{visionStatus: http.StatusOK, configStatus: http.StatusOK})
	a := f.app
	a.config.SetLocalPath("")
	a.session = capture.NewSession(capture.FactoryFor(a.config), capture.SessionOptions{})

	err := a.StartProcessing()
	require.ErrorIs(t, err, capture.ErrSourceUnavailable)
	assert.NotErrorIs(t, err, capture.ErrPermissionDenied)

	snap := f.state.Snapshot()
	assert.False(t, snap.Active)
	assert.Equal(t, "Video source unavailable: no video file selected", snap.Error)
}

// startStalled begins a start whose device never delivers a frame.
func startStalled(t *testing.T, f *fixture) <-chan error {
	t.Helper()

	f.streamer.Image = nil

	errc := make(chan error, 1)
	go func() { errc <- f.app.StartProcessing() }()

	require.Eventually(t, func() bool { return f.streamer.Starts() == 1 }, time.Second, time.Millisecond)
	return errc
}

func TestStopWhileStartingLeavesNothingRunning(t *testing.T) {
	f := newFixture(t, &backendStub{visionStatus: http.StatusOK, configStatus: http.StatusOK})
	a := f.app

	errc := startStalled(t, f)
	time.Sleep(50 * time.Millisecond)
	a.StopProcessing()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("StartProcessing did not return after StopProcessing")
	}

	assert.False(t, a.session.IsActive())
	assert.False(t, f.state.Snapshot().Active)
	assert.True(t, f.streamer.Stopped())

	a.playerMu.Lock()
	defer a.playerMu.Unlock()
	assert.Nil(t, a.playerStop)
}

func TestShutdownDoesNotWaitForWarmup(t *testing.T) {
	f := newFixture(t, &backendStub{visionStatus: http.StatusOK, configStatus: http.StatusOK})

	errc := startStalled(t, f)

	start := time.Now()
	f.app.Shutdown()
	assert.Less(t, time.Since(start), time.Second)

	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.False(t, f.app.session.IsActive())
}

func TestBackendPopoverNormalizes(t *testing.T) {
	f := newFixture(t, &backendStub{visionStatus: http.StatusOK, configStatus: http.StatusOK})

	saved := f.app.backend.Save("  http://x/ ")

	assert.Equal(t, "http://x", saved)
	assert.Equal(t, "http://x", f.urls.Get())
	assert.Equal(t, "http://x", f.app.fyneApp.Preferences().String(settings.BackendURLKey))
	assert.Equal(t, "Saved", f.app.backend.status.Text)
}

func TestEmotionFetchFailureKeepsValues(t *testing.T) {
	f := newFixture(t, &backendStub{visionStatus: http.StatusOK, configStatus: http.StatusInternalServerError})
	e := f.app.emotion

	_, err := e.Fetch(context.Background())
	require.Error(t, err)

	assert.Equal(t, models.EmotionConfig{}, e.Values())
}

func TestEmotionFetchAndSave(t *testing.T) {
	backend := &backendStub{
		visionStatus: http.StatusOK,
		configStatus: http.StatusOK,
		config:       models.EmotionConfig{Endpoint: "http://nim/v1", Token: "secret", Model: "llava"},
	}
	f := newFixture(t, backend)
	e := f.app.emotion

	cfg, err := e.Fetch(context.Background())
	require.NoError(t, err)
	e.Apply(cfg)
	assert.Equal(t, backend.config, e.Values())

	e.model.SetText("llama")
	assert.Equal(t, "Saved", e.Save(context.Background(), e.Values()))
	assert.Equal(t, "llama", backend.config.Model)
}

func TestEmotionSaveUsesAppContext(t *testing.T) {
	f := newFixture(t, &backendStub{visionStatus: http.StatusOK, configStatus: http.StatusOK})
	e := f.app.emotion

	f.app.cancel()
	test.Tap(e.save)

	require.Eventually(t, func() bool {
		return e.status.Text == "Save failed: context canceled"
	}, time.Second, 10*time.Millisecond)
}

func TestEmotionSaveFailure(t *testing.T) {
	f := newFixture(t, &backendStub{visionStatus: http.StatusOK, configStatus: http.StatusServiceUnavailable})

	msg := f.app.emotion.Save(context.Background(), models.EmotionConfig{Model: "m"})
	assert.Equal(t, "Save failed: Backend error: 503", msg)
}

func TestAnalyzeText(t *testing.T) {
	f := newFixture(t, &backendStub{visionStatus: http.StatusOK, configStatus: http.StatusOK})

	assert.Equal(t, "positive", f.app.AnalyzeText(context.Background(), "what a day"))
}

func TestStartButtonTap(t *testing.T) {
	f := newFixture(t, &backendStub{visionStatus: http.StatusOK, configStatus: http.StatusOK})

	test.Tap(f.app.startBtn)

	require.Eventually(t, func() bool {
		return f.state.Snapshot().Active
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, f.streamer.Starts())
}

func TestWithCorners(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 320, 240))

	out := withCorners(src, markerColor)

	length := 240 / 8
	inset := length / 2
	assert.Equal(t, color.RGBAModel.Convert(markerColor), out.At(inset, inset))
	assert.Equal(t, color.RGBAModel.Convert(markerColor), out.At(319-inset, 239-inset))
	assert.Equal(t, color.RGBA{}, out.At(160, 120))
	assert.Equal(t, color.RGBA{}, src.At(inset, inset))
}
