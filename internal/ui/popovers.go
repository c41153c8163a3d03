package ui

import (
	"context"
	"log"
	"strings"

	"livevision/internal/models"
	"livevision/internal/settings"
	processing "livevision/processing/detector"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// backendPopover edits the persisted vision backend URL.
type backendPopover struct {
	urls   settings.Store
	entry  *widget.Entry
	status *widget.Label
	popup  *widget.PopUp
}

func newBackendPopover(c fyne.Canvas, urls settings.Store) *backendPopover {
	b := &backendPopover{urls: urls}

	b.entry = widget.NewEntry()
	b.entry.SetPlaceHolder("http://localhost:8000")
	b.entry.OnSubmitted = func(s string) { b.Save(s) }

	b.status = widget.NewLabel("")

	save := widget.NewButton("Save", func() { b.Save(b.entry.Text) })
	save.Importance = widget.HighImportance

	content := container.NewVBox(
		widget.NewLabelWithStyle("Vision backend URL", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewGridWrap(fyne.NewSize(360, b.entry.MinSize().Height), b.entry),
		container.NewHBox(save, widget.NewButton("Close", func() { b.popup.Hide() })),
		b.status,
	)

	b.popup = widget.NewPopUp(content, c)
	b.popup.Hide()

	return b
}

func (b *backendPopover) Toggle(pos fyne.Position) {
	if b.popup.Visible() {
		b.popup.Hide()
		return
	}

	b.entry.SetText(b.urls.Get())
	b.status.SetText("")
	b.popup.ShowAtPosition(pos)
}

// Save stores url and returns the normalized value now in effect.
func (b *backendPopover) Save(url string) string {
	b.urls.Set(url)
	saved := b.urls.Get()

	b.entry.SetText(saved)
	b.status.SetText("Saved")

	return saved
}

// emotionPopover edits the backend's emotion model settings. They are
// fetched the first time the popover opens.
type emotionPopover struct {
	ctx context.Context
	det *processing.RemoteDetector

	endpoint *widget.Entry
	token    *widget.Entry
	model    *widget.Entry
	status   *widget.Label
	save     *widget.Button
	popup    *widget.PopUp

	loaded bool
}

// ctx bounds every request the popover makes; cancelling it abandons a
// fetch or save still in flight.
func newEmotionPopover(ctx context.Context, c fyne.Canvas, det *processing.RemoteDetector) *emotionPopover {
	e := &emotionPopover{ctx: ctx, det: det}

	e.endpoint = widget.NewEntry()
	e.endpoint.SetPlaceHolder("https://…/v1")
	e.token = widget.NewPasswordEntry()
	e.model = widget.NewEntry()
	e.status = widget.NewLabel("")

	form := widget.NewForm(
		widget.NewFormItem("Endpoint", e.endpoint),
		widget.NewFormItem("Token", e.token),
		widget.NewFormItem("Model", e.model),
	)

	e.save = widget.NewButton("Save", func() {
		cfg := e.Values()
		e.status.SetText("Saving…")
		go func() {
			msg := e.Save(e.ctx, cfg)
			fyne.Do(func() { e.status.SetText(msg) })
		}()
	})
	e.save.Importance = widget.HighImportance

	content := container.NewVBox(
		widget.NewLabelWithStyle("Emotion model", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewGridWrap(fyne.NewSize(420, form.MinSize().Height), form),
		container.NewHBox(e.save, widget.NewButton("Close", func() { e.popup.Hide() })),
		e.status,
	)

	e.popup = widget.NewPopUp(content, c)
	e.popup.Hide()

	return e
}

func (e *emotionPopover) Toggle(pos fyne.Position) {
	if e.popup.Visible() {
		e.popup.Hide()
		return
	}

	e.popup.ShowAtPosition(pos)

	if e.loaded {
		return
	}
	e.loaded = true

	go func() {
		cfg, err := e.Fetch(e.ctx)
		if err != nil {
			return
		}
		fyne.Do(func() { e.Apply(cfg) })
	}()
}

// Fetch loads the current settings. Failures are logged and leave the form
// as it was.
func (e *emotionPopover) Fetch(ctx context.Context) (models.EmotionConfig, error) {
	cfg, err := e.det.GetEmotionConfig(ctx)
	if err != nil {
		log.Printf("load emotion config: %v", err)
		return models.EmotionConfig{}, err
	}
	return *cfg, nil
}

func (e *emotionPopover) Apply(cfg models.EmotionConfig) {
	e.endpoint.SetText(cfg.Endpoint)
	e.token.SetText(cfg.Token)
	e.model.SetText(cfg.Model)
}

func (e *emotionPopover) Values() models.EmotionConfig {
	return models.EmotionConfig{
		Endpoint: e.endpoint.Text,
		Token:    e.token.Text,
		Model:    e.model.Text,
	}
}

// Save posts cfg and returns the status line to show.
func (e *emotionPopover) Save(ctx context.Context, cfg models.EmotionConfig) string {
	if err := e.det.SaveEmotionConfig(ctx, cfg); err != nil {
		log.Printf("save emotion config: %v", err)
		return "Save failed: " + strings.TrimSpace(processing.UserMessage(err))
	}
	return "Saved"
}
