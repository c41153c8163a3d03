package ui

import (
	"image"
	"image/color"
	"image/draw"

	"livevision/internal/state"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

const idleHint = "Tap \"Start Scan\" to activate camera"

var markerColor = color.NRGBA{R: 0x01, G: 0xa9, B: 0x82, A: 0xff}

type videoView struct {
	canvas      *canvas.Image
	placeholder *widget.Label
	root        *fyne.Container

	frame    image.Image
	scanning bool
}

func newVideoView() *videoView {
	v := &videoView{}

	v.canvas = canvas.NewImageFromImage(nil)
	v.canvas.FillMode = canvas.ImageFillContain
	v.canvas.SetMinSize(fyne.NewSize(640, 360))
	v.canvas.Hide()

	v.placeholder = widget.NewLabelWithStyle(idleHint, fyne.TextAlignCenter, fyne.TextStyle{Italic: true})

	v.root = container.NewStack(v.canvas, container.NewCenter(v.placeholder))

	return v
}

func (v *videoView) Object() fyne.CanvasObject {
	return v.root
}

func (v *videoView) Render(snap state.Snapshot) {
	if !snap.Active {
		v.frame = nil
		v.scanning = false
		v.canvas.Image = nil
		v.canvas.Hide()
		v.placeholder.Show()
		return
	}

	v.placeholder.Hide()
	v.canvas.Show()

	if scanning := snap.Scanning; scanning != v.scanning {
		v.scanning = scanning
		v.redraw()
	}
}

func (v *videoView) SetFrame(img image.Image) {
	v.frame = img
	v.redraw()
}

func (v *videoView) redraw() {
	if v.frame == nil {
		return
	}

	if v.scanning {
		v.canvas.Image = withCorners(v.frame, markerColor)
	} else {
		v.canvas.Image = v.frame
	}
	v.canvas.Refresh()
}

// withCorners returns a copy of src with an L-shaped marker in each corner.
func withCorners(src image.Image, col color.Color) *image.RGBA {
	bounds := src.Bounds()
	img := image.NewRGBA(bounds)
	draw.Draw(img, bounds, src, bounds.Min, draw.Src)

	w, h := bounds.Dx(), bounds.Dy()
	length := min(w, h) / 8
	thickness := max(min(w, h)/160, 2)
	inset := length / 2

	x1, y1 := bounds.Min.X+inset, bounds.Min.Y+inset
	x2, y2 := bounds.Max.X-inset, bounds.Max.Y-inset

	fill := func(r image.Rectangle) {
		draw.Draw(img, r.Intersect(bounds), &image.Uniform{C: col}, image.Point{}, draw.Src)
	}

	for _, c := range []struct{ x, y, dx, dy int }{
		{x1, y1, 1, 1},
		{x2, y1, -1, 1},
		{x1, y2, 1, -1},
		{x2, y2, -1, -1},
	} {
		fill(span(c.x, c.y, c.x+c.dx*length, c.y+c.dy*thickness))
		fill(span(c.x, c.y, c.x+c.dx*thickness, c.y+c.dy*length))
	}

	return img
}

func span(x0, y0, x1, y1 int) image.Rectangle {
	return image.Rect(x0, y0, x1, y1).Canon()
}

type resultsPanel struct {
	live      *widget.Label
	faces     *widget.Label
	sentiment *widget.Label
	emotion   *widget.Label
	counts    *widget.Label
	latency   *widget.Label
	errorText *widget.Label
	raw       *widget.Label

	values   *fyne.Container
	errorBox *fyne.Container
	rawBox   *widget.Accordion
	root     *fyne.Container
}

func newResultsPanel() *resultsPanel {
	p := &resultsPanel{
		live:      widget.NewLabelWithStyle("● LIVE", fyne.TextAlignTrailing, fyne.TextStyle{Bold: true}),
		faces:     widget.NewLabelWithStyle(state.Placeholder, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		sentiment: widget.NewLabelWithStyle(state.Placeholder, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		emotion:   widget.NewLabel(state.Placeholder),
		counts:    widget.NewLabel(state.Placeholder),
		latency:   widget.NewLabel(""),
		errorText: widget.NewLabel(""),
		raw:       widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Monospace: true}),
	}

	p.live.Importance = widget.SuccessImportance
	p.live.Hide()

	p.errorText.Importance = widget.DangerImportance
	p.errorText.Wrapping = fyne.TextWrapWord

	p.sentiment.Importance = widget.HighImportance
	p.counts.Wrapping = fyne.TextWrapWord

	p.values = container.New(layout.NewFormLayout(),
		widget.NewLabel("Faces"), p.faces,
		widget.NewLabel("Sentiment"), p.sentiment,
		widget.NewLabel("Emotion"), p.emotion,
		widget.NewLabel("Emotion counts"), p.counts,
	)

	p.errorBox = container.NewVBox(
		widget.NewLabelWithStyle("Error", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		p.errorText,
	)
	p.errorBox.Hide()

	p.rawBox = widget.NewAccordion(widget.NewAccordionItem("Raw Response", container.NewHScroll(p.raw)))
	p.rawBox.Hide()

	header := container.NewBorder(nil, nil,
		widget.NewLabelWithStyle("Detection Results", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		p.live,
	)

	p.root = container.NewVBox(
		widget.NewSeparator(),
		header,
		p.values,
		p.errorBox,
		p.latency,
		p.rawBox,
	)

	return p
}

func (p *resultsPanel) Object() fyne.CanvasObject {
	return p.root
}

func (p *resultsPanel) Render(snap state.Snapshot) {
	if snap.Active {
		p.live.Show()
	} else {
		p.live.Hide()
	}

	if snap.Error != "" {
		p.errorText.SetText(snap.Error)
		p.values.Hide()
		p.errorBox.Show()
	} else {
		p.errorBox.Hide()
		p.values.Show()
	}

	res := snap.Result
	p.faces.SetText(state.FormatCount(res.FaceCount))
	p.sentiment.SetText(state.FormatLabel(res.Sentiment))
	p.emotion.SetText(state.FormatLabel(res.EmotionDetail))
	p.counts.SetText(state.FormatCounts(res.EmotionCounts))

	if snap.FrameCount > 0 {
		p.latency.SetText(state.FormatLatency(snap.LatencyMs))
	} else {
		p.latency.SetText("")
	}

	if raw := state.PrettyJSON(res.Raw); raw != "" {
		p.raw.SetText(raw)
		p.rawBox.Show()
	} else {
		p.rawBox.Hide()
	}
}
