//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	fcanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"mangatrans/internal/canvas"
	"mangatrans/internal/config"
	"mangatrans/internal/crash"
	"mangatrans/internal/domain"
	"mangatrans/internal/export"
	"mangatrans/internal/imagecache"
	applog "mangatrans/internal/log"
	"mangatrans/internal/pagesource"
	"mangatrans/internal/storage"
	"mangatrans/internal/vector"
)

const (
	recentPrefsKey = "recent.projects"
	recentMax      = 10

	mousePointer  canvas.PointerID = 1
	headerPointer canvas.PointerID = 2
)

// Run starts the desktop workbench. Without projectDir the most recent
// project is reopened, or a folder picker is shown.
func Run(projectDir string) error {
	cfg, token, err := config.Load()
	if err != nil {
		return err
	}
	applog.Init(applog.FromConfig(cfg.Logging))
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	crashDir, _ := config.Dir()
	cs := &crash.Session{Dir: crashDir}
	defer crash.Recover(cs)

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer store.Close()
	cache := imagecache.New(cfg.Storage.CacheDir, store,
		imagecache.WithBaseURL(cfg.Remote.BaseURL), imagecache.WithToken(token))

	a := app.NewWithID("mangatrans")
	w := a.NewWindow("mangatrans")
	prefs := a.Preferences()
	w.Resize(fyne.NewSize(
		float32(max(prefs.IntWithFallback("window.width", 1280), 800)),
		float32(max(prefs.IntWithFallback("window.height", 860), 600)),
	))

	u := newWorkbenchUI(w)
	open := func(dir string) {
		proj, err := pagesource.Open(dir, pagesource.WithStore(store), pagesource.WithResolver(cache))
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		sess := NewSession(ctx, proj, CanvasConfig(cfg.Workbench))
		if err := u.attach(sess); err != nil {
			dialog.ShowError(err, w)
			return
		}
		*cs = *sess.CrashSession(crashDir)
		addRecentProject(prefs, dir)
		w.SetTitle(fmt.Sprintf("mangatrans - %s", proj.Title()))
	}
	pick := func() {
		dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if uri == nil {
				return
			}
			open(uri.Path())
		}, w)
	}
	u.onBack = pick
	u.onOpen = pick

	w.SetCloseIntercept(func() {
		if err := u.detach(); err != nil {
			l.Error("save on close failed", slog.Any("err", err))
		}
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		w.Close()
	})

	if projectDir == "" {
		if rec := loadRecentProjects(prefs); len(rec) > 0 {
			projectDir = rec[0]
		}
	}
	if projectDir != "" {
		open(projectDir)
	} else {
		pick()
	}
	w.ShowAndRun()
	return nil
}

// workbenchUI holds the widgets of one window and the session shown in it.
type workbenchUI struct {
	w    fyne.Window
	host *canvas.LocalHost
	sess *Session

	surface *markerCanvas
	title   *widget.Label
	status  *widget.Label

	overlay *fyne.Container
	panel   *fyne.Container
	header  *dragHandle
	trans   *widget.Entry
	proof   *widget.Entry
	toggle  *widget.Button
	state   *widget.Label

	panelSize fyne.Size
	syncing   bool
	unsub     func()

	onBack func()
	onOpen func()
}

func newWorkbenchUI(w fyne.Window) *workbenchUI {
	u := &workbenchUI{w: w, host: canvas.NewLocalHost(), panelSize: fyne.NewSize(320, 240)}
	u.surface = newMarkerCanvas(u)
	u.title = widget.NewLabel("No project")
	u.status = widget.NewLabel("")

	u.trans = widget.NewMultiLineEntry()
	u.trans.SetPlaceHolder("Translation")
	u.trans.OnChanged = func(s string) {
		if !u.syncing && u.sess != nil {
			u.sess.Workbench().SetTranslationText(s)
		}
	}
	u.proof = widget.NewMultiLineEntry()
	u.proof.SetPlaceHolder("Proofread text")
	u.proof.OnChanged = func(s string) {
		if !u.syncing && u.sess != nil {
			u.sess.Workbench().SetProofText(s)
		}
	}
	u.toggle = widget.NewButtonWithIcon("Proof", theme.ConfirmIcon(), func() {
		if u.sess != nil {
			u.sess.Workbench().ToggleProof()
		}
	})
	u.state = widget.NewLabel("")
	u.header = newDragHandle(u)

	bg := fcanvas.NewRectangle(theme.Color(theme.ColorNameOverlayBackground))
	bg.StrokeColor = theme.Color(theme.ColorNameShadow)
	bg.StrokeWidth = 1
	bg.CornerRadius = 4
	body := container.NewBorder(container.NewVBox(u.header, u.state), u.toggle, nil, nil,
		container.NewGridWithRows(2, u.trans, u.proof))
	u.panel = container.NewStack(bg, container.NewPadded(body))
	u.panel.Resize(u.panelSize)
	u.panel.Hide()
	u.overlay = container.NewWithoutLayout(u.panel)

	nav := func(fn func(*canvas.Workbench)) func() {
		return func() {
			if u.sess != nil {
				fn(u.sess.Workbench())
			}
		}
	}
	bar := widget.NewToolbar(
		widget.NewToolbarAction(theme.NavigateBackIcon(), nav(func(wb *canvas.Workbench) { wb.Back() })),
		widget.NewToolbarAction(theme.FolderOpenIcon(), func() {
			if u.onOpen != nil {
				u.onOpen()
			}
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.MediaSkipPreviousIcon(), nav(func(wb *canvas.Workbench) { wb.PrevPage() })),
		widget.NewToolbarAction(theme.MediaSkipNextIcon(), nav(func(wb *canvas.Workbench) { wb.NextPage() })),
		widget.NewToolbarAction(theme.ZoomFitIcon(), nav(func(wb *canvas.Workbench) { wb.ResetView() })),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() {
			if u.sess == nil {
				return
			}
			if err := u.sess.Save(); err != nil {
				dialog.ShowError(err, u.w)
				return
			}
			u.status.SetText("Saved")
		}),
	)
	top := container.NewBorder(nil, nil, bar, nil, u.title)
	content := container.NewBorder(top, u.status, nil, nil, u.surface)
	w.SetContent(container.NewStack(content, u.overlay))
	return u
}

// attach shows sess in the window, replacing the previous session.
func (u *workbenchUI) attach(sess *Session) error {
	if err := u.detach(); err != nil {
		return err
	}
	u.sess = sess
	sess.OnError = func(err error) { dialog.ShowError(err, u.w) }
	sess.OnBack = func() {
		if err := u.detach(); err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		if u.onBack != nil {
			u.onBack()
		}
	}
	u.unsub = sess.Workbench().Bus().Subscribe(u.handle)
	sess.Mount(u.host)
	u.surface.relayout()
	return sess.Start(0)
}

// detach saves and closes the current session.
func (u *workbenchUI) detach() error {
	if u.sess == nil {
		return nil
	}
	if u.unsub != nil {
		u.unsub()
		u.unsub = nil
	}
	err := u.sess.Close()
	u.sess = nil
	u.panel.Hide()
	u.surface.img.File = ""
	u.surface.img.Refresh()
	u.title.SetText("No project")
	u.surface.Refresh()
	return err
}

func (u *workbenchUI) handle(ev canvas.Event) {
	switch e := ev.(type) {
	case canvas.PageLoaded:
		u.showPage(e.Page.PageIndex, e.Page.PageCount, e.Page.Title)
	case canvas.MarkersChanged:
		u.surface.Refresh()
		u.syncEditor()
		u.status.SetText(countLine(e.Markers))
	case canvas.SelectionChanged:
		u.surface.Refresh()
		u.syncEditor()
	case canvas.TransformChanged:
		u.surface.Refresh()
	case canvas.EditorChanged:
		u.placePanel(e.State)
	}
}

func (u *workbenchUI) showPage(index, count int, title string) {
	path, err := u.sess.Project().ImagePath(index)
	if err != nil {
		u.sess.l.Warn("page image unavailable", slog.Any("err", err))
		path = ""
	}
	u.surface.img.File = path
	u.surface.img.Refresh()
	label := fmt.Sprintf("%s  %d / %d", u.sess.Project().Title(), index+1, count)
	if title != "" {
		label += "  " + title
	}
	u.title.SetText(label)
}

func countLine(ms []domain.Marker) string {
	c := domain.StatusCounts(ms)
	return fmt.Sprintf("%d markers: %d empty, %d translated, %d proofed",
		len(ms), c[domain.StatusEmpty], c[domain.StatusTranslated], c[domain.StatusProofed])
}

// syncEditor copies the selected marker into the panel without feeding the
// change back into the workbench.
func (u *workbenchUI) syncEditor() {
	if u.sess == nil {
		return
	}
	wb := u.sess.Workbench()
	m, ok := wb.Selected()
	if !ok {
		return
	}
	u.syncing = true
	defer func() { u.syncing = false }()
	if u.trans.Text != m.TranslationText {
		u.trans.SetText(m.TranslationText)
	}
	if u.proof.Text != m.ProofText {
		u.proof.SetText(m.ProofText)
	}
	u.header.label.SetText(canvas.LabelOf(wb.Markers(), m.ID))
	u.state.SetText(string(m.Status))
	if m.Status == domain.StatusProofed {
		u.toggle.SetText("Unproof")
	} else {
		u.toggle.SetText("Proof")
	}
	if canvas.CanProof(m) || m.Status == domain.StatusProofed {
		u.toggle.Enable()
	} else {
		u.toggle.Disable()
	}
}

// placePanel moves the floating editor to its anchor, in percent of the window.
func (u *workbenchUI) placePanel(st canvas.EditorState) {
	if !st.Visible {
		u.panel.Hide()
		return
	}
	vp := u.w.Canvas().Size()
	u.panel.Resize(u.panelSize)
	u.panel.Move(fyne.NewPos(float32(st.Anchor.X/100)*vp.Width, float32(st.Anchor.Y/100)*vp.Height))
	u.panel.Show()
	u.overlay.Refresh()
}

// markerCanvas is the canvas surface. Fyne has no pointer capture, so the
// widget routes its own mouse stream: captured moves go to the gesture and
// every move is replayed to the window-level listeners.
type markerCanvas struct {
	widget.BaseWidget
	u       *workbenchUI
	img     *fcanvas.Image
	pressed bool
	last    fyne.Position
}

var (
	_ desktop.Mouseable = (*markerCanvas)(nil)
	_ fyne.Draggable    = (*markerCanvas)(nil)
	_ fyne.Scrollable   = (*markerCanvas)(nil)
)

func newMarkerCanvas(u *workbenchUI) *markerCanvas {
	img := fcanvas.NewImageFromFile("")
	img.FillMode = fcanvas.ImageFillStretch
	c := &markerCanvas{u: u, img: img}
	c.ExtendBaseWidget(c)
	return c
}

func (c *markerCanvas) workbench() *canvas.Workbench {
	if c.u.sess == nil {
		return nil
	}
	return c.u.sess.Workbench()
}

func toPt(p fyne.Position) vector.Pt { return vector.P(float64(p.X), float64(p.Y)) }

func (c *markerCanvas) MouseDown(e *desktop.MouseEvent) {
	wb := c.workbench()
	if wb == nil {
		return
	}
	btn := canvas.ButtonPrimary
	if e.Button == desktop.MouseButtonSecondary {
		btn = canvas.ButtonSecondary
	}
	p := toPt(e.Position)
	id, _ := wb.HitTest(p)
	c.pressed, c.last = true, e.Position
	wb.PointerDown(&canvas.PointerEvent{ID: mousePointer, Pos: p, Button: btn}, id)
}

func (c *markerCanvas) Dragged(e *fyne.DragEvent) {
	wb := c.workbench()
	if wb == nil || !c.pressed {
		return
	}
	c.last = e.Position
	ev := &canvas.PointerEvent{ID: mousePointer, Pos: toPt(e.Position)}
	if c.u.host.Captured(mousePointer) {
		wb.PointerMove(ev)
	}
	c.u.host.Emit(canvas.EventMove, ev)
}

// DragEnd and MouseUp both end a press; whichever comes first wins.
func (c *markerCanvas) DragEnd() { c.release(c.last) }

func (c *markerCanvas) MouseUp(e *desktop.MouseEvent) { c.release(e.Position) }

func (c *markerCanvas) release(pos fyne.Position) {
	wb := c.workbench()
	if wb == nil || !c.pressed {
		return
	}
	c.pressed = false
	ev := &canvas.PointerEvent{ID: mousePointer, Pos: toPt(pos)}
	if c.u.host.Captured(mousePointer) {
		wb.PointerUp(ev)
	}
	c.u.host.Emit(canvas.EventUp, ev)
}

func (c *markerCanvas) Scrolled(e *fyne.ScrollEvent) {
	if wb := c.workbench(); wb != nil {
		wb.Wheel(canvas.WheelEvent{Pos: toPt(e.Position), DeltaY: -float64(e.Scrolled.DY)})
	}
}

// relayout pushes the surface and window geometry into the session.
func (c *markerCanvas) relayout() {
	if c.u.sess == nil {
		return
	}
	origin := fyne.CurrentApp().Driver().AbsolutePositionFor(c)
	sz, vp, ps := c.Size(), c.u.w.Canvas().Size(), c.u.panelSize
	c.u.sess.SetGeometry(toPt(origin),
		vector.Size{W: float64(sz.Width), H: float64(sz.Height)},
		vector.Size{W: float64(vp.Width), H: float64(vp.Height)},
		vector.Size{W: float64(ps.Width), H: float64(ps.Height)})
}

func (c *markerCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := fcanvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	r := &markerCanvasRenderer{c: c, bg: bg}
	r.rebuild(0)
	return r
}

type markerCanvasRenderer struct {
	c       *markerCanvas
	bg      *fcanvas.Rectangle
	boxes   []*fcanvas.Rectangle
	labels  []*fcanvas.Text
	objects []fyne.CanvasObject
}

func (r *markerCanvasRenderer) Destroy()                     {}
func (r *markerCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *markerCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(400, 300) }

func (r *markerCanvasRenderer) Refresh() {
	r.place()
	fcanvas.Refresh(r.c)
}

func (r *markerCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	r.c.relayout()
	r.place()
}

func (r *markerCanvasRenderer) rebuild(n int) {
	for len(r.boxes) < n {
		b := fcanvas.NewRectangle(color.Transparent)
		b.StrokeWidth = 2
		t := fcanvas.NewText("", color.White)
		t.TextSize = 11
		t.TextStyle = fyne.TextStyle{Bold: true}
		r.boxes = append(r.boxes, b)
		r.labels = append(r.labels, t)
	}
	r.objects = []fyne.CanvasObject{r.bg, r.c.img}
	for i := 0; i < n; i++ {
		r.objects = append(r.objects, r.boxes[i], r.labels[i])
	}
}

// place positions the page image and marker boxes from the workbench transform.
func (r *markerCanvasRenderer) place() {
	wb := r.c.workbench()
	if wb == nil {
		r.rebuild(0)
		r.c.img.Hide()
		return
	}
	if rect, ok := wb.CanvasRect(); ok && r.c.img.File != "" {
		r.c.img.Move(fyne.NewPos(float32(rect.X), float32(rect.Y)))
		r.c.img.Resize(fyne.NewSize(float32(rect.W), float32(rect.H)))
		r.c.img.Show()
	} else {
		r.c.img.Hide()
	}

	ms := wb.Markers()
	labels := wb.Labels()
	if len(r.objects) != 2+2*len(ms) {
		r.rebuild(len(ms))
	}
	sel, _ := wb.Selected()
	for i, m := range ms {
		box, ok := wb.MarkerBox(m.ID)
		b, t := r.boxes[i], r.labels[i]
		if !ok {
			b.Hide()
			t.Hide()
			continue
		}
		col := export.StatusColor(m.Status)
		b.StrokeColor = col
		b.FillColor = color.NRGBA{R: col.R, G: col.G, B: col.B, A: 40}
		b.StrokeWidth = 2
		if m.ID == sel.ID {
			b.StrokeWidth = 4
		}
		b.Move(fyne.NewPos(float32(box.X), float32(box.Y)))
		b.Resize(fyne.NewSize(float32(box.W), float32(box.H)))
		t.Text = labels[i]
		t.Color = col
		t.Move(fyne.NewPos(float32(box.X)+3, float32(box.Y)-15))
		b.Show()
		t.Show()
		b.Refresh()
		t.Refresh()
	}
}

// dragHandle is the editor panel's header. Dragging it moves the panel;
// positions are absolute so the moving panel does not skew the deltas.
type dragHandle struct {
	widget.BaseWidget
	u        *workbenchUI
	label    *widget.Label
	dragging bool
	last     fyne.Position
}

func newDragHandle(u *workbenchUI) *dragHandle {
	h := &dragHandle{u: u, label: widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})}
	h.ExtendBaseWidget(h)
	return h
}

func (h *dragHandle) CreateRenderer() fyne.WidgetRenderer {
	bar := fcanvas.NewRectangle(theme.Color(theme.ColorNameHeaderBackground))
	return widget.NewSimpleRenderer(container.NewStack(bar, container.NewHBox(widget.NewIcon(theme.MenuIcon()), h.label)))
}

func (h *dragHandle) Dragged(e *fyne.DragEvent) {
	if h.u.sess == nil {
		return
	}
	wb := h.u.sess.Workbench()
	if !h.dragging {
		h.dragging = true
		start := e.AbsolutePosition.Subtract(fyne.NewPos(e.Dragged.DX, e.Dragged.DY))
		wb.EditorHeaderDown(&canvas.PointerEvent{ID: headerPointer, Pos: toPt(start)})
	}
	h.last = e.AbsolutePosition
	h.u.host.Emit(canvas.EventMove, &canvas.PointerEvent{ID: headerPointer, Pos: toPt(e.AbsolutePosition)})
}

func (h *dragHandle) DragEnd() {
	if !h.dragging {
		return
	}
	h.dragging = false
	h.u.host.Emit(canvas.EventUp, &canvas.PointerEvent{ID: headerPointer, Pos: toPt(h.last)})
}

func loadRecentProjects(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(s, pagesource.ManifestFileName)); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentProjects(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentProject(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentProjects(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentProjects(p, out)
}
