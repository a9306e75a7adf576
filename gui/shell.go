//go:build gui

package gui

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"iconch/conch"
	"iconch/shell"
)

type ShellWidget struct {
	widget.BaseWidget
	mu      sync.Mutex
	frame   int
	swell   float64
	running bool
	class   conch.Classification
	stopCh  chan struct{}
}

func NewShellWidget() *ShellWidget {
	s := &ShellWidget{stopCh: make(chan struct{})}
	s.ExtendBaseWidget(s)
	go s.animate()
	return s
}

func (s *ShellWidget) SetRunning(r bool) {
	s.mu.Lock()
	s.running = r
	if !r {
		s.class = conch.Stopped
	}
	s.mu.Unlock()
}

func (s *ShellWidget) SetClass(c conch.Classification) {
	s.mu.Lock()
	s.class = c
	s.mu.Unlock()
}

func (s *ShellWidget) SetLevel(level float64) {
	target := shell.Swell(level)
	s.mu.Lock()
	if s.running {
		if target > s.swell {
			s.swell = s.swell*0.2 + target*0.8
		} else {
			s.swell = s.swell*0.7 + target*0.3
		}
	}
	s.mu.Unlock()
}

func (s *ShellWidget) Stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
}

func (s *ShellWidget) animate() {
	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame++
			if !s.running {
				s.swell *= 0.95
			}
			s.mu.Unlock()
			fyne.Do(func() {
				s.Refresh()
			})
		}
	}
}

func (s *ShellWidget) MinSize() fyne.Size {
	return fyne.NewSize(float32(shell.Width*8), float32(shell.Height*16))
}

func (s *ShellWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &shellRenderer{shell: s}
	r.rects = make([][]*canvas.Rectangle, shell.Height)
	for y := range r.rects {
		r.rects[y] = make([]*canvas.Rectangle, shell.Width)
		for x := range r.rects[y] {
			r.rects[y][x] = canvas.NewRectangle(color.Transparent)
		}
	}
	return r
}

type shellRenderer struct {
	shell *ShellWidget
	rects [][]*canvas.Rectangle
}

func (r *shellRenderer) Layout(size fyne.Size) {
	cellW := size.Width / float32(shell.Width)
	cellH := size.Height / float32(shell.Height)
	for y := range r.rects {
		for x, rect := range r.rects[y] {
			rect.Move(fyne.NewPos(float32(x)*cellW, float32(y)*cellH))
			rect.Resize(fyne.NewSize(cellW, cellH))
		}
	}
}

func (r *shellRenderer) MinSize() fyne.Size {
	return r.shell.MinSize()
}

func (r *shellRenderer) Refresh() {
	r.shell.mu.Lock()
	frame, swell := r.shell.frame, r.shell.swell
	palette := shell.PaletteFor(r.shell.class, r.shell.running)
	r.shell.mu.Unlock()

	pixels := shell.Pixels(frame, swell)

	// Half-block rendering: each rect represents 2 vertical pixels
	for cy := range r.rects {
		for cx, rect := range r.rects[cy] {
			rect.FillColor = blendColors(palette[pixels[cy*2][cx]], palette[pixels[cy*2+1][cx]])
			rect.Refresh()
		}
	}
}

// blendColors averages two palette entries; an empty pixel counts as
// background and a cell of two empty pixels stays transparent.
func blendColors(top, bot string) color.Color {
	switch {
	case top == "" && bot == "":
		return color.Transparent
	case top == "":
		top = bot
	case bot == "":
		bot = top
	}
	t, b := shell.RGB(top), shell.RGB(bot)
	return color.RGBA{
		R: uint8((uint16(t.R) + uint16(b.R)) / 2),
		G: uint8((uint16(t.G) + uint16(b.G)) / 2),
		B: uint8((uint16(t.B) + uint16(b.B)) / 2),
		A: 255,
	}
}

func (r *shellRenderer) Objects() []fyne.CanvasObject {
	objs := make([]fyne.CanvasObject, 0, shell.Width*shell.Height)
	for _, row := range r.rects {
		for _, rect := range row {
			objs = append(objs, rect)
		}
	}
	return objs
}

func (r *shellRenderer) Destroy() {
	r.shell.Stop()
}
