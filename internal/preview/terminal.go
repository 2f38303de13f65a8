package preview

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
)

// ErrClosed is returned by Consume once the user has closed the preview.
var ErrClosed = errors.New("preview closed by user")

// Terminal shows frames in the terminal, two pixels per cell using the
// upper half block glyph. It paces itself to the frame rate.
type Terminal struct {
	screen   tcell.Screen
	interval time.Duration
	last     time.Time

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewTerminal takes over the controlling terminal.
func NewTerminal(frameRate int) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	return NewTerminalWithScreen(screen, frameRate), nil
}

// NewTerminalWithScreen wraps an initialised screen.
func NewTerminalWithScreen(screen tcell.Screen, frameRate int) *Terminal {
	t := &Terminal{
		screen:   screen,
		interval: time.Second / time.Duration(max(frameRate, 1)),
	}
	screen.Clear()
	go t.pollEvents()
	return t
}

func (t *Terminal) pollEvents() {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		if !t.handleEvent(ev) {
			t.closed.Store(true)
			return
		}
	}
}

// handleEvent reports whether the preview should stay open.
func (t *Terminal) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q') {
			return false
		}
	case *tcell.EventResize:
		t.screen.Sync()
	}
	return true
}

// Consume draws frame and waits out the rest of the frame interval.
func (t *Terminal) Consume(frame *image.RGBA) error {
	if t.closed.Load() {
		return ErrClosed
	}

	cols, rows := t.screen.Size()
	l := fit(frame.Bounds().Dx(), frame.Bounds().Dy(), cols, rows)
	t.screen.Clear()
	for cy := 0; cy < l.rows; cy++ {
		for cx := 0; cx < l.cols; cx++ {
			top := l.sample(frame, cx, 2*cy)
			bottom := l.sample(frame, cx, 2*cy+1)
			style := tcell.StyleDefault.Foreground(top).Background(bottom)
			t.screen.SetContent(l.offsetX+cx, l.offsetY+cy, '▀', nil, style)
		}
	}
	t.screen.Show()

	if !t.last.IsZero() {
		if wait := t.interval - time.Since(t.last); wait > 0 {
			time.Sleep(wait)
		}
	}
	t.last = time.Now()
	return nil
}

// Close restores the terminal.
func (t *Terminal) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		t.screen.Fini()
	})
	return nil
}

// layout maps terminal cells onto frame pixels, keeping the aspect ratio.
// Each cell covers one column and two rows of virtual pixels.
type layout struct {
	cols, rows       int
	offsetX, offsetY int
	step             float64
}

func fit(width, height, cols, rows int) layout {
	if width <= 0 || height <= 0 || cols <= 0 || rows <= 0 {
		return layout{}
	}
	step := max(float64(width)/float64(cols), float64(height)/float64(2*rows))
	l := layout{
		cols: min(cols, int(float64(width)/step)),
		rows: min(rows, int(float64(height)/(2*step))),
		step: step,
	}
	l.offsetX = (cols - l.cols) / 2
	l.offsetY = (rows - l.rows) / 2
	return l
}

func (l layout) sample(frame *image.RGBA, vx, vy int) tcell.Color {
	b := frame.Bounds()
	x := b.Min.X + min(int((float64(vx)+0.5)*l.step), b.Dx()-1)
	y := b.Min.Y + min(int((float64(vy)+0.5)*l.step), b.Dy()-1)
	c := frame.RGBAAt(x, y)
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}
