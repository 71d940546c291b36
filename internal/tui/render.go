// Package tui draws the reel in a terminal and plays its sounds.
package tui

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/okian/gamespin/internal/domain/model"
)

// Reel rows are drawn this far above and below the screen's middle row.
const reelHalfHeight = 1

// View is everything one frame needs.
type View struct {
	Items     []model.Entry
	ItemWidth float64
	Offset    float64
	Header    string
	Status    string
}

// Renderer paints views onto a tcell screen.
type Renderer struct {
	screen tcell.Screen
}

// NewRenderer creates a renderer for screen.
func NewRenderer(screen tcell.Screen) *Renderer {
	return &Renderer{screen: screen}
}

// Width is the viewport width in cells.
func (r *Renderer) Width() int {
	w, _ := r.screen.Size()
	return w
}

// Draw paints v and shows it.
func (r *Renderer) Draw(v View) {
	s := r.screen
	s.Clear()
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return
	}
	mid := h / 2

	drawText(s, 0, 0, w, v.Header, tcell.StyleDefault.Bold(true))
	if v.ItemWidth > 0 {
		for x := 0; x < w; x++ {
			r.drawColumn(v, x, mid)
		}
	}

	marker := w / 2
	accent := tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	s.SetContent(marker, mid-reelHalfHeight-1, '▼', nil, accent)
	s.SetContent(marker, mid+reelHalfHeight+1, '▲', nil, accent)

	drawText(s, 0, h-1, w, v.Status, tcell.StyleDefault)
	s.Show()
}

// drawColumn paints one screen column of the strip.
func (r *Renderer) drawColumn(v View, x, mid int) {
	world := v.Offset + float64(x)
	idx := int(math.Floor(world / v.ItemWidth))
	if idx < 0 || idx >= len(v.Items) {
		return
	}
	item := v.Items[idx]
	local := int(world - float64(idx)*v.ItemWidth)
	style := tcell.StyleDefault.Background(RarityColor(item.Rarity)).Foreground(tcell.ColorBlack)

	title := []rune(item.Title)
	for y := mid - reelHalfHeight; y <= mid+reelHalfHeight; y++ {
		ch := ' '
		switch {
		case local == 0:
			ch = '│'
		case y == mid && local-1 < len(title) && local < int(v.ItemWidth)-1:
			ch = title[local-1]
		}
		r.screen.SetContent(x, y, ch, nil, style)
	}
}

// RarityColor is the card background for a rarity tag.
func RarityColor(r model.Rarity) tcell.Color {
	switch r {
	case model.RarityUncommon:
		return tcell.ColorGreen
	case model.RarityRare:
		return tcell.ColorDodgerBlue
	case model.RarityEpic:
		return tcell.ColorMediumPurple
	case model.RarityLegendary:
		return tcell.ColorOrange
	default:
		return tcell.ColorSilver
	}
}

func drawText(s tcell.Screen, x, y, maxWidth int, text string, style tcell.Style) {
	for _, ch := range text {
		if x >= maxWidth {
			return
		}
		s.SetContent(x, y, ch, nil, style)
		x++
	}
}
