// Package layout turns an invoice snapshot and its totals into a positioned
// display list for a single A4 page. Drawing is left to the container.
package layout

import "strings"

// A4 page size and margins, in points
const (
	PageWidth  = 595.28
	PageHeight = 841.89
	Margin     = 50.0
)

// Align is the horizontal anchor of a text run
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Text is a run of text placed at an absolute position.
// Y is the baseline, measured from the top edge. For AlignRight, X is the right edge.
type Text struct {
	X     float64
	Y     float64
	Value string
	Size  float64
	Bold  bool
	Align Align
	Role  string
}

// Rule is a horizontal or vertical line
type Rule struct {
	X1, Y1 float64
	X2, Y2 float64
	Width  float64
}

// Page is the display list of one rendered page
type Page struct {
	Width  float64
	Height float64
	Texts  []Text
	Rules  []Rule
}

// Text returns the visible text in reading order, one run per line.
// Runs sharing a baseline are joined with a space.
func (p *Page) Text() string {
	var b strings.Builder
	for i, t := range p.Texts {
		if i > 0 {
			if t.Y == p.Texts[i-1].Y {
				b.WriteByte(' ')
			} else {
				b.WriteByte('\n')
			}
		}
		b.WriteString(t.Value)
	}
	return b.String()
}

// Find returns the runs carrying role, in drawing order
func (p *Page) Find(role string) []Text {
	var out []Text
	for _, t := range p.Texts {
		if t.Role == role {
			out = append(out, t)
		}
	}
	return out
}
