package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mesh-intelligence/ordertracker/internal/view"
)

// rowColors holds the even and odd background of one category.
type rowColors struct {
	even, odd lipgloss.Color
}

// categoryColors are the row backgrounds by Priority value. Categories not
// listed are left uncoloured.
var categoryColors = map[string]rowColors{
	"high":   {even: "#ffb3b3", odd: "#ff9999"},
	"medium": {even: "#fff2b3", odd: "#ffe680"},
	"low":    {even: "#d6f5d6", odd: "#b3ffb3"},
}

// Palette styles table cells by display category and stripe.
type Palette struct {
	styles map[string][2]lipgloss.Style
}

// NewPalette builds the category styles for r.
func NewPalette(r *lipgloss.Renderer) *Palette {
	p := &Palette{styles: make(map[string][2]lipgloss.Style, len(categoryColors))}
	for category, c := range categoryColors {
		base := r.NewStyle().Foreground(lipgloss.Color("#000000"))
		p.styles[category] = [2]lipgloss.Style{
			view.StripeEven: base.Background(c.even),
			view.StripeOdd:  base.Background(c.odd),
		}
	}
	return p
}

// Style returns the cell style of a row, and false when its category has
// no colour.
func (p *Palette) Style(category string, stripe view.Stripe) (lipgloss.Style, bool) {
	s, ok := p.styles[strings.ToLower(category)]
	if !ok {
		return lipgloss.Style{}, false
	}
	return s[stripe], true
}
