package cli

import (
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorText   = lipgloss.Color("#FFFCF0")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
)

// table is a bordered text table. Total, when set, is drawn under a
// separator in the total style. Right lists the right-aligned columns.
type table struct {
	Headers []string
	Rows    [][]string
	Total   []string
	Right   []int
}

type tableStyles struct {
	header lipgloss.Style
	dim    lipgloss.Style
	value  lipgloss.Style
	total  lipgloss.Style
}

// Styles are bound to w so that output to a pipe or a buffer stays plain.
func newTableStyles(w io.Writer) tableStyles {
	r := lipgloss.NewRenderer(w)
	return tableStyles{
		header: r.NewStyle().Bold(true).Foreground(colorAccent),
		dim:    r.NewStyle().Foreground(colorBorder),
		value:  r.NewStyle().Foreground(colorText),
		total:  r.NewStyle().Bold(true).Foreground(colorGreen),
	}
}

func renderTable(w io.Writer, t table) error {
	_, err := io.WriteString(w, t.render(newTableStyles(w)))
	return err
}

func (t table) render(st tableStyles) string {
	widths := make([]int, len(t.Headers))
	measure := func(row []string) {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	measure(t.Headers)
	for _, row := range t.Rows {
		measure(row)
	}
	measure(t.Total)

	var b strings.Builder
	rule := func(left, mid, right string) {
		b.WriteString(st.dim.Render(left))
		for i, w := range widths {
			b.WriteString(st.dim.Render(strings.Repeat("─", w+2)))
			if i < len(widths)-1 {
				b.WriteString(st.dim.Render(mid))
			}
		}
		b.WriteString(st.dim.Render(right))
		b.WriteString("\n")
	}
	line := func(row []string, style lipgloss.Style) {
		b.WriteString(st.dim.Render("│"))
		for i, w := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pos := lipgloss.Left
			if slices.Contains(t.Right, i) {
				pos = lipgloss.Right
			}
			b.WriteString(style.Render(" " + lipgloss.PlaceHorizontal(w, pos, cell) + " "))
			if i < len(widths)-1 {
				b.WriteString(st.dim.Render("│"))
			}
		}
		b.WriteString(st.dim.Render("│"))
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	line(t.Headers, st.header)
	rule("├", "┼", "┤")
	for _, row := range t.Rows {
		line(row, st.value)
	}
	if t.Total != nil {
		rule("├", "┼", "┤")
		line(t.Total, st.total)
	}
	rule("╰", "┴", "╯")
	return b.String()
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }
