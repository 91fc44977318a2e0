package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderTable lays out rows under headers in aligned columns. Rows shorter
// than headers are padded with empty cells.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(headers) && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, renderRow(TableHeaderStyle, headers, widths))
	for _, row := range rows {
		lines = append(lines, renderRow(TableCellStyle, row, widths))
	}
	return strings.Join(lines, "\n")
}

func renderRow(style lipgloss.Style, cells []string, widths []int) string {
	rendered := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		rendered[i] = style.Width(w + style.GetPaddingRight()).Render(cell)
	}
	return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, rendered...), " ")
}
