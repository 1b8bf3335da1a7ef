package render

import (
	"bufio"
	"fmt"
	"html"
	"io"
)

const (
	svgFont      = "Inter, Arial, sans-serif"
	gridStroke   = "#e5e7eb"
	edgeStroke   = "#94a3b8"
	selectStroke = "#f97316"
)

// WriteSVG serialises a scene as a standalone SVG document of the visible
// area. The grid is drawn in screen space and everything else inside the
// viewport transform.
func WriteSVG(w io.Writer, sc Scene, width, height float64) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">`+"\n",
		width, height, width, height)
	fmt.Fprintf(bw, `  <rect width="100%%" height="100%%" fill="#ffffff"/>`+"\n")

	writeGrid(bw, sc.Grid, width, height)

	v := sc.Transform
	fmt.Fprintf(bw, `  <g transform="translate(%.2f %.2f) scale(%.4f)">`+"\n", v.Offset.X, v.Offset.Y, v.Scale)

	for _, e := range sc.Edges {
		stroke := edgeStroke
		if e.Selected {
			stroke = selectStroke
		}
		fmt.Fprintf(bw, `    <path d="%s" fill="none" stroke="%s" stroke-width="2" data-id="%s"/>`+"\n",
			e.D, stroke, escapeXML(e.ID))
		if e.Label != "" {
			fmt.Fprintf(bw, `    <text x="%.2f" y="%.2f" font-family="%s" font-size="11" fill="#475569" text-anchor="middle">%s</text>`+"\n",
				e.LabelAt.X, e.LabelAt.Y-4, svgFont, escapeXML(e.Label))
		}
	}

	if p := sc.Preview; p != nil {
		fmt.Fprintf(bw, `    <line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="2" stroke-dasharray="6 4"/>`+"\n",
			p.From.X, p.From.Y, p.To.X, p.To.Y, selectStroke)
	}

	for _, c := range sc.Cards {
		writeCard(bw, c)
	}

	bw.WriteString("  </g>\n</svg>\n")
	return bw.Flush()
}

func writeGrid(w *bufio.Writer, g Grid, width, height float64) {
	if g.Spacing < 4 {
		return
	}
	for x := g.Phase.X; x <= width; x += g.Spacing {
		fmt.Fprintf(w, `  <line x1="%.2f" y1="0" x2="%.2f" y2="%.0f" stroke="%s" stroke-width="1"/>`+"\n", x, x, height, gridStroke)
	}
	for y := g.Phase.Y; y <= height; y += g.Spacing {
		fmt.Fprintf(w, `  <line x1="0" y1="%.2f" x2="%.0f" y2="%.2f" stroke="%s" stroke-width="1"/>`+"\n", y, width, y, gridStroke)
	}
}

func writeCard(w *bufio.Writer, c Card) {
	stroke, strokeWidth := c.Stroke, 1.5
	if c.Selected {
		stroke, strokeWidth = selectStroke, 3
	}

	fmt.Fprintf(w, `    <g data-id="%s" data-type="%s">`+"\n", escapeXML(c.ID), c.Type)
	fmt.Fprintf(w, `      <rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="8" fill="%s" stroke="%s" stroke-width="%.1f"/>`+"\n",
		c.X, c.Y, c.Width, c.Height, c.Fill, stroke, strokeWidth)

	title := c.Title
	if title == "" {
		title = string(c.Type)
	}
	fmt.Fprintf(w, `      <text x="%.2f" y="%.2f" font-family="%s" font-size="14" font-weight="600"%s>%s</text>`+"\n",
		c.X+12, c.Y+24, svgFont, strike(c.Completed), escapeXML(title))

	line := c.Y + 44
	if c.Description != "" {
		fmt.Fprintf(w, `      <text x="%.2f" y="%.2f" font-family="%s" font-size="11" fill="#4b5563">%s</text>`+"\n",
			c.X+12, line, svgFont, escapeXML(truncate(c.Description, 32)))
		line += 18
	}
	if c.DueDate != "" || c.Priority != "" {
		meta := c.DueDate
		if c.Priority != "" {
			if meta != "" {
				meta += " · "
			}
			meta += string(c.Priority)
		}
		fmt.Fprintf(w, `      <text x="%.2f" y="%.2f" font-family="%s" font-size="11" fill="#6b7280">%s</text>`+"\n",
			c.X+12, line, svgFont, escapeXML(meta))
	}
	if c.Completed {
		fmt.Fprintf(w, `      <text x="%.2f" y="%.2f" font-family="%s" font-size="12" fill="#16a34a" text-anchor="end">✓</text>`+"\n",
			c.X+c.Width-10, c.Y+22, svgFont)
	}

	fmt.Fprintf(w, `      <circle cx="%.2f" cy="%.2f" r="6" fill="#ffffff" stroke="%s" stroke-width="2"/>`+"\n",
		c.Handle.X, c.Handle.Y, c.Stroke)
	w.WriteString("    </g>\n")
}

func strike(done bool) string {
	if done {
		return ` text-decoration="line-through"`
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func escapeXML(s string) string {
	return html.EscapeString(s)
}
