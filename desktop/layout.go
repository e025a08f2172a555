package desktop

import (
	"image"
	"math"
	"strings"

	"github.com/echoflaresat/natalglobe/overlay"
	"github.com/echoflaresat/natalglobe/selection"
	"github.com/echoflaresat/natalglobe/sun"
)

// Debug font metrics of ebitenutil.DebugPrintAt.
const (
	charW = 6
	lineH = 16
)

const (
	margin       = 8
	sidebarWidth = 190
	panelWidth   = 280
	closeLabel   = "[x]"
)

// Time slider steps in hours.
const (
	fineStep   = 0.1
	coarseStep = 1.0
)

// repeating reports whether a key held for d ticks should fire: on the first
// tick, then every 3 ticks after half a second.
func repeating(d int) bool {
	return d == 1 || (d >= 30 && d%3 == 0)
}

// stepTime moves t by one slider step in direction dir (-1 or +1), snapping
// to the 0.1 h grid and staying inside [0, 24].
func stepTime(t sun.TimeOfDay, dir int, coarse bool) sun.TimeOfDay {
	step := fineStep
	if coarse {
		step = coarseStep
	}
	next := float64(t) + float64(dir)*step
	next = math.Round(next*10) / 10
	return sun.TimeOfDay(next).Clamp()
}

// sidebarRow returns the screen rectangle of catalog point i in the sidebar.
func sidebarRow(i int) image.Rectangle {
	top := margin + 2*lineH + i*lineH
	return image.Rect(margin, top, margin+sidebarWidth, top+lineH)
}

// sidebarEntry returns the index of the sidebar point under (x, y), or -1.
func sidebarEntry(c *overlay.Catalog, x, y int) int {
	if c == nil {
		return -1
	}
	pt := image.Pt(x, y)
	for i := range c.Points {
		if pt.In(sidebarRow(i)) {
			return i
		}
	}
	return -1
}

type panelKind int

const (
	pointPanel panelKind = iota
	arcPanel
)

// panelBox is a laid-out detail panel on the right edge of the screen.
type panelBox struct {
	kind  panelKind
	lines []string
	box   image.Rectangle
	close image.Rectangle
}

// layoutPanels stacks the open detail panels top-down along the right edge.
func layoutPanels(screenW int, sel selection.State) []panelBox {
	var out []panelBox
	top := margin
	add := func(kind panelKind, p selection.Panel) {
		lines := wrapText(p.Text(), (panelWidth-2*margin)/charW)
		left := screenW - panelWidth - margin
		box := image.Rect(left, top, left+panelWidth, top+2*margin+(len(lines)+1)*lineH)
		closeW := len(closeLabel) * charW
		out = append(out, panelBox{
			kind:  kind,
			lines: lines,
			box:   box,
			close: image.Rect(box.Max.X-margin-closeW, box.Min.Y+margin, box.Max.X-margin, box.Min.Y+margin+lineH),
		})
		top = box.Max.Y + margin
	}
	if p, ok := sel.PointPanel(); ok {
		add(pointPanel, p)
	}
	if p, ok := sel.ArcPanel(); ok {
		add(arcPanel, p)
	}
	return out
}

// wrapText breaks text into lines of at most width characters, keeping
// explicit line breaks.
func wrapText(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, w := range words {
			for len([]rune(w)) > width {
				if line != "" {
					out = append(out, line)
					line = ""
				}
				r := []rune(w)
				out = append(out, string(r[:width]))
				w = string(r[width:])
			}
			switch {
			case line == "":
				line = w
			case len([]rune(line))+1+len([]rune(w)) <= width:
				line += " " + w
			default:
				out = append(out, line)
				line = w
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
