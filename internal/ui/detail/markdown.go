package detail

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

var (
	rendererMu sync.Mutex
	// Renderers keyed by style and wrap width. Auto style is avoided because
	// it queries the terminal.
	renderers = map[string]*glamour.TermRenderer{}
)

// renderMarkdown renders md for a terminal of the given width. On any
// renderer failure the source text is returned unchanged.
func renderMarkdown(md string, width int, dark bool) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}
	style := "light"
	if dark {
		style = "dark"
	}
	key := fmt.Sprintf("%s:%d", style, width)

	rendererMu.Lock()
	r := renderers[key]
	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			rendererMu.Unlock()
			return md
		}
		renderers[key] = rr
		r = rr
	}
	rendererMu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
