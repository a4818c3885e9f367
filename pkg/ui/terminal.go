package ui

import (
	"io"
	"os"
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// SupportsUnicode reports whether w can render glyphs beyond Latin-1.
// Pipes, TERM=dumb and legacy Windows consoles cannot.
func SupportsUnicode(w io.Writer) bool {
	if os.Getenv("TERM") == "dumb" || !IsTerminal(w) {
		return false
	}
	if runtime.GOOS == "windows" {
		// Windows Terminal sets WT_SESSION; legacy conhost does not.
		return os.Getenv("WT_SESSION") != ""
	}
	return true
}

// NewRenderer returns a lipgloss renderer for w. Color is dropped when
// noColor is set, NO_COLOR is exported, or w is not a terminal.
func NewRenderer(w io.Writer, noColor bool) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w, termenv.WithColorCache(true))
	if noColor || os.Getenv("NO_COLOR") != "" || !IsTerminal(w) {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// Sanitize strips symbols a limited terminal cannot draw.
func Sanitize(s string, unicodeOK bool) string {
	if unicodeOK {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r < 0x80:
			b.WriteByte(s[i])
		case r >= 0xFE00 && r <= 0xFE0F:
			// variation selector
		case r <= 0xFF || unicode.Is(unicode.Latin, r):
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}
