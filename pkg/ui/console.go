package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/wafbench/wbt/pkg/defaults"
	"github.com/wafbench/wbt/pkg/report"
)

const bannerArt = `
           __    __ 
 _      __/ /_  / /_
| | /| / / __ \/ __/
| |/ |/ / /_/ / /_  
|__/|__/_.___/\__/  
`

// Console prints human-facing run output. Logs go through slog; the
// console only renders banners and summaries.
type Console struct {
	w         io.Writer
	r         *lipgloss.Renderer
	silent    bool
	unicodeOK bool
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithNoColor disables ANSI colors.
func WithNoColor(noColor bool) ConsoleOption {
	return func(c *Console) {
		if noColor {
			c.r = NewRenderer(c.w, true)
		}
	}
}

// WithSilent suppresses all console output.
func WithSilent(silent bool) ConsoleOption {
	return func(c *Console) { c.silent = silent }
}

// NewConsole creates a console writing to w.
func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{w: w, r: NewRenderer(w, false), unicodeOK: SupportsUnicode(w)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) style(s lipgloss.Style) lipgloss.Style {
	s = s.Renderer(c.r)
	if !c.unicodeOK && s.GetBorderStyle() != (lipgloss.Border{}) {
		s = s.BorderStyle(lipgloss.ASCIIBorder())
	}
	return s
}

func (c *Console) println(s string) {
	if c.silent {
		return
	}
	fmt.Fprintln(c.w, Sanitize(s, c.unicodeOK))
}

// Icon picks the glyph the terminal can draw.
func (c *Console) Icon(unicode, ascii string) string {
	if c.unicodeOK {
		return unicode
	}
	return ascii
}

// Banner prints the tool banner and version.
func (c *Console) Banner() {
	for _, line := range strings.Split(bannerArt, "\n") {
		if strings.TrimSpace(line) != "" {
			c.println(c.style(BannerStyle).Render(line))
		}
	}
	c.println("   " + c.style(VersionStyle).Render("v"+defaults.Version) + "  WAF Benchmark Toolkit")
	c.println("")
}

// Section prints an underlined section title.
func (c *Console) Section(title string) {
	c.println(c.style(SectionStyle).Render(title))
}

// Field prints one label/value line.
func (c *Console) Field(label, value string) {
	c.println("  " + c.style(LabelStyle).Render(label) + c.style(ValueStyle).Render(value))
}

// Summary prints the result of a run and where its reports were written.
func (c *Console) Summary(s *report.Summary, paths *report.Paths) {
	if s == nil {
		return
	}
	c.println("")
	c.Section("Benchmark Summary")
	if s.Target != "" {
		c.println("  " + c.style(LabelStyle).Render("Target") + c.style(URLStyle).Render(s.Target))
	}
	if s.Mode != "" {
		c.Field("Mode", s.Mode)
	}
	if s.DurationMs > 0 {
		c.Field("Duration", (time.Duration(s.DurationMs) * time.Millisecond).String())
	}

	score := fmt.Sprintf("%d/100  Grade %s", s.TotalScore, s.Grade)
	lines := []string{
		c.style(LabelStyle).Render("Score") + c.style(GradeStyle(string(s.Grade))).Render(score),
		c.style(LabelStyle).Render("Total Requests") + fmt.Sprint(s.TotalRequests),
		c.style(LabelStyle).Render("Blocked") + c.style(BlockedStyle).Render(fmt.Sprint(s.BlockedRequests)),
		c.style(LabelStyle).Render("Passed") + fmt.Sprint(s.PassedRequests),
		c.style(LabelStyle).Render("Bypasses") + c.style(BypassStyle).Render(fmt.Sprint(s.FalseNegatives)),
		c.style(LabelStyle).Render("False Positives") + c.style(WarningStyle).Render(fmt.Sprint(s.FalsePositives)),
	}
	if s.TransportErrors > 0 {
		lines = append(lines, c.style(LabelStyle).Render("Transport Errors")+c.style(WarningStyle).Render(fmt.Sprint(s.TransportErrors)))
	}
	c.println(c.style(BoxStyle).Render(strings.Join(lines, "\n")))

	switch {
	case s.FalseNegatives > 0:
		c.println(c.style(BypassStyle).Render(fmt.Sprintf("%s %d payloads bypassed the protection", c.Icon("✗", "[!!]"), s.FalseNegatives)))
	case s.TotalRequests == 0:
		c.println(c.style(WarningStyle).Render(c.Icon("⚠", "[??]") + " no requests were classified"))
	default:
		c.println(c.style(BlockedStyle).Render(c.Icon("✓", "[OK]") + " all attack payloads were blocked"))
	}

	if paths != nil {
		c.println("")
		c.Section("Reports")
		for _, p := range []string{paths.JSON, paths.PDF, paths.Markdown} {
			if p != "" {
				c.println("  " + c.style(MutedStyle).Render(p))
			}
		}
	}
}
