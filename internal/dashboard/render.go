package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
)

var (
	focusedBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(brighten(lipgloss.Color("63")))
	blurredBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	currentLineStyle = lipgloss.NewStyle().Reverse(true)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("150"))
)

// brighten lifts a lipgloss color's lightness via go-colorful, used to make
// the focused pane's border stand out from the blurred ones.
func brighten(c lipgloss.Color) lipgloss.Color {
	col, err := colorful.Hex(string(c))
	if err != nil {
		return c
	}
	h, s, l := col.Hsl()
	l += 0.2
	if l > 1 {
		l = 1
	}
	return lipgloss.Color(colorful.Hsl(h, s, l).Hex())
}

// Render draws one full frame into a single string, built the way the
// teacher writes frames in internal/chat/layout.go: one accumulated buffer,
// flushed to the terminal exactly once (spec.md §4.6 "one write per
// frame"). width and height are the current terminal dimensions.
func Render(s *State, focus Pane, width, height int) string {
	var b strings.Builder

	b.WriteString(renderSessionBar(s, width))
	b.WriteByte('\n')

	view := s.Focused()
	if view == nil {
		b.WriteString(lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render("no sessions"))
		return b.String()
	}

	mainHeight := height - 6
	if mainHeight < 3 {
		mainHeight = 3
	}
	sourceWidth := width * 2 / 3
	sidebarWidth := width - sourceWidth - 1

	source := renderSourcePane(view, sourceWidth, mainHeight, focus == PaneSource)
	sidebar := renderSidebarPane(view, sidebarWidth, mainHeight, focus == PaneSidebar)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, source, sidebar))
	b.WriteByte('\n')

	b.WriteString(renderLogPane(view, width, focus == PaneLog))
	b.WriteByte('\n')
	b.WriteString(renderFooter(width))

	return b.String()
}

func renderSessionBar(s *State, width int) string {
	sessions := s.Sessions()
	if len(sessions) == 0 {
		return headerStyle.Width(width).Render(" no active sessions")
	}
	parts := make([]string, 0, len(sessions))
	for _, v := range sessions {
		label := v.ID + ":" + v.Status
		if v == s.Focused() {
			label = "[" + label + "]"
		}
		parts = append(parts, label)
	}
	return headerStyle.Width(width).Render(" " + strings.Join(parts, "  "))
}

func renderSourcePane(v *SessionView, width, height int, focused bool) string {
	style := blurredBorder
	if focused {
		style = focusedBorder
	}
	title := "source"
	if v.Source.Path != "" {
		title = v.Source.Path
	}

	visible := height - 2
	if visible < 1 {
		visible = 1
	}
	lines := v.Source.Lines
	scroll := ClampScroll(v.Source.Scroll, len(lines), visible)

	var body strings.Builder
	body.WriteString(headerStyle.Render(runewidth.Truncate(title, width-2, "…")))
	body.WriteByte('\n')
	end := scroll + visible
	if end > len(lines) {
		end = len(lines)
	}
	for _, sl := range lines[scroll:end] {
		text := runewidth.Truncate(sl.Text, width-2, "…")
		if sl.Current {
			text = currentLineStyle.Render(runewidth.FillRight(text, width-2))
		}
		body.WriteString(text)
		body.WriteByte('\n')
	}

	return style.Width(width).Height(height).Render(body.String())
}

func renderSidebarPane(v *SessionView, width, height int, focused bool) string {
	style := blurredBorder
	if focused {
		style = focusedBorder
	}

	var rows []string
	for _, f := range v.Stack {
		rows = append(rows, runewidth.Truncate(f.Function, width-2, "…"))
	}
	if len(v.Locals) > 0 {
		rows = append(rows, headerStyle.Render("Locals"))
		for _, l := range v.Locals {
			rows = append(rows, runewidth.Truncate(l.Name+" = "+l.Value, width-2, "…"))
		}
	}
	if len(v.Breakpoints) > 0 {
		rows = append(rows, headerStyle.Render("Breakpoints"))
		for _, bp := range v.Breakpoints {
			rows = append(rows, runewidth.Truncate(breakpointLabel(bp), width-2, "…"))
		}
	}

	visible := height - 1
	if visible < 1 {
		visible = 1
	}
	scroll := ClampScroll(v.SidebarScroll, len(rows), visible)
	end := scroll + visible
	if end > len(rows) {
		end = len(rows)
	}

	body := strings.Join(rows[scroll:end], "\n")
	return style.Width(width).Height(height).Render(body)
}

func breakpointLabel(bp Breakpoint) string {
	mark := "○"
	if bp.Verified {
		mark = "●"
	}
	return mark + " " + bp.File + ":" + itoa(bp.Line)
}

func renderLogPane(v *SessionView, width, focused bool) string {
	style := blurredBorder
	if focused {
		style = focusedBorder
	}
	var lines []string
	for _, e := range v.Log.Entries() {
		line := e.Message
		if e.Tool != "" {
			line = e.Tool + ": " + line
		}
		if e.IsError {
			line = errorStyle.Render(line)
		}
		lines = append(lines, runewidth.Truncate(line, width-2, "…"))
	}
	return style.Width(width).Height(4).Render(strings.Join(lines, "\n"))
}

func renderFooter(width int) string {
	hint := " q quit · tab pane · j/k scroll · [/] session"
	if ansi.StringWidth(hint) > width {
		hint = runewidth.Truncate(hint, width, "")
	}
	return statusStyle.Width(width).Render(hint)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
