package chat

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
)

// Renderer writes a View as terminal text.
type Renderer struct {
	Color bool
}

var (
	styleOwn    = color.New(color.FgGreen, color.OpBold)
	styleOther  = color.New(color.FgCyan, color.OpBold)
	styleSystem = color.New(color.FgGray, color.OpItalic)
	styleMuted  = color.New(color.FgGray)
)

// Render writes the full chat card: status, messages or placeholder, typing line and prompt.
func (r Renderer) Render(w io.Writer, v View) error {
	var b strings.Builder

	fmt.Fprintf(&b, "== Live chat [%s] ==\n", v.Status)
	if v.Placeholder != "" {
		b.WriteString(r.paint(styleMuted, v.Placeholder))
		b.WriteByte('\n')
	}
	for _, line := range v.Lines {
		b.WriteString(r.Line(line))
		b.WriteByte('\n')
	}
	if v.TypingLine != "" {
		b.WriteString(r.paint(styleMuted, v.TypingLine))
		b.WriteByte('\n')
	}
	if v.InputDisabled {
		fmt.Fprintf(&b, "(%s)\n", v.InputPlaceholder)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Line formats a single message.
func (r Renderer) Line(line MessageLine) string {
	ts := line.Timestamp.Format("15:04")
	if line.IsSystem() {
		return r.paint(styleSystem, fmt.Sprintf("[%s] * %s", ts, line.Text))
	}
	style := styleOther
	if line.Own {
		style = styleOwn
	}
	return fmt.Sprintf("[%s] %s: %s", ts, r.paint(style, line.Username), line.Text)
}

func (r Renderer) paint(style color.Style, s string) string {
	if !r.Color {
		return s
	}
	return style.Sprint(s)
}
