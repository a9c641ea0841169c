package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Printer writes human readable progress lines, styled for the terminal behind
// its stream.
type Printer struct {
	stream io.Writer
	indent string

	infoStyle    lipgloss.Style
	warnStyle    lipgloss.Style
	successStyle lipgloss.Style
	errorStyle   lipgloss.Style
	headerStyle  lipgloss.Style
}

// NewPrinter creates a new Printer instance with the specified output stream.
// Colors are only emitted when the stream is a color capable terminal.
func NewPrinter(stream io.Writer) *Printer {
	r := lipgloss.NewRenderer(stream)

	return &Printer{
		stream:       stream,
		indent:       "  ",
		infoStyle:    r.NewStyle(),
		warnStyle:    r.NewStyle().Foreground(lipgloss.Color("33")),
		successStyle: r.NewStyle().Foreground(lipgloss.Color("32")),
		errorStyle:   r.NewStyle().Foreground(lipgloss.Color("31")),
		headerStyle:  r.NewStyle().Bold(true),
	}
}

func (p *Printer) Info(emoji string, format string, a ...any) (n int, err error) {
	return p.println(p.infoStyle, emoji, format, a...)
}

func (p *Printer) Success(emoji string, format string, a ...any) (n int, err error) {
	return p.println(p.successStyle, emoji, format, a...)
}

func (p *Printer) Warn(emoji string, format string, a ...any) (n int, err error) {
	return p.println(p.warnStyle, emoji, format, a...)
}

func (p *Printer) Error(emoji string, format string, a ...any) (n int, err error) {
	return p.println(p.errorStyle, emoji, format, a...)
}

// Table renders rows under headers with a normal border.
func (p *Printer) Table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.headerStyle
			}
			return p.infoStyle
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

// Summary prints a two column key/value table below a titled info line.
func (p *Printer) Summary(emoji, title string, rows [][]string) (n int, err error) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Rows(rows...)

	return p.Info(emoji, "%s:\n%s", title, t.Render())
}

func (p *Printer) println(style lipgloss.Style, emoji string, format string, a ...any) (int, error) {
	prefix := p.indent + withEmoji(emoji)
	return fmt.Fprintln(p.stream, style.Render(fmt.Sprintf(prefix+format, a...)))
}

func withEmoji(emoji string) string {
	if emoji == "" {
		return ""
	}
	return emoji + " "
}
