// Package output renders the interactive session for the terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode %q: must be auto, always, or never", s)
	}
}

// ResolveColors decides whether w gets ANSI colors.
func ResolveColors(mode ColorMode, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// Printer writes everything the user sees. Diagnostics go to the same stream
// as answers so they stay in order.
type Printer struct {
	out       io.Writer
	useColors bool
	width     int
}

func NewPrinter(out io.Writer, mode ColorMode) *Printer {
	return &Printer{out: out, useColors: ResolveColors(mode, out), width: 80}
}

func (p *Printer) Writer() io.Writer { return p.out }

func (p *Printer) paint(attrs []color.Attribute, s string) string {
	if !p.useColors {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

func (p *Printer) Banner() {
	p.Panel("🚀 Perplex CLI ✨", "🤖 Search the web and get grounded AI answers.\nEmpty follow-up starts a new topic, \"exit\" quits.", color.FgCyan)
}

// Prompt prints an input prompt without a trailing newline.
func (p *Printer) Prompt(label string) {
	fmt.Fprint(p.out, p.paint([]color.Attribute{color.FgYellow, color.Bold}, label))
}

// Status prints a progress line such as "🔍 Searching the web...".
func (p *Printer) Status(format string, args ...any) {
	fmt.Fprintln(p.out, p.paint([]color.Attribute{color.FgBlue, color.Bold}, fmt.Sprintf(format, args...)))
}

// Notice prints a non-fatal diagnostic.
func (p *Printer) Notice(format string, args ...any) {
	fmt.Fprintln(p.out, p.paint([]color.Attribute{color.FgYellow, color.Faint}, fmt.Sprintf(format, args...)))
}

func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.out, p.paint([]color.Attribute{color.FgRed}, fmt.Sprintf(format, args...)))
}

func (p *Printer) Print(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Answer prints the model response in a framed panel.
func (p *Printer) Answer(text string) {
	p.Panel("💡 AI Response", text, color.FgGreen)
}

// Separator prints the divider between turns.
func (p *Printer) Separator() {
	unit := "-- ✨ --"
	n := p.width / utf8.RuneCountInString(unit)
	if n < 1 {
		n = 1
	}
	fmt.Fprintln(p.out, strings.Repeat(unit, n))
}

// Panel frames body with a titled box.
func (p *Printer) Panel(title, body string, border color.Attribute) {
	inner := p.width - 4
	edge := func(s string) string { return p.paint([]color.Attribute{border}, s) }

	top := "╭─ " + title + " "
	if pad := p.width - 1 - displayWidth(top); pad > 0 {
		top += strings.Repeat("─", pad)
	}
	fmt.Fprintln(p.out, edge(top+"╮"))
	for _, line := range wrap(body, inner) {
		fill := inner - displayWidth(line)
		if fill < 0 {
			fill = 0
		}
		fmt.Fprintln(p.out, edge("│")+" "+line+strings.Repeat(" ", fill)+" "+edge("│"))
	}
	fmt.Fprintln(p.out, edge("╰"+strings.Repeat("─", p.width-2)+"╯"))
}

// wrap breaks text on word boundaries so no line exceeds width runes.
func wrap(text string, width int) []string {
	var lines []string
	for _, para := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		indent := para[:len(para)-len(strings.TrimLeft(para, " \t"))]
		line := indent + words[0]
		for _, w := range words[1:] {
			if displayWidth(line)+1+displayWidth(w) > width {
				lines = append(lines, line)
				line = indent + w
				continue
			}
			line += " " + w
		}
		lines = append(lines, line)
	}
	return lines
}

func displayWidth(s string) int {
	return utf8.RuneCountInString(s)
}
