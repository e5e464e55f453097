package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"tplcheck/internal/diag"
	"tplcheck/internal/source"
)

type palette struct {
	err, warn, info, note, code, gutter, marker *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgBlue, color.Bold),
		code:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		marker: color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.code, p.gutter, p.marker} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty renders diagnostics in bag order:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// followed by the source line with a ^~~~ marker under the span and, when
// ShowNotes is set, each note in the same layout.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		writeHeader(w, p, fs, d, opts)
		writeExcerpt(w, p, fs, d.Primary, opts)
		if !opts.ShowNotes {
			continue
		}
		for _, note := range d.Notes {
			fmt.Fprintf(w, "%s %s: %s\n", p.note.Sprint("note:"), location(fs, note.Span, opts.PathMode), note.Msg)
			writeExcerpt(w, p, fs, note.Span, opts)
		}
	}
}

func writeHeader(w io.Writer, p palette, fs *source.FileSet, d diag.Diagnostic, opts PrettyOpts) {
	fmt.Fprintf(w, "%s: %s %s: %s\n",
		location(fs, d.Primary, opts.PathMode),
		p.severity(d.Severity).Sprint(d.Severity.String()),
		p.code.Sprint(d.Code.ID()),
		d.Message,
	)
}

func location(fs *source.FileSet, span source.Span, mode PathMode) string {
	if fs == nil {
		return fmt.Sprintf("<file %d>:%d", span.File, span.Start)
	}
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", formatPath(fs, span.File, mode), start.Line, start.Col)
}

func writeExcerpt(w io.Writer, p palette, fs *source.FileSet, span source.Span, opts PrettyOpts) {
	ex, err := buildExcerpt(fs, span, int(opts.Context))
	if err != nil || len(ex.lines) == 0 {
		return
	}
	numWidth := len(fmt.Sprint(ex.lines[len(ex.lines)-1].num))
	blank := strings.Repeat(" ", numWidth)
	for _, line := range ex.lines {
		text := expandTabs(line.text)
		if opts.Width > 0 {
			text = runewidth.Truncate(text, int(opts.Width), "...")
		}
		fmt.Fprintf(w, "%s %s %s\n", p.gutter.Sprintf("%*d", numWidth, line.num), p.gutter.Sprint("|"), text)
		if line.num != ex.markLine {
			continue
		}
		raw := line.text
		start := min(ex.markStart, len(raw))
		end := min(ex.markEnd, len(raw))
		pad := runewidth.StringWidth(expandTabs(raw[:start]))
		width := max(runewidth.StringWidth(expandTabs(raw[start:end])), 1)
		if opts.Width > 0 && pad >= int(opts.Width) {
			continue
		}
		marker := "^" + strings.Repeat("~", width-1)
		fmt.Fprintf(w, "%s %s %s%s\n", blank, p.gutter.Sprint("|"), strings.Repeat(" ", pad), p.marker.Sprint(marker))
	}
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
