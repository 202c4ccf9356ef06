package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"shotscribe/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

// statusStyles is indexed by statusKind.
var statusStyles = [...]struct {
	label string
	color text.Colors
}{
	statusInfo:  {"INFO", text.Colors{text.FgBlue}},
	statusOK:    {"OK", text.Colors{text.FgGreen}},
	statusWarn:  {"WARN", text.Colors{text.FgYellow}},
	statusError: {"ERROR", text.Colors{text.FgRed}},
}

const (
	labelColumn  = 20
	statusIndent = "  "
)

// renderStatusLine formats "  Label:    [KIND] message".
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusStyles[kind]
	var b strings.Builder
	fmt.Fprintf(&b, "%s%-*s [%s]", statusIndent, labelColumn, label+":", style.label)
	if message != "" {
		b.WriteString(" " + message)
	}
	if !colorize {
		return b.String()
	}
	return style.color.Sprint(b.String())
}

func renderSectionHeader(title string, colorize bool) []string {
	heading := "== " + strings.TrimSpace(title) + " =="
	lines := []string{heading, strings.Repeat("-", len(heading))}
	if colorize {
		for i := range lines {
			lines[i] = statusStyles[statusInfo].color.Sprint(lines[i])
		}
	}
	return lines
}

// checkLines renders preflight results under a summary line. A failing
// optional check is a warning, not an error.
func checkLines(results []preflight.Result, colorize bool) []string {
	var failed []string
	warned := 0
	body := make([]string, 0, len(results))
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			if r.Optional {
				kind = statusWarn
				warned++
			} else {
				kind = statusError
				failed = append(failed, r.Name)
			}
		}
		body = append(body, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}

	var summary string
	switch {
	case len(failed) > 0:
		summary = renderStatusLine("Summary", statusError, fmt.Sprintf("%d of %d checks failed", len(failed), len(results)), colorize)
	case warned > 0:
		summary = renderStatusLine("Summary", statusWarn, fmt.Sprintf("%d optional checks failed", warned), colorize)
	default:
		summary = renderStatusLine("Summary", statusOK, fmt.Sprintf("%d checks passed", len(results)), colorize)
	}
	lines := append([]string{summary}, body...)
	if len(failed) > 0 {
		lines = append(lines, statusIndent+"Failed checks: "+strings.Join(failed, ", "))
	}
	return lines
}

// shouldColorize reports whether w is an interactive terminal.
func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
