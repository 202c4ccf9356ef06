package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shotscribe/internal/fileutil"
	"shotscribe/internal/media/ffprobe"
	"shotscribe/internal/textutil"
)

const (
	timestampLayout = "2006-01-02T15-04-05"
	dateLayout      = "2006-01-02"
	displayLayout   = "2006-01-02 15:04:05"
	footer          = "Generated automatically by AI; review before use."
)

//go:embed page.html.tmpl
var pageSource string

var page = template.Must(template.New("page").Parse(pageSource))

// Paths are the files written for one script.
type Paths struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// Breakdown is the content of a breakdown report.
type Breakdown struct {
	URL      string
	Metadata ffprobe.VideoMetadata
	Script   string
	Warnings []string
}

// Rewrite is the content of a rewrite report.
type Rewrite struct {
	OriginalTitle string
	Instruction   string
	Script        string
}

// Writer places reports under an output directory.
type Writer struct {
	root string
	now  func() time.Time
}

// NewWriter returns a writer rooted at outputDir.
func NewWriter(outputDir string) *Writer {
	return &Writer{root: outputDir, now: time.Now}
}

// WriteBreakdown stores a breakdown as Markdown and HTML.
func (w *Writer) WriteBreakdown(b Breakdown) (Paths, error) {
	now := w.now()
	title := b.Metadata.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled video"
	}
	base := w.basePath("scripts", now, textutil.SafeTitle(b.Metadata.Title, "video"))

	var md strings.Builder
	md.WriteString("# Video Breakdown Script\n\n")
	fmt.Fprintf(&md, "**Analyzed at**: %s\n\n", now.Format(displayLayout))
	md.WriteString("**Video**:\n")
	fmt.Fprintf(&md, "- Title: %s\n", title)
	fmt.Fprintf(&md, "- Duration: %ss\n", formatSeconds(b.Metadata.Duration))
	fmt.Fprintf(&md, "- Resolution: %s\n", b.Metadata.Resolution())
	fmt.Fprintf(&md, "- URL: %s\n", b.URL)
	if len(b.Warnings) > 0 {
		md.WriteString("\n**Warnings**:\n")
		for _, warning := range b.Warnings {
			fmt.Fprintf(&md, "- %s\n", warning)
		}
	}
	md.WriteString("\n---\n\n## Shot Script\n\n")
	md.WriteString(strings.TrimSpace(b.Script))
	fmt.Fprintf(&md, "\n\n---\n\n*%s*\n", footer)

	data := pageData{
		Title:    "Video Breakdown Script - " + title,
		Heading:  "Video Breakdown Script",
		Meta:     "Analyzed at " + now.Format(displayLayout),
		Accent:   "#667eea",
		Warnings: b.Warnings,
		Info: []infoRow{
			{Label: "Title", Value: title},
			{Label: "Duration", Value: formatSeconds(b.Metadata.Duration) + "s"},
			{Label: "Resolution", Value: b.Metadata.Resolution()},
			{Label: "URL", Value: b.URL, Link: safeURL(b.URL)},
		},
	}
	return w.write(base, md.String(), data, b.Script)
}

// WriteRewrite stores a rewritten script as Markdown and HTML.
func (w *Writer) WriteRewrite(r Rewrite) (Paths, error) {
	now := w.now()
	original := strings.TrimSpace(r.OriginalTitle)
	if original == "" {
		original = "unknown"
	}
	base := w.basePath("rewrites", now, "rewrite")

	var md strings.Builder
	md.WriteString("# Rewritten Script\n\n")
	fmt.Fprintf(&md, "**Rewritten at**: %s\n\n", now.Format(displayLayout))
	fmt.Fprintf(&md, "**Original script**: %s\n\n", original)
	fmt.Fprintf(&md, "**Instruction**: %s\n", r.Instruction)
	md.WriteString("\n---\n\n## Rewrite\n\n")
	md.WriteString(strings.TrimSpace(r.Script))
	fmt.Fprintf(&md, "\n\n---\n\n*%s*\n", footer)

	data := pageData{
		Title:       "Rewritten Script - " + original,
		Heading:     "Rewritten Script",
		Meta:        "Rewritten at " + now.Format(displayLayout),
		Accent:      "#f5576c",
		Info:        []infoRow{{Label: "Original script", Value: original}},
		Instruction: r.Instruction,
	}
	return w.write(base, md.String(), data, r.Script)
}

func (w *Writer) basePath(kind string, now time.Time, name string) string {
	utc := now.UTC()
	return filepath.Join(w.root, kind, utc.Format(dateLayout), utc.Format(timestampLayout)+"_"+name)
}

func (w *Writer) write(base, markdown string, data pageData, script string) (Paths, error) {
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return Paths{}, fmt.Errorf("report: create output directory: %w", err)
	}
	paths := Paths{Markdown: base + ".md", HTML: base + ".html"}
	if err := fileutil.WriteFileAtomic(paths.Markdown, []byte(markdown), 0o644); err != nil {
		return Paths{}, fmt.Errorf("report: write markdown: %w", err)
	}
	html, err := renderHTML(data, script)
	if err != nil {
		return Paths{}, err
	}
	if err := fileutil.WriteFileAtomic(paths.HTML, html, 0o644); err != nil {
		return Paths{}, fmt.Errorf("report: write html: %w", err)
	}
	return paths, nil
}

type infoRow struct {
	Label string
	Value string
	Link  template.URL
}

type pageData struct {
	Title       string
	Heading     string
	Meta        string
	Accent      template.CSS
	Info        []infoRow
	Instruction string
	Warnings    []string
	Table       Table
	HasTable    bool
	Raw         string
	Footer      string
}

// renderHTML fills the page with the first table of script.
func renderHTML(data pageData, script string) ([]byte, error) {
	data.Table, data.HasTable = ParseTable(script)
	data.Raw = strings.TrimSpace(script)
	data.Footer = footer
	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("report: render html: %w", err)
	}
	return buf.Bytes(), nil
}

// safeURL only links http(s) URLs.
func safeURL(raw string) template.URL {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return template.URL(strings.TrimSpace(raw))
	}
	return ""
}

func formatSeconds(seconds float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", seconds), "0"), ".")
}
