package report

import (
	"regexp"
	"strings"
)

// Table is a parsed Markdown table.
type Table struct {
	Headers []string
	Rows    [][]Cell
}

// Cell is one table cell split into display lines.
type Cell struct {
	Lines []string
}

var (
	separatorRow = regexp.MustCompile(`^\|?\s*:?-{2,}:?\s*(\|\s*:?-{2,}:?\s*)*\|?$`)
	lineBreak    = regexp.MustCompile(`(?i)<br\s*/?>`)
)

// ParseTable extracts the first Markdown table in text. It reports false when
// no header row followed by a separator row exists.
func ParseTable(text string) (Table, bool) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := 0; i+1 < len(lines); i++ {
		header := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(header, "|") || !separatorRow.MatchString(strings.TrimSpace(lines[i+1])) {
			continue
		}
		table := Table{Headers: splitRow(header)}
		for _, line := range lines[i+2:] {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "|") {
				break
			}
			cells := splitRow(line)
			row := make([]Cell, len(table.Headers))
			for j := range row {
				if j < len(cells) {
					row[j] = Cell{Lines: lineBreak.Split(cells[j], -1)}
				}
			}
			table.Rows = append(table.Rows, row)
		}
		return table, true
	}
	return Table{}, false
}

func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}
