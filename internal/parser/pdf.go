package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// columnSlack absorbs small horizontal jitter between a column's caption
// and the cell text under it.
const columnSlack = 4.0

// PDFExtractor reconstructs the bulletin's table grid from positioned text.
// The bulletin carries no extractable ruling lines, so columns are located
// by the caption row (the row containing "Группа") and every later word is
// bucketed into the nearest column start.
type PDFExtractor struct {
	logger *zap.Logger
}

// NewPDFExtractor constructs a PDF document extractor.
func NewPDFExtractor(logger *zap.Logger) *PDFExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFExtractor{logger: logger}
}

// Extract reads every page of the bulletin at path. Text rows above the
// caption row of page 1 become the header lines; everything below, across
// all pages, becomes table rows. A text row whose group and period columns
// are both empty continues the previous table row's cells.
func (e *PDFExtractor) Extract(path string) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close() //nolint:errcheck

	doc := &Document{}
	var columns []float64

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			e.logger.Warn("pdf page unreadable", zap.Int("page", pageNum), zap.Error(err))
			continue
		}

		// Top of page first.
		sort.Slice(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })

		for _, row := range rows {
			words := append([]pdf.Text(nil), row.Content...)
			sort.Slice(words, func(i, j int) bool { return words[i].X < words[j].X })

			if columns == nil {
				if starts, ok := captionColumns(words); ok {
					columns = starts
					continue
				}
				doc.HeaderLines = append(doc.HeaderLines, joinWords(words))
				continue
			}

			cells := bucketWords(words, columns)
			if isContinuation(cells) && len(doc.Rows) > 0 {
				mergeRow(doc.Rows[len(doc.Rows)-1], cells)
				continue
			}
			doc.Rows = append(doc.Rows, cells)
		}
	}

	if columns == nil {
		return nil, fmt.Errorf("caption row not found in %s", path)
	}

	// The caption row itself was consumed while locating the columns, so
	// prepend a synthetic one: ParseBulletin skips the first row.
	doc.Rows = append([][]string{make([]string, bulletinColumns)}, doc.Rows...)
	return doc, nil
}

// captionColumns recognises the table caption row and records each
// caption's X start as a column boundary.
func captionColumns(words []pdf.Text) ([]float64, bool) {
	hasGroup := false
	for _, w := range words {
		if strings.HasPrefix(strings.ToLower(w.S), "групп") {
			hasGroup = true
			break
		}
	}
	if !hasGroup || len(words) < 2 {
		return nil, false
	}

	starts := make([]float64, 0, bulletinColumns)
	var lastEnd float64
	for _, w := range words {
		// Captions can wrap into several words; a new column starts only
		// after a clear horizontal gap.
		if len(starts) > 0 && w.X < lastEnd+columnSlack {
			lastEnd = w.X + w.W
			continue
		}
		starts = append(starts, w.X)
		lastEnd = w.X + w.W
		if len(starts) == bulletinColumns {
			break
		}
	}
	if len(starts) < bulletinColumns {
		return nil, false
	}
	return starts, true
}

func bucketWords(words []pdf.Text, columns []float64) []string {
	cells := make([]string, len(columns))
	for _, w := range words {
		col := 0
		for i, start := range columns {
			if w.X+columnSlack >= start {
				col = i
			}
		}
		if cells[col] != "" {
			cells[col] += " "
		}
		cells[col] += w.S
	}
	return cells
}

func isContinuation(cells []string) bool {
	return strings.TrimSpace(cells[colGroup]) == "" && strings.TrimSpace(cells[colPeriod]) == ""
}

// mergeRow stacks a continuation line under the previous row's cells; the
// newline keeps per-line room distribution intact.
func mergeRow(prev, cells []string) {
	for i := range prev {
		if i >= len(cells) || cells[i] == "" {
			continue
		}
		if prev[i] != "" {
			prev[i] += "\n"
		}
		prev[i] += cells[i]
	}
}

func joinWords(words []pdf.Text) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(w.S)
	}
	return b.String()
}
