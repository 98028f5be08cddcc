package parser

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kotyarick/ttgt-schedule-api/internal/models"
)

// Document is the extracted content of a substitution bulletin: the plain
// text lines heading page 1 and every table row across every page, in
// document order.
type Document struct {
	HeaderLines []string
	Rows        [][]string
}

// DocumentExtractor pulls a Document out of a bulletin file.
type DocumentExtractor interface {
	Extract(path string) (*Document, error)
}

// Bulletin table columns.
const (
	colGroup = iota
	colPeriod
	colShouldBe
	colWillBe
	colRoom
	bulletinColumns
)

var weekdayNames = []string{
	"понедельник",
	"вторник",
	"среда",
	"четверг",
	"пятница",
	"суббота",
	"воскресенье",
}

var monthNames = []string{
	"января",
	"февраля",
	"марта",
	"апреля",
	"мая",
	"июня",
	"июля",
	"августа",
	"сентября",
	"октября",
	"ноября",
	"декабря",
}

// BulletinParser converts the daily substitution PDF into per-group
// override lists.
type BulletinParser struct {
	extractor DocumentExtractor
	logger    *zap.Logger
}

// NewBulletinParser constructs a bulletin parser over the given extractor.
func NewBulletinParser(extractor DocumentExtractor, logger *zap.Logger) *BulletinParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulletinParser{extractor: extractor, logger: logger}
}

// ParseBulletin parses the bulletin at path. An undecodable date header
// degrades to an empty map rather than an error, so a transient bad
// bulletin means "no overrides" instead of a crash. A malformed row is
// logged and skipped without aborting the remaining rows.
func (p *BulletinParser) ParseBulletin(path string) (map[string]models.BulletinDay, error) {
	doc, err := p.extractor.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("extract bulletin: %w", err)
	}

	meta, err := decodeHeader(doc.HeaderLines)
	if err != nil {
		p.logger.Warn("bulletin header undecodable", zap.Error(err))
		return map[string]models.BulletinDay{}, nil
	}

	out := make(map[string]models.BulletinDay)
	currentGroup := ""
	lastPeriod := 0
	havePeriod := false

	rows := doc.Rows
	if len(rows) > 0 {
		rows = rows[1:] // column captions
	}

	for n, row := range rows {
		if err := func() error {
			if len(row) < bulletinColumns {
				return fmt.Errorf("row has %d cell(s)", len(row))
			}

			if g := collapseSpace(row[colGroup]); g != "" {
				// Later pages repeat the caption row; it must not become a
				// phantom group.
				if strings.HasPrefix(strings.ToLower(g), "групп") {
					return fmt.Errorf("repeated caption row")
				}
				currentGroup = g
			}
			if currentGroup == "" {
				return fmt.Errorf("row precedes any group")
			}

			if _, ok := out[currentGroup]; !ok {
				out[currentGroup] = models.BulletinDay{
					Overrides: []models.Override{},
					WeekNum:   meta.weekNum,
					WeekDay:   meta.weekDay,
					Day:       meta.day,
					Month:     meta.month,
					Year:      meta.year,
				}
			}

			// Substitution rows continuing a multi-line cell often omit
			// the period number; reuse the last seen one.
			if raw := collapseSpace(row[colPeriod]); raw != "" {
				period, err := strconv.Atoi(raw)
				if err != nil {
					return fmt.Errorf("period %q: %w", raw, err)
				}
				lastPeriod = period
				havePeriod = true
			} else if !havePeriod {
				return fmt.Errorf("row has no period and none carried over")
			}

			rooms := splitRoomCell(row[colRoom])
			day := out[currentGroup]
			day.Overrides = append(day.Overrides, models.Override{
				Index:    lastPeriod - 1,
				ShouldBe: parseLessonCell(row[colShouldBe], rooms),
				WillBe:   parseLessonCell(row[colWillBe], rooms),
			})
			out[currentGroup] = day
			return nil
		}(); err != nil {
			// Reset the carry-over so the failure is not attributed to
			// the next row.
			havePeriod = false
			p.logger.Warn("bulletin row skipped", zap.Int("row", n+1), zap.Error(err))
		}
	}

	return out, nil
}

type headerMeta struct {
	weekNum int
	weekDay int
	day     int
	month   int
	year    int
}

// decodeHeader reads the publish date out of the two text lines heading
// page 1: a week-number line and a "<day> <month> <year> <weekday>" line.
func decodeHeader(lines []string) (headerMeta, error) {
	if len(lines) < 2 {
		return headerMeta{}, fmt.Errorf("header has %d line(s)", len(lines))
	}

	meta := headerMeta{weekNum: -1, weekDay: -1, day: -1, month: -1, year: -1}

	for _, tok := range strings.Fields(lines[0]) {
		if n, err := strconv.Atoi(tok); err == nil {
			meta.weekNum = n - 1
			break
		}
	}
	if meta.weekNum < 0 {
		return headerMeta{}, fmt.Errorf("no week number in %q", lines[0])
	}

	for _, tok := range strings.Fields(lines[1]) {
		word := strings.ToLower(strings.ReplaceAll(tok, "_", ""))
		switch {
		case meta.day < 0 && isNumeric(word) && len(word) <= 2:
			meta.day, _ = strconv.Atoi(word)
		case meta.year < 0 && isNumeric(word) && len(word) == 4:
			meta.year, _ = strconv.Atoi(word)
		case meta.month < 0 && indexOf(monthNames, word) >= 0:
			meta.month = indexOf(monthNames, word)
		case meta.weekDay < 0 && indexOf(weekdayNames, word) >= 0:
			meta.weekDay = indexOf(weekdayNames, word)
		}
	}
	if meta.day < 0 || meta.month < 0 || meta.year < 0 || meta.weekDay < 0 {
		return headerMeta{}, fmt.Errorf("date line %q undecodable", lines[1])
	}

	return meta, nil
}

func splitRoomCell(cell string) []string {
	var rooms []string
	for _, line := range strings.Split(cell, "\n") {
		if r := collapseSpace(line); r != "" {
			rooms = append(rooms, r)
		}
	}
	return rooms
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func indexOf(list []string, s string) int {
	for i, item := range list {
		if item == s {
			return i
		}
	}
	return -1
}
