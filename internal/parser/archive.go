package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/kotyarick/ttgt-schedule-api/internal/models"
)

// titleMarker is the uniquely styled text run holding the entity name on
// every export page.
const titleMarker = `font[face="Times New Roman"][size="6"][color="#ff00ff"]`

// headerRows is the number of leading rows of every week table carrying
// period numbers and time ranges instead of lessons.
const headerRows = 2

// Snapshot is the archive parser's output: the entity catalog, every
// entity's structured timetable, and the raw source pages kept for
// debugging/rendering. It is immutable once built.
type Snapshot struct {
	Catalog    models.Catalog              `json:"catalog"`
	Timetables map[string]models.Timetable `json:"timetables"`
	Pages      map[string]string           `json:"pages"`
}

// ArchiveParser converts the full-timetable export (a zip of one
// Windows-1251 HTML page per group/teacher) into a Snapshot.
type ArchiveParser struct {
	logger *zap.Logger
}

// NewArchiveParser constructs an archive parser.
func NewArchiveParser(logger *zap.Logger) *ArchiveParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveParser{logger: logger}
}

// ParseArchive reads every page of the export at path. One malformed page
// never aborts the whole archive: pages without the title marker, with a
// placeholder or duplicate name, or with an unrecognized name shape are
// logged and skipped.
func (p *ArchiveParser) ParseArchive(path string) (*Snapshot, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close() //nolint:errcheck

	snap := &Snapshot{
		Timetables: make(map[string]models.Timetable),
		Pages:      make(map[string]string),
	}
	seenGroups := make(map[string]struct{})
	seenTeachers := make(map[string]struct{})

	for _, entry := range archive.File {
		if !strings.HasSuffix(entry.Name, ".html") {
			continue
		}

		page, err := p.readPage(entry)
		if err != nil {
			p.logger.Warn("archive page unreadable", zap.String("page", entry.Name), zap.Error(err))
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
		if err != nil {
			p.logger.Warn("archive page not parseable", zap.String("page", entry.Name), zap.Error(err))
			continue
		}

		name, ok := pageTitle(doc)
		if !ok {
			p.logger.Warn("title marker missing", zap.String("page", entry.Name))
			continue
		}
		if name == "." || name == "ВАКАНСИЯ" || name == "" {
			continue
		}

		var kind entityKind
		switch {
		case strings.Contains(name, "."):
			kind = kindTeacher
		case strings.Contains(name, "-"):
			kind = kindGroup
		default:
			p.logger.Warn("unrecognized entity name", zap.String("page", entry.Name), zap.String("name", name))
			continue
		}

		seen := seenGroups
		if kind == kindTeacher {
			seen = seenTeachers
		}
		if _, dup := seen[name]; dup {
			// The export occasionally emits the same entity twice;
			// first occurrence wins.
			p.logger.Warn("duplicate entity page dropped", zap.String("name", name))
			continue
		}
		seen[name] = struct{}{}

		if kind == kindTeacher {
			snap.Catalog.Teachers = append(snap.Catalog.Teachers, name)
		} else {
			snap.Catalog.Groups = append(snap.Catalog.Groups, name)
		}

		snap.Timetables[name] = p.parsePage(doc, name, kind)
		snap.Pages[name] = page
	}

	sort.Strings(snap.Catalog.Groups)
	sort.Strings(snap.Catalog.Teachers)

	p.logger.Info("archive parsed",
		zap.Int("groups", len(snap.Catalog.Groups)),
		zap.Int("teachers", len(snap.Catalog.Teachers)),
	)
	return snap, nil
}

type entityKind int

const (
	kindGroup entityKind = iota
	kindTeacher
)

func (p *ArchiveParser) readPage(entry *zip.File) (string, error) {
	r, err := entry.Open()
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer r.Close() //nolint:errcheck

	decoded, err := io.ReadAll(transform.NewReader(r, charmap.Windows1251.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("decode windows-1251: %w", err)
	}
	return string(decoded), nil
}

func pageTitle(doc *goquery.Document) (string, bool) {
	marker := doc.Find(titleMarker).First()
	if marker.Length() == 0 {
		return "", false
	}
	fragments := textFragments(marker)
	if len(fragments) == 0 {
		return "", false
	}
	return fragments[0], true
}

// parsePage walks every week table of the page. Tables stack vertically,
// rows after the two header rows are weekdays, cells after the weekday
// label are period slots.
func (p *ArchiveParser) parsePage(doc *goquery.Document, name string, kind entityKind) models.Timetable {
	var timetable models.Timetable

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var week models.Week

		table.Find("tr").Each(func(rowIdx int, row *goquery.Selection) {
			if rowIdx < headerRows {
				return
			}

			cells := row.Find("td")
			if cells.Length() < 2 {
				p.logger.Warn("week table row too short", zap.String("name", name), zap.Int("row", rowIdx))
				return
			}

			var day models.Day
			cells.Each(func(cellIdx int, cell *goquery.Selection) {
				if cellIdx == 0 {
					return // weekday label
				}
				lesson, err := p.parseCell(cell, name, kind)
				if err != nil {
					p.logger.Warn("slot cell unparseable",
						zap.String("name", name), zap.Int("row", rowIdx), zap.Int("cell", cellIdx), zap.Error(err))
					lesson = nil
				}
				day.Lessons = append(day.Lessons, lesson)
			})
			week.Days = append(week.Days, day)
		})

		if len(week.Days) > 0 {
			timetable.Weeks = append(timetable.Weeks, week)
		}
	})

	return timetable
}

func (p *ArchiveParser) parseCell(cell *goquery.Selection, name string, kind entityKind) (*models.Lesson, error) {
	lines := textFragments(cell)
	if len(lines) == 0 {
		return nil, nil
	}
	switch lines[0] {
	case "", "-", "_":
		return nil, nil
	}

	if kind == kindTeacher {
		return parseTeacherCell(lines, name)
	}
	return parseGroupCell(lines, name)
}

// parseTeacherCell handles a slot on a teacher page: the group attending,
// the lesson name, and the room. Some pages merge the room into the lesson
// name line instead of emitting a third fragment.
func parseTeacherCell(lines []string, teacher string) (*models.Lesson, error) {
	if len(lines) < 2 {
		return nil, fmt.Errorf("teacher cell has %d fragment(s)", len(lines))
	}

	group := lines[0]
	lessonName := lines[1]
	room := ""
	if len(lines) >= 3 {
		room = lines[2]
	} else {
		lessonName, room = splitTrailingRoom(lessonName)
	}

	return models.NewCommonLesson(models.CommonLesson{
		Name:    lessonName,
		Teacher: teacher,
		Group:   group,
		Room:    room,
	}), nil
}

// parseGroupCell handles a slot on a group page: two lines for a common
// lesson, three when the lesson splits into subgroups (one line per
// subgroup session).
func parseGroupCell(lines []string, group string) (*models.Lesson, error) {
	if len(lines) < 2 {
		return nil, fmt.Errorf("group cell has %d fragment(s)", len(lines))
	}

	if len(lines) == 2 {
		teacher, room, err := splitTeacherRoom(lines[1])
		if err != nil {
			return nil, err
		}
		return models.NewCommonLesson(models.CommonLesson{
			Name:    lines[0],
			Teacher: teacher,
			Group:   group,
			Room:    room,
		}), nil
	}

	lesson := models.SubgroupedLesson{Name: lines[0]}
	for i, line := range lines[1:3] {
		sub, err := parseSubgroupLine(line, i+1)
		if err != nil {
			return nil, err
		}
		lesson.Subgroups = append(lesson.Subgroups, sub)
	}
	return models.NewSubgroupedLesson(lesson), nil
}

// splitTeacherRoom splits "Фамилия И.О. 204" into its teacher and room
// parts. The surname plus initials always occupy the first two tokens.
func splitTeacherRoom(line string) (teacher, room string, err error) {
	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		return "", "", fmt.Errorf("teacher line %q too short", line)
	}
	teacher = tokens[0] + " " + tokens[1]
	if len(tokens) > 2 {
		room = strings.Join(tokens[2:], " ")
	}
	return teacher, room, nil
}

// parseSubgroupLine decodes "<index> <marker> Фамилия И.О. <room>"; the
// positional fallback keeps subgroup numbering stable when the leading
// index is garbled.
func parseSubgroupLine(line string, position int) (models.Subgroup, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 5 {
		return models.Subgroup{}, fmt.Errorf("subgroup line %q too short", line)
	}

	index := position
	if n, err := strconv.Atoi(strings.TrimFunc(tokens[0], func(r rune) bool {
		return r < '0' || r > '9'
	})); err == nil && n > 0 {
		index = n
	}

	return models.Subgroup{
		Teacher:       tokens[2] + " " + tokens[3],
		Room:          strings.Join(tokens[4:], " "),
		SubgroupIndex: index,
	}, nil
}

// splitTrailingRoom pulls a trailing room token (a digit-led run of digits,
// hyphens and letters) off a lesson name line.
func splitTrailingRoom(line string) (name, room string) {
	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		return line, ""
	}
	last := tokens[len(tokens)-1]
	if !isRoomToken(last) {
		return line, ""
	}
	return strings.Join(tokens[:len(tokens)-1], " "), last
}

func isRoomToken(tok string) bool {
	if tok == "" || tok[0] < '0' || tok[0] > '9' {
		return false
	}
	for _, r := range tok {
		switch {
		case r >= '0' && r <= '9', r == '-':
		case r >= 'а' && r <= 'я', r >= 'a' && r <= 'z':
		default:
			return false
		}
	}
	return true
}

// textFragments walks the selection's node tree collecting every non-empty
// text node, whitespace collapsed. This mirrors how the export pages lay
// out cell lines (text runs separated by markup, not newlines).
func textFragments(s *goquery.Selection) []string {
	var out []string
	for _, node := range s.Nodes {
		collectText(node, &out)
	}
	return out
}

func collectText(n *html.Node, out *[]string) {
	if n.Type == html.TextNode {
		if t := collapseSpace(n.Data); t != "" {
			*out = append(*out, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, out)
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
