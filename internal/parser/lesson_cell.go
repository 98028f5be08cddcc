package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kotyarick/ttgt-schedule-api/internal/models"
)

// teacherNameRe matches "Фамилия И.О." (capitalized surname, possibly
// hyphenated, followed by two initials). It is the primary splitter for
// cells holding several stacked lesson fragments.
var teacherNameRe = regexp.MustCompile(`[А-ЯЁ][а-яё]+(?:-[А-ЯЁа-яё][а-яё]*)?\s+[А-ЯЁ]\.\s?[А-ЯЁ]\.`)

// subgroupMarkerRe matches the ad-hoc subgroup notations: "1 п/г",
// "2п/гр.", a bare "п/г".
var subgroupMarkerRe = regexp.MustCompile(`(\d)?\s*п/гр?\.?`)

// fragment is one lesson entry extracted from a bulletin cell before rooms
// are attached and the subgroup collapse happens.
type fragment struct {
	name     string
	teacher  string
	subgroup int
}

// parseLessonCell turns the "should be" or "will be" text of one bulletin
// row into a Lesson. An empty cell or the cancellation marker yields nil.
// Rooms come from the row's room cell: one per fragment when the counts
// match, broadcast when a single room is given.
func parseLessonCell(cell string, rooms []string) *models.Lesson {
	text := collapseSpace(strings.ReplaceAll(cell, "\n", " "))
	if text == "" || strings.EqualFold(text, "снят") {
		return nil
	}

	fragments := splitFragments(text)
	if len(fragments) == 0 {
		return nil
	}

	if len(fragments) == 1 {
		f := fragments[0]
		return models.NewCommonLesson(models.CommonLesson{
			Name:    f.name,
			Teacher: f.teacher,
			Room:    roomFor(rooms, 0, 1),
		})
	}

	lesson := models.SubgroupedLesson{Name: lessonName(fragments)}
	for i, f := range fragments {
		index := f.subgroup
		if index == 0 {
			index = i + 1
		}
		lesson.Subgroups = append(lesson.Subgroups, models.Subgroup{
			Teacher:       f.teacher,
			Room:          roomFor(rooms, i, len(fragments)),
			SubgroupIndex: index,
		})
	}
	return models.NewSubgroupedLesson(lesson)
}

// splitFragments tries the ordered cell matchers: the teacher-name pattern
// first, then the positional two-trailing-token split. The source has both
// conventions; the pattern is the general one and the positional split is
// kept only as a fallback for cells the pattern cannot segment.
func splitFragments(text string) []fragment {
	if frags := splitByTeacherName(text); len(frags) > 0 {
		return frags
	}
	return splitPositional(text)
}

func splitByTeacherName(text string) []fragment {
	locs := teacherNameRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	frags := make([]fragment, 0, len(locs))
	prev := 0
	for _, loc := range locs {
		f := fragment{teacher: collapseSpace(text[loc[0]:loc[1]])}
		f.name, f.subgroup = stripSubgroupMarker(text[prev:loc[0]])
		frags = append(frags, f)
		prev = loc[1]
	}
	return frags
}

// splitPositional treats the last two whitespace tokens as the teacher.
// Narrower than the pattern match; used only when it finds nothing.
func splitPositional(text string) []fragment {
	tokens := strings.Fields(text)
	if len(tokens) < 3 {
		name, subgroup := stripSubgroupMarker(text)
		return []fragment{{name: name, subgroup: subgroup}}
	}

	f := fragment{teacher: strings.Join(tokens[len(tokens)-2:], " ")}
	f.name, f.subgroup = stripSubgroupMarker(strings.Join(tokens[:len(tokens)-2], " "))
	return []fragment{f}
}

// stripSubgroupMarker removes the "N п/г" notation from a name run and
// returns the subgroup index it carried (0 when none or unnumbered).
func stripSubgroupMarker(run string) (string, int) {
	subgroup := 0
	cleaned := subgroupMarkerRe.ReplaceAllStringFunc(run, func(m string) string {
		if sub := subgroupMarkerRe.FindStringSubmatch(m); sub[1] != "" {
			if n, err := strconv.Atoi(sub[1]); err == nil {
				subgroup = n
			}
		}
		return " "
	})
	return collapseSpace(cleaned), subgroup
}

func roomFor(rooms []string, i, total int) string {
	switch {
	case len(rooms) == total && i < len(rooms):
		return rooms[i]
	case len(rooms) == 1:
		return rooms[0]
	default:
		return ""
	}
}

func lessonName(frags []fragment) string {
	for _, f := range frags {
		if f.name != "" {
			return f.name
		}
	}
	return ""
}
