package models

// CommonLesson is one lesson slot taught to the whole group by one teacher
// in one room. Group is set when the lesson was extracted from a teacher
// page or projected onto a teacher feed; group pages leave it implied.
type CommonLesson struct {
	Name    string `json:"name"`
	Teacher string `json:"teacher"`
	Group   string `json:"group,omitempty"`
	Room    string `json:"room"`
}

// Subgroup is one parallel session of a subgroup-split lesson.
type Subgroup struct {
	Teacher       string `json:"teacher"`
	Room          string `json:"room"`
	SubgroupIndex int    `json:"subgroup_index,omitempty"`
}

// SubgroupedLesson is one lesson slot split into parallel sessions for
// sub-portions of a group.
type SubgroupedLesson struct {
	Name      string     `json:"name"`
	Subgroups []Subgroup `json:"subgroups"`
}

// Lesson is the tagged union shared by both parsers: exactly one of the two
// fields is non-nil. An empty slot is represented by a nil *Lesson, not by a
// Lesson variant.
type Lesson struct {
	Common     *CommonLesson     `json:"commonLesson,omitempty"`
	Subgrouped *SubgroupedLesson `json:"subgroupedLesson,omitempty"`
}

// NewCommonLesson wraps a CommonLesson into the union.
func NewCommonLesson(l CommonLesson) *Lesson {
	return &Lesson{Common: &l}
}

// NewSubgroupedLesson wraps a SubgroupedLesson into the union.
func NewSubgroupedLesson(l SubgroupedLesson) *Lesson {
	return &Lesson{Subgrouped: &l}
}
