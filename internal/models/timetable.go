package models

// Day is one weekday row of a week table; Lessons are ordered by period,
// nil entries mark slots with no lesson scheduled.
type Day struct {
	Lessons []*Lesson `json:"lessons"`
}

// Week is one week table of an entity page.
type Week struct {
	Days []Day `json:"days"`
}

// Timetable is the full base schedule of one group or teacher. The source
// export paginates as one or more week tables per entity page.
type Timetable struct {
	Weeks []Week `json:"weeks"`
}

// Catalog lists the entities the export contains, sorted for deterministic
// listing.
type Catalog struct {
	Groups   []string `json:"groups"`
	Teachers []string `json:"teachers"`
}
