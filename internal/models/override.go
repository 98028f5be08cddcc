package models

// Override is a single lesson-slot's planned-vs-actual pair for one calendar
// day, as published in the substitution bulletin. Either side may be nil.
type Override struct {
	Index    int     `json:"index"`
	ShouldBe *Lesson `json:"shouldBe"`
	WillBe   *Lesson `json:"willBe"`
}

// BulletinDay holds one group's overrides plus the bulletin-wide publish
// date, valid for exactly one school day.
type BulletinDay struct {
	Overrides []Override `json:"overrides"`
	WeekNum   int        `json:"weekNum"`
	WeekDay   int        `json:"weekDay"`
	Day       int        `json:"day"`
	Month     int        `json:"month"`
	Year      int        `json:"year"`
}

// TeacherLesson is a lesson projected onto one teacher, with the group the
// projection came from attached.
type TeacherLesson struct {
	Common *CommonLesson `json:"commonLesson"`
	Group  string        `json:"group"`
}

// TeacherOverride mirrors Override for the teacher-centric feed.
type TeacherOverride struct {
	Index    int            `json:"index"`
	ShouldBe *TeacherLesson `json:"shouldBe"`
	WillBe   *TeacherLesson `json:"willBe"`
}

// TeacherBulletinDay aggregates one teacher's overrides across all groups.
type TeacherBulletinDay struct {
	Overrides []TeacherOverride `json:"overrides"`
	WeekNum   int               `json:"weekNum"`
	WeekDay   int               `json:"weekDay"`
	Day       int               `json:"day"`
	Month     int               `json:"month"`
	Year      int               `json:"year"`
}
