package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	doc *Document
	err error
}

func (f *fakeExtractor) Extract(path string) (*Document, error) {
	return f.doc, f.err
}

func bulletinDoc(rows [][]string) *Document {
	return &Document{
		HeaderLines: []string{
			"Замены на 5 неделю",
			"25 марта 2024 понедельник",
		},
		Rows: append([][]string{{"группа", "пара", "должно быть", "будет", "каб."}}, rows...),
	}
}

func TestParseBulletinExtractorError(t *testing.T) {
	parser := NewBulletinParser(&fakeExtractor{err: errors.New("boom")}, nil)
	_, err := parser.ParseBulletin("zamena.pdf")
	require.Error(t, err)
}

func TestParseBulletinUndecodableHeaderYieldsEmptyDay(t *testing.T) {
	doc := &Document{HeaderLines: []string{"мусор"}, Rows: [][]string{}}
	parser := NewBulletinParser(&fakeExtractor{doc: doc}, nil)

	out, err := parser.ParseBulletin("zamena.pdf")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestParseBulletinMetadata(t *testing.T) {
	doc := bulletinDoc([][]string{
		{"ТО-21-1", "3", "Физика Иванов А.А.", "Математика Петров В.В.", "204"},
	})
	parser := NewBulletinParser(&fakeExtractor{doc: doc}, nil)

	out, err := parser.ParseBulletin("zamena.pdf")
	require.NoError(t, err)
	day, ok := out["ТО-21-1"]
	require.True(t, ok)

	assert.Equal(t, 4, day.WeekNum)
	assert.Equal(t, 0, day.WeekDay)
	assert.Equal(t, 25, day.Day)
	assert.Equal(t, 2, day.Month)
	assert.Equal(t, 2024, day.Year)

	require.Len(t, day.Overrides, 1)
	ov := day.Overrides[0]
	assert.Equal(t, 2, ov.Index)
	require.NotNil(t, ov.ShouldBe)
	require.NotNil(t, ov.ShouldBe.Common)
	assert.Equal(t, "Физика", ov.ShouldBe.Common.Name)
	assert.Equal(t, "Иванов А.А.", ov.ShouldBe.Common.Teacher)
	assert.Equal(t, "204", ov.ShouldBe.Common.Room)
	require.NotNil(t, ov.WillBe)
	require.NotNil(t, ov.WillBe.Common)
	assert.Equal(t, "Петров В.В.", ov.WillBe.Common.Teacher)
}

func TestParseBulletinCancelledSide(t *testing.T) {
	doc := bulletinDoc([][]string{
		{"СТ-22-2", "4", "Химия Иванов А.А.", "снят", "102"},
	})
	parser := NewBulletinParser(&fakeExtractor{doc: doc}, nil)

	out, err := parser.ParseBulletin("zamena.pdf")
	require.NoError(t, err)
	require.Len(t, out["СТ-22-2"].Overrides, 1)
	ov := out["СТ-22-2"].Overrides[0]
	assert.Equal(t, 3, ov.Index)
	require.NotNil(t, ov.ShouldBe)
	assert.Nil(t, ov.WillBe)
}

func TestParseBulletinBothSidesEmptyStillRecorded(t *testing.T) {
	doc := bulletinDoc([][]string{
		{"ТО-21-1", "2", "", "", ""},
		{"ТО-21-1", "3", "снят", "снят", "204"},
	})
	parser := NewBulletinParser(&fakeExtractor{doc: doc}, nil)

	out, err := parser.ParseBulletin("zamena.pdf")
	require.NoError(t, err)

	// A slot can be dropped outright: both sides empty or cancelled. The
	// override is still recorded so the client sees the freed slot.
	require.Len(t, out["ТО-21-1"].Overrides, 2)
	first := out["ТО-21-1"].Overrides[0]
	assert.Equal(t, 1, first.Index)
	assert.Nil(t, first.ShouldBe)
	assert.Nil(t, first.WillBe)

	second := out["ТО-21-1"].Overrides[1]
	assert.Equal(t, 2, second.Index)
	assert.Nil(t, second.ShouldBe)
	assert.Nil(t, second.WillBe)
}

func TestParseBulletinGroupAndPeriodCarryOver(t *testing.T) {
	doc := bulletinDoc([][]string{
		{"ТО-21-1", "2", "снят", "Информатика Сидоров А.Б.", "305"},
		{"", "", "снят", "История Кузнецова В.Г.", "117"},
		{"СТ-22-2", "1", "Физика Иванов А.А.", "снят", ""},
	})
	parser := NewBulletinParser(&fakeExtractor{doc: doc}, nil)

	out, err := parser.ParseBulletin("zamena.pdf")
	require.NoError(t, err)

	to := out["ТО-21-1"]
	require.Len(t, to.Overrides, 2)
	assert.Equal(t, 1, to.Overrides[0].Index)
	assert.Equal(t, 1, to.Overrides[1].Index)
	require.NotNil(t, to.Overrides[1].WillBe)
	require.NotNil(t, to.Overrides[1].WillBe.Common)
	assert.Equal(t, "Кузнецова В.Г.", to.Overrides[1].WillBe.Common.Teacher)

	st := out["СТ-22-2"]
	require.Len(t, st.Overrides, 1)
	assert.Equal(t, 0, st.Overrides[0].Index)
}

func TestParseBulletinMalformedRowSkipped(t *testing.T) {
	doc := bulletinDoc([][]string{
		{"ТО-21-1", "2"},
		{"ТО-21-1", "abc", "Физика Иванов А.А.", "снят", "204"},
		{"ТО-21-1", "5", "снят", "Физика Иванов А.А.", "204"},
	})
	parser := NewBulletinParser(&fakeExtractor{doc: doc}, nil)

	out, err := parser.ParseBulletin("zamena.pdf")
	require.NoError(t, err)
	require.Len(t, out["ТО-21-1"].Overrides, 1)
	assert.Equal(t, 4, out["ТО-21-1"].Overrides[0].Index)
}

func TestParseBulletinRowBeforeAnyGroupSkipped(t *testing.T) {
	doc := bulletinDoc([][]string{
		{"", "1", "Физика Иванов А.А.", "снят", "204"},
		{"ТО-21-1", "2", "снят", "Физика Иванов А.А.", "204"},
	})
	parser := NewBulletinParser(&fakeExtractor{doc: doc}, nil)

	out, err := parser.ParseBulletin("zamena.pdf")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out["ТО-21-1"].Overrides, 1)
}

func TestParseBulletinRepeatedCaptionRowSkipped(t *testing.T) {
	// Multi-page bulletins repeat the caption row at each page break.
	doc := bulletinDoc([][]string{
		{"ТО-21-1", "2", "снят", "Физика Иванов А.А.", "204"},
		{"Группа", "Пара", "Должно быть", "Будет", "Каб."},
		{"СТ-22-2", "1", "Физика Иванов А.А.", "снят", "305"},
	})
	parser := NewBulletinParser(&fakeExtractor{doc: doc}, nil)

	out, err := parser.ParseBulletin("zamena.pdf")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NotContains(t, out, "Группа")
	require.Len(t, out["ТО-21-1"].Overrides, 1)
	require.Len(t, out["СТ-22-2"].Overrides, 1)
	assert.Equal(t, 0, out["СТ-22-2"].Overrides[0].Index)
}

func TestParseBulletinMultiRoomCell(t *testing.T) {
	doc := bulletinDoc([][]string{
		{"ТО-21-1", "6", "1 п/г Информатика Предеина Е.И. 2 п/г Информатика Акиева Н.В.", "снят", "201\n236"},
	})
	parser := NewBulletinParser(&fakeExtractor{doc: doc}, nil)

	out, err := parser.ParseBulletin("zamena.pdf")
	require.NoError(t, err)
	ov := out["ТО-21-1"].Overrides[0]
	require.NotNil(t, ov.ShouldBe)
	require.NotNil(t, ov.ShouldBe.Subgrouped)
	require.Len(t, ov.ShouldBe.Subgrouped.Subgroups, 2)
	assert.Equal(t, "201", ov.ShouldBe.Subgrouped.Subgroups[0].Room)
	assert.Equal(t, "236", ov.ShouldBe.Subgrouped.Subgroups[1].Room)
}

func TestDecodeHeader(t *testing.T) {
	meta, err := decodeHeader([]string{
		"Замены на 12 неделю",
		"3 сентября 2026 четверг",
	})
	require.NoError(t, err)
	assert.Equal(t, 11, meta.weekNum)
	assert.Equal(t, 3, meta.day)
	assert.Equal(t, 8, meta.month)
	assert.Equal(t, 2026, meta.year)
	assert.Equal(t, 3, meta.weekDay)

	_, err = decodeHeader([]string{"без номера", "3 сентября 2026 четверг"})
	require.Error(t, err)

	_, err = decodeHeader([]string{"5 неделя"})
	require.Error(t, err)
}
