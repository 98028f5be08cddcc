package parser

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func word(s string, x, w float64) pdf.Text {
	return pdf.Text{S: s, X: x, W: w}
}

func TestCaptionColumns(t *testing.T) {
	starts, ok := captionColumns([]pdf.Text{
		word("Группа", 50, 40),
		word("Пара", 150, 30),
		word("Должно", 250, 45),
		word("быть", 297, 30),
		word("Будет", 400, 40),
		word("Каб.", 520, 25),
	})
	require.True(t, ok)
	assert.Equal(t, []float64{50, 150, 250, 400, 520}, starts)
}

func TestCaptionColumnsRequiresGroupCaption(t *testing.T) {
	_, ok := captionColumns([]pdf.Text{
		word("Расписание", 50, 80),
		word("замен", 140, 40),
	})
	assert.False(t, ok)
}

func TestCaptionColumnsRejectsTooFewColumns(t *testing.T) {
	_, ok := captionColumns([]pdf.Text{
		word("Группа", 50, 40),
		word("Пара", 150, 30),
	})
	assert.False(t, ok)
}

func TestBucketWords(t *testing.T) {
	columns := []float64{50, 150, 250, 400, 520}
	cells := bucketWords([]pdf.Text{
		word("ТО-21-1", 50, 50),
		word("3", 152, 8),
		word("Физика", 251, 40),
		word("Иванов", 300, 45),
		word("А.А.", 350, 25),
		word("снят", 401, 30),
		word("204", 521, 22),
	}, columns)

	require.Len(t, cells, 5)
	assert.Equal(t, "ТО-21-1", cells[colGroup])
	assert.Equal(t, "3", cells[colPeriod])
	assert.Equal(t, "Физика Иванов А.А.", cells[colShouldBe])
	assert.Equal(t, "снят", cells[colWillBe])
	assert.Equal(t, "204", cells[colRoom])
}

func TestBucketWordsJitterStaysInColumn(t *testing.T) {
	columns := []float64{50, 150, 250, 400, 520}
	cells := bucketWords([]pdf.Text{word("2", 147, 8)}, columns)
	assert.Equal(t, "2", cells[colPeriod])
}

func TestContinuationRowsMerge(t *testing.T) {
	prev := []string{"ТО-21-1", "3", "1 п/г Предеина Е.И.", "снят", "201"}
	cont := []string{"", "", "2 п/г Акиева Н.В.", "", "236"}
	require.True(t, isContinuation(cont))

	mergeRow(prev, cont)
	assert.Equal(t, "1 п/г Предеина Е.И.\n2 п/г Акиева Н.В.", prev[colShouldBe])
	assert.Equal(t, "201\n236", prev[colRoom])
	assert.Equal(t, "снят", prev[colWillBe])
}

func TestIsContinuation(t *testing.T) {
	assert.False(t, isContinuation([]string{"ТО-21-1", "", "x", "", ""}))
	assert.False(t, isContinuation([]string{"", "4", "x", "", ""}))
	assert.True(t, isContinuation([]string{"", "", "x", "", ""}))
}
