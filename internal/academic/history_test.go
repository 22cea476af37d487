package academic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-transcript-api/internal/models"
)

var baseTime = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func transcript(id, studentID, year string, createdOffset time.Duration, units ...models.Unit) models.Transcript {
	result := CalculateGPA(units)
	return models.Transcript{
		ID:               id,
		Student:          models.StudentSnapshot{StudentID: studentID, FullName: "Siti Rahma", Year: year},
		Units:            units,
		GPA:              result.GPA,
		TotalCreditHours: result.TotalCreditHours,
		CreatedAt:        baseTime.Add(createdOffset),
		UpdatedAt:        baseTime.Add(createdOffset),
	}
}

func ids(transcripts []models.Transcript) []string {
	out := make([]string, len(transcripts))
	for i, t := range transcripts {
		out[i] = t.ID
	}
	return out
}

func TestFilterByStudent(t *testing.T) {
	all := []models.Transcript{
		transcript("t1", "S1", "2023", 0),
		transcript("t2", "S2", "2023", 0),
		transcript("t3", " S1 ", "2024", 0),
	}
	assert.Equal(t, []string{"t1", "t3"}, ids(FilterByStudent("S1", all)))
	assert.Empty(t, FilterByStudent("S9", all))
	assert.NotNil(t, FilterByStudent("S9", nil))
}

func TestCompareYears(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"2024-2025", "2023-2024", 1},
		{"2022-2023", "2023-2024", -1},
		{"2023", "2023-2024", -1},
		{" 2024", "2023", 1},
		{"2023/24", "2022-2023", 1},
		{"Grade 10", "2019", -1},
		{"Grade 10", "Grade 11", -1},
		{"2023-2024", "2023-2024", 0},
		{"20231", "2022", -1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CompareYears(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
	}
}

func TestSortForDisplay(t *testing.T) {
	input := []models.Transcript{
		transcript("old", "S1", "2021-2022", 0),
		transcript("new-early", "S1", "2023-2024", time.Hour),
		transcript("mid", "S1", "2022-2023", 0),
		transcript("new-late", "S1", "2023-2024", 2*time.Hour),
		transcript("new-tie-b", "S1", "2023-2024", time.Hour),
	}
	sorted := SortForDisplay(input)
	assert.Equal(t, []string{"new-late", "new-early", "new-tie-b", "mid", "old"}, ids(sorted))
	assert.Equal(t, "old", input[0].ID, "input must not be reordered")
}

func TestGroupByYear(t *testing.T) {
	sorted := SortForDisplay([]models.Transcript{
		transcript("a", "S1", "2022", 0),
		transcript("b", "S1", "2023", 0),
		transcript("c", "S1", "2023", time.Minute),
	})
	groups, years := GroupByYear(sorted)
	require.Equal(t, []string{"2023", "2022"}, years)
	assert.Equal(t, []string{"c", "b"}, ids(groups["2023"]))
	assert.Equal(t, []string{"a"}, ids(groups["2022"]))
}

func TestSummarizeUsesStoredFiguresWithoutUnits(t *testing.T) {
	first := models.Transcript{ID: "t1", Student: models.StudentSnapshot{StudentID: "S1", Year: "2022-2023"}, GPA: 3.16, TotalCreditHours: 6}
	second := models.Transcript{ID: "t2", Student: models.StudentSnapshot{StudentID: "S1", Year: "2023-2024"}, GPA: 2.85, TotalCreditHours: 7}

	summary := Summarize([]models.Transcript{first, second})
	assert.Equal(t, 2.99, summary.CumulativeGPA)
	assert.Equal(t, 13.0, summary.TotalCredits)
	assert.Equal(t, 2, summary.YearsCompleted)

	second.Student.Year = first.Student.Year
	summary = Summarize([]models.Transcript{first, second})
	assert.Equal(t, 2.99, summary.CumulativeGPA)
	assert.Equal(t, 1, summary.YearsCompleted)
}

func TestSummarizeRecomputesFromUnits(t *testing.T) {
	// per-transcript GPAs round to 3.67 and 3.33; raw sums give exactly 3.5
	first := transcript("t1", "S1", "2023", 0, unit("A", 2), unit("B", 1))
	second := transcript("t2", "S1", "2024", 0, unit("A", 1), unit("B", 2))
	require.Equal(t, 3.67, first.GPA)
	require.Equal(t, 3.33, second.GPA)

	summary := Summarize([]models.Transcript{first, second})
	assert.Equal(t, 3.5, summary.CumulativeGPA)
	assert.Equal(t, 6.0, summary.TotalCredits)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, models.HistorySummary{}, Summarize(nil))
}
