package academic

import (
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-transcript-api/internal/models"
)

// FilterByStudent keeps transcripts whose embedded snapshot carries the
// given student ID. The snapshot is a denormalised copy, not a foreign key,
// so this is the only association between a student and a transcript.
func FilterByStudent(studentID string, transcripts []models.Transcript) []models.Transcript {
	key := strings.TrimSpace(studentID)
	matched := make([]models.Transcript, 0, len(transcripts))
	for _, transcript := range transcripts {
		if strings.TrimSpace(transcript.Student.StudentID) == key {
			matched = append(matched, transcript)
		}
	}
	return matched
}

// CompareYears orders academic-year labels chronologically. Labels are
// compared on their leading four-digit year ("2023", "2023-2024",
// "2023/24"); ties and unparseable labels fall back to string order, and
// unparseable labels sort before every parseable one.
func CompareYears(a, b string) int {
	ya, okA := leadingYear(a)
	yb, okB := leadingYear(b)
	switch {
	case okA && okB && ya != yb:
		if ya < yb {
			return -1
		}
		return 1
	case okA && !okB:
		return 1
	case !okA && okB:
		return -1
	}
	return strings.Compare(a, b)
}

func leadingYear(label string) (int, bool) {
	trimmed := strings.TrimSpace(label)
	if len(trimmed) < 4 {
		return 0, false
	}
	for i := 0; i < len(trimmed) && i < 5; i++ {
		isDigit := trimmed[i] >= '0' && trimmed[i] <= '9'
		if i < 4 && !isDigit {
			return 0, false
		}
		if i == 4 && isDigit {
			return 0, false
		}
	}
	year, err := strconv.Atoi(trimmed[:4])
	if err != nil {
		return 0, false
	}
	return year, true
}

// SortForDisplay returns a copy ordered by year descending, then creation
// time descending, then ID so the order is total.
func SortForDisplay(transcripts []models.Transcript) []models.Transcript {
	sorted := make([]models.Transcript, len(transcripts))
	copy(sorted, transcripts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if cmp := CompareYears(sorted[i].Student.Year, sorted[j].Student.Year); cmp != 0 {
			return cmp > 0
		}
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// GroupByYear buckets sorted transcripts by year label and returns the
// labels in the order they first appear.
func GroupByYear(sorted []models.Transcript) (map[string][]models.Transcript, []string) {
	groups := make(map[string][]models.Transcript)
	years := make([]string, 0)
	for _, transcript := range sorted {
		year := transcript.Student.Year
		if _, ok := groups[year]; !ok {
			years = append(years, year)
		}
		groups[year] = append(groups[year], transcript)
	}
	return groups, years
}

// TranscriptTotals returns unrounded totals for a transcript. Units are
// authoritative; records without units fall back to their stored figures.
func TranscriptTotals(transcript models.Transcript) Totals {
	if len(transcript.Units) > 0 {
		return SumUnits(transcript.Units)
	}
	if transcript.TotalCreditHours <= 0 {
		return Totals{}
	}
	return Totals{
		Points:      transcript.GPA * transcript.TotalCreditHours,
		CreditHours: transcript.TotalCreditHours,
	}
}

// Summarize computes cumulative GPA, credits and distinct years.
func Summarize(transcripts []models.Transcript) models.HistorySummary {
	var totals Totals
	years := make(map[string]struct{})
	for _, transcript := range transcripts {
		totals = totals.Add(TranscriptTotals(transcript))
		years[transcript.Student.Year] = struct{}{}
	}
	return models.HistorySummary{
		CumulativeGPA:  Round2(totals.GPA()),
		TotalCredits:   Round2(totals.CreditHours),
		YearsCompleted: len(years),
	}
}
