package academic

import (
	"strings"

	"github.com/noah-isme/sma-transcript-api/internal/models"
)

// BuildHistory assembles the academic history of one student from the
// transcripts fetched for it. Transcripts of other students are ignored.
// No matches yield an empty history, never nil.
func BuildHistory(studentID string, transcripts []models.Transcript) *models.AcademicHistory {
	sorted := SortForDisplay(FilterByStudent(studentID, transcripts))
	groups, years := GroupByYear(sorted)

	history := &models.AcademicHistory{
		StudentID:   strings.TrimSpace(studentID),
		Transcripts: groups,
		Years:       years,
		Records:     make([]models.AcademicYearRecord, 0, len(years)),
		Summary:     Summarize(sorted),
	}
	if len(years) == 0 {
		return history
	}

	// carry runs oldest first, display is newest first
	chronological := make([]models.SchoolProfile, len(years))
	for i := range years {
		year := years[len(years)-1-i]
		chronological[i] = groups[year][0].Student.SchoolProfile()
	}
	effective := CarryForward(chronological)

	for i, year := range years {
		history.Records = append(history.Records, yearRecord(year, groups[year], effective[len(years)-1-i]))
	}

	latest := sorted[0].Student
	history.Profile = &models.StudentProfile{
		StudentID: latest.StudentID,
		FullName:  latest.FullName,
		Gender:    latestGender(sorted),
		School:    effective[len(effective)-1],
	}
	return history
}

func yearRecord(year string, transcripts []models.Transcript, profile models.SchoolProfile) models.AcademicYearRecord {
	var totals Totals
	courses := make([]models.Unit, 0)
	for _, transcript := range transcripts {
		totals = totals.Add(TranscriptTotals(transcript))
		courses = append(courses, transcript.Units...)
	}
	return models.AcademicYearRecord{
		Year:         year,
		Profile:      profile,
		Courses:      courses,
		TotalCredits: Round2(totals.CreditHours),
		GPA:          Round2(totals.GPA()),
	}
}

func latestGender(sorted []models.Transcript) models.Optional {
	for _, transcript := range sorted {
		if transcript.Student.Gender.IsKnown() {
			return transcript.Student.Gender
		}
	}
	return models.Unknown()
}
