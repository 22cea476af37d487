package models

// SchoolProfile holds the student and school metadata tracked across years.
// Fields are unknown when no record has supplied them yet.
type SchoolProfile struct {
	GradeLevel     Optional `json:"grade_level"`
	SchoolName     Optional `json:"school_name"`
	SchoolCode     Optional `json:"school_code"`
	SchoolAddress  Optional `json:"school_address"`
	StudentAddress Optional `json:"student_address"`
	SchoolPhone    Optional `json:"school_phone"`
	PrincipalName  Optional `json:"principal_name"`
}

// Overlay returns p with every known field of next applied on top.
func (p SchoolProfile) Overlay(next SchoolProfile) SchoolProfile {
	pick := func(current, candidate Optional) Optional {
		if candidate.IsKnown() {
			return candidate
		}
		return current
	}
	return SchoolProfile{
		GradeLevel:     pick(p.GradeLevel, next.GradeLevel),
		SchoolName:     pick(p.SchoolName, next.SchoolName),
		SchoolCode:     pick(p.SchoolCode, next.SchoolCode),
		SchoolAddress:  pick(p.SchoolAddress, next.SchoolAddress),
		StudentAddress: pick(p.StudentAddress, next.StudentAddress),
		SchoolPhone:    pick(p.SchoolPhone, next.SchoolPhone),
		PrincipalName:  pick(p.PrincipalName, next.PrincipalName),
	}
}

// AcademicYearRecord is the per-year effective view: carried metadata plus
// the year's courses and totals.
type AcademicYearRecord struct {
	Year         string        `json:"year"`
	Profile      SchoolProfile `json:"profile"`
	Courses      []Unit        `json:"courses"`
	TotalCredits float64       `json:"total_credits"`
	GPA          float64       `json:"gpa"`
}

// StudentProfile identifies the student on history documents.
type StudentProfile struct {
	StudentID string        `json:"student_id"`
	FullName  string        `json:"full_name"`
	Gender    Optional      `json:"gender"`
	School    SchoolProfile `json:"school"`
}

// HistorySummary aggregates all transcripts of a student.
type HistorySummary struct {
	CumulativeGPA  float64 `json:"cumulative_gpa"`
	TotalCredits   float64 `json:"total_credits"`
	YearsCompleted int     `json:"years_completed"`
}

// AcademicHistory is the derived multi-year view for one student. It is
// rebuilt from the transcript set on every request.
type AcademicHistory struct {
	StudentID   string                  `json:"student_id"`
	Transcripts map[string][]Transcript `json:"transcripts"`
	Years       []string                `json:"years"`
	Records     []AcademicYearRecord    `json:"records"`
	Profile     *StudentProfile         `json:"profile"`
	Summary     HistorySummary          `json:"summary"`
}

// IsEmpty reports whether the history holds no transcripts.
func (h *AcademicHistory) IsEmpty() bool {
	return h == nil || len(h.Years) == 0
}
