package models

import "time"

// Gender values accepted by the student registry.
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
	GenderOther  = "OTHER"
)

// Student represents a learner registered in the institution. StudentID is
// the external identifier copied into every transcript snapshot; nothing
// enforces referential integrity between the two.
type Student struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	FullName       string    `db:"full_name" json:"full_name"`
	Gender         string    `db:"gender" json:"gender"`
	GradeLevel     string    `db:"grade_level" json:"grade_level"`
	Year           string    `db:"year" json:"year"`
	SchoolName     string    `db:"school_name" json:"school_name"`
	SchoolCode     string    `db:"school_code" json:"school_code"`
	SchoolAddress  string    `db:"school_address" json:"school_address"`
	StudentAddress string    `db:"student_address" json:"student_address"`
	SchoolPhone    string    `db:"school_phone" json:"school_phone"`
	PrincipalName  string    `db:"principal_name" json:"principal_name"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Snapshot freezes the current registry values into a transcript snapshot.
func (s Student) Snapshot() StudentSnapshot {
	return StudentSnapshot{
		FullName:       s.FullName,
		StudentID:      s.StudentID,
		Gender:         Known(s.Gender),
		GradeLevel:     Known(s.GradeLevel),
		Year:           s.Year,
		SchoolName:     Known(s.SchoolName),
		SchoolCode:     Known(s.SchoolCode),
		SchoolAddress:  Known(s.SchoolAddress),
		StudentAddress: Known(s.StudentAddress),
		SchoolPhone:    Known(s.SchoolPhone),
		PrincipalName:  Known(s.PrincipalName),
	}
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
