package dto

import (
	"strings"

	"github.com/noah-isme/sma-transcript-api/internal/models"
)

// UnitRequest is one course on a transcript write payload.
type UnitRequest struct {
	Code        string  `json:"code" validate:"required,max=32"`
	Name        string  `json:"name" validate:"required,max=128"`
	Grade       string  `json:"grade" validate:"required,oneof=A+ A A- B+ B B- C+ C C- D+ D D- F"`
	CreditHours float64 `json:"credit_hours" validate:"gt=0,lte=100"`
}

// SnapshotRequest carries the student metadata frozen into a transcript.
type SnapshotRequest struct {
	FullName       string `json:"full_name" validate:"required"`
	StudentID      string `json:"student_id" validate:"required"`
	Gender         string `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	GradeLevel     string `json:"grade_level"`
	Year           string `json:"year" validate:"required"`
	SchoolName     string `json:"school_name"`
	SchoolCode     string `json:"school_code"`
	SchoolAddress  string `json:"school_address"`
	StudentAddress string `json:"student_address"`
	SchoolPhone    string `json:"school_phone"`
	PrincipalName  string `json:"principal_name"`
}

// Snapshot converts the payload; blank optional fields become unknown.
func (r SnapshotRequest) Snapshot() models.StudentSnapshot {
	return models.StudentSnapshot{
		FullName:       strings.TrimSpace(r.FullName),
		StudentID:      strings.TrimSpace(r.StudentID),
		Gender:         models.Known(r.Gender),
		GradeLevel:     models.Known(r.GradeLevel),
		Year:           strings.TrimSpace(r.Year),
		SchoolName:     models.Known(r.SchoolName),
		SchoolCode:     models.Known(r.SchoolCode),
		SchoolAddress:  models.Known(r.SchoolAddress),
		StudentAddress: models.Known(r.StudentAddress),
		SchoolPhone:    models.Known(r.SchoolPhone),
		PrincipalName:  models.Known(r.PrincipalName),
	}
}

// TranscriptRequest is the create/update payload. GPA and credit totals are
// derived server side and have no field here.
type TranscriptRequest struct {
	Student SnapshotRequest `json:"student"`
	Units   []UnitRequest   `json:"units" validate:"required,min=1,dive"`
}

// StudentTranscriptRequest creates a transcript for a registered student;
// the snapshot comes from the registry, optionally overriding year and grade level.
type StudentTranscriptRequest struct {
	Year       string        `json:"year"`
	GradeLevel string        `json:"grade_level"`
	Units      []UnitRequest `json:"units" validate:"required,min=1,dive"`
}

// GPAPreviewRequest is the live form preview payload. Units are decoded
// leniently and never rejected.
type GPAPreviewRequest struct {
	Units []models.Unit `json:"units"`
}

// NormaliseUnits trims fields and upper-cases grades before validation.
func NormaliseUnits(units []UnitRequest) {
	for i := range units {
		units[i].Code = strings.TrimSpace(units[i].Code)
		units[i].Name = strings.TrimSpace(units[i].Name)
		units[i].Grade = strings.ToUpper(strings.TrimSpace(units[i].Grade))
	}
}

// ToUnits converts request units into the persisted form, keeping order.
func ToUnits(units []UnitRequest) models.Units {
	out := make(models.Units, len(units))
	for i, unit := range units {
		out[i] = models.Unit{
			Code:        unit.Code,
			Name:        unit.Name,
			Grade:       unit.Grade,
			CreditHours: models.CreditHours(unit.CreditHours),
		}
	}
	return out
}
