package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CreditHours is the credit weight of a unit. It decodes leniently: numeric
// strings are parsed and anything non-numeric becomes zero so historical
// records stay readable.
type CreditHours float64

// UnmarshalJSON implements json.Unmarshaler.
func (h *CreditHours) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	var number float64
	if err := json.Unmarshal(trimmed, &number); err == nil {
		*h = CreditHours(number)
		return nil
	}
	var raw string
	if err := json.Unmarshal(trimmed, &raw); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			*h = CreditHours(parsed)
			return nil
		}
	}
	*h = 0
	return nil
}

// Unit is a single graded course inside a transcript.
type Unit struct {
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Grade       string      `json:"grade"`
	CreditHours CreditHours `json:"credit_hours"`
}

// UnmarshalJSON accepts non-string code, name and grade values. A numeric
// grade keeps its literal text and so earns no grade points.
func (u *Unit) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code        json.RawMessage `json:"code"`
		Name        json.RawMessage `json:"name"`
		Grade       json.RawMessage `json:"grade"`
		CreditHours CreditHours     `json:"credit_hours"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = Unit{
		Code:        looseString(raw.Code),
		Name:        looseString(raw.Name),
		Grade:       looseString(raw.Grade),
		CreditHours: raw.CreditHours,
	}
	return nil
}

func looseString(data json.RawMessage) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return text
	}
	return string(trimmed)
}

// Units is the ordered unit list persisted as JSONB.
type Units []Unit

// Value marshals units for persistence.
func (u Units) Value() (driver.Value, error) {
	if u == nil {
		u = Units{}
	}
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("marshal units: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSONB payloads into units.
func (u *Units) Scan(value interface{}) error {
	data, err := jsonBytes(value, "Units")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*u = Units{}
		return nil
	}
	if err := json.Unmarshal(data, u); err != nil {
		return fmt.Errorf("unmarshal units: %w", err)
	}
	return nil
}

// StudentSnapshot is the student and school metadata copied into a
// transcript when it is created. It is not kept in sync with the Student
// registry and older snapshots may carry unknown fields.
type StudentSnapshot struct {
	FullName       string   `json:"full_name"`
	StudentID      string   `json:"student_id"`
	Gender         Optional `json:"gender"`
	GradeLevel     Optional `json:"grade_level"`
	Year           string   `json:"year"`
	SchoolName     Optional `json:"school_name"`
	SchoolCode     Optional `json:"school_code"`
	SchoolAddress  Optional `json:"school_address"`
	StudentAddress Optional `json:"student_address"`
	SchoolPhone    Optional `json:"school_phone"`
	PrincipalName  Optional `json:"principal_name"`
}

// SchoolProfile returns the carried metadata fields of the snapshot.
func (s StudentSnapshot) SchoolProfile() SchoolProfile {
	return SchoolProfile{
		GradeLevel:     s.GradeLevel,
		SchoolName:     s.SchoolName,
		SchoolCode:     s.SchoolCode,
		SchoolAddress:  s.SchoolAddress,
		StudentAddress: s.StudentAddress,
		SchoolPhone:    s.SchoolPhone,
		PrincipalName:  s.PrincipalName,
	}
}

// Value marshals the snapshot for persistence.
func (s StudentSnapshot) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal student snapshot: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSONB payloads into the snapshot.
func (s *StudentSnapshot) Scan(value interface{}) error {
	data, err := jsonBytes(value, "StudentSnapshot")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*s = StudentSnapshot{}
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("unmarshal student snapshot: %w", err)
	}
	return nil
}

// Transcript is one term/year academic record for a student. GPA and
// TotalCreditHours are derived from Units and recomputed on every write.
type Transcript struct {
	ID               string          `db:"id" json:"id"`
	Student          StudentSnapshot `db:"student" json:"student"`
	Units            Units           `db:"units" json:"units"`
	GPA              float64         `db:"gpa" json:"gpa"`
	TotalCreditHours float64         `db:"total_credit_hours" json:"total_credit_hours"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// TranscriptFilter scopes transcript listings.
type TranscriptFilter struct {
	StudentID string
	Year      string
	Page      int
	PageSize  int
}

// GPAResult is the outcome of a GPA calculation.
type GPAResult struct {
	GPA              float64 `json:"gpa"`
	TotalCreditHours float64 `json:"total_credit_hours"`
}

func jsonBytes(value interface{}, target string) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T for %s", value, target)
	}
}
