// Package academic aggregates transcripts into GPA figures and multi-year
// academic histories. Everything here is a pure function over an in-memory
// transcript set; fetching and persistence live in the service layer.
package academic

import (
	"math"
	"strings"

	"github.com/noah-isme/sma-transcript-api/internal/models"
)

var gradePoints = map[string]float64{
	"A+": 4.0,
	"A":  4.0,
	"A-": 3.7,
	"B+": 3.3,
	"B":  3.0,
	"B-": 2.7,
	"C+": 2.3,
	"C":  2.0,
	"C-": 1.7,
	"D+": 1.3,
	"D":  1.0,
	"D-": 0.7,
	"F":  0.0,
}

// Grades lists the letter vocabulary from highest to lowest.
var Grades = []string{"A+", "A", "A-", "B+", "B", "B-", "C+", "C", "C-", "D+", "D", "D-", "F"}

// MaxGradePoint is the highest value on the grade table.
const MaxGradePoint = 4.0

// GradePoint returns the grade points for a letter grade. Unknown grades
// are worth zero points.
func GradePoint(grade string) float64 {
	return gradePoints[strings.ToUpper(strings.TrimSpace(grade))]
}

// IsValidGrade reports whether grade belongs to the letter vocabulary.
func IsValidGrade(grade string) bool {
	_, ok := gradePoints[strings.ToUpper(strings.TrimSpace(grade))]
	return ok
}

// Totals carries unrounded weighted points and credit hours so that
// aggregates across transcripts never compound rounding.
type Totals struct {
	Points      float64
	CreditHours float64
}

// Add returns the sum of both totals.
func (t Totals) Add(other Totals) Totals {
	return Totals{
		Points:      t.Points + other.Points,
		CreditHours: t.CreditHours + other.CreditHours,
	}
}

// GPA returns the unrounded weighted average, zero when no hours count.
func (t Totals) GPA() float64 {
	if t.CreditHours <= 0 {
		return 0
	}
	return t.Points / t.CreditHours
}

// Result rounds the totals for storage and display.
func (t Totals) Result() models.GPAResult {
	return models.GPAResult{
		GPA:              Round2(t.GPA()),
		TotalCreditHours: Round2(t.CreditHours),
	}
}

// SumUnits accumulates grade points and credit hours across units.
func SumUnits(units []models.Unit) Totals {
	var totals Totals
	for _, unit := range units {
		hours := creditHours(unit.CreditHours)
		totals.Points += GradePoint(unit.Grade) * hours
		totals.CreditHours += hours
	}
	return totals
}

// CalculateGPA converts units into a rounded GPA and credit hour total.
// An empty list yields zeros.
func CalculateGPA(units []models.Unit) models.GPAResult {
	return SumUnits(units).Result()
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

func creditHours(h models.CreditHours) float64 {
	v := float64(h)
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return v
}
