package academic

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/noah-isme/sma-transcript-api/internal/models"
)

// propertyGrades mixes the letter vocabulary with values the table does not know.
var propertyGrades = append(append([]string{}, Grades...), "E", "", "A++")

// decodeUnits turns generated integers into units. Hours range over
// -0.5..5.5 in half steps so invalid weights are exercised too.
func decodeUnits(codes []int) []models.Unit {
	units := make([]models.Unit, len(codes))
	for i, code := range codes {
		grade := propertyGrades[code%len(propertyGrades)]
		hours := float64(code/len(propertyGrades)-1) * 0.5
		units[i] = models.Unit{Code: "U", Grade: grade, CreditHours: models.CreditHours(hours)}
	}
	return units
}

func unitCodes() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, len(propertyGrades)*13-1))
}

func TestGPAProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("gpa stays within the grade table and hours are non-negative", prop.ForAll(
		func(codes []int) bool {
			result := CalculateGPA(decodeUnits(codes))
			return result.GPA >= 0 && result.GPA <= MaxGradePoint && result.TotalCreditHours >= 0
		},
		unitCodes(),
	))

	properties.Property("gpa does not depend on unit order", prop.ForAll(
		func(codes []int, shift int) bool {
			units := decodeUnits(codes)
			reordered := make([]models.Unit, 0, len(units))
			for i := len(units) - 1; i >= 0; i-- {
				reordered = append(reordered, units[i])
			}
			if len(reordered) > 0 {
				k := shift % len(reordered)
				reordered = append(reordered[k:], reordered[:k]...)
			}
			a, b := SumUnits(units), SumUnits(reordered)
			return math.Abs(a.GPA()-b.GPA()) < 1e-9 && math.Abs(a.CreditHours-b.CreditHours) < 1e-9
		},
		unitCodes(),
		gen.IntRange(0, 50),
	))

	properties.Property("cumulative gpa matches weighted per-transcript gpa within rounding", prop.ForAll(
		func(batches [][]int) bool {
			transcripts := make([]models.Transcript, len(batches))
			var weighted, hours float64
			for i, codes := range batches {
				units := decodeUnits(codes)
				result := CalculateGPA(units)
				transcripts[i] = models.Transcript{
					ID:               string(rune('a' + i%26)),
					Student:          models.StudentSnapshot{StudentID: "S1", Year: "2024"},
					Units:            units,
					GPA:              result.GPA,
					TotalCreditHours: result.TotalCreditHours,
					CreatedAt:        time.Unix(int64(i), 0),
				}
				weighted += result.GPA * result.TotalCreditHours
				hours += result.TotalCreditHours
			}
			summary := Summarize(transcripts)
			if hours == 0 {
				return summary.CumulativeGPA == 0 && summary.TotalCredits == 0
			}
			return math.Abs(summary.CumulativeGPA-weighted/hours) <= 0.01+1e-9 &&
				math.Abs(summary.TotalCredits-hours) < 1e-9
		},
		gen.SliceOf(unitCodes()),
	))

	properties.TestingRun(t)
}
