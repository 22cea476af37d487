package academic

import "github.com/noah-isme/sma-transcript-api/internal/models"

// CarryForward folds chronologically ordered profiles into effective ones:
// each field takes the latest known value seen so far. Fields that were
// never known stay unknown.
func CarryForward(chronological []models.SchoolProfile) []models.SchoolProfile {
	effective := make([]models.SchoolProfile, len(chronological))
	var last models.SchoolProfile
	for i, profile := range chronological {
		last = last.Overlay(profile)
		effective[i] = last
	}
	return effective
}
