package services

import (
	"math"

	"brand-review-api/models"
)

// Sub-score bounds. Scores outside the range are rejected, never clamped,
// so upstream bugs surface instead of flattening into a 1 or 10.
const (
	MinSubScore = 1
	MaxSubScore = 10
)

// ScoreRecord holds the three medical sub-scores for one submission.
type ScoreRecord struct {
	Clinical     int `json:"clinical"`
	Safety       int `json:"safety"`
	Transparency int `json:"transparency"`
}

// Validate checks every sub-score against [MinSubScore, MaxSubScore].
func (r ScoreRecord) Validate() error {
	for _, score := range []struct {
		name  string
		value int
	}{
		{"clinical", r.Clinical},
		{"safety", r.Safety},
		{"transparency", r.Transparency},
	} {
		if score.value < MinSubScore || score.value > MaxSubScore {
			return newWorkflowError(ErrKindInvalidScore,
				"%s score %d is out of range [%d,%d]", score.name, score.value, MinSubScore, MaxSubScore)
		}
	}
	return nil
}

// CalculateGrade maps a score record to a letter grade: the unweighted
// mean of the three sub-scores, rounded half-up, banded as A >= 9,
// B >= 7, C >= 5, D >= 3, F otherwise.
//
// Pure and deterministic. The same function backs both the live preview
// endpoint and the grade persisted by SubmitScores.
func CalculateGrade(record ScoreRecord) (models.Grade, error) {
	if err := record.Validate(); err != nil {
		return "", err
	}

	mean := float64(record.Clinical+record.Safety+record.Transparency) / 3.0
	composite := int(math.Round(mean))

	switch {
	case composite >= 9:
		return models.GradeA, nil
	case composite >= 7:
		return models.GradeB, nil
	case composite >= 5:
		return models.GradeC, nil
	case composite >= 3:
		return models.GradeD, nil
	default:
		return models.GradeF, nil
	}
}
