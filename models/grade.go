package models

// Grade is the letter grade derived from the three medical sub-scores.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

var gradeLabels = map[Grade]string{
	GradeA: "Excellent",
	GradeB: "Good",
	GradeC: "Acceptable",
	GradeD: "Poor",
	GradeF: "Failing",
}

// Valid reports whether g is a defined letter grade.
func (g Grade) Valid() bool {
	_, ok := gradeLabels[g]
	return ok
}

// Label returns the display label for the grade.
func (g Grade) Label() string {
	if label, ok := gradeLabels[g]; ok {
		return label
	}
	return string(g)
}

// High reports whether the grade counts as high medical merit for the
// at-risk projection (grade A or B).
func (g Grade) High() bool {
	return g == GradeA || g == GradeB
}
