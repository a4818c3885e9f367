// Package scoring turns classification stats into a 0-100 effectiveness
// score and a letter grade.
package scoring

import "github.com/wafbench/wbt/pkg/analyzer"

// Penalty weights. A bypass costs more than a blocked legitimate request.
const (
	MaxScore          = 100
	BypassPenalty     = 10
	FalsePositiveCost = 5
)

// Grade is a letter grade derived from the score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// gradeFloors lists the lowest score for each grade, best first.
var gradeFloors = []struct {
	min   int
	grade Grade
}{
	{90, GradeA},
	{70, GradeB},
	{50, GradeC},
	{30, GradeD},
}

// Details breaks the penalty down by cause.
type Details struct {
	BypassPenalty int `json:"bypass_penalty"`
	FPPenalty     int `json:"fp_penalty"`
}

// Report is the scored result of one run.
type Report struct {
	TotalScore int     `json:"total_score"`
	Grade      Grade   `json:"grade"`
	Details    Details `json:"details"`
}

// GradeFor maps a score onto a grade.
func GradeFor(score int) Grade {
	for _, g := range gradeFloors {
		if score >= g.min {
			return g.grade
		}
	}
	return GradeF
}

// CalculateScore applies the penalties to stats: 10 points per false
// negative and 5 per false positive, floored at zero.
func CalculateScore(stats analyzer.Stats) Report {
	d := Details{
		BypassPenalty: stats.FalseNegatives * BypassPenalty,
		FPPenalty:     stats.FalsePositives * FalsePositiveCost,
	}
	score := max(0, MaxScore-(d.BypassPenalty+d.FPPenalty))
	return Report{
		TotalScore: score,
		Grade:      GradeFor(score),
		Details:    d,
	}
}
