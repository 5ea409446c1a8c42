// Package scoring holds the grade and attendance arithmetic shared by the
// roster, dashboard and export views. All functions are pure; missing raw
// scores enter the formulas as 0 while staying nil for display.
package scoring

import "math"

// DefaultTotalWeeks is used when no current school year is configured.
const DefaultTotalWeeks = 40

// Classification buckets, inclusive on the lower bound.
type Classification string

const (
	Excellent    Classification = "excellent"
	Good         Classification = "good"
	Average      Classification = "average"
	BelowAverage Classification = "below_average"
)

// Round2 rounds to 2 decimal places, the precision every stored and
// displayed average uses.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Coalesce returns 0 for a missing raw score.
func Coalesce(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// TermAverage combines the 45-minute test and the term exam, the exam
// weighted double. Nil while either component is still unscored.
func TermAverage(score45, scoreExam *float64) *float64 {
	if score45 == nil || scoreExam == nil {
		return nil
	}
	avg := Round2((*score45 + *scoreExam*2) / 3)
	return &avg
}

// YearAverage combines the two term averages, term 2 weighted double.
// This is the canonical year-end formula; see DESIGN.md for the variant
// it replaces.
func YearAverage(avgTerm1, avgTerm2 float64) float64 {
	return Round2((avgTerm1 + avgTerm2*2) / 3)
}

// AttendanceRate scores a year of attendance on a 10-point scale.
// Thursday sessions weigh 0.4 per attendance, Sunday 0.6. A missing or
// zero week count falls back to DefaultTotalWeeks.
func AttendanceRate(countThu5, countCN, totalWeeks int) float64 {
	if totalWeeks <= 0 {
		totalWeeks = DefaultTotalWeeks
	}
	raw := (float64(countThu5)*0.4 + float64(countCN)*0.6) * (10 / float64(totalWeeks))
	return Round2(raw)
}

// OverallAverage blends catechism grades with the attendance rate.
func OverallAverage(catechismAvg, attendanceRate float64) float64 {
	return Round2(catechismAvg*0.6 + attendanceRate*0.4)
}

// Classify maps a year average onto its bucket.
func Classify(yearAverage float64) Classification {
	switch {
	case yearAverage >= 8.0:
		return Excellent
	case yearAverage >= 6.5:
		return Good
	case yearAverage >= 5.0:
		return Average
	default:
		return BelowAverage
	}
}

// StudentMetrics is every derived number a roster or dashboard row shows.
type StudentMetrics struct {
	AvgTerm1       *float64       `json:"avg_term1"`
	AvgTerm2       *float64       `json:"avg_term2"`
	YearAverage    float64        `json:"year_average"`
	AttendanceRate float64        `json:"attendance_rate"`
	Overall        float64        `json:"overall"`
	Class          Classification `json:"classification"`
}

// Compute derives the full metric set from raw scores and attendance
// tallies. Unscored slots count as 0 in the aggregates but surface as nil
// term averages.
func Compute(s45t1, sexT1, s45t2, sexT2 *float64, countThu5, countCN, totalWeeks int) StudentMetrics {
	a1 := TermAverage(s45t1, sexT1)
	a2 := TermAverage(s45t2, sexT2)

	year := YearAverage(
		Coalesce(TermAverage(orZero(s45t1), orZero(sexT1))),
		Coalesce(TermAverage(orZero(s45t2), orZero(sexT2))),
	)
	rate := AttendanceRate(countThu5, countCN, totalWeeks)
	overall := OverallAverage(year, rate)

	return StudentMetrics{
		AvgTerm1:       a1,
		AvgTerm2:       a2,
		YearAverage:    year,
		AttendanceRate: rate,
		Overall:        overall,
		Class:          Classify(overall),
	}
}

func orZero(p *float64) *float64 {
	if p == nil {
		zero := 0.0
		return &zero
	}
	return p
}
