// Package intervals holds the pure interval math of the engine: the
// mastery threshold table, the ease-factor model and the forgetting curve.
package intervals

import "math"

// DefaultIntervalDays is returned for scores outside every bucket.
const DefaultIntervalDays = 1

// bucket maps an inclusive score range to an interval in days.
type bucket struct {
	min, max float64
	days     int
}

var thresholdBuckets = []bucket{
	{min: 0, max: 19, days: 1},
	{min: 20, max: 40, days: 2},
	{min: 41, max: 60, days: 4},
	{min: 61, max: 80, days: 7},
	{min: 81, max: 90, days: 14},
	{min: 91, max: 100, days: 30},
}

// ThresholdIntervalDays maps an overall 0-100 mastery score to a review
// interval. The first matching bucket wins; scores that fall outside every
// bucket, including the gaps between fractional bounds, get one day.
func ThresholdIntervalDays(score float64) int {
	if math.IsNaN(score) {
		return DefaultIntervalDays
	}
	for _, b := range thresholdBuckets {
		if score >= b.min && score <= b.max {
			return b.days
		}
	}
	return DefaultIntervalDays
}

const (
	maxStrength  = 10.0
	baseStrength = 2.0
)

// Strength is the memory strength after n reviews: min(10, 2 + ln(1+n)).
func Strength(reviewCount int) float64 {
	return math.Min(maxStrength, baseStrength+math.Log1p(float64(max(0, reviewCount))))
}

// Retention estimates the share of material retained d days after a review.
func Retention(daysSince float64, reviewCount int) float64 {
	if daysSince <= 0 {
		return 1
	}
	return math.Exp(-daysSince / Strength(reviewCount))
}

// ForgottenPercentage is (1 - retention) * 100. It is 0 for items that were
// never reviewed and for non-positive elapsed time.
func ForgottenPercentage(daysSince float64, reviewCount int, reviewed bool) float64 {
	if !reviewed || daysSince <= 0 || math.IsNaN(daysSince) {
		return 0
	}
	return (1 - Retention(daysSince, reviewCount)) * 100
}
