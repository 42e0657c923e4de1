// Package rating computes read-time review aggregates.
package rating

import "math"

const (
	Min = 1
	Max = 5
)

// Valid reports whether r is an accepted star rating.
func Valid(r int) bool { return r >= Min && r <= Max }

// Average returns sum/count rounded to one decimal place, or nil when there
// are no reviews. Halves round away from zero.
func Average(sum, count int64) *float64 {
	if count <= 0 {
		return nil
	}
	v := math.Round(float64(sum)/float64(count)*10) / 10
	return &v
}

// Mean is Average over an explicit list of ratings.
func Mean(ratings []int) *float64 {
	var sum int64
	for _, r := range ratings {
		sum += int64(r)
	}
	return Average(sum, int64(len(ratings)))
}

// Summary is the aggregate attached to films and authors.
type Summary struct {
	Average *float64 `json:"average_rating"`
	Count   int64    `json:"reviews_count"`
}

// Summarize builds a Summary from SQL SUM and COUNT values.
func Summarize(sum, count int64) Summary {
	return Summary{Average: Average(sum, count), Count: count}
}
