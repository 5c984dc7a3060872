package controllers

import (
	"errors"
	"fmt"
	"math"
	"time"

	"nimblevision/database"
)

// ErrInvalidThresholds is returned when upper <= lower
var ErrInvalidThresholds = errors.New("Upper threshold must be greater than lower threshold")

var periodMonths = map[string]int{
	database.PeriodMonthly:    1,
	database.PeriodQuarterly:  3,
	database.PeriodHalfYearly: 6,
	database.PeriodYearly:     12,
}

// PeriodMonths maps a billing period to its length in calendar months
func PeriodMonths(period string) (int, bool) {
	n, ok := periodMonths[period]
	return n, ok
}

// ComputeEndDate adds the period's calendar months to start. Day overflow
// normalizes forward, so Jan 31 + 1 month is Mar 3 (Mar 2 in leap years).
func ComputeEndDate(start time.Time, period string) (time.Time, error) {
	months, ok := PeriodMonths(period)
	if !ok {
		return time.Time{}, fmt.Errorf("unknown period %q", period)
	}
	return start.AddDate(0, months, 0), nil
}

// ComputeAmount is plan amount times quantity, with quantity at least 1,
// rounded to paise
func ComputeAmount(planAmount float64, quantity int) float64 {
	if quantity < 1 {
		quantity = 1
	}
	return math.Round(planAmount*float64(quantity)*100) / 100
}

// ValidateThresholds enforces upper > lower
func ValidateThresholds(upper, lower float64) error {
	if upper <= lower {
		return ErrInvalidThresholds
	}
	return nil
}

// MergeThresholds overlays the requested values on the stored ones
func MergeThresholds(storedUpper, storedLower float64, upper, lower *float64) (float64, float64) {
	if upper != nil {
		storedUpper = *upper
	}
	if lower != nil {
		storedLower = *lower
	}
	return storedUpper, storedLower
}

// NextSaviourID returns 1 + the current maximum, or 1 when the user has no tanks
func NextSaviourID(maxExisting *int) int {
	if maxExisting == nil {
		return 1
	}
	return *maxExisting + 1
}
