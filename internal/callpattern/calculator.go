package callpattern

import (
	"math"
	"strconv"
	"time"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

// CallTime sums dial seconds over the given (valid) records. A null
// dial_secs contributes nothing.
func CallTime(rs types.RecordSet) (time.Duration, error) {
	if err := requireColumns(rs, types.ColumnDialSecs); err != nil {
		return 0, err
	}

	var secs float64
	for _, r := range rs.Records {
		if r.DialSecs != nil {
			secs += *r.DialSecs
		}
	}
	return time.Duration(math.Round(secs * float64(time.Second))), nil
}

// HoursOnCallsPercentage is call time as a percentage of hours worked,
// rounded to two decimals. Zero hours worked yields 0.
func HoursOnCallsPercentage(callTime, hoursWorked time.Duration) float64 {
	if hoursWorked <= 0 {
		return 0
	}
	return round2(callTime.Seconds() / hoursWorked.Seconds() * 100)
}

// AverageCallsPerHour is the valid dial count per hour worked, rounded to two
// decimals. Zero hours worked yields 0.
func AverageCallsPerHour(validCount int, hoursWorked time.Duration) float64 {
	if hoursWorked <= 0 {
		return 0
	}
	return round2(float64(validCount) / (hoursWorked.Seconds() / 3600))
}

// percentage returns count/denominator*100 rounded to two decimals, or
// whenZero if the denominator is zero.
func percentage(count, denominator int, whenZero float64) float64 {
	if denominator == 0 {
		return whenZero
	}
	return round2(float64(count) / float64(denominator) * 100)
}

func bucket(count, denominator int, whenZero float64) types.Bucket {
	return types.Bucket{
		Count:       count,
		Denominator: denominator,
		Percentage:  percentage(count, denominator, whenZero),
	}
}

// round2 rounds half-to-even on the exact binary value, the same result as
// formatting with two decimals.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}
