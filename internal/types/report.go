package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CallPatternReport is the productivity report for one interviewer over a date range
type CallPatternReport struct {
	HoursWorked             Clock           `json:"hours_worked"`
	CallTime                Clock           `json:"call_time"`
	HoursOnCallsPercentage  float64         `json:"hours_on_calls_percentage"` // 0-100%
	AverageCallsPerHour     float64         `json:"average_calls_per_hour"`
	TotalValidCases         int             `json:"total_valid_cases"`
	DiscountedInvalidCases  Bucket          `json:"discounted_invalid_cases"` // denominator: all records
	InvalidFields           []string        `json:"invalid_fields"`
	CompletedSuccessfully   Bucket          `json:"completed_successfully"`
	WebNudge                Bucket          `json:"webnudge"`
	AppointmentsForContacts Bucket          `json:"appointments_for_contacts"`
	Refusals                Bucket          `json:"refusals"`
	NoContacts              NoContactBucket `json:"no_contacts"`
}

// Bucket is a count with its share of a denominator
type Bucket struct {
	Count       int     `json:"count"`
	Denominator int     `json:"denominator"`
	Percentage  float64 `json:"percentage"` // 0-100%, two decimals
}

// String renders the bucket as "count/denominator, pp.pp%"
func (b Bucket) String() string {
	return fmt.Sprintf("%d/%d, %.2f%%", b.Count, b.Denominator, b.Percentage)
}

// NoContactBucket is the no-contact bucket with its dial-result breakdown.
// Sub-bucket denominators are the no-contact count.
type NoContactBucket struct {
	Bucket
	AnswerService Bucket `json:"answer_service"`
	Busy          Bucket `json:"busy"`
	Disconnect    Bucket `json:"disconnect"`
	NoAnswer      Bucket `json:"no_answer"`
	Other         Bucket `json:"other"`
}

// Clock is a duration rendered as H:MM:SS, with hours not wrapped at 24
type Clock time.Duration

// Duration returns the clock value as a time.Duration
func (c Clock) Duration() time.Duration {
	return time.Duration(c)
}

func (c Clock) String() string {
	d := time.Duration(c).Truncate(time.Second)
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := int64(d / time.Hour)
	m := int64(d%time.Hour) / int64(time.Minute)
	s := int64(d%time.Minute) / int64(time.Second)
	return fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("clock must be a string: %w", err)
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseClock parses an H:MM:SS value
func ParseClock(s string) (Clock, error) {
	neg := strings.HasPrefix(s, "-")
	parts := strings.Split(strings.TrimPrefix(s, "-"), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid clock %q: expected H:MM:SS", s)
	}
	var total time.Duration
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid clock %q", s)
		}
		total += time.Duration(n) * units[i]
	}
	if neg {
		total = -total
	}
	return Clock(total), nil
}
