package callpattern

import "github.com/ONSdigital/blaise-export-reporting-tool/internal/types"

// Reasons a dial is discounted from the report
const (
	ReasonMissingStart = "'call_start_time' column had missing data"
	ReasonMissingEnd   = "'call_end_time' column had missing data"
	ReasonTimedOut     = "'status' column had timed out call status"
)

type validityRule struct {
	invalid func(types.CallRecord) bool
	reason  string
}

// validityRules are evaluated in order against every record. Each rule that
// matches contributes its reason.
var validityRules = []validityRule{
	{
		invalid: func(r types.CallRecord) bool { return r.CallStartTime == nil },
		reason:  ReasonMissingStart,
	},
	{
		invalid: func(r types.CallRecord) bool { return r.CallEndTime == nil },
		reason:  ReasonMissingEnd,
	},
	{
		invalid: func(r types.CallRecord) bool { return types.IsTimedOut(r.Status) },
		reason:  ReasonTimedOut,
	},
}

// Validation is the partition of a record set into valid and invalid dials
type Validation struct {
	Valid   types.RecordSet
	Invalid types.RecordSet
	// Reasons holds each distinct reason seen across the invalid records,
	// in rule order.
	Reasons []string
}

// InvalidCount returns the number of discounted records
func (v Validation) InvalidCount() int {
	return v.Invalid.Len()
}

// RecordReasons returns the reasons a single record is invalid, in rule
// order. An empty result means the record is valid.
func RecordReasons(r types.CallRecord) []string {
	var reasons []string
	for _, rule := range validityRules {
		if rule.invalid(r) {
			reasons = append(reasons, rule.reason)
		}
	}
	return reasons
}

// Validate partitions the records and collects the distinct invalid reasons
func Validate(rs types.RecordSet) (Validation, error) {
	if err := requireColumns(rs, types.ColumnCallStartTime, types.ColumnCallEndTime, types.ColumnStatus); err != nil {
		return Validation{}, err
	}

	var valid, invalid []types.CallRecord
	seen := make([]bool, len(validityRules))
	for _, r := range rs.Records {
		bad := false
		for i, rule := range validityRules {
			if rule.invalid(r) {
				seen[i] = true
				bad = true
			}
		}
		if bad {
			invalid = append(invalid, r)
		} else {
			valid = append(valid, r)
		}
	}

	reasons := []string{}
	for i, rule := range validityRules {
		if seen[i] {
			reasons = append(reasons, rule.reason)
		}
	}

	return Validation{
		Valid:   rs.Subset(valid),
		Invalid: rs.Subset(invalid),
		Reasons: reasons,
	}, nil
}
