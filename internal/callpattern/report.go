package callpattern

import "github.com/ONSdigital/blaise-export-reporting-tool/internal/types"

// Generate builds the call pattern report for one interviewer's call history.
// An empty record set yields a nil report and no error. Any failure is a
// *ReportError naming the stage that failed.
func Generate(rs types.RecordSet) (*types.CallPatternReport, error) {
	if rs.Len() == 0 {
		return nil, nil
	}

	v, err := Validate(rs)
	if err != nil {
		return nil, stageError("validate_records", "", err)
	}

	hours, err := HoursWorked(v.Valid)
	if err != nil {
		return nil, stageError("metrics", "hours_worked", err)
	}

	callTime, err := CallTime(v.Valid)
	if err != nil {
		return nil, stageError("metrics", "call_time", err)
	}

	outcomes, err := Bucketize(v.Valid)
	if err != nil {
		return nil, stageError("outcome_buckets", "", err)
	}

	validCount := v.Valid.Len()
	return &types.CallPatternReport{
		HoursWorked:             types.Clock(hours),
		CallTime:                types.Clock(callTime),
		HoursOnCallsPercentage:  HoursOnCallsPercentage(callTime, hours),
		AverageCallsPerHour:     AverageCallsPerHour(validCount, hours),
		TotalValidCases:         validCount,
		DiscountedInvalidCases:  bucket(v.InvalidCount(), rs.Len(), 0),
		InvalidFields:           v.Reasons,
		CompletedSuccessfully:   outcomes.Bucket(OutcomeCompleted),
		WebNudge:                outcomes.Bucket(OutcomeWebNudge),
		AppointmentsForContacts: outcomes.Bucket(OutcomeAppointment),
		Refusals:                outcomes.Bucket(OutcomeRefusal),
		NoContacts:              outcomes.NoContactBucket(),
	}, nil
}
