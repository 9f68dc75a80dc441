package callpattern

import "github.com/ONSdigital/blaise-export-reporting-tool/internal/types"

// Outcome is the mutually exclusive top-level bucket of a valid dial
type Outcome int

const (
	OutcomeUnclassified Outcome = iota
	OutcomeCompleted
	OutcomeWebNudge
	OutcomeAppointment
	OutcomeRefusal
	OutcomeNoContact
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed_successfully"
	case OutcomeWebNudge:
		return "webnudge"
	case OutcomeAppointment:
		return "appointments_for_contacts"
	case OutcomeRefusal:
		return "refusals"
	case OutcomeNoContact:
		return "no_contacts"
	default:
		return "unclassified"
	}
}

// NoContactReason sub-divides OutcomeNoContact by dial result
type NoContactReason int

const (
	NoContactOther NoContactReason = iota
	NoContactAnswerService
	NoContactBusy
	NoContactDisconnect
	NoContactNoAnswer
)

func (r NoContactReason) String() string {
	switch r {
	case NoContactAnswerService:
		return "answer_service"
	case NoContactBusy:
		return "busy"
	case NoContactDisconnect:
		return "disconnect"
	case NoContactNoAnswer:
		return "no_answer"
	default:
		return "other"
	}
}

var outcomeByStatus = map[string]Outcome{
	types.StatusCompleted:       OutcomeCompleted,
	types.StatusAppointmentMade: OutcomeAppointment,
	types.StatusNonResponse:     OutcomeRefusal,
	types.StatusNoContact:       OutcomeNoContact,
}

var noContactByResult = map[string]NoContactReason{
	types.ResultAnswerService: NoContactAnswerService,
	types.ResultBusy:          NoContactBusy,
	types.ResultDisconnect:    NoContactDisconnect,
	types.ResultNoAnswer:      NoContactNoAnswer,
}

// Classify maps a dial's status and call result to its bucket. A WebNudge
// result takes precedence over every status; the no-contact reason is only
// meaningful when the outcome is OutcomeNoContact.
func Classify(status string, callResult *string) (Outcome, NoContactReason) {
	if callResult != nil && *callResult == types.ResultWebNudge {
		return OutcomeWebNudge, NoContactOther
	}

	outcome, ok := outcomeByStatus[status]
	if !ok {
		return OutcomeUnclassified, NoContactOther
	}
	if outcome != OutcomeNoContact {
		return outcome, NoContactOther
	}

	if callResult == nil {
		return outcome, NoContactOther
	}
	reason, ok := noContactByResult[*callResult]
	if !ok {
		return outcome, NoContactOther
	}
	return outcome, reason
}

// Outcomes holds the bucket counts for a set of valid dials
type Outcomes struct {
	Total       int
	ByOutcome   map[Outcome]int
	ByNoContact map[NoContactReason]int
}

// Bucketize classifies every record and counts each bucket
func Bucketize(rs types.RecordSet) (Outcomes, error) {
	if err := requireColumns(rs, types.ColumnStatus, types.ColumnCallResult); err != nil {
		return Outcomes{}, err
	}

	o := Outcomes{
		Total:       rs.Len(),
		ByOutcome:   make(map[Outcome]int),
		ByNoContact: make(map[NoContactReason]int),
	}
	for _, r := range rs.Records {
		outcome, reason := Classify(r.Status, r.CallResult)
		o.ByOutcome[outcome]++
		if outcome == OutcomeNoContact {
			o.ByNoContact[reason]++
		}
	}
	return o, nil
}

// Bucket returns a top-level bucket over all valid dials. With no valid
// dials the percentage is 0.
func (o Outcomes) Bucket(outcome Outcome) types.Bucket {
	return bucket(o.ByOutcome[outcome], o.Total, 0)
}

// NoContactBucket returns the no-contact bucket with its breakdown. A
// sub-bucket over zero no-contacts reports 100%.
func (o Outcomes) NoContactBucket() types.NoContactBucket {
	noContacts := o.ByOutcome[OutcomeNoContact]
	sub := func(r NoContactReason) types.Bucket {
		return bucket(o.ByNoContact[r], noContacts, 100)
	}
	return types.NoContactBucket{
		Bucket:        o.Bucket(OutcomeNoContact),
		AnswerService: sub(NoContactAnswerService),
		Busy:          sub(NoContactBusy),
		Disconnect:    sub(NoContactDisconnect),
		NoAnswer:      sub(NoContactNoAnswer),
		Other:         sub(NoContactOther),
	}
}
