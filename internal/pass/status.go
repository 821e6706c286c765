package pass

// Stage identifies an approval authority. USB (internal security bureau)
// reviews first, AS (administrative service) second.
type Stage string

const (
	StageUSB Stage = "USB"
	StageAS  Stage = "AS"
)

func (s Stage) Valid() bool { return s == StageUSB || s == StageAS }

// Status is the lifecycle state of a request or of a single request person.
// ISSUED and CLOSED apply to requests only.
type Status string

const (
	StatusPendingUSB  Status = "PENDING_USB"
	StatusApprovedUSB Status = "APPROVED_USB"
	StatusDeclinedUSB Status = "DECLINED_USB"
	StatusPendingAS   Status = "PENDING_AS"
	StatusApprovedAS  Status = "APPROVED_AS"
	StatusDeclinedAS  Status = "DECLINED_AS"
	StatusIssued      Status = "ISSUED"
	StatusClosed      Status = "CLOSED"
)

var requestStatuses = map[Status]bool{
	StatusPendingUSB:  true,
	StatusApprovedUSB: true,
	StatusDeclinedUSB: true,
	StatusPendingAS:   true,
	StatusApprovedAS:  true,
	StatusDeclinedAS:  true,
	StatusIssued:      true,
	StatusClosed:      true,
}

func (s Status) Valid() bool { return requestStatuses[s] }

// ValidForPerson reports whether the status may appear on a request person.
func (s Status) ValidForPerson() bool {
	return s.Valid() && s != StatusIssued && s != StatusClosed
}

// Declined reports whether the status is a per-person terminal decline.
func (s Status) Declined() bool {
	return s == StatusDeclinedUSB || s == StatusDeclinedAS
}

// stageAllowed lists the request statuses under which an authority of the
// given stage may act, for bulk and individual operations alike.
var stageAllowed = map[Stage][]Status{
	StageUSB: {StatusPendingUSB, StatusApprovedUSB, StatusDeclinedUSB},
	StageAS:  {StatusApprovedUSB, StatusPendingAS, StatusApprovedAS, StatusDeclinedAS},
}

// StageAllows reports whether a request in the given status is actionable by
// the given stage authority.
func StageAllows(stage Stage, s Status) bool {
	for _, allowed := range stageAllowed[stage] {
		if s == allowed {
			return true
		}
	}
	return false
}

// Pending returns the entry status for the given stage.
func (s Stage) Pending() Status {
	if s == StageUSB {
		return StatusPendingUSB
	}
	return StatusPendingAS
}

// Approved returns the per-person approval status for the given stage.
func (s Stage) Approved() Status {
	if s == StageUSB {
		return StatusApprovedUSB
	}
	return StatusApprovedAS
}

// Declined returns the decline status for the given stage.
func (s Stage) Declined() Status {
	if s == StageUSB {
		return StatusDeclinedUSB
	}
	return StatusDeclinedAS
}

// Duration distinguishes one-day passes from long-term ones.
type Duration string

const (
	DurationShortTerm Duration = "SHORT_TERM"
	DurationLongTerm  Duration = "LONG_TERM"
)

func (d Duration) Valid() bool { return d == DurationShortTerm || d == DurationLongTerm }

// Nationality classifies a visitor for routing purposes.
type Nationality string

const (
	NationalityLocal   Nationality = "LOCAL"
	NationalityForeign Nationality = "FOREIGN"
)

func (n Nationality) Valid() bool { return n == NationalityLocal || n == NationalityForeign }
