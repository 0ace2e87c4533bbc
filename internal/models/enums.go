package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

type Status string

const (
	StatusApplied     Status = "Applied"
	StatusInProgress  Status = "In Progress"
	StatusSelected    Status = "Selected"
	StatusRejected    Status = "Rejected"
	StatusWithdrawn   Status = "Withdrawn"
	StatusNotEligible Status = "Not Eligible"
)

// Statuses lists every status in board order.
var Statuses = []Status{
	StatusApplied,
	StatusInProgress,
	StatusSelected,
	StatusRejected,
	StatusWithdrawn,
	StatusNotEligible,
}

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// ParseStatus maps loose labels ("in_progress", "NOT ELIGIBLE", "offer") onto a Status.
func ParseStatus(s string) (Status, bool) {
	key := squash(s)
	switch key {
	case "applied":
		return StatusApplied, true
	case "inprogress", "ongoing", "shortlisted":
		return StatusInProgress, true
	case "selected", "offer", "offered", "accepted":
		return StatusSelected, true
	case "rejected", "notselected":
		return StatusRejected, true
	case "withdrawn", "withdraw":
		return StatusWithdrawn, true
	case "noteligible", "ineligible":
		return StatusNotEligible, true
	}
	return "", false
}

type RoundKind string

const (
	RoundTest      RoundKind = "Test"
	RoundInterview RoundKind = "Interview"
)

type RoundResult string

const (
	ResultPending    RoundResult = "pending"
	ResultPassed     RoundResult = "Passed"
	ResultFailed     RoundResult = "Failed"
	ResultWaitlisted RoundResult = "Waitlisted"
	ResultSelected   RoundResult = "Selected"
	ResultRejected   RoundResult = "Rejected"
)

// ValidFor reports whether r is one of the results allowed for the kind of round.
func (r RoundResult) ValidFor(kind RoundKind) bool {
	switch r {
	case ResultPending, ResultWaitlisted:
		return true
	case ResultPassed, ResultFailed:
		return kind == RoundTest
	case ResultSelected, ResultRejected:
		return kind == RoundInterview
	}
	return false
}

// ParseRoundResult normalizes a free-text result for the given kind of round.
func ParseRoundResult(kind RoundKind, s string) (RoundResult, bool) {
	switch squash(s) {
	case "pending", "awaited", "awaiting":
		return ResultPending, true
	case "waitlisted", "waitlist", "onhold":
		return ResultWaitlisted, true
	case "passed", "pass", "cleared", "qualified", "shortlisted":
		if kind == RoundTest {
			return ResultPassed, true
		}
		return ResultSelected, true
	case "failed", "fail", "notqualified":
		if kind == RoundTest {
			return ResultFailed, true
		}
		return ResultRejected, true
	case "selected":
		if kind == RoundInterview {
			return ResultSelected, true
		}
		return ResultPassed, true
	case "rejected", "notselected":
		if kind == RoundInterview {
			return ResultRejected, true
		}
		return ResultFailed, true
	}
	return "", false
}

// Eligibility is a tri-state: eligible, not eligible, or not known yet.
type Eligibility int8

const (
	EligibilityUnknown Eligibility = iota
	EligibilityYes
	EligibilityNo
)

func EligibilityFromBool(b *bool) Eligibility {
	if b == nil {
		return EligibilityUnknown
	}
	if *b {
		return EligibilityYes
	}
	return EligibilityNo
}

func (e Eligibility) Bool() *bool {
	switch e {
	case EligibilityYes:
		v := true
		return &v
	case EligibilityNo:
		v := false
		return &v
	}
	return nil
}

func (e Eligibility) Label() string {
	switch e {
	case EligibilityYes:
		return "Yes"
	case EligibilityNo:
		return "No"
	}
	return "Not Sure"
}

func (e Eligibility) String() string {
	return e.Label()
}

func ParseEligibility(s string) (Eligibility, bool) {
	switch squash(s) {
	case "true", "t", "yes", "eligible", "y":
		return EligibilityYes, true
	case "false", "f", "no", "noteligible", "ineligible", "n":
		return EligibilityNo, true
	case "", "null", "unknown", "notsure", "unsure", "maybe":
		return EligibilityUnknown, true
	}
	return EligibilityUnknown, false
}

func (e Eligibility) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Bool())
}

func (e *Eligibility) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err == nil {
		*e = EligibilityFromBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("eligibility must be true, false or null")
	}
	if IsPlaceholder(s) {
		*e = EligibilityUnknown
		return nil
	}
	parsed, ok := ParseEligibility(s)
	if !ok {
		return fmt.Errorf("unknown eligibility %q", s)
	}
	*e = parsed
	return nil
}

func (e Eligibility) GormDataType() string {
	return "boolean"
}

func (e Eligibility) Value() (driver.Value, error) {
	if b := e.Bool(); b != nil {
		return *b, nil
	}
	return nil, nil
}

func (e *Eligibility) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*e = EligibilityUnknown
	case bool:
		*e = EligibilityFromBool(&v)
	case string:
		parsed, _ := ParseEligibility(v)
		*e = parsed
	case []byte:
		parsed, _ := ParseEligibility(string(v))
		*e = parsed
	default:
		return fmt.Errorf("cannot scan %T into Eligibility", src)
	}
	return nil
}

func squash(s string) string {
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}
