package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Candidate is an untrusted, sparse subset of a Placement, usually produced
// by AI extraction. Zero values mean "absent". It has no identity.
type Candidate struct {
	CompanyName              string   `json:"company_name"`
	Role                     string   `json:"role"`
	CTC                      *float64 `json:"ctc"`
	Location                 string   `json:"location"`
	EligibilityCriteria      string   `json:"eligibility"`
	RegistrationDeadline     Date     `json:"registration_deadline"`
	RegistrationDeadlineTime string   `json:"registration_deadline_time"`
	RegistrationLink         string   `json:"registration_link"`

	Eligible Eligibility `json:"are_you_eligible"`
	Status   Status      `json:"status"`

	Tests      [MaxTestRounds]RoundSlot      `json:"tests"`
	Interviews [MaxInterviewRounds]RoundSlot `json:"interviews"`
}

// Placeholder phrases that extraction models emit instead of leaving a field empty.
var placeholders = map[string]struct{}{
	"not specified": {},
	"not mentioned": {},
	"n/a":           {},
	"na":            {},
	"null":          {},
	"none":          {},
	"unknown":       {},
	"tbd":           {},
	"-":             {},
}

// IsPlaceholder reports whether s is a stand-in for "no value".
func IsPlaceholder(s string) bool {
	_, ok := placeholders[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// UnmarshalJSON accepts the CTC as a number, a numeric string, or a
// placeholder meaning absent.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	type plain Candidate
	aux := struct {
		*plain
		CTC json.RawMessage `json:"ctc"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ctc, err := parseLooseNumber(aux.CTC)
	if err != nil {
		return fmt.Errorf("ctc: %w", err)
	}
	c.CTC = ctc
	return nil
}

func parseLooseNumber(raw json.RawMessage) (*float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return &v, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("must be a number")
	}
	s = strings.TrimSpace(s)
	if s == "" || IsPlaceholder(s) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("must be a number, got %q", s)
	}
	return &v, nil
}
