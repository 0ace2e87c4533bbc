package dtos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/justsurfingit/Placement-Tracker/internal/models"
)

// FlexString accepts any JSON scalar. Models answer "ctc": 12 as often as "ctc": "12 LPA".
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexString(strconv.FormatBool(b))
		return nil
	}
	// Nested objects and arrays are not part of the payload; keep them out of the record.
	*f = ""
	return nil
}

// ExtractionPayload is the flat JSON object returned by the extraction prompt:
// company_name, role, ctc, ..., test_1, test_1_date, test_1_time, result_1,
// interview_1, interview_1_date, interview_1_time, interview_result_1, ...
type ExtractionPayload map[string]FlexString

func DecodeExtractionPayload(raw []byte) (ExtractionPayload, error) {
	var p ExtractionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode extraction payload: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("decode extraction payload: empty object")
	}
	return p, nil
}

func (p ExtractionPayload) get(key string) string {
	return strings.TrimSpace(string(p[key]))
}

// ToCandidate converts the payload into a candidate. Values that cannot be
// parsed (dates, times, CTC) are left absent rather than guessed.
func (p ExtractionPayload) ToCandidate() models.Candidate {
	c := models.Candidate{
		CompanyName:              p.get("company_name"),
		Role:                     p.get("role"),
		CTC:                      ParseCTC(p.get("ctc")),
		Location:                 p.get("location"),
		EligibilityCriteria:      p.get("eligibility"),
		RegistrationDeadline:     ParseLooseDate(p.get("registration_deadline")),
		RegistrationDeadlineTime: NormalizeTime(p.get("registration_deadline_time")),
		RegistrationLink:         p.get("registration_link"),
		Status:                   models.Status(p.get("status")),
	}
	if e, ok := models.ParseEligibility(p.get("are_you_eligible")); ok {
		c.Eligible = e
	}
	for i := range c.Tests {
		n := i + 1
		c.Tests[i] = models.RoundSlot{
			Description: p.get(fmt.Sprintf("test_%d", n)),
			Date:        ParseLooseDate(p.get(fmt.Sprintf("test_%d_date", n))),
			Time:        NormalizeTime(p.get(fmt.Sprintf("test_%d_time", n))),
			Result:      models.RoundResult(p.get(fmt.Sprintf("result_%d", n))),
		}
	}
	for i := range c.Interviews {
		n := i + 1
		c.Interviews[i] = models.RoundSlot{
			Description: p.get(fmt.Sprintf("interview_%d", n)),
			Date:        ParseLooseDate(p.get(fmt.Sprintf("interview_%d_date", n))),
			Time:        NormalizeTime(p.get(fmt.Sprintf("interview_%d_time", n))),
			Result:      models.RoundResult(p.get(fmt.Sprintf("interview_result_%d", n))),
		}
	}
	return c
}

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// ParseCTC reads the first number in free text such as "12 LPA", "₹ 8.5 lakh"
// or "12,00,000". Plain rupee amounts are converted to lakhs per annum.
func ParseCTC(s string) *float64 {
	match := numberPattern.FindString(s)
	if match == "" {
		return nil
	}
	// Thousands separators ("12,00,000") versus a decimal comma ("8,5").
	if strings.Count(match, ",") == 1 && !strings.Contains(match, ".") && len(match)-strings.Index(match, ",") <= 3 {
		match = strings.Replace(match, ",", ".", 1)
	} else {
		match = strings.ReplaceAll(match, ",", "")
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || v < 0 {
		return nil
	}
	if v >= 100000 {
		v /= 100000
	}
	return &v
}

var looseDateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseLooseDate accepts ISO dates and, failing that, the day-first and
// spelled-out forms recruiters commonly use.
func ParseLooseDate(s string) models.Date {
	if s == "" {
		return models.Date{}
	}
	if d, err := models.ParseDate(s); err == nil {
		return d
	}
	for _, layout := range looseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t)
		}
	}
	return models.Date{}
}

var timeLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM", "3 PM", "3PM", "03:04 PM"}

// NormalizeTime returns s as 24-hour HH:MM, or "" when it is not a time.
func NormalizeTime(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04")
		}
	}
	return ""
}
