package services

import (
	"errors"
	"strings"
	"time"

	"github.com/justsurfingit/Placement-Tracker/internal/common"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
)

type MergeMode int

const (
	// MergeCreate builds a new record from defaults and the candidate.
	MergeCreate MergeMode = iota
	// MergeFollowUp overlays the present candidate fields onto an existing record.
	MergeFollowUp
)

func (m MergeMode) String() string {
	if m == MergeFollowUp {
		return "follow-up"
	}
	return "create"
}

// present returns the trimmed value, or "" when it is blank or a placeholder.
func present(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || models.IsPlaceholder(s) {
		return ""
	}
	return s
}

// SanitizeCandidate drops placeholder text and labels that do not map to a
// known status or round result.
func SanitizeCandidate(c models.Candidate) models.Candidate {
	out := c
	out.CompanyName = present(c.CompanyName)
	out.Role = present(c.Role)
	out.Location = present(c.Location)
	out.EligibilityCriteria = present(c.EligibilityCriteria)
	out.RegistrationDeadlineTime = present(c.RegistrationDeadlineTime)
	out.RegistrationLink = present(c.RegistrationLink)
	if c.CTC != nil && *c.CTC < 0 {
		out.CTC = nil
	}
	out.Status = ""
	if label := present(string(c.Status)); label != "" {
		if st, ok := models.ParseStatus(label); ok {
			out.Status = st
		}
	}
	for i := range out.Tests {
		out.Tests[i] = sanitizeSlot(c.Tests[i], models.RoundTest)
	}
	for i := range out.Interviews {
		out.Interviews[i] = sanitizeSlot(c.Interviews[i], models.RoundInterview)
	}
	return out
}

func sanitizeSlot(s models.RoundSlot, kind models.RoundKind) models.RoundSlot {
	out := models.RoundSlot{
		Description: present(s.Description),
		Date:        s.Date,
		Time:        present(s.Time),
	}
	if label := present(string(s.Result)); label != "" {
		if r, ok := models.ParseRoundResult(kind, label); ok {
			out.Result = r
		}
	}
	return out
}

// MergeCandidate combines a candidate with an existing record (follow-up) or
// with the record defaults (create). The returned record is ready to persist.
func MergeCandidate(existing *models.Placement, c models.Candidate, mode MergeMode, now time.Time) (models.Placement, error) {
	c = SanitizeCandidate(c)

	var merged models.Placement
	switch mode {
	case MergeCreate:
		if existing != nil {
			return models.Placement{}, common.NewError(common.CodeInternal, "create merge called with an existing record", nil)
		}
		merged = models.NewPlacement()
		merged.CreatedAt = now
	case MergeFollowUp:
		if existing == nil {
			return models.Placement{}, common.NewError(common.CodeNotFound, "follow-up merge needs an existing placement", nil)
		}
		merged = *existing
		if existing.CTC != nil {
			ctc := *existing.CTC
			merged.CTC = &ctc
		}
	default:
		return models.Placement{}, errors.New("unknown merge mode")
	}

	overlay(&merged, c)

	if c.Eligible != models.EligibilityUnknown {
		merged = ReconcileEligibility(merged, c.Eligible)
	}
	if c.Status != "" && CheckStatusChange(merged, c.Status) == nil {
		merged.Status = c.Status
	}

	fillPendingResults(&merged)
	merged.UpdatedAt = now

	if err := merged.Validate(); err != nil {
		return models.Placement{}, err
	}
	return merged, nil
}

// overlay copies every present candidate field; each field is decided on its own.
func overlay(p *models.Placement, c models.Candidate) {
	setString(&p.CompanyName, c.CompanyName)
	setString(&p.Role, c.Role)
	if c.CTC != nil {
		ctc := *c.CTC
		p.CTC = &ctc
	}
	setString(&p.Location, c.Location)
	setString(&p.EligibilityCriteria, c.EligibilityCriteria)
	if !c.RegistrationDeadline.IsZero() {
		p.RegistrationDeadline = c.RegistrationDeadline
	}
	setString(&p.RegistrationDeadlineTime, c.RegistrationDeadlineTime)
	setString(&p.RegistrationLink, c.RegistrationLink)

	for i := range p.Tests {
		overlaySlot(&p.Tests[i], c.Tests[i])
	}
	for i := range p.Interviews {
		overlaySlot(&p.Interviews[i], c.Interviews[i])
	}
}

func overlaySlot(dst *models.RoundSlot, src models.RoundSlot) {
	setString(&dst.Description, src.Description)
	if !src.Date.IsZero() {
		dst.Date = src.Date
	}
	setString(&dst.Time, src.Time)
	if src.Result != "" {
		dst.Result = src.Result
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func fillPendingResults(p *models.Placement) {
	for i := range p.Tests {
		if p.Tests[i].Result == "" {
			p.Tests[i].Result = models.ResultPending
		}
	}
	for i := range p.Interviews {
		if p.Interviews[i].Result == "" {
			p.Interviews[i].Result = models.ResultPending
		}
	}
}
