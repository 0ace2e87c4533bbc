package dtos

import (
	"time"

	"github.com/justsurfingit/Placement-Tracker/internal/models"
)

// PlacementForm is the full form submission used for create and edit.
// Every field is written; omitted fields are cleared on edit.
type PlacementForm struct {
	CompanyName              string             `json:"company_name" binding:"required"`
	Role                     string             `json:"role"`
	CTC                      *float64           `json:"ctc" binding:"omitempty,gte=0"`
	Location                 string             `json:"location"`
	EligibilityCriteria      string             `json:"eligibility"`
	RegistrationDeadline     models.Date        `json:"registration_deadline"`
	RegistrationDeadlineTime string             `json:"registration_deadline_time"`
	RegistrationLink         string             `json:"registration_link"`
	Eligible                 models.Eligibility `json:"are_you_eligible"`

	// Optional; an empty status keeps the current one (Applied on create).
	Status models.Status `json:"status"`

	Tests      [models.MaxTestRounds]models.RoundSlot      `json:"tests"`
	Interviews [models.MaxInterviewRounds]models.RoundSlot `json:"interviews"`
}

// ApplyTo copies the descriptive fields and rounds onto p. Eligibility and
// status are left to the caller so they can go through the reconciler.
func (f PlacementForm) ApplyTo(p *models.Placement) {
	p.CompanyName = f.CompanyName
	p.Role = f.Role
	p.CTC = nil
	if f.CTC != nil {
		ctc := *f.CTC
		p.CTC = &ctc
	}
	p.Location = f.Location
	p.EligibilityCriteria = f.EligibilityCriteria
	p.RegistrationDeadline = f.RegistrationDeadline
	p.RegistrationDeadlineTime = f.RegistrationDeadlineTime
	p.RegistrationLink = f.RegistrationLink
	p.Tests = f.Tests
	p.Interviews = f.Interviews
}

type EligibilityRequest struct {
	Eligible models.Eligibility `json:"are_you_eligible"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type BulkStatusRequest struct {
	IDs    []string `json:"ids" binding:"required,min=1"`
	Status string   `json:"status" binding:"required"`
}

type BulkDeleteRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

type ExtractRequest struct {
	EmailText string `json:"email_text" binding:"required"`
	Hint      string `json:"hint"`
}

// CandidateRequest carries a candidate the user has reviewed.
type CandidateRequest struct {
	Candidate models.Candidate `json:"candidate"`
}

// PlacementView is a placement plus the display-only values derived from it.
type PlacementView struct {
	models.Placement
	EligibilityConflict bool   `json:"eligibility_conflict"`
	ProgressStage       string `json:"progress_stage"`
	ProgressPercentage  int    `json:"progress_percentage"`
}

type SkippedPlacement struct {
	ID      string `json:"id"`
	Company string `json:"company_name,omitempty"`
	Reason  string `json:"reason"`
}

type BulkStatusResponse struct {
	Updated []PlacementView    `json:"updated"`
	Skipped []SkippedPlacement `json:"skipped"`
}

type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}
