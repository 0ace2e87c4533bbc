package services

import (
	"time"

	"github.com/justsurfingit/Placement-Tracker/internal/models"
)

func placement(id, company string, opts ...func(*models.Placement)) models.Placement {
	p := models.NewPlacement()
	p.ID = id
	p.OwnerID = "user-1"
	p.CompanyName = company
	p.CreatedAt = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	p.UpdatedAt = p.CreatedAt
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func withStatus(s models.Status) func(*models.Placement) {
	return func(p *models.Placement) { p.Status = s }
}

func withEligible(e models.Eligibility) func(*models.Placement) {
	return func(p *models.Placement) { p.Eligible = e }
}

func withCTC(v float64) func(*models.Placement) {
	return func(p *models.Placement) { p.CTC = &v }
}

func withLocation(loc string) func(*models.Placement) {
	return func(p *models.Placement) { p.Location = loc }
}

func withCreated(t time.Time) func(*models.Placement) {
	return func(p *models.Placement) { p.CreatedAt = t }
}

func withDeadline(d models.Date) func(*models.Placement) {
	return func(p *models.Placement) { p.RegistrationDeadline = d }
}

func withTest(i int, desc string, d models.Date) func(*models.Placement) {
	return func(p *models.Placement) {
		p.Tests[i].Description = desc
		p.Tests[i].Date = d
	}
}

func withInterview(i int, desc string, d models.Date) func(*models.Placement) {
	return func(p *models.Placement) {
		p.Interviews[i].Description = desc
		p.Interviews[i].Date = d
	}
}

func ids(records []models.Placement) []string {
	out := make([]string, len(records))
	for i, p := range records {
		out[i] = p.ID
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
