package services

import (
	"net/mail"
	"strings"

	"github.com/justsurfingit/Placement-Tracker/internal/models"
)

type MatcherService struct{}

func NewMatcherService() *MatcherService {
	return &MatcherService{}
}

// FindPlacement matches an email to a tracked placement by company name.
// Rejected and withdrawn placements are not considered. records is expected
// newest first, so the most recent placement of a company wins.
func (s *MatcherService) FindPlacement(subject, rawSender string, records []models.Placement) *models.Placement {
	// "Acme Recruiting <jobs@acme.com>" -> name="acme recruiting", addr="jobs@acme.com"
	senderName := ""
	senderAddr := ""
	if parsed, err := mail.ParseAddress(rawSender); err == nil {
		senderName = strings.ToLower(parsed.Name)
		senderAddr = strings.ToLower(parsed.Address)
	} else {
		senderAddr = strings.ToLower(rawSender)
	}
	senderDomain := ""
	if parts := strings.Split(senderAddr, "@"); len(parts) == 2 {
		senderDomain = parts[1]
	}
	subjectLower := strings.ToLower(subject)

	for i := range records {
		p := &records[i]
		if p.Status == models.StatusRejected || p.Status == models.StatusWithdrawn {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(p.CompanyName))
		// Very short names ("X", "Go") would match almost anything.
		if len(name) < 3 {
			continue
		}
		if strings.Contains(subjectLower, name) {
			return p
		}
		if senderName != "" && strings.Contains(senderName, name) {
			return p
		}
		// Domains have no spaces: "Tata Consultancy" should still match tataconsultancy.com.
		if senderDomain != "" && strings.Contains(senderDomain, strings.ReplaceAll(name, " ", "")) {
			return p
		}
	}
	return nil
}
