package services

import (
	"fmt"

	"github.com/justsurfingit/Placement-Tracker/internal/common"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
)

// ReconcileEligibility returns current with its eligibility set to proposed and
// its status adjusted so that a not-eligible record is always Not Eligible.
// Records that already violate the rule are left alone until they are mutated.
func ReconcileEligibility(current models.Placement, proposed models.Eligibility) models.Placement {
	next := current
	switch proposed {
	case models.EligibilityNo:
		next.Status = models.StatusNotEligible
	case models.EligibilityYes:
		if current.Status == models.StatusNotEligible {
			next.Status = models.StatusApplied
		}
	}
	next.Eligible = proposed
	return next
}

// CheckStatusChange gates every path that writes a status.
func CheckStatusChange(current models.Placement, next models.Status) error {
	if !next.Valid() {
		return common.NewValidationError("invalid status", map[string]string{
			"status": fmt.Sprintf("unknown status %q", next),
		})
	}
	if current.Eligible == models.EligibilityNo && next != models.StatusNotEligible {
		return common.NewError(common.CodeInvariant,
			fmt.Sprintf("%s is marked not eligible; status can only be %q", current.CompanyName, models.StatusNotEligible), nil)
	}
	return nil
}
