package services

import (
	"math"
	"slices"
	"time"

	"github.com/justsurfingit/Placement-Tracker/internal/models"
)

const DefaultHorizonDays = 7

type Event struct {
	PlacementID   string           `json:"placement_id"`
	Company       string           `json:"company"`
	Kind          models.RoundKind `json:"kind"`
	Slot          int              `json:"slot"`
	Description   string           `json:"description"`
	Date          models.Date      `json:"date"`
	Time          string           `json:"time,omitempty"`
	DaysRemaining int              `json:"days_remaining"`
}

// UpcomingEvents lists the dated tests and interviews that fall within
// horizonDays of now. Only records the user is eligible for and that are
// still active contribute. Events are ordered by days remaining.
func UpcomingEvents(records []models.Placement, horizonDays int, now time.Time) []Event {
	events := []Event{}
	for _, p := range records {
		if !isActiveForEvents(p) {
			continue
		}
		for i, slot := range p.Tests {
			if ev, ok := slotEvent(p, models.RoundTest, i, slot, horizonDays, now); ok {
				events = append(events, ev)
			}
		}
		for i, slot := range p.Interviews {
			if ev, ok := slotEvent(p, models.RoundInterview, i, slot, horizonDays, now); ok {
				events = append(events, ev)
			}
		}
	}
	slices.SortStableFunc(events, func(a, b Event) int {
		return a.DaysRemaining - b.DaysRemaining
	})
	return events
}

// TopEvents returns the first n events, or all of them when n is not positive.
func TopEvents(events []Event, n int) []Event {
	if n <= 0 || n >= len(events) {
		return events
	}
	return events[:n]
}

func isActiveForEvents(p models.Placement) bool {
	return p.Eligible == models.EligibilityYes &&
		p.Status != models.StatusRejected &&
		p.Status != models.StatusWithdrawn
}

func slotEvent(p models.Placement, kind models.RoundKind, i int, slot models.RoundSlot, horizonDays int, now time.Time) (Event, bool) {
	if !slot.IsSet() || slot.Date.IsZero() {
		return Event{}, false
	}
	days := DaysUntil(slot.Date, now)
	if days < 0 || days > horizonDays {
		return Event{}, false
	}
	return Event{
		PlacementID:   p.ID,
		Company:       p.CompanyName,
		Kind:          kind,
		Slot:          i + 1,
		Description:   slot.Description,
		Date:          slot.Date,
		Time:          slot.Time,
		DaysRemaining: days,
	}, true
}

// DaysUntil is the ceiling of the days between now and local midnight of d.
func DaysUntil(d models.Date, now time.Time) int {
	diff := d.In(now.Location()).Sub(now)
	return int(math.Ceil(diff.Hours() / 24))
}
