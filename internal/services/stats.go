package services

import (
	"math"
	"time"

	"github.com/justsurfingit/Placement-Tracker/internal/models"
)

type ProgressStage string

const (
	StageComplete  ProgressStage = "Complete"
	StageRejected  ProgressStage = "Rejected"
	StageWithdrawn ProgressStage = "Withdrawn"
	StageInterview ProgressStage = "Interview Stage"
	StageTest      ProgressStage = "Test Stage"
	StageApplied   ProgressStage = "Applied"
)

func ProgressStageOf(p models.Placement) ProgressStage {
	switch p.Status {
	case models.StatusSelected:
		return StageComplete
	case models.StatusRejected:
		return StageRejected
	case models.StatusWithdrawn:
		return StageWithdrawn
	}
	if p.HasInterview() {
		return StageInterview
	}
	if p.HasTest() {
		return StageTest
	}
	return StageApplied
}

// ProgressPercentage is a rough completion figure for progress bars.
func ProgressPercentage(p models.Placement) int {
	switch p.Status {
	case models.StatusSelected:
		return 100
	case models.StatusRejected, models.StatusWithdrawn:
		return 0
	}
	progress := 20
	if p.HasTest() {
		progress += 30
	}
	if p.HasInterview() {
		progress += 50
	}
	return min(progress, 90)
}

type StatusCount struct {
	Status     models.Status `json:"status"`
	Count      int           `json:"count"`
	Percentage int           `json:"percentage"`
}

type EligibilityCounts struct {
	Eligible    int `json:"eligible"`
	NotEligible int `json:"not_eligible"`
	NotSure     int `json:"not_sure"`
}

type Metric struct {
	Name       string `json:"name"`
	Count      int    `json:"count"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// RoundTally counts set round slots of one kind by result.
type RoundTally struct {
	Kind      models.RoundKind           `json:"kind"`
	Scheduled int                        `json:"scheduled"`
	Completed int                        `json:"completed"`
	ByResult  map[models.RoundResult]int `json:"by_result"`
}

type Stats struct {
	Total             int               `json:"total"`
	ByStatus          []StatusCount     `json:"by_status"`
	Distribution      []StatusCount     `json:"distribution"`
	AverageCTC        *float64          `json:"average_ctc"`
	Eligibility       EligibilityCounts `json:"eligibility"`
	Progress          []Metric          `json:"progress"`
	Tests             RoundTally        `json:"tests"`
	Interviews        RoundTally        `json:"interviews"`
	EligibleCompanies int               `json:"eligible_companies"`
	AvgResponseDays   *int              `json:"avg_response_days"`
}

// ComputeStats reduces the whole collection; nothing is cached between calls.
func ComputeStats(records []models.Placement, now time.Time) Stats {
	total := len(records)
	stats := Stats{
		Total:        total,
		ByStatus:     make([]StatusCount, 0, len(models.Statuses)),
		Distribution: []StatusCount{},
		Tests:        RoundTally{Kind: models.RoundTest, ByResult: map[models.RoundResult]int{}},
		Interviews:   RoundTally{Kind: models.RoundInterview, ByResult: map[models.RoundResult]int{}},
	}

	counts := make(map[models.Status]int, len(models.Statuses))
	var ctcSum float64
	var ctcN, withTests, withInterviews, responseDays, responded int
	for _, p := range records {
		counts[p.Status]++
		if p.CTC != nil {
			ctcSum += *p.CTC
			ctcN++
		}
		switch p.Eligible {
		case models.EligibilityYes:
			stats.Eligibility.Eligible++
		case models.EligibilityNo:
			stats.Eligibility.NotEligible++
		default:
			stats.Eligibility.NotSure++
		}
		if p.HasTest() {
			withTests++
		}
		if p.HasInterview() {
			withInterviews++
		}
		tallyRounds(&stats.Tests, p.Tests[:])
		tallyRounds(&stats.Interviews, p.Interviews[:])
		if p.Status != models.StatusApplied && !p.CreatedAt.IsZero() {
			responseDays += int(math.Ceil(now.Sub(p.CreatedAt).Hours() / 24))
			responded++
		}
	}

	for _, st := range models.Statuses {
		sc := StatusCount{Status: st, Count: counts[st], Percentage: percent(counts[st], total)}
		stats.ByStatus = append(stats.ByStatus, sc)
		if sc.Count > 0 {
			stats.Distribution = append(stats.Distribution, sc)
		}
	}
	if ctcN > 0 {
		avg := ctcSum / float64(ctcN)
		stats.AverageCTC = &avg
	}
	stats.EligibleCompanies = stats.Eligibility.Eligible
	stats.Progress = []Metric{
		metric("Success Rate", counts[models.StatusSelected], total),
		metric("In Progress", counts[models.StatusInProgress], total),
		metric("With Tests", withTests, total),
		metric("With Interviews", withInterviews, total),
	}
	if responded > 0 {
		avg := int(math.Round(float64(responseDays) / float64(responded)))
		stats.AvgResponseDays = &avg
	}
	return stats
}

func tallyRounds(t *RoundTally, slots []models.RoundSlot) {
	for _, slot := range slots {
		if !slot.IsSet() {
			continue
		}
		t.Scheduled++
		if slot.Result != models.ResultPending && slot.Result != "" {
			t.Completed++
		}
		result := slot.Result
		if result == "" {
			result = models.ResultPending
		}
		t.ByResult[result]++
	}
}

func metric(name string, count, total int) Metric {
	return Metric{Name: name, Count: count, Total: total, Percentage: percent(count, total)}
}

func percent(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(total)))
}
