package services

import (
	"cmp"
	"slices"
	"strings"

	"github.com/justsurfingit/Placement-Tracker/internal/models"
)

type SortField string

const (
	SortCompanyName          SortField = "company_name"
	SortStatus               SortField = "status"
	SortCTC                  SortField = "ctc"
	SortCreatedAt            SortField = "created_at"
	SortRegistrationDeadline SortField = "registration_deadline"
)

func ParseSortField(s string) (SortField, bool) {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case SortCompanyName, SortStatus, SortCTC, SortCreatedAt, SortRegistrationDeadline:
		return f, true
	}
	return "", false
}

type SortSpec struct {
	Field SortField
	Desc  bool
}

// DefaultSort shows the newest records first.
var DefaultSort = SortSpec{Field: SortCreatedAt, Desc: true}

// FilterSet holds the independent filters of a view. Zero values match everything.
type FilterSet struct {
	Statuses     []models.Status
	CTCMin       *float64
	CTCMax       *float64
	DeadlineFrom models.Date
	DeadlineTo   models.Date
	Locations    []string
	HasDeadline  *bool
	HasInterview *bool
	HasTest      *bool
}

type ViewQuery struct {
	Search  string
	Filters FilterSet
	Sort    SortSpec
}

// ApplyView returns the records matching q in q's order. The input is not modified.
func ApplyView(records []models.Placement, q ViewQuery) []models.Placement {
	term := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]models.Placement, 0, len(records))
	for _, p := range records {
		if matchesSearch(p, term) && q.Filters.Match(p) {
			out = append(out, p)
		}
	}
	SortPlacements(out, q.Sort)
	return out
}

func matchesSearch(p models.Placement, term string) bool {
	if term == "" {
		return true
	}
	for _, field := range []string{p.CompanyName, p.Role, string(p.Status), p.Location} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Match reports whether p passes every filter in f.
func (f FilterSet) Match(p models.Placement) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, p.Status) {
		return false
	}
	if f.CTCMin != nil || f.CTCMax != nil {
		if p.CTC == nil {
			return false
		}
		if f.CTCMin != nil && *p.CTC < *f.CTCMin {
			return false
		}
		if f.CTCMax != nil && *p.CTC > *f.CTCMax {
			return false
		}
	}
	if !f.DeadlineFrom.IsZero() || !f.DeadlineTo.IsZero() {
		if !p.HasDeadline() {
			return false
		}
		if !f.DeadlineFrom.IsZero() && p.RegistrationDeadline.Compare(f.DeadlineFrom) < 0 {
			return false
		}
		if !f.DeadlineTo.IsZero() && p.RegistrationDeadline.Compare(f.DeadlineTo) > 0 {
			return false
		}
	}
	if len(f.Locations) > 0 && !slices.Contains(f.Locations, p.Location) {
		return false
	}
	return matchFlag(f.HasDeadline, p.HasDeadline()) &&
		matchFlag(f.HasInterview, p.HasInterview()) &&
		matchFlag(f.HasTest, p.HasTest())
}

func matchFlag(want *bool, got bool) bool {
	return want == nil || *want == got
}

// SortPlacements sorts in place. Ties keep their input order.
func SortPlacements(records []models.Placement, spec SortSpec) {
	if spec.Field == "" {
		spec = DefaultSort
	}
	compare := comparerFor(spec.Field)
	slices.SortStableFunc(records, func(a, b models.Placement) int {
		if spec.Desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

func comparerFor(field SortField) func(a, b models.Placement) int {
	switch field {
	case SortCompanyName:
		return func(a, b models.Placement) int {
			return cmp.Compare(strings.ToLower(a.CompanyName), strings.ToLower(b.CompanyName))
		}
	case SortStatus:
		return func(a, b models.Placement) int {
			return cmp.Compare(a.Status, b.Status)
		}
	case SortCTC:
		return func(a, b models.Placement) int {
			return compareCTC(a.CTC, b.CTC)
		}
	case SortRegistrationDeadline:
		return func(a, b models.Placement) int {
			return a.RegistrationDeadline.Compare(b.RegistrationDeadline)
		}
	default:
		return func(a, b models.Placement) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
}

// compareCTC puts records without a CTC below every known value.
func compareCTC(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return cmp.Compare(*a, *b)
}

type StatusGroup struct {
	Status     models.Status      `json:"status"`
	Placements []models.Placement `json:"placements"`
}

// GroupByStatus partitions records into the six board columns in board order.
// Records keep their relative order inside a column.
func GroupByStatus(records []models.Placement) []StatusGroup {
	groups := make([]StatusGroup, len(models.Statuses))
	index := make(map[models.Status]int, len(models.Statuses))
	for i, st := range models.Statuses {
		groups[i] = StatusGroup{Status: st, Placements: []models.Placement{}}
		index[st] = i
	}
	for _, p := range records {
		if i, ok := index[p.Status]; ok {
			groups[i].Placements = append(groups[i].Placements, p)
		}
	}
	return groups
}
