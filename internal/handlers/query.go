package handlers

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/justsurfingit/Placement-Tracker/internal/common"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"github.com/justsurfingit/Placement-Tracker/internal/services"
)

// parseViewQuery reads search, filter and sort parameters of GET /placements.
// Every malformed parameter is reported at once.
func parseViewQuery(values url.Values) (services.ViewQuery, error) {
	q := services.ViewQuery{
		Search: strings.TrimSpace(values.Get("search")),
		Sort:   services.DefaultSort,
	}
	fields := map[string]string{}

	for _, raw := range values["status"] {
		st, ok := models.ParseStatus(raw)
		if !ok {
			fields["status"] = "unknown status " + strconv.Quote(raw)
			continue
		}
		q.Filters.Statuses = append(q.Filters.Statuses, st)
	}
	for _, loc := range values["location"] {
		if loc = strings.TrimSpace(loc); loc != "" {
			q.Filters.Locations = append(q.Filters.Locations, loc)
		}
	}

	q.Filters.CTCMin = parseFloatParam(values, "ctc_min", fields)
	q.Filters.CTCMax = parseFloatParam(values, "ctc_max", fields)
	q.Filters.DeadlineFrom = parseDateParam(values, "deadline_from", fields)
	q.Filters.DeadlineTo = parseDateParam(values, "deadline_to", fields)
	q.Filters.HasDeadline = parseBoolParam(values, "has_deadline", fields)
	q.Filters.HasInterview = parseBoolParam(values, "has_interview", fields)
	q.Filters.HasTest = parseBoolParam(values, "has_test", fields)

	if raw := values.Get("sort"); raw != "" {
		field, ok := services.ParseSortField(raw)
		if ok {
			q.Sort = services.SortSpec{Field: field}
		} else {
			fields["sort"] = "unknown sort field " + strconv.Quote(raw)
		}
	}
	switch strings.ToLower(values.Get("order")) {
	case "":
	case "asc":
		q.Sort.Desc = false
	case "desc":
		q.Sort.Desc = true
	default:
		fields["order"] = "must be asc or desc"
	}

	if len(fields) > 0 {
		return services.ViewQuery{}, common.NewValidationError("invalid query parameters", fields)
	}
	return q, nil
}

func parseFloatParam(values url.Values, key string, fields map[string]string) *float64 {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		fields[key] = "must be a non-negative number"
		return nil
	}
	return &v
}

func parseDateParam(values url.Values, key string, fields map[string]string) models.Date {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return models.Date{}
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		fields[key] = "must be a YYYY-MM-DD date"
	}
	return d
}

func parseBoolParam(values url.Values, key string, fields map[string]string) *bool {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		fields[key] = "must be true or false"
		return nil
	}
	return &v
}

func parseIntParam(values url.Values, key string, fallback int, fields map[string]string) int {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		fields[key] = "must be a non-negative integer"
		return fallback
	}
	return v
}
