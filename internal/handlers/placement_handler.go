package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/Placement-Tracker/internal/common"
	"github.com/justsurfingit/Placement-Tracker/internal/dtos"
	"github.com/justsurfingit/Placement-Tracker/internal/logging"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"github.com/justsurfingit/Placement-Tracker/internal/services"
	"go.uber.org/zap"
)

type PlacementHandler struct {
	Placements  *services.PlacementService
	ExportOpts  services.ExportOptions
	HorizonDays int
	Now         func() time.Time
	log         *zap.Logger
}

func NewPlacementHandler(placements *services.PlacementService, export services.ExportOptions, horizonDays int, log *zap.Logger) *PlacementHandler {
	return &PlacementHandler{
		Placements:  placements,
		ExportOpts:  export,
		HorizonDays: horizonDays,
		Now:         time.Now,
		log:         logging.OrNop(log),
	}
}

func toView(p models.Placement) dtos.PlacementView {
	return dtos.PlacementView{
		Placement:           p,
		EligibilityConflict: p.HasEligibilityConflict(),
		ProgressStage:       string(services.ProgressStageOf(p)),
		ProgressPercentage:  services.ProgressPercentage(p),
	}
}

func toViews(records []models.Placement) []dtos.PlacementView {
	out := make([]dtos.PlacementView, len(records))
	for i, p := range records {
		out[i] = toView(p)
	}
	return out
}

func (h *PlacementHandler) session(c *gin.Context) (services.Session, bool) {
	sess, err := h.Placements.Session(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return services.Session{}, false
	}
	return sess, true
}

// records loads the caller's placements; false means the response is written.
func (h *PlacementHandler) records(c *gin.Context) (services.Session, []models.Placement, bool) {
	sess, ok := h.session(c)
	if !ok {
		return sess, nil, false
	}
	records, err := h.Placements.List(c.Request.Context(), sess)
	if err != nil {
		respondError(c, h.log, err)
		return sess, nil, false
	}
	return sess, records, true
}

func (h *PlacementHandler) now(sess services.Session) time.Time {
	return h.Now().In(sess.Location)
}

// List is GET /placements with search, filter and sort query parameters.
func (h *PlacementHandler) List(c *gin.Context) {
	q, err := parseViewQuery(c.Request.URL.Query())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	_, records, ok := h.records(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"placements": toViews(services.ApplyView(records, q))})
}

type boardColumn struct {
	Status     models.Status        `json:"status"`
	Placements []dtos.PlacementView `json:"placements"`
}

func (h *PlacementHandler) Board(c *gin.Context) {
	_, records, ok := h.records(c)
	if !ok {
		return
	}
	groups := services.GroupByStatus(records)
	columns := make([]boardColumn, len(groups))
	for i, g := range groups {
		columns[i] = boardColumn{Status: g.Status, Placements: toViews(g.Placements)}
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

func (h *PlacementHandler) Upcoming(c *gin.Context) {
	fields := map[string]string{}
	days := parseIntParam(c.Request.URL.Query(), "days", h.HorizonDays, fields)
	limit := parseIntParam(c.Request.URL.Query(), "limit", 0, fields)
	if len(fields) > 0 {
		respondError(c, h.log, common.NewValidationError("invalid query parameters", fields))
		return
	}
	sess, records, ok := h.records(c)
	if !ok {
		return
	}
	events := services.UpcomingEvents(records, days, h.now(sess))
	c.JSON(http.StatusOK, gin.H{"events": services.TopEvents(events, limit)})
}

func (h *PlacementHandler) Stats(c *gin.Context) {
	sess, records, ok := h.records(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, services.ComputeStats(records, h.now(sess)))
}

// Export is GET /placements/export. With filtered=true the List query
// parameters select the exported subset.
func (h *PlacementHandler) Export(c *gin.Context) {
	values := c.Request.URL.Query()
	filtered := false
	if raw := values.Get("filtered"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, h.log, common.NewValidationError("invalid query parameters",
				map[string]string{"filtered": "must be true or false"}))
			return
		}
		filtered = v
	}
	q := services.ViewQuery{Sort: services.DefaultSort}
	if filtered {
		var err error
		if q, err = parseViewQuery(values); err != nil {
			respondError(c, h.log, err)
			return
		}
	}
	sess, records, ok := h.records(c)
	if !ok {
		return
	}

	opts := h.ExportOpts
	opts.Location = sess.Location
	var buf bytes.Buffer
	if err := services.WriteCSV(&buf, services.ToTable(services.ApplyView(records, q), opts)); err != nil {
		respondError(c, h.log, err)
		return
	}
	filename := services.ExportFilename(filtered, h.now(sess))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *PlacementHandler) Create(c *gin.Context) {
	var req dtos.PlacementForm
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	p, err := h.Placements.Create(c.Request.Context(), sess, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toView(p))
}

func (h *PlacementHandler) Get(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	p, err := h.Placements.Get(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toView(p))
}

func (h *PlacementHandler) Update(c *gin.Context) {
	var req dtos.PlacementForm
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	p, err := h.Placements.Update(c.Request.Context(), sess, c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toView(p))
}

func (h *PlacementHandler) Delete(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.Placements.Delete(c.Request.Context(), sess, c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PlacementHandler) SetEligibility(c *gin.Context) {
	var req dtos.EligibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	p, err := h.Placements.SetEligibility(c.Request.Context(), sess, c.Param("id"), req.Eligible)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toView(p))
}

func (h *PlacementHandler) SetStatus(c *gin.Context) {
	var req dtos.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	p, err := h.Placements.SetStatus(c.Request.Context(), sess, c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toView(p))
}

func (h *PlacementHandler) BulkStatus(c *gin.Context) {
	var req dtos.BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	res, err := h.Placements.BulkSetStatus(c.Request.Context(), sess, req.IDs, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	resp := dtos.BulkStatusResponse{
		Updated: toViews(res.Updated),
		Skipped: make([]dtos.SkippedPlacement, len(res.Skipped)),
	}
	for i, s := range res.Skipped {
		resp.Skipped[i] = dtos.SkippedPlacement{ID: s.ID, Company: s.Company, Reason: s.Reason}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PlacementHandler) BulkDelete(c *gin.Context) {
	var req dtos.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.Placements.DeleteMany(c.Request.Context(), sess, req.IDs); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Extract is POST /extract. The candidate is returned for review, not saved.
func (h *PlacementHandler) Extract(c *gin.Context) {
	var req dtos.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	candidate, err := h.Placements.Extract(c.Request.Context(), sess, req.EmailText, req.Hint)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidate": candidate})
}

func (h *PlacementHandler) ExtractFollowUp(c *gin.Context) {
	var req dtos.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	candidate, err := h.Placements.ExtractFollowUp(c.Request.Context(), sess, c.Param("id"), req.EmailText)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidate": candidate})
}

func (h *PlacementHandler) CreateFromCandidate(c *gin.Context) {
	var req dtos.CandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	p, err := h.Placements.CreateFromCandidate(c.Request.Context(), sess, req.Candidate)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toView(p))
}

func (h *PlacementHandler) ApplyFollowUp(c *gin.Context) {
	var req dtos.CandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	p, err := h.Placements.ApplyFollowUp(c.Request.Context(), sess, c.Param("id"), req.Candidate)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toView(p))
}
