package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/Placement-Tracker/internal/dtos"
	"github.com/justsurfingit/Placement-Tracker/internal/logging"
	"github.com/justsurfingit/Placement-Tracker/internal/services"
	"go.uber.org/zap"
)

type InboxHandler struct {
	Inbox      *services.InboxService
	Placements *services.PlacementService
	log        *zap.Logger
}

func NewInboxHandler(inbox *services.InboxService, placements *services.PlacementService, log *zap.Logger) *InboxHandler {
	return &InboxHandler{Inbox: inbox, Placements: placements, log: logging.OrNop(log)}
}

// Suggestions is GET /inbox/suggestions. It syncs Gmail and returns
// follow-up candidates; nothing is applied.
func (h *InboxHandler) Suggestions(c *gin.Context) {
	sess, err := h.Placements.Session(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	suggestions, err := h.Inbox.Suggestions(c.Request.Context(), sess)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, dtos.HealthResponse{Status: "ok", Time: time.Now().UTC()})
}
