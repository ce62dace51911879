package workflow

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/pkg/response"
)

type Handler struct {
	orch *Orchestrator
}

func NewHandler(orch *Orchestrator) *Handler {
	return &Handler{orch: orch}
}

func (h *Handler) RegisterAgentRoutes(rg *gin.RouterGroup) {
	rg.GET("/workflows/:id", h.GetProgress)
	rg.POST("/negotiations/:id/non-response", h.VendorNonResponse)
}

// GetProgress reports the current phase and percent for an itinerary's
// workflow run.
func (h *Handler) GetProgress(c *gin.Context) {
	itineraryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || itineraryID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid itinerary ID")
		return
	}

	progress, err := h.orch.GetProgress(c.Request.Context(), itineraryID)
	if err != nil {
		switch err {
		case ErrNotFound:
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "No workflow for this itinerary")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load workflow")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"workflow": progress})
}

// VendorNonResponse expires a stalled negotiation and returns substitute
// vendors for the same item, excluding the one that went quiet.
func (h *Handler) VendorNonResponse(c *gin.Context) {
	negotiationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || negotiationID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid negotiation ID")
		return
	}

	substitutes, err := h.orch.HandleVendorNonResponse(c.Request.Context(), negotiationID)
	if err != nil {
		switch err {
		case ErrNotFound:
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Negotiation not found")
		case ErrTerminal:
			response.Error(c, http.StatusConflict, "TERMINAL_STATUS", "Negotiation is already closed")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to handle non-response")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"substitutes": substitutes,
		"count":       len(substitutes),
	})
}
