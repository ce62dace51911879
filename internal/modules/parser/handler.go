package parser

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/domain"
	"tripdesk/internal/pkg/response"
	"tripdesk/internal/repository"
)

// ItineraryReader resolves the itinerary whose days are being parsed.
type ItineraryReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Itinerary, error)
}

type Handler struct {
	service     *Service
	itineraries ItineraryReader
}

func NewHandler(service *Service, itineraries ItineraryReader) *Handler {
	return &Handler{service: service, itineraries: itineraries}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/itineraries/:id/items", h.ListItems)
}

func (h *Handler) RegisterAgentRoutes(rg *gin.RouterGroup) {
	rg.POST("/itineraries/:id/parse", h.Parse)
}

func (h *Handler) ListItems(c *gin.Context) {
	id, ok := itineraryID(c)
	if !ok {
		return
	}

	items, err := h.service.items.ListByItinerary(c.Request.Context(), id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list items")
		return
	}
	response.List(c, http.StatusOK, items, int64(len(items)))
}

// Parse extracts line items from the itinerary text and stores them.
// Re-parsing an itinerary that already has items returns the stored
// items unchanged.
func (h *Handler) Parse(c *gin.Context) {
	id, ok := itineraryID(c)
	if !ok {
		return
	}

	it, err := h.itineraries.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Itinerary not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load itinerary")
		return
	}
	if it.AgentID != c.GetInt64("user_id") {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not your itinerary")
		return
	}

	items, created, err := h.service.ParseAndStore(c.Request.Context(), it)
	if err != nil {
		switch err {
		case ErrNoDays:
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Itinerary has no days to parse")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Parsing failed")
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{"items": items, "created": created})
}

func itineraryID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid itinerary ID")
		return 0, false
	}
	return id, true
}
