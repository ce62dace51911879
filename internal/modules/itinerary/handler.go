package itinerary

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/domain"
	"tripdesk/internal/modules/workflow"
	"tripdesk/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterAgentRoutes mounts the write endpoints (agent-only group).
func (h *Handler) RegisterAgentRoutes(rg *gin.RouterGroup) {
	rg.POST("/itineraries", h.Create)
	rg.PUT("/itineraries/:id", h.Update)
	rg.PATCH("/itineraries/:id/status", h.UpdateStatus)
	rg.POST("/itineraries/:id/approve", h.Approve)
}

// RegisterRoutes mounts the read endpoints (any authenticated user).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/itineraries", h.List)
	rg.GET("/itineraries/:id", h.Get)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	it, err := h.service.Create(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		switch err {
		case ErrValidation:
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "End date must be after start date")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create itinerary")
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"itinerary": it})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	it, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		switch err {
		case ErrNotFound:
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Itinerary not found")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load itinerary")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"itinerary": it})
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	userID := c.GetInt64("user_id")

	var (
		items []domain.Itinerary
		err   error
	)
	if c.GetString("role") == string(domain.RoleTraveler) {
		items, err = h.service.ListByTraveler(c.Request.Context(), userID, limit, offset)
	} else {
		items, err = h.service.ListByAgent(c.Request.Context(), userID, limit, offset)
	}
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list itineraries")
		return
	}

	response.List(c, http.StatusOK, items, int64(len(items)))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	it, err := h.service.Update(c.Request.Context(), id, c.GetInt64("user_id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"itinerary": it})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	it, err := h.service.UpdateStatus(c.Request.Context(), id, c.GetInt64("user_id"), req.Status)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"itinerary": it})
}

func (h *Handler) Approve(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	progress, err := h.service.Approve(c.Request.Context(), id, c.GetInt64("user_id"))
	if err != nil {
		switch err {
		case ErrNotFound:
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Itinerary not found")
		case ErrForbidden:
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not your itinerary")
		case ErrAlreadyApproved, workflow.ErrAlreadyRunning:
			response.Error(c, http.StatusConflict, "CONFLICT", "Itinerary already approved")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to approve itinerary")
		}
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"workflow": progress})
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	switch err {
	case ErrNotFound:
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Itinerary not found")
	case ErrForbidden:
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not your itinerary")
	case ErrValidation:
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid itinerary data")
	case ErrInvalidTransition:
		response.Error(c, http.StatusConflict, "INVALID_TRANSITION", "Status transition not allowed")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update itinerary")
	}
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid itinerary ID")
		return 0, false
	}
	return id, true
}
