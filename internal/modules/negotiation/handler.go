package negotiation

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/domain"
	"tripdesk/internal/pkg/response"
)

// VendorResolver maps an authenticated vendor user to their profile.
type VendorResolver interface {
	GetByUserID(ctx context.Context, userID int64) (*domain.VendorProfile, error)
}

type Handler struct {
	service *Service
	vendors VendorResolver
}

func NewHandler(service *Service, vendors VendorResolver) *Handler {
	return &Handler{service: service, vendors: vendors}
}

func (h *Handler) RegisterAgentRoutes(rg *gin.RouterGroup) {
	rg.POST("/negotiations/bulk", h.CreateBulk)
	rg.GET("/itineraries/:id/negotiations", h.ListByItinerary)
}

func (h *Handler) RegisterVendorRoutes(rg *gin.RouterGroup) {
	rg.POST("/negotiations/:id/respond", h.Respond)
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/negotiations", h.List)
	rg.GET("/negotiations/:id", h.Get)
	rg.POST("/negotiations/:id/messages", h.AddMessage)
	rg.PATCH("/negotiations/:id/status", h.UpdateStatus)
}

func (h *Handler) CreateBulk(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	req.AgentID = c.GetInt64("user_id")

	result, err := h.service.CreateBulk(c.Request.Context(), req)
	if err != nil {
		switch err {
		case ErrNoItems:
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "item_ids must not be empty")
		case ErrNotFound:
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Itinerary not found")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Bulk creation failed")
		}
		return
	}

	// Partial success still returns 201; per-item failures ride along
	// in the errors list.
	response.Success(c, http.StatusCreated, result)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := negotiationID(c)
	if !ok {
		return
	}

	n, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	if !h.mayView(c, n) {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not a party to this negotiation")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"negotiation": n})
}

func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetInt64("user_id")

	if c.GetString("role") == string(domain.RoleVendor) {
		profile, err := h.vendors.GetByUserID(ctx, userID)
		if err != nil {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Vendor profile not found")
			return
		}
		items, err := h.service.ListByVendor(ctx, profile.ID)
		if err != nil {
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list negotiations")
			return
		}
		response.List(c, http.StatusOK, items, int64(len(items)))
		return
	}

	items, err := h.service.ListByAgent(ctx, userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list negotiations")
		return
	}
	response.List(c, http.StatusOK, items, int64(len(items)))
}

func (h *Handler) ListByItinerary(c *gin.Context) {
	itineraryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || itineraryID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid itinerary ID")
		return
	}

	items, err := h.service.ListByItinerary(c.Request.Context(), itineraryID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list negotiations")
		return
	}
	response.List(c, http.StatusOK, items, int64(len(items)))
}

func (h *Handler) AddMessage(c *gin.Context) {
	id, ok := negotiationID(c)
	if !ok {
		return
	}

	var req AddMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	n, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	sender, ok := h.senderFor(c, n)
	if !ok {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not a party to this negotiation")
		return
	}

	n, err = h.service.AddMessage(c.Request.Context(), id, sender, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"negotiation": n})
}

func (h *Handler) Respond(c *gin.Context) {
	id, ok := negotiationID(c)
	if !ok {
		return
	}

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	profile, err := h.vendors.GetByUserID(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Vendor profile not found")
		return
	}

	n, rec, err := h.service.RespondToOffer(c.Request.Context(), id, profile.ID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"negotiation":    n,
		"recommendation": rec,
	})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := negotiationID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	actorID := c.GetInt64("user_id")
	if c.GetString("role") == string(domain.RoleVendor) {
		profile, err := h.vendors.GetByUserID(c.Request.Context(), actorID)
		if err != nil {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Vendor profile not found")
			return
		}
		actorID = profile.ID
	}

	n, err := h.service.UpdateStatus(c.Request.Context(), id, actorID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"negotiation": n})
}

func (h *Handler) mayView(c *gin.Context, n *domain.Negotiation) bool {
	userID := c.GetInt64("user_id")
	if c.GetString("role") == string(domain.RoleVendor) {
		profile, err := h.vendors.GetByUserID(c.Request.Context(), userID)
		return err == nil && profile.ID == n.VendorID
	}
	return n.AgentID == userID
}

func (h *Handler) senderFor(c *gin.Context, n *domain.Negotiation) (domain.MessageSender, bool) {
	userID := c.GetInt64("user_id")
	if c.GetString("role") == string(domain.RoleVendor) {
		profile, err := h.vendors.GetByUserID(c.Request.Context(), userID)
		if err != nil || profile.ID != n.VendorID {
			return "", false
		}
		return domain.SenderVendor, true
	}
	if n.AgentID != userID {
		return "", false
	}
	return domain.SenderAgent, true
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	switch err {
	case ErrNotFound:
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Negotiation not found")
	case ErrForbidden:
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not a party to this negotiation")
	case ErrTerminalStatus:
		response.Error(c, http.StatusConflict, "TERMINAL_STATUS", "Negotiation is already closed")
	case ErrInvalidTransition:
		response.Error(c, http.StatusConflict, "INVALID_TRANSITION", "Status transition not allowed")
	case ErrValidation:
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid negotiation data")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Negotiation operation failed")
	}
}

func negotiationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid negotiation ID")
		return 0, false
	}
	return id, true
}
