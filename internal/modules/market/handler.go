package market

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/domain"
	"tripdesk/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/market-rates", h.GetRate)
}

func (h *Handler) GetRate(c *gin.Context) {
	serviceType := domain.ServiceType(c.Query("service_type"))
	location := c.Query("location")
	if serviceType == "" || location == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "service_type and location are required")
		return
	}

	mi, err := h.service.GetRate(c.Request.Context(), serviceType, location)
	if err != nil {
		switch err {
		case ErrNoSample:
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "No market data for this service and location")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load market rate")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rate": mi})
}
