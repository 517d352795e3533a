package availability

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/vehicle-marketplace/internal/daterange"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/richxcame/vehicle-marketplace/pkg/jwtkeys"
	"github.com/richxcame/vehicle-marketplace/pkg/middleware"
	"github.com/richxcame/vehicle-marketplace/pkg/validation"
)

// Handler handles HTTP requests for vehicle calendars
type Handler struct {
	service *Service
}

// NewHandler creates a new availability handler
func NewHandler(service *Service) *Handler {
	validation.RegisterGinValidators()
	return &Handler{service: service}
}

// CreateBlock blocks a range of a vehicle's calendar
// POST /api/v1/vehicles/:id/blocks
func (h *Handler) CreateBlock(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	vehicleID, ok := common.ParseUUIDParam(c, "id", "vehicle id")
	if !ok {
		return
	}

	var req CreateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, validation.Describe(err))
		return
	}

	block, err := h.service.CreateManualBlock(c.Request.Context(), actor, vehicleID, &req)
	if common.HandleServiceError(c, err, "failed to create block") {
		return
	}

	common.CreatedResponse(c, block)
}

// ListBlocks returns a vehicle's blocked ranges
// GET /api/v1/vehicles/:id/blocks
func (h *Handler) ListBlocks(c *gin.Context) {
	vehicleID, ok := common.ParseUUIDParam(c, "id", "vehicle id")
	if !ok {
		return
	}

	resp, err := h.service.ListBlocks(c.Request.Context(), vehicleID)
	if common.HandleServiceError(c, err, "failed to list blocks") {
		return
	}

	common.SuccessResponse(c, resp)
}

// CheckAvailability reports whether a range is free
// GET /api/v1/vehicles/:id/availability?start_date=&end_date=
func (h *Handler) CheckAvailability(c *gin.Context) {
	vehicleID, ok := common.ParseUUIDParam(c, "id", "vehicle id")
	if !ok {
		return
	}

	r, err := daterange.ParseRange(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		common.HandleServiceError(c, InvalidRange(err), "invalid date range")
		return
	}

	resp, err := h.service.CheckAvailability(c.Request.Context(), vehicleID, r)
	if common.HandleServiceError(c, err, "failed to check availability") {
		return
	}

	common.SuccessResponse(c, resp)
}

// DeleteBlock removes a manual block
// DELETE /api/v1/blocks/:id
func (h *Handler) DeleteBlock(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	blockID, ok := common.ParseUUIDParam(c, "id", "block id")
	if !ok {
		return
	}

	if common.HandleServiceError(c, h.service.DeleteManualBlock(c.Request.Context(), actor, blockID), "failed to delete block") {
		return
	}

	c.Status(http.StatusNoContent)
	c.Writer.WriteHeaderNow()
}

// RegisterRoutes registers calendar routes
func (h *Handler) RegisterRoutes(r *gin.Engine, jwtProvider jwtkeys.KeyProvider) {
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddlewareWithProvider(jwtProvider))
	{
		api.POST("/vehicles/:id/blocks", h.CreateBlock)
		api.GET("/vehicles/:id/blocks", h.ListBlocks)
		api.GET("/vehicles/:id/availability", h.CheckAvailability)
		api.DELETE("/blocks/:id", h.DeleteBlock)
	}
}
