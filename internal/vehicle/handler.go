package vehicle

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/richxcame/vehicle-marketplace/pkg/jwtkeys"
	"github.com/richxcame/vehicle-marketplace/pkg/middleware"
	"github.com/richxcame/vehicle-marketplace/pkg/pagination"
	"github.com/richxcame/vehicle-marketplace/pkg/validation"
)

// Handler handles HTTP requests for vehicles
type Handler struct {
	service *Service
}

// NewHandler creates a new vehicle handler
func NewHandler(service *Service) *Handler {
	validation.RegisterGinValidators()
	return &Handler{service: service}
}

// Register lists a new vehicle
// POST /api/v1/vehicles
func (h *Handler) Register(c *gin.Context) {
	ownerID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}

	var req RegisterVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, validation.Describe(err))
		return
	}

	v, err := h.service.RegisterVehicle(c.Request.Context(), ownerID, &req)
	if common.HandleServiceError(c, err, "failed to register vehicle") {
		return
	}

	common.CreatedResponse(c, v)
}

// GetMyVehicles returns the caller's listings
// GET /api/v1/vehicles/me
func (h *Handler) GetMyVehicles(c *gin.Context) {
	ownerID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}

	params := pagination.Vehicles.Parse(c)
	resp, total, err := h.service.GetMyVehicles(c.Request.Context(), ownerID, params.Limit, params.Offset)
	if common.HandleServiceError(c, err, "failed to get vehicles") {
		return
	}

	common.SuccessResponseWithMeta(c, resp, params.Meta(total))
}

// GetVehicle returns a specific vehicle
// GET /api/v1/vehicles/:id
func (h *Handler) GetVehicle(c *gin.Context) {
	vehicleID, ok := common.ParseUUIDParam(c, "id", "vehicle id")
	if !ok {
		return
	}

	v, err := h.service.GetVehicle(c.Request.Context(), vehicleID)
	if common.HandleServiceError(c, err, "failed to get vehicle") {
		return
	}

	common.SuccessResponse(c, v)
}

// AdminValidate approves a listing, or withdraws approval with ?validated=false
// PUT /api/v1/admin/vehicles/:id/validate
func (h *Handler) AdminValidate(c *gin.Context) {
	vehicleID, ok := common.ParseUUIDParam(c, "id", "vehicle id")
	if !ok {
		return
	}

	validated, err := strconv.ParseBool(c.DefaultQuery("validated", "true"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "validated must be true or false")
		return
	}

	v, err := h.service.ValidateVehicle(c.Request.Context(), vehicleID, validated)
	if common.HandleServiceError(c, err, "failed to validate vehicle") {
		return
	}

	common.SuccessResponse(c, v)
}

// RegisterRoutes registers vehicle routes
func (h *Handler) RegisterRoutes(r *gin.Engine, jwtProvider jwtkeys.KeyProvider) {
	vehicles := r.Group("/api/v1/vehicles")
	vehicles.Use(middleware.AuthMiddlewareWithProvider(jwtProvider))
	{
		vehicles.POST("", h.Register)
		vehicles.GET("/me", h.GetMyVehicles)
		vehicles.GET("/:id", h.GetVehicle)
	}

	admin := r.Group("/api/v1/admin/vehicles")
	admin.Use(middleware.AuthMiddlewareWithProvider(jwtProvider))
	admin.Use(middleware.RequireAdmin())
	{
		admin.PUT("/:id/validate", h.AdminValidate)
	}
}
