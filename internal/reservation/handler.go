package reservation

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/richxcame/vehicle-marketplace/pkg/jwtkeys"
	"github.com/richxcame/vehicle-marketplace/pkg/middleware"
	"github.com/richxcame/vehicle-marketplace/pkg/models"
	"github.com/richxcame/vehicle-marketplace/pkg/pagination"
	"github.com/richxcame/vehicle-marketplace/pkg/validation"
)

// Handler handles HTTP requests for reservations
type Handler struct {
	service *Service
}

// NewHandler creates a new reservation handler
func NewHandler(service *Service) *Handler {
	validation.RegisterGinValidators()
	return &Handler{service: service}
}

func actorOrAbort(c *gin.Context) (models.Actor, bool) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return models.Actor{}, false
	}
	return actor, true
}

// CreateReservation books a vehicle
// POST /api/v1/reservations
func (h *Handler) CreateReservation(c *gin.Context) {
	userID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}

	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, validation.Describe(err))
		return
	}

	res, err := h.service.CreateReservation(c.Request.Context(), userID, &req)
	if common.HandleServiceError(c, err, "failed to create reservation") {
		return
	}

	common.CreatedResponse(c, res)
}

// GetReservation returns a reservation
// GET /api/v1/reservations/:id
func (h *Handler) GetReservation(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	id, ok := common.ParseUUIDParam(c, "id", "reservation id")
	if !ok {
		return
	}

	res, err := h.service.GetReservation(c.Request.Context(), actor, id)
	if common.HandleServiceError(c, err, "failed to get reservation") {
		return
	}

	common.SuccessResponse(c, res)
}

// Decide confirms or rejects a reservation
// PUT /api/v1/reservations/:id/decision?confirm=true
func (h *Handler) Decide(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	id, ok := common.ParseUUIDParam(c, "id", "reservation id")
	if !ok {
		return
	}

	raw, present := c.GetQuery("confirm")
	if !present {
		common.ErrorResponse(c, http.StatusBadRequest, "confirm is required")
		return
	}
	confirm, err := strconv.ParseBool(raw)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "confirm must be true or false")
		return
	}

	res, err := h.service.Decide(c.Request.Context(), actor, id, confirm)
	if common.HandleServiceError(c, err, "failed to decide reservation") {
		return
	}

	common.SuccessResponse(c, res)
}

// Cancel withdraws a reservation
// DELETE /api/v1/reservations/:id
func (h *Handler) Cancel(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	id, ok := common.ParseUUIDParam(c, "id", "reservation id")
	if !ok {
		return
	}

	res, err := h.service.Cancel(c.Request.Context(), actor, id)
	if common.HandleServiceError(c, err, "failed to cancel reservation") {
		return
	}

	common.SuccessResponse(c, res)
}

// ListReservations lists reservations by owner, by requester, or all of them
// for admins
// GET /api/v1/reservations?owner_id=&requester_id=
func (h *Handler) ListReservations(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	ownerID, ok := common.ParseUUIDQuery(c, "owner_id", "owner id", false)
	if !ok {
		return
	}
	requesterID, ok := common.ParseUUIDQuery(c, "requester_id", "requester id", false)
	if !ok {
		return
	}

	params := pagination.Reservations.Parse(c)
	ctx := c.Request.Context()

	var (
		list  []*Reservation
		total int64
		err   error
	)
	switch {
	case ownerID != uuid.Nil:
		if !actor.CanManage(ownerID) {
			common.ErrorResponse(c, http.StatusForbidden, "you can only list reservations on your own vehicles")
			return
		}
		list, total, err = h.service.ListByOwner(ctx, ownerID, params.Limit, params.Offset)
	case requesterID != uuid.Nil:
		if !actor.CanManage(requesterID) {
			common.ErrorResponse(c, http.StatusForbidden, "you can only list your own reservations")
			return
		}
		list, total, err = h.service.ListByRequester(ctx, requesterID, params.Limit, params.Offset)
	default:
		if !actor.Role.IsAdmin() {
			common.ErrorResponse(c, http.StatusForbidden, "owner_id or requester_id is required")
			return
		}
		list, total, err = h.service.ListReservations(ctx, params.Limit, params.Offset)
	}
	if common.HandleServiceError(c, err, "failed to list reservations") {
		return
	}

	common.SuccessResponseWithMeta(c, &ReservationListResponse{Reservations: list},
		params.Meta(total))
}

// RegisterRoutes registers reservation routes. createGuards run before
// CreateReservation only, after authentication.
func (h *Handler) RegisterRoutes(r *gin.Engine, jwtProvider jwtkeys.KeyProvider, createGuards ...gin.HandlerFunc) {
	reservations := r.Group("/api/v1/reservations")
	reservations.Use(middleware.AuthMiddlewareWithProvider(jwtProvider))
	{
		create := append(append([]gin.HandlerFunc{}, createGuards...), h.CreateReservation)
		reservations.POST("", create...)
		reservations.GET("", h.ListReservations)
		reservations.GET("/:id", h.GetReservation)
		reservations.PUT("/:id/decision", h.Decide)
		reservations.DELETE("/:id", h.Cancel)
	}
}
