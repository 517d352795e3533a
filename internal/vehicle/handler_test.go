package vehicle

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/richxcame/vehicle-marketplace/pkg/middleware"
	"github.com/richxcame/vehicle-marketplace/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var req *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	c.Request = req

	return c, w
}

func setUserContext(c *gin.Context, userID uuid.UUID, role models.UserRole) {
	c.Set(middleware.ContextUserID, userID)
	c.Set(middleware.ContextUserRole, role)
	c.Set(middleware.ContextUserEmail, "test@example.com")
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) common.Response {
	t.Helper()
	var resp common.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandler_Register_Success(t *testing.T) {
	repo := new(mockRepo)
	h := NewHandler(NewService(repo))
	ownerID := uuid.New()

	repo.On("CreateVehicle", mock.Anything, mock.AnythingOfType("*vehicle.Vehicle")).Return(nil)

	c, w := setupTestContext(http.MethodPost, "/api/v1/vehicles", map[string]interface{}{
		"listing_mode":  "SALE",
		"make":          "Renault",
		"model":         "Clio",
		"year":          2019,
		"license_plate": "9876-KLM",
		"price_total":   8500,
	})
	setUserContext(c, ownerID, models.RoleUser)

	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, ownerID.String(), data["owner_id"])
	assert.Equal(t, false, data["validated"])
}

func TestHandler_Register_Unauthorized(t *testing.T) {
	h := NewHandler(NewService(new(mockRepo)))

	c, w := setupTestContext(http.MethodPost, "/api/v1/vehicles", map[string]interface{}{})
	h.Register(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_Register_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{name: "missing fields", body: map[string]interface{}{"make": "Renault"}},
		{name: "bad listing mode", body: map[string]interface{}{
			"listing_mode": "LEASE", "make": "Renault", "model": "Clio", "year": 2019, "license_plate": "9876-KLM",
		}},
		{name: "year out of range", body: map[string]interface{}{
			"listing_mode": "SALE", "make": "Renault", "model": "Clio", "year": 1800, "license_plate": "9876-KLM",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepo)
			h := NewHandler(NewService(repo))

			c, w := setupTestContext(http.MethodPost, "/api/v1/vehicles", tt.body)
			setUserContext(c, uuid.New(), models.RoleUser)
			h.Register(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			repo.AssertNotCalled(t, "CreateVehicle", mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_Register_BothPrices(t *testing.T) {
	h := NewHandler(NewService(new(mockRepo)))

	c, w := setupTestContext(http.MethodPost, "/api/v1/vehicles", map[string]interface{}{
		"listing_mode":  "RENTAL",
		"make":          "Renault",
		"model":         "Clio",
		"year":          2019,
		"license_plate": "9876-KLM",
		"price_total":   8500,
		"price_per_day": 40,
	})
	setUserContext(c, uuid.New(), models.RoleUser)
	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, CodeInvalidPricing, resp.Error.ErrorCode)
}

func TestHandler_GetVehicle(t *testing.T) {
	repo := new(mockRepo)
	h := NewHandler(NewService(repo))
	v := createTestVehicle(uuid.New(), ListingModeRental)

	repo.On("GetVehicleByID", mock.Anything, v.ID).Return(v, nil)

	c, w := setupTestContext(http.MethodGet, "/api/v1/vehicles/"+v.ID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: v.ID.String()}}
	h.GetVehicle(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_GetVehicle_InvalidID(t *testing.T) {
	h := NewHandler(NewService(new(mockRepo)))

	c, w := setupTestContext(http.MethodGet, "/api/v1/vehicles/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	h.GetVehicle(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_GetVehicle_NotFound(t *testing.T) {
	repo := new(mockRepo)
	h := NewHandler(NewService(repo))
	id := uuid.New()

	repo.On("GetVehicleByID", mock.Anything, id).Return(nil, pgx.ErrNoRows)

	c, w := setupTestContext(http.MethodGet, "/api/v1/vehicles/"+id.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.GetVehicle(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, CodeVehicleNotFound, resp.Error.ErrorCode)
}

func TestHandler_GetMyVehicles(t *testing.T) {
	repo := new(mockRepo)
	h := NewHandler(NewService(repo))
	ownerID := uuid.New()
	list := []Vehicle{*createTestVehicle(ownerID, ListingModeSale), *createTestVehicle(ownerID, ListingModeRental)}

	repo.On("GetVehiclesByOwner", mock.Anything, ownerID, 10, 0).Return(list, int64(2), nil)

	c, w := setupTestContext(http.MethodGet, "/api/v1/vehicles/me?limit=10", nil)
	setUserContext(c, ownerID, models.RoleUser)
	h.GetMyVehicles(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.Total)
}

func TestHandler_AdminValidate(t *testing.T) {
	repo := new(mockRepo)
	h := NewHandler(NewService(repo))
	v := createTestVehicle(uuid.New(), ListingModeSale)
	v.Validated = false

	repo.On("SetValidated", mock.Anything, v.ID, false).Return(nil)
	repo.On("GetVehicleByID", mock.Anything, v.ID).Return(v, nil)

	c, w := setupTestContext(http.MethodPut, "/api/v1/admin/vehicles/"+v.ID.String()+"/validate?validated=false", nil)
	c.Params = gin.Params{{Key: "id", Value: v.ID.String()}}
	setUserContext(c, uuid.New(), models.RoleAdmin)
	h.AdminValidate(c)

	assert.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestHandler_AdminValidate_BadFlag(t *testing.T) {
	h := NewHandler(NewService(new(mockRepo)))
	id := uuid.New()

	c, w := setupTestContext(http.MethodPut, "/api/v1/admin/vehicles/"+id.String()+"/validate?validated=maybe", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.AdminValidate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
