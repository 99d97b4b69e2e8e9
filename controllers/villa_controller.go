package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"villa-api/dto"
	"villa-api/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// VillaController exposes the villa service over HTTP.
type VillaController struct {
	service services.VillaService
	logger  logrus.FieldLogger
}

// NewVillaController creates the controller.
func NewVillaController(service services.VillaService, logger logrus.FieldLogger) *VillaController {
	return &VillaController{service: service, logger: logger}
}

// RegisterRoutes mounts the villa endpoints under /api/villa.
func (ctrl *VillaController) RegisterRoutes(r gin.IRouter) {
	villas := r.Group("/api/villa")
	villas.GET("", ctrl.GetVillas)
	villas.POST("", ctrl.CreateVilla)
	villas.GET("/:id", ctrl.GetVilla)
	villas.PUT("/:id", ctrl.UpdateVilla)
	villas.PATCH("/:id", ctrl.UpdatePartialVilla)
	villas.DELETE("/:id", ctrl.DeleteVilla)
}

// GetVillas handles GET /api/villa
func (ctrl *VillaController) GetVillas(c *gin.Context) {
	villas, err := ctrl.service.List(c.Request.Context())
	if err != nil {
		ctrl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, villas)
}

// GetVilla handles GET /api/villa/:id
func (ctrl *VillaController) GetVilla(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	villa, err := ctrl.service.Get(c.Request.Context(), id)
	if err != nil {
		ctrl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, villa)
}

// CreateVilla handles POST /api/villa
// Answers 200 with the stored villa, including its new id.
func (ctrl *VillaController) CreateVilla(c *gin.Context) {
	var req dto.VillaDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	villa, err := ctrl.service.Create(c.Request.Context(), &req)
	if err != nil {
		ctrl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, villa)
}

// UpdateVilla handles PUT /api/villa/:id
func (ctrl *VillaController) UpdateVilla(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.VillaDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	if err := ctrl.service.Update(c.Request.Context(), id, &req); err != nil {
		ctrl.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdatePartialVilla handles PATCH /api/villa/:id with a JSON Patch body, e.g.
// [{"op": "replace", "path": "/name", "value": "New Name"}]
func (ctrl *VillaController) UpdatePartialVilla(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	patch, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_body",
			Message: err.Error(),
		})
		return
	}

	if err := ctrl.service.PartialUpdate(c.Request.Context(), id, patch); err != nil {
		ctrl.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteVilla handles DELETE /api/villa/:id
func (ctrl *VillaController) DeleteVilla(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := ctrl.service.Delete(c.Request.Context(), id); err != nil {
		ctrl.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HealthCheck handles GET /health
func (ctrl *VillaController) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "villa-api",
	})
}

// parseID reads :id and answers 400 itself when it is not a number.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid villa ID",
		})
		return 0, false
	}
	return uint(id), true
}

// writeError maps service error kinds to HTTP statuses.
// A client-assigned id on create is answered with 500, and a duplicate
// name with 400, which is what existing clients of this API expect.
func (ctrl *VillaController) writeError(c *gin.Context, err error) {
	resp := dto.ErrorResponse{Message: err.Error()}
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		resp.Fields = svcErr.Fields
	}

	status := http.StatusInternalServerError
	switch services.KindOf(err) {
	case services.KindInvalidArgument:
		if errors.Is(err, services.ErrIDAssigned) {
			resp.Error = "id_not_allowed"
			break
		}
		status = http.StatusBadRequest
		resp.Error = "invalid_argument"
	case services.KindConflict:
		status = http.StatusBadRequest
		resp.Error = "villa_exists"
	case services.KindNotFound:
		status = http.StatusNotFound
		resp.Error = "villa_not_found"
	default:
		resp.Error = "internal_error"
		resp.Message = "internal server error"
		ctrl.logger.WithError(err).Error("villa request failed")
	}

	_ = c.Error(err)
	c.JSON(status, resp)
}
