package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"workspace-service/internal/model"
	"workspace-service/internal/tenant"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReservedHandler manages the reserved-handle list. All operations run
// against the shared schema; the model's table name is public-qualified.
type ReservedHandler struct {
	db *gorm.DB
}

func NewReservedHandler(db *gorm.DB) *ReservedHandler {
	return &ReservedHandler{db: db}
}

// List returns all reserved handles
func (h *ReservedHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	defer prometheus.TrackDBOperation("query")(time.Now())

	var handles []model.ReservedHandle
	if err := h.db.WithContext(c.Request().Context()).Order("handle").Find(&handles).Error; err != nil {
		log.Error("Failed to list reserved handles", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list reserved handles"})
	}

	return c.JSON(http.StatusOK, handles)
}

// Create reserves a new handle
func (h *ReservedHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Handle      string `json:"handle"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	handle := strings.ToLower(strings.TrimSpace(req.Handle))
	if !tenant.ValidHandle(handle) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid handle"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	var existing int64
	if err := h.db.WithContext(c.Request().Context()).Model(&model.ReservedHandle{}).
		Where("LOWER(handle) = ?", handle).Count(&existing).Error; err != nil {
		log.Error("Failed to check reserved handle", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reserve handle"})
	}
	if existing > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "handle is already reserved"})
	}

	reserved := model.ReservedHandle{Handle: handle, Description: req.Description}
	if err := h.db.WithContext(c.Request().Context()).Create(&reserved).Error; err != nil {
		log.Error("Failed to reserve handle", zap.String("handle", handle), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reserve handle"})
	}

	log.Info("Handle reserved", zap.String("handle", handle))
	return c.JSON(http.StatusCreated, reserved)
}

// Update changes a reserved handle's name or description
func (h *ReservedHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req struct {
		Handle      *string `json:"handle,omitempty"`
		Description *string `json:"description,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	ctx := c.Request().Context()

	var reserved model.ReservedHandle
	if err := h.db.WithContext(ctx).First(&reserved, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reserved handle not found"})
		}
		log.Error("Failed to load reserved handle", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update reserved handle"})
	}

	if req.Handle != nil {
		handle := strings.ToLower(strings.TrimSpace(*req.Handle))
		if !tenant.ValidHandle(handle) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid handle"})
		}
		if handle != reserved.Handle {
			var existing int64
			if err := h.db.WithContext(ctx).Model(&model.ReservedHandle{}).
				Where("LOWER(handle) = ?", handle).Count(&existing).Error; err == nil && existing > 0 {
				return c.JSON(http.StatusConflict, echo.Map{"error": "handle is already reserved"})
			}
			reserved.Handle = handle
		}
	}
	if req.Description != nil {
		reserved.Description = *req.Description
	}

	if err := h.db.WithContext(ctx).Save(&reserved).Error; err != nil {
		log.Error("Failed to update reserved handle", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update reserved handle"})
	}

	return c.JSON(http.StatusOK, reserved)
}

// Delete removes a reserved handle, making it claimable again
func (h *ReservedHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := h.db.WithContext(c.Request().Context()).Delete(&model.ReservedHandle{}, "id = ?", id)
	if result.Error != nil {
		log.Error("Failed to delete reserved handle", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete reserved handle"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reserved handle not found"})
	}

	log.Info("Reserved handle deleted", zap.String("id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "reserved handle deleted"})
}
