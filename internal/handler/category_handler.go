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

// CategoryHandler manages document categories inside the resolved workspace.
// Every query runs through the schema scope, so two workspaces can each own a
// category with the same name without ever seeing each other's.
type CategoryHandler struct {
	scope *tenant.Scope
}

func NewCategoryHandler(scope *tenant.Scope) *CategoryHandler {
	return &CategoryHandler{scope: scope}
}

// List returns the workspace's categories
func (h *CategoryHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	defer prometheus.TrackDBOperation("query")(time.Now())

	var categories []model.Category
	err := h.scope.RunCurrent(c.Request().Context(), func(tx *gorm.DB) error {
		return tenant.Handle(tx, &model.Category{}).Order("name").Find(&categories).Error
	})
	if err != nil {
		log.Error("Failed to list categories", zap.Error(err))
		return writeTenantError(c, log, err)
	}

	return c.JSON(http.StatusOK, categories)
}

// Create adds a category to the workspace
func (h *CategoryHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	category := model.Category{Name: strings.TrimSpace(req.Name)}
	err := h.scope.RunCurrent(c.Request().Context(), func(tx *gorm.DB) error {
		var existing int64
		if err := tenant.Handle(tx, &model.Category{}).
			Where("name = ?", category.Name).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return &tenant.ValidationError{Reason: "a category with this name already exists"}
		}
		return tx.Create(&category).Error
	})
	if err != nil {
		return writeTenantError(c, log, err)
	}

	log.Info("Category created", zap.String("name", category.Name), zap.String("id", category.ID))
	return c.JSON(http.StatusCreated, category)
}

// Get returns one category by id
func (h *CategoryHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	defer prometheus.TrackDBOperation("query")(time.Now())

	var category model.Category
	err := h.scope.RunCurrent(c.Request().Context(), func(tx *gorm.DB) error {
		return tenant.Handle(tx, &model.Category{}).Where("id = ?", id).First(&category).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return writeTenantError(c, log, err)
	}

	return c.JSON(http.StatusOK, category)
}

// Update renames a category
func (h *CategoryHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	name := strings.TrimSpace(req.Name)

	defer prometheus.TrackDBOperation("update")(time.Now())

	var category model.Category
	err := h.scope.RunCurrent(c.Request().Context(), func(tx *gorm.DB) error {
		if err := tenant.Handle(tx, &model.Category{}).Where("id = ?", id).First(&category).Error; err != nil {
			return err
		}
		if name != category.Name {
			var existing int64
			if err := tenant.Handle(tx, &model.Category{}).
				Where("name = ? AND id <> ?", name, id).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return &tenant.ValidationError{Reason: "a category with this name already exists"}
			}
		}
		category.Name = name
		return tx.Save(&category).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return writeTenantError(c, log, err)
	}

	return c.JSON(http.StatusOK, category)
}

// Delete removes a category and, through the schema-local foreign keys, its
// documents and chunks.
func (h *CategoryHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	defer prometheus.TrackDBOperation("delete")(time.Now())

	err := h.scope.RunCurrent(c.Request().Context(), func(tx *gorm.DB) error {
		result := tx.Delete(&model.Category{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return writeTenantError(c, log, err)
	}

	log.Info("Category deleted", zap.String("id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "category deleted"})
}
