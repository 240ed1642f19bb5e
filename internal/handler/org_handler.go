package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"workspace-service/internal/middleware"
	"workspace-service/internal/model"
	"workspace-service/internal/tenant"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrgHandler exposes the current workspace's registry entry and the
// administrative status/config mutations.
type OrgHandler struct {
	db    *gorm.DB
	cache *tenant.CachedRegistry // nil when the resolver cache is disabled
}

func NewOrgHandler(db *gorm.DB, cache *tenant.CachedRegistry) *OrgHandler {
	return &OrgHandler{db: db, cache: cache}
}

// refreshActiveWorkspaces recounts ACTIVE registry rows into the gauge.
// Best effort; a failed count only logs.
func refreshActiveWorkspaces(ctx context.Context, db *gorm.DB, log *zap.Logger) {
	var count int64
	if err := db.WithContext(ctx).Model(&model.Organization{}).
		Where("status = ?", model.OrgStatusActive).Count(&count).Error; err != nil {
		log.Warn("Failed to refresh active workspace count", zap.Error(err))
		return
	}
	prometheus.UpdateActiveWorkspaces(int(count))
}

// Current returns the resolved workspace's registry entry
func (h *OrgHandler) Current(c echo.Context) error {
	org, ok := c.Get(middleware.OrganizationKey).(*model.Organization)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "workspace identification required"})
	}
	return c.JSON(http.StatusOK, org)
}

// UpdateStatus changes a workspace's lifecycle status or rag variant.
// Workspaces are never physically removed; DELETED is a status, the schema
// stays behind for audit and recovery.
func (h *OrgHandler) UpdateStatus(c echo.Context) error {
	log := logger.FromContext(c)
	handle := strings.ToLower(c.Param("handle"))

	var req struct {
		Status  *string `json:"status,omitempty"`
		RagType *string `json:"rag_type,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Status == nil && req.RagType == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status or rag_type is required"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	ctx := c.Request().Context()

	var org model.Organization
	if err := h.db.WithContext(ctx).Where("handle = ?", handle).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "workspace not found"})
		}
		log.Error("Failed to load workspace", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	if req.Status != nil {
		status := model.OrgStatus(strings.ToUpper(*req.Status))
		switch status {
		case model.OrgStatusActive, model.OrgStatusSuspended, model.OrgStatusDeleted:
			org.Status = status
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
	}
	if req.RagType != nil {
		ragType := model.RagType(strings.ToUpper(*req.RagType))
		switch ragType {
		case model.RagTypeBasic, model.RagTypeAdvanced, model.RagTypeCustom:
			org.RagType = ragType
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rag_type"})
		}
	}

	if err := h.db.WithContext(ctx).Save(&org).Error; err != nil {
		log.Error("Failed to update workspace", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	// Drop any cached resolution so a suspension takes effect immediately
	if h.cache != nil {
		h.cache.Invalidate(ctx, org.Handle)
	}

	refreshActiveWorkspaces(ctx, h.db, log)

	log.Info("Workspace updated",
		zap.String("handle", org.Handle),
		zap.String("status", string(org.Status)),
		zap.String("rag_type", string(org.RagType)))

	return c.JSON(http.StatusOK, org)
}
