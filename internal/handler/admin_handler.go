package handler

import (
	"net/http"
	"time"

	"workspace-service/internal/tenant"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler exposes the platform-operator surface: onboarding new
// workspaces and retrofitting existing schemas after the table set changed.
type AdminHandler struct {
	db          *gorm.DB
	provisioner *tenant.Provisioner
	syncer      *tenant.Syncer
}

func NewAdminHandler(db *gorm.DB, provisioner *tenant.Provisioner, syncer *tenant.Syncer) *AdminHandler {
	return &AdminHandler{db: db, provisioner: provisioner, syncer: syncer}
}

// Onboard creates a new workspace: schema, tables, owner and registry entry
// as one atomic unit.
func (h *AdminHandler) Onboard(c echo.Context) error {
	log := logger.FromContext(c)
	start := time.Now()

	var req tenant.OnboardRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse onboarding request", zap.Error(err))
		prometheus.RecordOnboarding("validation_error")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	result, err := h.provisioner.Onboard(c.Request().Context(), req)
	if err != nil {
		if _, ok := err.(*tenant.ValidationError); ok {
			prometheus.RecordOnboarding("validation_error")
		} else {
			prometheus.RecordOnboarding("provisioning_error")
		}
		return writeTenantError(c, log, err)
	}

	prometheus.RecordOnboarding("success")
	prometheus.OnboardingDuration.Observe(time.Since(start).Seconds())
	refreshActiveWorkspaces(c.Request().Context(), h.db, log)

	log.Info("Workspace onboarded",
		zap.String("handle", result.Organization.Handle),
		zap.String("org_id", result.Organization.ID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "Workspace created successfully",
		"organization": result.Organization,
		"owner":        result.Owner,
		"token":        result.Token,
	})
}

// SyncTenants brings every active workspace schema up to the current table set
func (h *AdminHandler) SyncTenants(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.SyncRunCounter.Inc()
	defer prometheus.TrackDBOperation("ddl")(time.Now())

	reports, err := h.syncer.SyncAll(c.Request().Context())
	if err != nil {
		log.Error("Sync run failed", zap.Error(err))
		prometheus.RecordError("sync_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sync failed"})
	}

	failed := 0
	for _, r := range reports {
		if r.Error != "" {
			failed++
			prometheus.RecordSyncFailure(r.Handle)
		}
	}

	log.Info("Sync run completed",
		zap.Int("workspaces", len(reports)),
		zap.Int("failed", failed))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Sync completed",
		"synced":  len(reports) - failed,
		"failed":  failed,
		"reports": reports,
	})
}
