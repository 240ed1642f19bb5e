package handler

import (
	"errors"
	"net/http"

	"workspace-service/internal/tenant"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// writeTenantError maps the tenant error taxonomy onto HTTP responses.
// Validation and not-found conditions carry their message to the caller;
// provisioning failures stay opaque, their cause goes to the logs only.
func writeTenantError(c echo.Context, log *zap.Logger, err error) error {
	var verr *tenant.ValidationError
	if errors.As(err, &verr) {
		prometheus.RecordError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Reason})
	}

	var aerr *tenant.AccessError
	if errors.As(err, &aerr) {
		prometheus.RecordError("access")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "workspace is not accessible"})
	}

	if errors.Is(err, tenant.ErrOrganizationNotFound) {
		prometheus.RecordError("not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "workspace not found"})
	}

	var perr *tenant.ProvisioningError
	if errors.As(err, &perr) {
		prometheus.RecordError("provisioning")
		log.Error("Provisioning failure", zap.String("state", perr.State), zap.Error(errors.Unwrap(perr)))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "workspace provisioning failed"})
	}

	prometheus.RecordError("internal")
	log.Error("Unhandled error", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
