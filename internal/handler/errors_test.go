package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"workspace-service/internal/tenant"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeErr(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, writeTenantError(c, zap.NewNop(), err))
	return rec
}

func TestWriteTenantErrorValidation(t *testing.T) {
	rec := writeErr(t, &tenant.ValidationError{Reason: "handle \"admin\" is reserved"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "reserved")
}

func TestWriteTenantErrorAccess(t *testing.T) {
	rec := writeErr(t, &tenant.AccessError{Handle: "acme", Status: "SUSPENDED"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "not accessible")
}

func TestWriteTenantErrorNotFound(t *testing.T) {
	rec := writeErr(t, tenant.ErrOrganizationNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "workspace not found")
}

func TestWriteTenantErrorProvisioningStaysOpaque(t *testing.T) {
	rec := writeErr(t, &tenant.ProvisioningError{State: "TABLES_CREATED"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "workspace provisioning failed")
	// No internal state or storage detail in the body
	assert.NotContains(t, rec.Body.String(), "TABLES_CREATED")
}

func TestWriteTenantErrorDefault(t *testing.T) {
	rec := writeErr(t, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal error")
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
