package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"workspace-service/internal/model"
	"workspace-service/pkg/config"
	"workspace-service/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authReq(t *testing.T, workspace, token string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/workspace/categories", nil)
	req.Header.Set(WorkspaceHeader, workspace)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// The resolver and the auth middleware together must pin a token to the
// workspace it was issued for.
func runResolvedAuth(t *testing.T, workspace, token string) *httptest.ResponseRecorder {
	t.Helper()

	c, rec := authReq(t, workspace, token)
	next := func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
	err := TenantResolver(newFakeRegistry(), "example.com")(AuthMiddleware(next))(c)
	require.NoError(t, err)
	return rec
}

func TestAuthMiddlewareAcceptsTokenForResolvedWorkspace(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	token, err := jwtutil.GenerateToken("user-1", "owner@acme.test", model.RoleUser, "acme", "acme_1a2b3c4d")
	require.NoError(t, err)

	rec := runResolvedAuth(t, "acme", token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareRejectsTokenFromAnotherWorkspace(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	// Valid token, but issued for acme's schema
	token, err := jwtutil.GenerateToken("user-1", "owner@acme.test", model.RoleUser, "acme", "acme_1a2b3c4d")
	require.NoError(t, err)

	registry := newFakeRegistry()
	registry.orgs["beta"] = &model.Organization{
		ID: "org-3", Handle: "beta", SchemaName: "beta_5e6f7a8b", Status: model.OrgStatusActive,
	}

	c, rec := authReq(t, "beta", token)
	next := func(c echo.Context) error {
		t.Fatal("handler must not run for a cross-workspace token")
		return nil
	}
	err = TenantResolver(registry, "example.com")(AuthMiddleware(next))(c)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "not valid for this workspace")
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/onboard", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	require.NoError(t, AuthMiddleware(next)(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareSkipsWorkspaceCheckOffResolvedRoutes(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	// Admin routes resolve no workspace; any workspace claim is acceptable
	token, err := jwtutil.GenerateToken("user-1", "owner@acme.test", model.RoleAdmin, "acme", "acme_1a2b3c4d")
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/admin/sync-tenants", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	require.NoError(t, AuthMiddleware(next)(c))

	assert.Equal(t, http.StatusOK, rec.Code)
}
