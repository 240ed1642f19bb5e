package middleware

import (
	"net/http"
	"strings"

	"workspace-service/internal/model"
	"workspace-service/internal/tenant"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// WorkspaceHeader carries an explicit workspace handle. It takes precedence
// over the handle derived from the request host.
const WorkspaceHeader = "X-Workspace"

// OrganizationKey is the echo context key holding the resolved registry entry
const OrganizationKey = "organization"

// TenantResolver resolves the workspace-identifying signal of each request
// against the registry and binds the resolved schema into the request
// context. The binding lives exactly as long as the request: it is carried on
// the request's context.Context, never in shared state, so interleaved
// requests cannot observe each other's workspace.
//
// Failure modes are distinct: no signal at all is a 400, an unknown handle is
// a 404, and a suspended or deleted workspace is a 403 regardless of the
// caller's authentication.
func TenantResolver(registry tenant.Registry, baseDomain string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			handle, present := workspaceSignal(c, baseDomain)
			if !present {
				log.Warn("Request without workspace-identifying signal")
				prometheus.RecordResolution("missing_signal")
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "workspace identification required"})
			}

			if !tenant.ValidHandle(handle) {
				log.Warn("Malformed workspace handle", zap.String("handle", handle))
				prometheus.RecordResolution("invalid_handle")
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid workspace handle"})
			}

			// The registry always reads the shared schema explicitly, so the
			// lookup cannot be poisoned by a stale search_path on a pooled
			// connection.
			org, err := registry.FindByHandle(c.Request().Context(), handle)
			if err != nil {
				if err == tenant.ErrOrganizationNotFound {
					log.Warn("Unknown workspace handle", zap.String("handle", handle))
					prometheus.RecordResolution("not_found")
					return c.JSON(http.StatusNotFound, echo.Map{"error": "workspace not found"})
				}
				log.Error("Workspace lookup failed", zap.String("handle", handle), zap.Error(err))
				prometheus.RecordResolution("lookup_error")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "workspace lookup failed"})
			}

			if org.Status != model.OrgStatusActive {
				log.Warn("Inaccessible workspace",
					zap.String("handle", handle),
					zap.String("status", string(org.Status)))
				prometheus.RecordResolution("inaccessible")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "workspace is not accessible"})
			}

			prometheus.RecordResolution("resolved")

			// Bind the schema for this request only; the context (and with it
			// the binding) is discarded when the request completes.
			req := c.Request()
			ctx := tenant.WithNamespace(req.Context(), org.SchemaName)
			c.SetRequest(req.WithContext(ctx))
			c.Set(OrganizationKey, org)

			return next(c)
		}
	}
}

// workspaceSignal extracts the workspace handle from the request: the
// X-Workspace header if set, otherwise the subdomain label of the Host.
// Returns false when the request carries no signal at all.
func workspaceSignal(c echo.Context, baseDomain string) (string, bool) {
	if h := strings.TrimSpace(c.Request().Header.Get(WorkspaceHeader)); h != "" {
		return strings.ToLower(h), true
	}

	host := c.Request().Host
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	host = strings.ToLower(host)

	if host == baseDomain || !strings.HasSuffix(host, "."+baseDomain) {
		return "", false
	}

	label := strings.TrimSuffix(host, "."+baseDomain)
	// Nested labels (a.b.example.com) are not a workspace signal
	if label == "" || strings.Contains(label, ".") {
		return "", false
	}
	return label, true
}
