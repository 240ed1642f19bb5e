package middleware

import (
	"net/http"
	"strings"

	"workspace-service/internal/model"
	"workspace-service/internal/tenant"
	"workspace-service/pkg/jwtutil"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware validates the JWT token from the Authorization header
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Extract the token
		tokenString := parts[1]

		// Validate the token
		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// A token is scoped to one workspace. On workspace-resolved routes the
		// schema in the claims must match the schema the resolver bound, or a
		// token issued for workspace A would be honored on workspace B.
		if schema, bound := tenant.NamespaceFrom(c.Request().Context()); bound && claims.Schema != schema {
			log.Warn("Token issued for another workspace",
				zap.String("token_workspace", claims.Workspace),
				zap.String("user_id", claims.UserID))
			prometheus.RecordError("workspace_mismatch")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token is not valid for this workspace"})
		}

		// Store user info in context for later use
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("user_role", claims.Role)
		c.Set("token_workspace", claims.Workspace)
		c.Set("token_schema", claims.Schema)

		log.Debug("Request authenticated",
			zap.String("user_id", claims.UserID),
			zap.String("workspace", claims.Workspace),
			zap.String("role", claims.Role))

		// Token is valid, proceed with the request
		return next(c)
	}
}

// RequireAdmin allows only callers whose token carries the admin role.
// Must run after AuthMiddleware.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, _ := c.Get("user_role").(string)
		if role != model.RoleAdmin {
			logger.FromContext(c).Warn("Non-admin caller on admin route",
				zap.String("role", role))
			prometheus.RecordError("admin_required")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
		}
		return next(c)
	}
}
