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

// UserHandler manages workspace members inside the resolved schema
type UserHandler struct {
	scope  *tenant.Scope
	hasher tenant.CredentialHasher
}

func NewUserHandler(scope *tenant.Scope, hasher tenant.CredentialHasher) *UserHandler {
	return &UserHandler{scope: scope, hasher: hasher}
}

// List returns the workspace's users
func (h *UserHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	defer prometheus.TrackDBOperation("query")(time.Now())

	var users []model.User
	err := h.scope.RunCurrent(c.Request().Context(), func(tx *gorm.DB) error {
		return tenant.Handle(tx, &model.User{}).Order("created_at").Find(&users).Error
	})
	if err != nil {
		log.Error("Failed to list users", zap.Error(err))
		return writeTenantError(c, log, err)
	}

	return c.JSON(http.StatusOK, users)
}

// Create adds a member to the workspace. Only one owner exists per workspace
// (created during onboarding); members created here are never owners.
func (h *UserHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, email and password are required"})
	}

	role := model.RoleUser
	if strings.EqualFold(req.Role, model.RoleAdmin) {
		role = model.RoleAdmin
	}

	hashed, err := h.hasher.Hash(req.Password)
	if err != nil {
		log.Error("Failed to hash credential", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user creation failed"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	user := model.User{
		Name:     req.Name,
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: hashed,
		Role:     role,
		IsOwner:  false,
	}
	err = h.scope.RunCurrent(c.Request().Context(), func(tx *gorm.DB) error {
		var existing int64
		if err := tenant.Handle(tx, &model.User{}).
			Where("email = ?", user.Email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return &tenant.ValidationError{Reason: "a user with this email already exists"}
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return writeTenantError(c, log, err)
	}

	log.Info("User created", zap.String("user_id", user.ID), zap.String("role", user.Role))
	return c.JSON(http.StatusCreated, user)
}

// Get returns one workspace member
func (h *UserHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	defer prometheus.TrackDBOperation("query")(time.Now())

	var user model.User
	err := h.scope.RunCurrent(c.Request().Context(), func(tx *gorm.DB) error {
		return tenant.Handle(tx, &model.User{}).Where("id = ?", id).First(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return writeTenantError(c, log, err)
	}

	return c.JSON(http.StatusOK, user)
}

// Delete removes a workspace member. The owner cannot be removed.
func (h *UserHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	defer prometheus.TrackDBOperation("delete")(time.Now())

	err := h.scope.RunCurrent(c.Request().Context(), func(tx *gorm.DB) error {
		var user model.User
		if err := tenant.Handle(tx, &model.User{}).Where("id = ?", id).First(&user).Error; err != nil {
			return err
		}
		if user.IsOwner {
			return &tenant.ValidationError{Reason: "the workspace owner cannot be removed"}
		}
		return tx.Delete(&model.User{}, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return writeTenantError(c, log, err)
	}

	log.Info("User deleted", zap.String("user_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}
