package handler

import (
	"crypto/rand"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"workspace-service/internal/mail"
	"workspace-service/internal/middleware"
	"workspace-service/internal/model"
	"workspace-service/internal/security"
	"workspace-service/internal/tenant"
	"workspace-service/pkg/jwtutil"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const otpTTL = 5 * time.Minute

// newOneTimeCode draws a six-digit code from the OS entropy source.
func newOneTimeCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return 0, err
	}
	return 100000 + int(n.Int64()), nil
}

// AuthHandler covers the pre-workspace signup flow (one-time codes) and the
// workspace-scoped login flow.
type AuthHandler struct {
	db     *gorm.DB
	scope  *tenant.Scope
	sender mail.Sender
}

func NewAuthHandler(db *gorm.DB, scope *tenant.Scope, sender mail.Sender) *AuthHandler {
	return &AuthHandler{db: db, scope: scope, sender: sender}
}

// Signup issues a one-time code to an email that does not yet own a workspace
func (h *AuthHandler) Signup(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	defer prometheus.TrackDBOperation("insert")(time.Now())
	ctx := c.Request().Context()

	var existing int64
	if err := h.db.WithContext(ctx).Model(&model.Organization{}).
		Where("LOWER(email) = ?", email).Count(&existing).Error; err != nil {
		log.Error("Failed to check existing workspace", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signup failed"})
	}
	if existing > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a workspace already exists for this email"})
	}

	code, err := newOneTimeCode()
	if err != nil {
		log.Error("Failed to generate one-time code", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signup failed"})
	}
	expiresAt := time.Now().Add(otpTTL)

	// One active code per email: replace any previous one
	var otp model.OTP
	err = h.db.WithContext(ctx).Where("email = ?", email).First(&otp).Error
	switch {
	case err == nil:
		otp.Code = code
		otp.ExpiresAt = expiresAt
		err = h.db.WithContext(ctx).Save(&otp).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		otp = model.OTP{Email: email, Code: code, ExpiresAt: expiresAt}
		err = h.db.WithContext(ctx).Create(&otp).Error
	}
	if err != nil {
		log.Error("Failed to store one-time code", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signup failed"})
	}

	// Fire and forget; delivery failures are logged, never surfaced
	go func(email string, code int) {
		if err := h.sender.SendOneTimeCode(email, code); err != nil {
			logger.GetLogger().Error("Failed to send one-time code",
				zap.String("email", email), zap.Error(err))
		}
	}(email, code)

	log.Info("One-time code issued", zap.String("email", email))
	return c.JSON(http.StatusOK, echo.Map{"message": "verification code sent"})
}

// VerifyOTP checks a one-time code before onboarding proceeds
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Email string `json:"email"`
		Code  int    `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	defer prometheus.TrackDBOperation("query")(time.Now())

	var otp model.OTP
	if err := h.db.WithContext(c.Request().Context()).Where("email = ?", email).First(&otp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no verification code found for this email"})
		}
		log.Error("Failed to load one-time code", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}

	if time.Now().After(otp.ExpiresAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "verification code expired"})
	}
	if otp.Code != req.Code {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid verification code"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "code verified"})
}

// Login authenticates a user inside the resolved workspace. The resolver
// middleware must have bound a workspace before this runs.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	org, ok := c.Get(middleware.OrganizationKey).(*model.Organization)
	if !ok {
		log.Error("Login without resolved workspace")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "workspace identification required"})
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var user model.User
	err := h.scope.RunCurrent(c.Request().Context(), func(tx *gorm.DB) error {
		return tenant.Handle(tx, &model.User{}).
			Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).
			First(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			prometheus.RecordError("invalid_credentials")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		log.Error("Login lookup failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	if !security.Verify(req.Password, user.Password) {
		prometheus.RecordError("invalid_credentials")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := jwtutil.GenerateToken(user.ID, user.Email, user.Role, org.Handle, org.SchemaName)
	if err != nil {
		log.Error("Token generation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	log.Info("User logged in",
		zap.String("workspace", org.Handle),
		zap.String("user_id", user.ID))

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user":  user,
	})
}
