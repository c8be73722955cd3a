package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"moviecatalog/internal/auth"
	"moviecatalog/internal/service"
)

type AuthHandler struct {
	Service *service.AuthService
	JWT     auth.JWT
	Logger  *zap.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(r *gin.Engine) {
	group := r.Group("/api/auth")
	group.POST("/register", h.register)
	group.POST("/login", h.login)
	group.GET("/profile", auth.Protect(h.JWT), h.profile)
}

// @Summary Register a user
// @Tags auth
// @Param body body service.RegisterInput true "new user"
// @Success 201 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/auth/register [post]
func (h *AuthHandler) register(c *gin.Context) {
	var in service.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	user, err := h.Service.Register(c.Request.Context(), in)
	var verr *service.ValidationError
	switch {
	case err == nil:
		Created(c, user)
	case errors.As(err, &verr):
		Error(c, http.StatusBadRequest, verr.Error(), map[string]any{"fields": verr.Fields})
	case errors.Is(err, service.ErrEmailTaken):
		Error(c, http.StatusConflict, err.Error(), nil)
	default:
		h.serverError(c, "register failed", err)
	}
}

// @Summary Log in
// @Tags auth
// @Param body body loginRequest true "credentials"
// @Success 200 {object} apiResponse
// @Failure 401 {object} apiResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	res, err := h.Service.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		Ok(c, res, nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		Error(c, http.StatusUnauthorized, err.Error(), nil)
	default:
		h.serverError(c, "login failed", err)
	}
}

// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} apiResponse
// @Failure 401 {object} apiResponse
// @Router /api/auth/profile [get]
func (h *AuthHandler) profile(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "missing token", nil)
		return
	}
	user, err := h.Service.Profile(c.Request.Context(), claims.UserID)
	switch {
	case err == nil:
		Ok(c, user, nil)
	case errors.Is(err, service.ErrUserNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	default:
		h.serverError(c, "profile failed", err)
	}
}

func (h *AuthHandler) serverError(c *gin.Context, msg string, err error) {
	if h.Logger != nil {
		h.Logger.Error(msg, zap.Error(err))
	}
	Error(c, http.StatusInternalServerError, "server error", nil)
}
