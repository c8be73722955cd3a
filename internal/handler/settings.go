package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"moviecatalog/internal/auth"
	"moviecatalog/internal/models"
	"moviecatalog/internal/service"
)

const featurePrefix = "feature."

type SettingsHandler struct {
	Settings *service.SystemSettingsService
	JWT      auth.JWT
}

type putSwitchRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *SettingsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/settings/switches", auth.Protect(h.JWT), auth.RequireRole(models.RoleAdmin))
	g.GET("", h.listSwitches)
	g.GET("/:name", h.getSwitch)
	g.PUT("/:name", h.putSwitch)
}

// @Summary List feature switches
// @Tags settings
// @Security BearerAuth
// @Success 200 {object} apiResponse
// @Router /api/settings/switches [get]
func (h *SettingsHandler) listSwitches(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	items, err := h.Settings.ListSwitches(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary Get a feature switch
// @Tags settings
// @Security BearerAuth
// @Param name path string true "switch name without the feature. prefix"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/settings/switches/{name} [get]
func (h *SettingsHandler) getSwitch(c *gin.Context) {
	key, ok := h.switchKey(c)
	if !ok {
		return
	}
	enabled := h.Settings.IsEnabled(c.Request.Context(), key, service.DefaultFeatureSwitches()[key])
	Ok(c, map[string]any{
		"name":    strings.TrimPrefix(key, featurePrefix),
		"key":     key,
		"enabled": enabled,
	}, nil)
}

// @Summary Turn a feature switch on or off
// @Tags settings
// @Security BearerAuth
// @Param name path string true "switch name without the feature. prefix"
// @Param body body putSwitchRequest true "new state"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/settings/switches/{name} [put]
func (h *SettingsHandler) putSwitch(c *gin.Context) {
	key, ok := h.switchKey(c)
	if !ok {
		return
	}
	var req putSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.Settings.SetEnabled(c.Request.Context(), key, *req.Enabled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{
		"name":    strings.TrimPrefix(key, featurePrefix),
		"key":     key,
		"enabled": *req.Enabled,
	}, nil)
}

// switchKey resolves the path name to a known switch key, writing the
// error response itself when it cannot.
func (h *SettingsHandler) switchKey(c *gin.Context) (string, bool) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return "", false
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "invalid switch name", nil)
		return "", false
	}
	key := featurePrefix + strings.TrimPrefix(name, featurePrefix)
	if !service.IsKnownSwitch(key) {
		Error(c, http.StatusNotFound, "unknown switch", nil)
		return "", false
	}
	return key, true
}
