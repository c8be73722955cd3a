package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"moviecatalog/internal/auth"
	"moviecatalog/internal/models"
	"moviecatalog/internal/service"
)

type MovieHandler struct {
	Read   *service.CatalogReadService
	Write  *service.CatalogWriteService
	JWT    auth.JWT
	Logger *zap.Logger
}

type deleteMovieResponse struct {
	Message string        `json:"message"`
	Movie   *models.Movie `json:"movie"`
}

func (h *MovieHandler) Register(r *gin.Engine) {
	group := r.Group("/api/movies")
	group.GET("", h.list)
	group.GET("/sorted", h.sorted)
	group.GET("/search", h.search)
	group.GET("/:id", h.get)

	admin := group.Group("", auth.Protect(h.JWT), auth.RequireRole(models.RoleAdmin))
	admin.POST("", h.create)
	admin.PUT("/:id", h.update)
	admin.DELETE("/:id", h.remove)
}

// @Summary List movies
// @Description Answers from the seed catalog while the store is empty and starts background population.
// @Tags movies
// @Param pageNumber query int false "1-indexed page (alias: page)"
// @Success 200 {object} service.MoviePage
// @Failure 500 {object} apiResponse
// @Router /api/movies [get]
func (h *MovieHandler) list(c *gin.Context) {
	page, err := h.Read.List(c.Request.Context(), pageQuery(c))
	if err != nil {
		h.serverError(c, "list movies failed", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// @Summary List movies sorted
// @Tags movies
// @Param sortBy query string false "rating|releaseDate|duration; anything else sorts newest first"
// @Param order query string false "asc|desc"
// @Param pageNumber query int false "1-indexed page (alias: page)"
// @Success 200 {object} service.MoviePage
// @Failure 500 {object} apiResponse
// @Router /api/movies/sorted [get]
func (h *MovieHandler) sorted(c *gin.Context) {
	page, err := h.Read.Sorted(c.Request.Context(), service.SortQuery{
		SortBy: c.Query("sortBy"),
		Order:  c.Query("order"),
		Page:   pageQuery(c),
	})
	if err != nil {
		h.serverError(c, "sorted movies failed", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// @Summary Search movies
// @Description Case-insensitive match on name or description. Stored movies only.
// @Tags movies
// @Param q query string false "search text"
// @Success 200 {array} models.Movie
// @Failure 500 {object} apiResponse
// @Router /api/movies/search [get]
func (h *MovieHandler) search(c *gin.Context) {
	items, err := h.Read.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.serverError(c, "search movies failed", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// @Summary Get movie
// @Tags movies
// @Param id path int true "movie id"
// @Success 200 {object} models.Movie
// @Failure 404 {object} apiResponse
// @Router /api/movies/{id} [get]
func (h *MovieHandler) get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		Error(c, http.StatusBadRequest, "invalid movie id", nil)
		return
	}
	item, err := h.Write.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// @Summary Create movie
// @Tags movies
// @Security BearerAuth
// @Param body body service.MovieInput true "movie"
// @Success 201 {object} models.Movie
// @Failure 400 {object} apiResponse
// @Failure 401 {object} apiResponse
// @Failure 403 {object} apiResponse
// @Router /api/movies [post]
func (h *MovieHandler) create(c *gin.Context) {
	var in service.MovieInput
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Write.Create(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// @Summary Update movie
// @Description Supplied fields overwrite, omitted fields keep their stored value.
// @Tags movies
// @Security BearerAuth
// @Param id path int true "movie id"
// @Param body body service.MovieInput true "fields to change"
// @Success 200 {object} models.Movie
// @Failure 400 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/movies/{id} [put]
func (h *MovieHandler) update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		Error(c, http.StatusBadRequest, "invalid movie id", nil)
		return
	}
	var in service.MovieInput
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Write.Update(c.Request.Context(), id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// @Summary Delete movie
// @Tags movies
// @Security BearerAuth
// @Param id path int true "movie id"
// @Success 200 {object} deleteMovieResponse
// @Failure 404 {object} apiResponse
// @Router /api/movies/{id} [delete]
func (h *MovieHandler) remove(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		Error(c, http.StatusBadRequest, "invalid movie id", nil)
		return
	}
	item, err := h.Write.Delete(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, deleteMovieResponse{Message: "movie deleted", Movie: item})
}

func (h *MovieHandler) writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		Error(c, http.StatusBadRequest, verr.Error(), map[string]any{"fields": verr.Fields})
	case errors.Is(err, service.ErrMovieNotFound):
		Error(c, http.StatusNotFound, "movie not found", nil)
	default:
		h.serverError(c, "movie write failed", err)
	}
}

func (h *MovieHandler) serverError(c *gin.Context, msg string, err error) {
	if h.Logger != nil {
		h.Logger.Error(msg, zap.Error(err), zap.String("path", c.Request.URL.Path))
	}
	Error(c, http.StatusInternalServerError, "server error", nil)
}
