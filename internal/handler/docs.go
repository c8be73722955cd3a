package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterDocs serves a short route overview next to the swagger UI.
func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# Movie Catalog API

## Reads (public)

- GET /api/movies?pageNumber=N
- GET /api/movies/sorted?sortBy=rating|releaseDate|duration&order=asc|desc&pageNumber=N
- GET /api/movies/search?q=text
- GET /api/movies/:id

While the store is empty, /api/movies answers from the seed catalog
("source": "seed", no ids) and fills the store in the background.
Sorted and search reads only see stored movies.

## Writes (admin bearer token)

- POST /api/movies
- PUT /api/movies/:id
- DELETE /api/movies/:id

## Auth

- POST /api/auth/register
- POST /api/auth/login
- GET /api/auth/profile

## Operations (admin)

- GET /api/movies/population
- GET /api/movies/population/stream (websocket)
- GET /api/settings/switches
- PUT /api/settings/switches/:name

## Infra

- GET /healthz
- GET /readyz
- GET /metrics
- GET /swagger/index.html
`)
	})
}
