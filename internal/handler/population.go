package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"moviecatalog/internal/auth"
	"moviecatalog/internal/models"
	"moviecatalog/internal/populate"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamPingInterval = 30 * time.Second
)

type PopulationStats interface {
	Stats() populate.Stats
}

type PopulationHandler struct {
	Queue       PopulationStats
	Broadcaster *populate.Broadcaster
	JWT         auth.JWT
	Logger      *zap.Logger
}

func (h *PopulationHandler) Register(r *gin.Engine) {
	admin := auth.RequireRole(models.RoleAdmin)
	r.GET("/api/movies/population", auth.Protect(h.JWT), admin, h.stats)
	r.GET("/api/movies/population/stream", auth.ProtectStream(h.JWT), admin, h.stream)
}

// @Summary Population queue stats
// @Tags population
// @Security BearerAuth
// @Success 200 {object} apiResponse
// @Router /api/movies/population [get]
func (h *PopulationHandler) stats(c *gin.Context) {
	if h.Queue == nil {
		Error(c, http.StatusInternalServerError, "population queue unavailable", nil)
		return
	}
	var meta map[string]any
	if h.Broadcaster != nil {
		meta = map[string]any{
			"subscribers":    h.Broadcaster.Subscribers(),
			"dropped_events": h.Broadcaster.Dropped(),
		}
	}
	Ok(c, h.Queue.Stats(), meta)
}

// @Summary Stream population results
// @Description Websocket. Each finished population task is pushed as a JSON text message.
// @Tags population
// @Security BearerAuth
// @Param access_token query string false "bearer token for clients that cannot set headers"
// @Success 101
// @Router /api/movies/population/stream [get]
func (h *PopulationHandler) stream(c *gin.Context) {
	if h.Broadcaster == nil {
		Error(c, http.StatusInternalServerError, "population stream unavailable", nil)
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		h.log().Warn("population stream accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	events, cancel := h.Broadcaster.Subscribe()
	defer cancel()

	// Nothing is read from the client; CloseRead handles control frames and
	// cancels ctx when the peer goes away.
	ctx := conn.CloseRead(c.Request.Context())
	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case res, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "stream closed")
				return
			}
			if err := h.write(ctx, conn, res); err != nil {
				if !errors.Is(err, context.Canceled) {
					h.log().Debug("population stream write failed", zap.Error(err))
				}
				return
			}
		case <-ticker.C:
			pingCtx, stop := context.WithTimeout(ctx, streamWriteTimeout)
			err := conn.Ping(pingCtx)
			stop()
			if err != nil {
				return
			}
		}
	}
}

func (h *PopulationHandler) write(ctx context.Context, conn *websocket.Conn, res populate.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, payload)
}

func (h *PopulationHandler) log() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
