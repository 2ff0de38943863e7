package game

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"newavalon/domain"
)

type ActionReader interface {
	ActionsForSession(ctx context.Context, sessionID string, limit int) ([]domain.Action, error)
}

type GameHandler struct {
	router    Router
	idgen     UniqueIdGenerator
	rateLimit rate.Limit
	rateBurst int
	upgrader  websocket.Upgrader
}

func NewGameHandler(router Router, idgen UniqueIdGenerator, rateLimit rate.Limit, rateBurst int) *GameHandler {
	return &GameHandler{
		router:    router,
		idgen:     idgen,
		rateLimit: rateLimit,
		rateBurst: rateBurst,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// origins are checked by the server middleware
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *GameHandler) WebsocketHandler(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", ctx.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	c := NewClient(h.idgen.Generate(), NewWebsocketConnection(conn), rate.NewLimiter(h.rateLimit, h.rateBurst))
	log.Debug().Str("conn", c.ID()).Str("ip", ctx.ClientIP()).Msg("client connected")

	go c.WritePump()
	c.ReadPump(context.Background(), h.router)
	log.Debug().Str("conn", c.ID()).Msg("client disconnected")
}

func (h *GameHandler) PublicSessionsHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"sessions": h.router.PublicSessions(ctx.Request.Context())})
}

func SessionActionsHandler(repo ActionReader) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actions, err := repo.ActionsForSession(ctx.Request.Context(), ctx.Param("id"), 200)
		if err != nil {
			log.Error().Err(err).Str("session", ctx.Param("id")).Msg("failed to read action log")
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"actions": actions})
	}
}
