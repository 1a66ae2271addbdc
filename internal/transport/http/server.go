package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamechat-server/internal/auth"
	"github.com/vovakirdan/gamechat-server/internal/chat"
	"github.com/vovakirdan/gamechat-server/internal/config"
	"github.com/vovakirdan/gamechat-server/internal/store"
)

// NewServer builds the HTTP server: health and metrics probes, the channel
// admin API, token minting, and the websocket endpoint.
func NewServer(dir *chat.Directory, st store.Store, jwtCfg *auth.JWTConfig, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	h := &channelHandlers{dir: dir, store: st, jwt: jwtCfg, log: logger}
	ws := NewWSHandler(dir, jwtCfg, cfg.SessionQueueSize, logger)

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", func(c *gin.Context) { ws.ServeHTTP(c.Writer, c.Request) })

	api := router.Group("/api")
	api.GET("/channels", h.listChannels)
	api.POST("/token", h.mintToken)

	admin := api.Group("", requireLevel(jwtCfg, chat.LevelAdmin))
	admin.POST("/channels", h.createChannel)
	admin.POST("/channels/instances", h.createInstance)
	admin.DELETE("/channels/:name", h.deleteChannel)
	admin.PUT("/channels/:name/topic", h.setTopic)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
