package http

import (
	"errors"
	stdhttp "net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamechat-server/internal/auth"
	"github.com/vovakirdan/gamechat-server/internal/chat"
	"github.com/vovakirdan/gamechat-server/internal/metrics"
	"github.com/vovakirdan/gamechat-server/internal/proto"
	"github.com/vovakirdan/gamechat-server/internal/session"
	"github.com/vovakirdan/gamechat-server/internal/store"
	"github.com/vovakirdan/gamechat-server/internal/store/sqlite"
)

type channelHandlers struct {
	dir   *chat.Directory
	store store.Store
	jwt   *auth.JWTConfig
	log   *zerolog.Logger
}

type createChannelRequest struct {
	Name       string `json:"name" binding:"required"`
	Topic      string `json:"topic"`
	ReadLevel  string `json:"read_level"`
	WriteLevel string `json:"write_level"`
	AutoJoin   *bool  `json:"auto_join"`
}

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// listChannels returns the live channel summaries. Instanced channels show
// under their shared display alias, same as on the wire.
func (h *channelHandlers) listChannels(c *gin.Context) {
	c.JSON(stdhttp.StatusOK, h.dir.Summaries())
}

// mintToken issues a normal-level token for development and game-server
// integration tests. Elevated tokens are provisioned out of band.
func (h *channelHandlers) mintToken(c *gin.Context) {
	if len(h.jwt.Secret) == 0 {
		c.JSON(stdhttp.StatusServiceUnavailable, gin.H{"error": "token auth not configured"})
		return
	}

	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(stdhttp.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := auth.GenerateToken(h.jwt, int64(session.NewGuestID()), req.Username, chat.LevelNormal)
	if err != nil {
		h.log.Error().Err(err).Msg("mint token")
		c.JSON(stdhttp.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	c.JSON(stdhttp.StatusOK, tokenResponse{Token: token})
}

// createChannel persists a channel definition and registers it live.
func (h *channelHandlers) createChannel(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(stdhttp.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := canonicalName(req.Name)
	opts := chat.DefaultOptions()
	if req.ReadLevel != "" {
		opts.ReadLevel = chat.ParseAccessLevel(req.ReadLevel)
	}
	if req.WriteLevel != "" {
		opts.WriteLevel = chat.ParseAccessLevel(req.WriteLevel)
	}
	if req.AutoJoin != nil {
		opts.AutoJoin = *req.AutoJoin
	}

	def := store.ChannelDef{
		Name:       name,
		Topic:      req.Topic,
		ReadLevel:  opts.ReadLevel.String(),
		WriteLevel: opts.WriteLevel.String(),
		AutoJoin:   opts.AutoJoin,
	}
	if err := h.store.CreateChannel(c.Request.Context(), def); err != nil {
		if errors.Is(err, sqlite.ErrExists) {
			c.JSON(stdhttp.StatusConflict, gin.H{"error": "channel already exists"})
			return
		}
		h.log.Error().Err(err).Str("channel", name).Msg("persist channel")
		c.JSON(stdhttp.StatusInternalServerError, gin.H{"error": "store failure"})
		return
	}

	ch, err := h.dir.Create(name, req.Topic, opts)
	if err != nil {
		// Persisted but already live: the store and directory disagree.
		// Surface it; an operator has to reconcile, retrying would hide it.
		h.log.Error().Err(err).Str("channel", name).Msg("registry and store out of sync")
		c.JSON(stdhttp.StatusConflict, gin.H{"error": "channel already live"})
		return
	}

	metrics.ChannelsGauge.Set(float64(h.dir.Len()))
	h.log.Info().Str("channel", ch.Name()).Msg("channel created")
	c.JSON(stdhttp.StatusCreated, ch.Summary())
}

// deleteChannel tears a channel down: members get a final notice, the
// registry drops it, and the definition is removed from the store.
func (h *channelHandlers) deleteChannel(c *gin.Context) {
	name := canonicalName(c.Param("name"))

	ch, ok := h.dir.Get(name)
	if !ok {
		c.JSON(stdhttp.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}

	ch.Enqueue(proto.EncodeSystem(ch.DisplayName(), proto.SystemEventClosed, "", "channel removed"))
	if err := h.dir.Remove(ch); err != nil {
		h.log.Error().Err(err).Str("channel", name).Msg("remove channel")
		c.JSON(stdhttp.StatusInternalServerError, gin.H{"error": "remove failed"})
		return
	}

	if err := h.store.DeleteChannel(c.Request.Context(), name); err != nil && !errors.Is(err, sqlite.ErrNotFound) {
		// Instance channels are never persisted, so a missing row is fine.
		h.log.Error().Err(err).Str("channel", name).Msg("delete channel definition")
	}

	metrics.ChannelsGauge.Set(float64(h.dir.Len()))
	h.log.Info().Str("channel", name).Msg("channel removed")
	c.Status(stdhttp.StatusNoContent)
}

type createInstanceRequest struct {
	Kind  string `json:"kind" binding:"required"` // "spectator" or "multiplayer"
	ID    int64  `json:"id" binding:"required"`
	Topic string `json:"topic"`
}

// createInstance registers an ephemeral channel for a lobby or spectating
// target. Instances are never persisted; they remove themselves when the
// last member leaves.
func (h *channelHandlers) createInstance(c *gin.Context) {
	var req createInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(stdhttp.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var kind chat.InstanceKind
	switch req.Kind {
	case "spectator":
		kind = chat.InstanceSpectator
	case "multiplayer":
		kind = chat.InstanceMultiplayer
	default:
		c.JSON(stdhttp.StatusBadRequest, gin.H{"error": "kind must be spectator or multiplayer"})
		return
	}

	ch, err := h.dir.CreateInstance(kind, req.ID, req.Topic)
	if err != nil {
		if errors.Is(err, chat.ErrChannelExists) {
			c.JSON(stdhttp.StatusConflict, gin.H{"error": "instance already exists"})
			return
		}
		h.log.Error().Err(err).Msg("create instance")
		c.JSON(stdhttp.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	metrics.ChannelsGauge.Set(float64(h.dir.Len()))
	h.log.Info().Str("channel", ch.Name()).Msg("instance channel created")
	c.JSON(stdhttp.StatusCreated, gin.H{"name": ch.Name(), "display_name": ch.DisplayName()})
}

type setTopicRequest struct {
	Topic string `json:"topic" binding:"required"`
}

// setTopic updates a channel topic and announces it to current members.
func (h *channelHandlers) setTopic(c *gin.Context) {
	name := canonicalName(c.Param("name"))

	ch, ok := h.dir.Get(name)
	if !ok {
		c.JSON(stdhttp.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}

	var req setTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(stdhttp.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch.SetTopic(req.Topic)
	ch.Enqueue(proto.EncodeSystem(ch.DisplayName(), proto.SystemEventTopic, "", req.Topic))
	c.JSON(stdhttp.StatusOK, ch.Summary())
}

// canonicalName normalizes channel names from URLs and request bodies,
// where the leading # is usually omitted.
func canonicalName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasPrefix(name, "#") {
		return name
	}
	return "#" + name
}
