package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamechat-server/internal/auth"
	"github.com/vovakirdan/gamechat-server/internal/chat"
	"github.com/vovakirdan/gamechat-server/internal/metrics"
	"github.com/vovakirdan/gamechat-server/internal/proto"
	"github.com/vovakirdan/gamechat-server/internal/session"
)

// WSHandler upgrades HTTP connections and bridges them to chat sessions.
// It is the gating collaborator: read/write levels are enforced here,
// before any channel operation is invoked.
type WSHandler struct {
	dir       *chat.Directory
	jwt       *auth.JWTConfig
	queueSize int
	log       *zerolog.Logger

	mu       sync.Mutex
	sessions map[chat.SessionID]*session.Session
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(dir *chat.Directory, jwtCfg *auth.JWTConfig, queueSize int, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		dir:       dir,
		jwt:       jwtCfg,
		queueSize: queueSize,
		log:       logger,
		sessions:  make(map[chat.SessionID]*session.Session),
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess, err := h.handshake(ctx, conn)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws handshake failed")
		_ = wsjson.Write(ctx, conn, proto.Outbound{
			Type: proto.OutboundTypeError,
			Data: proto.ErrorPacket{Code: "handshake_failed", Msg: err.Error()},
		})
		conn.Close(websocket.StatusPolicyViolation, "handshake failed")
		return
	}

	h.register(sess)
	metrics.SessionsGauge.Inc()
	defer func() {
		h.unregister(sess)
		metrics.SessionsGauge.Dec()
	}()

	// Per-connection view of joined channels; the session-to-channel index
	// lives here, not on the channel.
	joined := make(map[string]*chat.Channel)
	h.autoJoin(sess, joined)

	if err := wsjson.Write(ctx, conn, proto.Outbound{
		Type: proto.OutboundTypeChannels,
		Data: h.dir.Summaries(),
	}); err != nil {
		h.log.Warn().Err(err).Msg("write channel listing")
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sess, joined)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sess)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	h.leaveAll(sess, joined)
	sess.Close()

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// handshake reads the hello frame and resolves the session identity. A
// valid token carries identity and access level; without one the
// connection gets a generated guest identity at the baseline level.
func (h *WSHandler) handshake(ctx context.Context, conn *websocket.Conn) (*session.Session, error) {
	var inbound proto.Inbound
	if err := wsjson.Read(ctx, conn, &inbound); err != nil {
		return nil, fmt.Errorf("read hello: %w", err)
	}
	if inbound.Type != proto.InboundTypeHello {
		return nil, fmt.Errorf("expected hello, got %q", inbound.Type)
	}

	var hello proto.HelloData
	if err := unmarshalData(inbound.Data, &hello); err != nil {
		return nil, fmt.Errorf("decode hello: %w", err)
	}
	if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
		return nil, fmt.Errorf("unsupported protocol version %d", hello.Protocol)
	}

	if hello.Token != "" && len(h.jwt.Secret) > 0 {
		claims, err := auth.ValidateToken(h.jwt, hello.Token)
		if err != nil {
			return nil, fmt.Errorf("validate token: %w", err)
		}
		return session.New(chat.SessionID(claims.UserID), claims.Username, claims.AccessLevel(), h.queueSize, h.log), nil
	}

	id := session.NewGuestID()
	name := fmt.Sprintf("guest-%d", id)
	return session.New(id, name, chat.LevelNormal, h.queueSize, h.log), nil
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session, joined map[string]*chat.Channel) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		switch inbound.Type {
		case proto.InboundTypeJoin:
			var data proto.JoinData
			if err := unmarshalData(inbound.Data, &data); err != nil {
				sess.Enqueue(proto.EncodeError("bad_request", "malformed join"))
				continue
			}
			h.handleJoin(sess, joined, data.Channel)

		case proto.InboundTypeLeave:
			var data proto.JoinData
			if err := unmarshalData(inbound.Data, &data); err != nil {
				sess.Enqueue(proto.EncodeError("bad_request", "malformed leave"))
				continue
			}
			h.handleLeave(sess, joined, data.Channel)

		case proto.InboundTypeMsg:
			var data proto.MsgData
			if err := unmarshalData(inbound.Data, &data); err != nil {
				sess.Enqueue(proto.EncodeError("bad_request", "malformed msg"))
				continue
			}
			h.handleMessage(sess, joined, data)

		case proto.InboundTypePM:
			var data proto.PMData
			if err := unmarshalData(inbound.Data, &data); err != nil {
				sess.Enqueue(proto.EncodeError("bad_request", "malformed pm"))
				continue
			}
			h.handlePM(sess, joined, data)

		default:
			sess.Enqueue(proto.EncodeError("bad_request", fmt.Sprintf("unknown frame type %q", inbound.Type)))
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-sess.Out():
			if !ok {
				return nil
			}
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				return err
			}
		}
	}
}

func (h *WSHandler) handleJoin(sess *session.Session, joined map[string]*chat.Channel, name string) {
	ch, ok := h.dir.Get(canonicalName(name))
	if !ok {
		sess.Enqueue(proto.EncodeError(chat.ErrCodeChannelNotFound, "channel not found"))
		return
	}
	if sess.Level() < ch.ReadLevel() {
		sess.Enqueue(proto.EncodeError("forbidden", "insufficient access level"))
		return
	}

	if err := ch.Join(sess); err != nil {
		h.reportError(sess, err)
		return
	}
	joined[ch.Name()] = ch

	ch.Enqueue(proto.EncodeSystem(ch.DisplayName(), proto.SystemEventJoined, sess.Name(), ""), sess.ID())
	metrics.PacketsEnqueuedSystem.Inc()
}

func (h *WSHandler) handleLeave(sess *session.Session, joined map[string]*chat.Channel, name string) {
	internal := canonicalName(name)
	ch, ok := joined[internal]
	if !ok {
		sess.Enqueue(proto.EncodeError(chat.ErrCodeNotInChannel, "not in channel"))
		return
	}
	delete(joined, internal)

	if err := ch.Leave(sess); err != nil {
		// Leave after instance teardown races to here; the channel is gone
		// either way, only real inconsistencies deserve a log.
		if !errors.Is(err, chat.ErrChannelClosed) {
			h.log.Error().Err(err).Str("channel", internal).Msg("leave failed")
		}
		h.reportError(sess, err)
		return
	}

	ch.Enqueue(proto.EncodeSystem(ch.DisplayName(), proto.SystemEventLeft, sess.Name(), ""))
	metrics.PacketsEnqueuedSystem.Inc()
	if ch.IsInstance() {
		metrics.ChannelsGauge.Set(float64(h.dir.Len()))
	}
}

func (h *WSHandler) handleMessage(sess *session.Session, joined map[string]*chat.Channel, data proto.MsgData) {
	ch, ok := joined[canonicalName(data.Channel)]
	if !ok {
		sess.Enqueue(proto.EncodeError(chat.ErrCodeNotInChannel, "not in channel"))
		return
	}
	if sess.Level() < ch.WriteLevel() {
		sess.Enqueue(proto.EncodeError("forbidden", "insufficient access level"))
		return
	}

	payload := proto.EncodeMessage(sess.Name(), int64(sess.ID()), ch.DisplayName(), data.Text)
	ch.Broadcast(sess, payload, data.IncludeSelf)
	metrics.BroadcastsCount.Inc()
	metrics.PacketsEnqueuedMessage.Inc()
}

// handlePM delivers a channel-framed reply to exactly one session,
// regardless of the target's membership.
func (h *WSHandler) handlePM(sess *session.Session, joined map[string]*chat.Channel, data proto.PMData) {
	ch, ok := joined[canonicalName(data.Channel)]
	if !ok {
		sess.Enqueue(proto.EncodeError(chat.ErrCodeNotInChannel, "not in channel"))
		return
	}
	if sess.Level() < ch.WriteLevel() {
		sess.Enqueue(proto.EncodeError("forbidden", "insufficient access level"))
		return
	}

	target, ok := h.lookup(chat.SessionID(data.To))
	if !ok {
		sess.Enqueue(proto.EncodeError("session_not_found", "target session not connected"))
		return
	}

	payload := proto.EncodeMessage(sess.Name(), int64(sess.ID()), ch.DisplayName(), data.Text)
	ch.SendSelective(payload, target)
	metrics.PacketsEnqueuedMessage.Inc()
}

// autoJoin subscribes a fresh session to every auto-join channel its level
// can read.
func (h *WSHandler) autoJoin(sess *session.Session, joined map[string]*chat.Channel) {
	for _, ch := range h.dir.Channels() {
		if !ch.AutoJoin() || sess.Level() < ch.ReadLevel() {
			continue
		}
		if err := ch.Join(sess); err != nil {
			h.log.Warn().Err(err).Str("channel", ch.Name()).Msg("auto-join failed")
			continue
		}
		joined[ch.Name()] = ch
		ch.Enqueue(proto.EncodeSystem(ch.DisplayName(), proto.SystemEventJoined, sess.Name(), ""), sess.ID())
	}
}

// leaveAll detaches a disconnecting session from everything it joined.
func (h *WSHandler) leaveAll(sess *session.Session, joined map[string]*chat.Channel) {
	for name, ch := range joined {
		delete(joined, name)
		if err := ch.Leave(sess); err != nil {
			if errors.Is(err, chat.ErrChannelClosed) {
				continue
			}
			h.log.Error().Err(err).Str("channel", name).Msg("leave on disconnect failed")
			continue
		}
		ch.Enqueue(proto.EncodeSystem(ch.DisplayName(), proto.SystemEventLeft, sess.Name(), ""))
	}
	metrics.ChannelsGauge.Set(float64(h.dir.Len()))
}

func (h *WSHandler) reportError(sess *session.Session, err error) {
	if chatErr := chat.AsChatError(err); chatErr != nil {
		sess.Enqueue(proto.EncodeError(chatErr.Code, chatErr.Message))
		return
	}
	sess.Enqueue(proto.EncodeError("internal", "internal error"))
}

func (h *WSHandler) register(sess *session.Session) {
	h.mu.Lock()
	h.sessions[sess.ID()] = sess
	h.mu.Unlock()
}

func (h *WSHandler) unregister(sess *session.Session) {
	h.mu.Lock()
	if h.sessions[sess.ID()] == sess {
		delete(h.sessions, sess.ID())
	}
	h.mu.Unlock()
}

func (h *WSHandler) lookup(id chat.SessionID) (*session.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[id]
	return sess, ok
}
