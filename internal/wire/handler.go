package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/matthewbaird/estatein/internal/auth"
	"github.com/matthewbaird/estatein/internal/chat"
	"github.com/matthewbaird/estatein/internal/crud"
	"github.com/matthewbaird/estatein/internal/feed"
	"github.com/matthewbaird/estatein/internal/logger"
)

// Handler manages dashboard WebSocket connections. It must be mounted
// behind the session middleware.
type Handler struct {
	svc       *crud.Service
	hub       *feed.Hub
	assistant *chat.Assistant
	origins   []string
	log       zerolog.Logger
}

// NewHandler creates a WebSocket handler. origins are the accepted Origin
// host patterns; empty accepts same-origin requests only.
func NewHandler(svc *crud.Service, hub *feed.Hub, assistant *chat.Assistant, origins []string) *Handler {
	return &Handler{
		svc:       svc,
		hub:       hub,
		assistant: assistant,
		origins:   origins,
		log:       logger.Component("wire"),
	}
}

// conn is the per-connection state.
type conn struct {
	h       *Handler
	ws      *websocket.Conn
	session *auth.Session

	mu   sync.Mutex
	subs map[string]*feed.Subscription
	wg   sync.WaitGroup
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer ws.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	c := &conn{h: h, ws: ws, session: sess, subs: make(map[string]*feed.Subscription)}
	defer func() {
		cancel()
		c.closeAll()
		c.wg.Wait()
	}()

	c.send(ctx, ServerMessage{
		Type: TypeSession,
		Data: SessionData{
			Username:    sess.Username,
			Collections: h.svc.Registry().Names(),
			Suggestions: h.assistant.Suggestions(),
		},
	})

	for _, name := range r.URL.Query()["subscribe"] {
		c.subscribe(ctx, "", SubscribeData{Collection: name})
	}

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				h.log.Debug().Int("status", int(status)).Msg("connection closed")
			}
			return
		}

		switch msg.Type {
		case TypeSubscribe:
			c.handleSubscribe(ctx, msg)
		case TypeUnsubscribe:
			c.handleUnsubscribe(msg)
		case TypeChat:
			// Completions can be slow; the loop keeps serving pings and
			// subscriptions meanwhile. The assistant rejects overlapping turns.
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				c.handleChat(ctx, msg)
			}()
		case TypePing:
			c.send(ctx, ServerMessage{Type: TypePong, RequestID: msg.ID})
		default:
			c.sendError(ctx, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (c *conn) handleSubscribe(ctx context.Context, msg ClientMessage) {
	var data SubscribeData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(ctx, msg.ID, "invalid_data", "invalid subscribe data")
		return
	}
	c.subscribe(ctx, msg.ID, data)
}

func (c *conn) subscribe(ctx context.Context, requestID string, data SubscribeData) {
	coll, err := c.h.svc.Collection(data.Collection)
	if err != nil {
		c.sendError(ctx, requestID, "unknown_collection", err.Error())
		return
	}

	c.unsubscribe(data.Collection)
	sub, err := c.h.hub.Subscribe(ctx, data.Collection, data.Order)
	if err != nil {
		c.sendError(ctx, requestID, "unavailable", err.Error())
		return
	}
	c.mu.Lock()
	c.subs[data.Collection] = sub
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for f := range sub.Frames() {
			c.send(ctx, ServerMessage{
				Type:      TypeSnapshot,
				RequestID: requestID,
				Data: SnapshotData{
					Collection: coll.Name,
					State:      f.State,
					Seq:        f.Snapshot.Seq,
					Cards:      crud.CardsOf(coll, f.Snapshot.Documents),
				},
			})
		}
	}()
}

func (c *conn) handleUnsubscribe(msg ClientMessage) {
	var data SubscribeData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	c.unsubscribe(data.Collection)
}

func (c *conn) handleChat(ctx context.Context, msg ClientMessage) {
	var data ChatData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(ctx, msg.ID, "invalid_data", "invalid chat data")
		return
	}
	c.send(ctx, ServerMessage{Type: TypeReply, RequestID: msg.ID, Data: ReplyData{Pending: true}})

	reply, err := c.h.assistant.Send(ctx, c.session.ID, data.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		c.sendError(ctx, msg.ID, "empty_message", err.Error())
	case errors.Is(err, chat.ErrBusy):
		c.sendError(ctx, msg.ID, "busy", err.Error())
	case err != nil:
		c.sendError(ctx, msg.ID, "chat_error", err.Error())
	default:
		c.send(ctx, ServerMessage{Type: TypeReply, RequestID: msg.ID, Data: ReplyData{Reply: reply}})
	}
}

func (c *conn) unsubscribe(collection string) {
	c.mu.Lock()
	sub, ok := c.subs[collection]
	delete(c.subs, collection)
	c.mu.Unlock()
	if ok {
		sub.Close()
	}
}

func (c *conn) closeAll() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]*feed.Subscription)
	c.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
}

func (c *conn) send(ctx context.Context, msg ServerMessage) {
	if err := wsjson.Write(ctx, c.ws, msg); err != nil && ctx.Err() == nil {
		c.h.log.Warn().Err(err).Str("type", msg.Type).Msg("write failed")
	}
}

func (c *conn) sendError(ctx context.Context, requestID, code, message string) {
	c.send(ctx, ServerMessage{
		Type:      TypeError,
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}
