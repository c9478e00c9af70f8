// Package server exposes the table engine over WebSocket: commands and scans
// in, events and snapshots out.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/chenaaron3/huffleshuffle-engine/internal/card"
	"github.com/chenaaron3/huffleshuffle-engine/internal/engine"
	"github.com/chenaaron3/huffleshuffle-engine/internal/scan"
	"github.com/chenaaron3/huffleshuffle-engine/internal/table"
)

// Server represents the WebSocket server
type Server struct {
	addr            string
	upgrader        websocket.Upgrader
	logger          *log.Logger
	router          *table.Router
	mutator         *table.Mutator
	intake          *scan.Intake
	dealerSeesCards bool

	mu    sync.RWMutex
	conns map[*Connection]bool
}

// New creates a new WebSocket server
func New(addr string, router *table.Router, mutator *table.Mutator, intake *scan.Intake, dealerSeesCards bool, logger *log.Logger) *Server {
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:          logger.WithPrefix("server"),
		router:          router,
		mutator:         mutator,
		intake:          intake,
		dealerSeesCards: dealerSeesCards,
		conns:           make(map[*Connection]bool),
	}
}

// Start serves until the listener fails
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	conn := &Connection{server: s, ws: ws, logger: s.logger}
	s.mu.Lock()
	s.conns[conn] = true
	s.mu.Unlock()
	s.logger.Info("Client connected", "remote", ws.RemoteAddr())

	conn.readLoop(r.Context())

	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.close()
	s.logger.Info("Client disconnected", "remote", ws.RemoteAddr())
}

// Connection is one WebSocket client. Reads happen on a single loop; writes
// are serialized by a mutex so event forwarding and replies do not interleave
// mid-frame.
type Connection struct {
	server *Server
	ws     *websocket.Conn
	logger *log.Logger

	writeMu sync.Mutex
	userID  string

	subMu   sync.Mutex
	cancels []func()
}

func (c *Connection) close() {
	c.subMu.Lock()
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	c.subMu.Unlock()
	_ = c.ws.Close()
}

func (c *Connection) send(msg *Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(msg)
}

func (c *Connection) reply(requestID string, messageType MessageType, data interface{}) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		c.logger.Error("Failed to encode message", "type", messageType, "error", err)
		return
	}
	msg.RequestID = requestID
	if err := c.send(msg); err != nil {
		c.logger.Error("Failed to send message", "type", messageType, "error", err)
	}
}

func (c *Connection) replyError(requestID string, err error) {
	c.reply(requestID, MsgError, ErrorData{
		Kind:    engine.KindOf(err).String(),
		Code:    engine.CodeOf(err),
		Message: err.Error(),
	})
}

func (c *Connection) readLoop(ctx context.Context) {
	for {
		var msg Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Unexpected close", "error", err)
			}
			return
		}
		c.handle(ctx, msg)
	}
}

func (c *Connection) handle(ctx context.Context, msg Message) {
	switch msg.Type {
	case MsgAuth:
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.UserID == "" {
			c.replyError(msg.RequestID, engine.Validationf("auth requires a user id"))
			return
		}
		c.userID = data.UserID
		c.reply(msg.RequestID, MsgAuthOK, AuthData{UserID: data.UserID})

	case MsgCommand:
		var data CommandData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.replyError(msg.RequestID, engine.Validationf("malformed command: %v", err))
			return
		}
		ts, err := c.server.router.Dispatch(ctx, table.Command{
			TableID:    data.TableID,
			Actor:      data.Role,
			UserID:     c.userID,
			Kind:       data.Kind,
			Amount:     data.Amount,
			Card:       data.Card,
			SeatNumber: data.SeatNumber,
		})
		if err != nil {
			c.replyError(msg.RequestID, err)
			return
		}
		c.reply(msg.RequestID, MsgCommandOK, ts.Snapshot(c.userID, c.server.dealerSeesCards))

	case MsgScan:
		var data ScanData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.replyError(msg.RequestID, engine.Validationf("malformed scan: %v", err))
			return
		}
		if err := c.server.intake.Submit(ctx, data); err != nil {
			c.replyError(msg.RequestID, err)
			return
		}
		c.reply(msg.RequestID, MsgCommandOK, nil)

	case MsgSnapshot:
		var data SnapshotRequestData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.replyError(msg.RequestID, engine.Validationf("malformed snapshot request: %v", err))
			return
		}
		snap, err := c.server.mutator.Snapshot(ctx, data.TableID, c.userID, c.server.dealerSeesCards)
		if err != nil {
			c.replyError(msg.RequestID, err)
			return
		}
		c.reply(msg.RequestID, MsgSnapshotData, snap)

	case MsgSubscribe:
		var data SubscribeData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.TableID == "" {
			c.replyError(msg.RequestID, engine.Validationf("subscribe requires a table id"))
			return
		}
		ch, cancel := c.server.mutator.Subscribe(data.TableID, 256)
		c.subMu.Lock()
		c.cancels = append(c.cancels, cancel)
		c.subMu.Unlock()
		go c.forward(ch)
		c.reply(msg.RequestID, MsgCommandOK, nil)

	default:
		c.replyError(msg.RequestID, engine.Validationf("unknown message type %q", msg.Type))
	}
}

// forward streams table events to the client until the subscription is
// canceled.
func (c *Connection) forward(ch <-chan engine.Event) {
	for ev := range ch {
		msg, err := NewMessage(MsgEvent, redactEvent(ev))
		if err != nil {
			c.logger.Error("Failed to encode event", "kind", ev.Kind, "error", err)
			continue
		}
		msg.Timestamp = ev.Timestamp
		if err := c.send(msg); err != nil {
			return
		}
	}
}

// redactEvent hides hole-card codes in broadcast CARD_DEALT events. The board
// is public; a seat's own cards reach it through the snapshot, which redacts
// per viewer.
func redactEvent(ev engine.Event) engine.Event {
	payload, ok := ev.Payload.(engine.CardDealtPayload)
	if !ok || payload.Target == engine.CommunityTarget {
		return ev
	}
	payload.Card = card.FaceDown
	ev.Payload = payload
	return ev
}

// Shutdown closes every client connection
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.close()
	}
}
