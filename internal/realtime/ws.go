package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/valter-silva-au/projectcolab/pkg/models"
	"golang.org/x/time/rate"
)

// Inbound actions a client may send.
const (
	ActionJoin          = "join"
	ActionLeave         = "leave"
	ActionPresenceStart = "presence:start"
	ActionPresenceStop  = "presence:stop"
)

// Events the transport itself sends to a single client.
const (
	EventConnected = "connected"
	EventError     = "error"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// InboundMessage is a client request read from the socket.
type InboundMessage struct {
	Action    string `json:"action"`
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId,omitempty"`
	UserName  string `json:"userName,omitempty"`
}

// ErrorPayload explains a rejected inbound message.
type ErrorPayload struct {
	Action  string `json:"action,omitempty"`
	Message string `json:"message"`
}

// Server upgrades HTTP requests to WebSocket connections and bridges them to
// the Hub and PresenceTracker.
type Server struct {
	hub      *Hub
	presence *PresenceTracker
	cfg      models.RealtimeConfig
	log      zerolog.Logger
	metrics  *Metrics
	upgrader websocket.Upgrader
}

// NewServer creates a WebSocket server. Origins are not checked.
func NewServer(hub *Hub, presence *PresenceTracker, cfg models.RealtimeConfig, log zerolog.Logger, metrics *Metrics) *Server {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.MaxMessagesPerSecond <= 0 {
		cfg.MaxMessagesPerSecond = 20
	}
	return &Server{
		hub:      hub,
		presence: presence,
		cfg:      cfg,
		log:      log.With().Str("component", "ws").Logger(),
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the gin handler mounted at /ws.
func (s *Server) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to upgrade the websocket")
			return
		}
		s.serve(ws)
	}
}

// conn is one WebSocket client. Only writePump writes to ws.
type conn struct {
	id     string
	ws     *websocket.Conn
	send   chan models.Event
	closed chan struct{}
	once   sync.Once
}

func (c *conn) ID() string { return c.id }

func (c *conn) Send(ev models.Event) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

func (c *conn) close() {
	c.once.Do(func() { close(c.closed) })
}

func (s *Server) serve(ws *websocket.Conn) {
	c := &conn{
		id:     uuid.New().String(),
		ws:     ws,
		send:   make(chan models.Event, s.cfg.SendBuffer),
		closed: make(chan struct{}),
	}
	log := s.log.With().Str("client_id", c.id).Logger()
	s.hub.Connect(c)
	log.Info().Msg("websocket client connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writePump(c, log)
	}()

	c.Send(models.Event{Name: EventConnected, Payload: map[string]string{"clientId": c.id}, Time: time.Now().UTC()})
	s.readPump(c, log)

	if s.presence != nil {
		s.presence.DropClient(c.id)
	}
	s.hub.Disconnect(c.id)
	c.close()
	<-done
	_ = ws.Close()
	log.Info().Msg("websocket client disconnected")
}

func (s *Server) readPump(c *conn, log zerolog.Logger) {
	limiter := rate.NewLimiter(rate.Limit(s.cfg.MaxMessagesPerSecond), max(1, int(s.cfg.MaxMessagesPerSecond)))

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		if !limiter.Allow() {
			s.metrics.incThrottled()
			s.reject(c, "", "rate limit exceeded")
			continue
		}
		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reject(c, "", "malformed message")
			continue
		}
		if err := s.dispatch(c, msg); err != nil {
			s.reject(c, msg.Action, err.Error())
		}
	}
}

func (s *Server) dispatch(c *conn, msg InboundMessage) error {
	if msg.ProjectID == "" {
		return errors.New("projectId is required")
	}
	channel := models.ProjectChannel(msg.ProjectID)
	switch msg.Action {
	case ActionJoin:
		s.hub.Join(channel, c)
	case ActionLeave:
		s.hub.Leave(channel, c.id)
	case ActionPresenceStart, ActionPresenceStop:
		if s.presence == nil {
			return errors.New("presence is disabled")
		}
		if msg.UserID == "" {
			return errors.New("userId is required")
		}
		if msg.Action == ActionPresenceStart {
			s.presence.Start(c.id, msg.ProjectID, msg.UserID, msg.UserName)
		} else {
			s.presence.Stop(c.id, msg.ProjectID, msg.UserID)
		}
	default:
		return errors.New("unknown action")
	}
	return nil
}

func (s *Server) reject(c *conn, action, reason string) {
	c.Send(models.Event{Name: EventError, Payload: ErrorPayload{Action: action, Message: reason}, Time: time.Now().UTC()})
}

func (s *Server) writePump(c *conn, log zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(ev); err != nil {
				log.Warn().Err(err).Msg("failed to write websocket json")
				c.close()
				_ = c.ws.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				_ = c.ws.Close()
				return
			}
		case <-c.closed:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
