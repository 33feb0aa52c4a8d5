// Package websocket pushes session lifecycle events to connected clients
// over Socket.IO and replays the outstanding QR payload to late joiners.
package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	socket "github.com/zishang520/socket.io/servers/socket/v3"
	sockettypes "github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/sabbir421/whatsapp-message-server/internal/metrics"
)

// LinkingSource answers whether a linking payload is outstanding. The
// session manager is the source of truth; this server never caches codes.
type LinkingSource interface {
	LinkingPayload() (string, bool)
}

// SocketIOServer relays qr, ready and auth_failure events to every
// connected socket. It implements session.Sink.
type SocketIOServer struct {
	server        *socket.Server
	allowedOrigin string
	metrics       *metrics.Metrics
	log           zerolog.Logger

	sockets sync.Map // socket ID -> *socket.Socket

	mu       sync.RWMutex
	sessions LinkingSource
}

// NewSocketIOServer creates the Socket.IO server. AttachSessions must be
// called before clients connect.
func NewSocketIOServer(allowedOrigin string, m *metrics.Metrics, log zerolog.Logger) *SocketIOServer {
	opts := socket.DefaultServerOptions()

	opts.SetCors(&sockettypes.Cors{
		Origin:      allowedOrigin,
		Credentials: false,
	})

	// Browser dashboards are not latency critical; the stock Socket.IO
	// heartbeat cadence is plenty to reap dead connections.
	opts.SetPingInterval(25 * time.Second)
	opts.SetPingTimeout(20 * time.Second)

	opts.SetPath("/socket.io")

	server := socket.NewServer(nil, opts)

	s := &SocketIOServer{
		server:        server,
		allowedOrigin: allowedOrigin,
		metrics:       m,
		log:           log.With().Str("component", "websocket").Logger(),
	}
	s.setupHandlers()
	return s
}

// AttachSessions wires the QR replay source. The session manager is
// constructed after this server (it needs the server as its sink), so it
// cannot be a constructor argument.
func (s *SocketIOServer) AttachSessions(src LinkingSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = src
}

func (s *SocketIOServer) linkingPayload() (string, bool) {
	s.mu.RLock()
	src := s.sessions
	s.mu.RUnlock()
	if src == nil {
		return "", false
	}
	return src.LinkingPayload()
}

func (s *SocketIOServer) setupHandlers() {
	s.server.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		s.handleConnection(client)
	})
}

func (s *SocketIOServer) handleConnection(client *socket.Socket) {
	socketID := string(client.Id())
	s.sockets.Store(socketID, client)
	s.log.Info().Str("socket_id", socketID).Msg("observer connected")

	client.On("disconnect", func(...any) {
		s.sockets.Delete(socketID)
		s.log.Debug().Str("socket_id", socketID).Msg("observer disconnected")
	})

	// Late joiners get the outstanding linking payload right away, so a
	// dashboard opened mid-handshake still renders the QR code.
	if code, ok := s.linkingPayload(); ok {
		client.Emit("qr", code)
	}
}

// QR implements session.Sink.
func (s *SocketIOServer) QR(code string) {
	s.broadcast("qr", code)
}

// Ready implements session.Sink.
func (s *SocketIOServer) Ready() {
	s.broadcast("ready")
}

// AuthFailure implements session.Sink.
func (s *SocketIOServer) AuthFailure(message string) {
	s.broadcast("auth_failure", message)
}

func (s *SocketIOServer) broadcast(event string, args ...any) {
	s.metrics.ObservePushEvent(event)

	count := 0
	s.sockets.Range(func(_, value any) bool {
		client, ok := value.(*socket.Socket)
		if !ok {
			return true
		}
		client.Emit(event, args...)
		count++
		return true
	})
	s.log.Debug().Str("event", event).Int("observers", count).Msg("broadcast")
}

// ObserverCount reports how many sockets are currently registered.
func (s *SocketIOServer) ObserverCount() int {
	n := 0
	s.sockets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// HandleSocketIO adapts the Socket.IO HTTP handler for Gin.
func (s *SocketIOServer) HandleSocketIO() gin.HandlerFunc {
	httpHandler := s.server.ServeHandler(nil)

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "false")

		if c.Request.Method == "OPTIONS" {
			c.Status(http.StatusOK)
			return
		}

		httpHandler.ServeHTTP(c.Writer, c.Request)
	}
}

// Close shuts the Socket.IO server down.
func (s *SocketIOServer) Close() error {
	s.server.Close(nil)
	return nil
}
