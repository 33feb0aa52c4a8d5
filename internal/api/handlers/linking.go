package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sabbir421/whatsapp-message-server/internal/session"
)

// SessionController is the slice of the session manager the linking
// endpoints need.
type SessionController interface {
	State() session.State
	LinkingPayload() (string, bool)
	RequestInitialize()
}

// Updates re-broadcasts linking payloads to connected observers.
type Updates interface {
	QR(code string)
	ObserverCount() int
}

// LinkHandler serves GET /link-device and GET /status.
type LinkHandler struct {
	sessions SessionController
	updates  Updates
	log      zerolog.Logger
}

func NewLinkHandler(sessions SessionController, updates Updates, log zerolog.Logger) *LinkHandler {
	return &LinkHandler{
		sessions: sessions,
		updates:  updates,
		log:      log.With().Str("component", "api").Logger(),
	}
}

// GetLinkDevice replays the outstanding linking payload if there is one,
// and otherwise kicks off a fresh handshake. Either way it replies
// immediately; the payload itself arrives over Socket.IO.
func (h *LinkHandler) GetLinkDevice(c *gin.Context) {
	if code, ok := h.sessions.LinkingPayload(); ok {
		// Restarting the handshake here would invalidate a code somebody
		// may be scanning right now, so the current one is re-sent.
		h.updates.QR(code)
		c.JSON(http.StatusOK, MessageResponse{Message: msgQRResent})
		return
	}

	h.sessions.RequestInitialize()
	c.JSON(http.StatusOK, MessageResponse{Message: msgInitializing})
}

// GetStatus reports the session state snapshot.
func (h *LinkHandler) GetStatus(c *gin.Context) {
	_, linking := h.sessions.LinkingPayload()
	c.JSON(http.StatusOK, StatusResponse{
		State:     h.sessions.State().String(),
		Linking:   linking,
		Observers: h.updates.ObserverCount(),
	})
}
