package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sabbir421/whatsapp-message-server/internal/blast"
	"github.com/sabbir421/whatsapp-message-server/internal/session"
	"github.com/sabbir421/whatsapp-message-server/internal/spreadsheet"
)

// Blaster runs one bulk send and reports how far it got.
type Blaster interface {
	Run(ctx context.Context, recipients []string, body string) (blast.Result, error)
}

// MessagesHandler serves POST /send-messages.
type MessagesHandler struct {
	blaster        Blaster
	maxUploadBytes int64
	log            zerolog.Logger
}

func NewMessagesHandler(blaster Blaster, maxUploadBytes int64, log zerolog.Logger) *MessagesHandler {
	return &MessagesHandler{
		blaster:        blaster,
		maxUploadBytes: maxUploadBytes,
		log:            log.With().Str("component", "api").Logger(),
	}
}

// PostSendMessages accepts a multipart form with a spreadsheet under
// "file" and a text under "message", extracts the recipients, and blocks
// until the run finished or aborted. Progress of a partially failed run
// is logged under its run ID but deliberately not exposed in the reply.
func (h *MessagesHandler) PostSendMessages(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: msgUploadTooLarge})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgMissingInput})
		return
	}

	message := strings.TrimSpace(c.PostForm("message"))
	if message == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgMissingInput})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.log.Warn().Err(err).Str("filename", fileHeader.Filename).Msg("opening spreadsheet upload")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidUpload})
		return
	}
	defer file.Close()

	recipients, err := spreadsheet.Recipients(file)
	if err != nil {
		h.log.Warn().Err(err).Str("filename", fileHeader.Filename).Msg("unreadable spreadsheet upload")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidUpload})
		return
	}
	if len(recipients) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgNoRecipients})
		return
	}

	// The run is detached from the request context on purpose: a caller
	// that gives up must not cancel sends already in flight.
	res, err := h.blaster.Run(context.WithoutCancel(c.Request.Context()), recipients, message)
	if err != nil {
		switch {
		case errors.Is(err, blast.ErrNoRecipients):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgNoRecipients})
		case errors.Is(err, session.ErrNotReady):
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgNotReady})
		default:
			h.log.Error().Err(err).
				Str("run_id", res.RunID).
				Int("sent", res.Sent).
				Int("total", res.Total).
				Msg("blast run failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgSendFailed})
		}
		return
	}

	h.log.Info().Str("run_id", res.RunID).Int("sent", res.Sent).Msg("blast run completed")
	c.JSON(http.StatusOK, MessageResponse{Message: msgSendSuccess})
}
