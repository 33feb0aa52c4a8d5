// Package handlers implements the REST surface: spreadsheet-driven bulk
// sends, device linking, and status.
package handlers

// ErrorResponse is the error body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of affirmative replies.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResponse snapshots the session for dashboards.
type StatusResponse struct {
	State     string `json:"state"`
	Linking   bool   `json:"linking"`
	Observers int    `json:"observers"`
}

// Reply strings are part of the public API; the frontend matches on some
// of them, so changing one is a breaking change.
const (
	msgMissingInput   = "File and message are required."
	msgInvalidUpload  = "Invalid spreadsheet file."
	msgUploadTooLarge = "Uploaded file is too large."
	msgNoRecipients   = "No valid mobile numbers found."
	msgNotReady       = "WhatsApp client is not ready. Please link a device first."
	msgSendFailed     = "Failed to send messages."
	msgSendSuccess    = "Messages sent successfully."
	msgQRResent       = "QR code sent to connected clients."
	msgInitializing   = "Initializing WhatsApp client. QR code will be sent shortly."
)
