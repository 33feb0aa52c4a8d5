package session

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned by send paths when no authenticated session
// exists. Callers can rely on no network side effect having happened.
var ErrNotReady = errors.New("whatsapp session is not ready")

// AuthFailureMessage is the fixed text published to observers on an
// authentication failure. The raw backend error is only logged.
const AuthFailureMessage = "Authentication failed. Please scan the QR code again."

// InitError wraps a failed session bootstrap. It is recovered inside the
// Manager and never reaches API callers.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize whatsapp session: %v", e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
