package handlers

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabbir421/whatsapp-message-server/internal/session"
)

type fakeSessions struct {
	mu          sync.Mutex
	state       session.State
	code        string
	initializes int
}

func (f *fakeSessions) State() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSessions) LinkingPayload() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code, f.code != ""
}

func (f *fakeSessions) RequestInitialize() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initializes++
}

type fakeUpdates struct {
	mu        sync.Mutex
	qrs       []string
	observers int
}

func (f *fakeUpdates) QR(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.qrs = append(f.qrs, code)
}

func (f *fakeUpdates) ObserverCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.observers
}

func newLinkRouter(sessions *fakeSessions, updates *fakeUpdates) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewLinkHandler(sessions, updates, zerolog.Nop())
	r.GET("/link-device", h.GetLinkDevice)
	r.GET("/status", h.GetStatus)
	return r
}

func getPath(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetLinkDeviceReplaysOutstandingCode(t *testing.T) {
	sessions := &fakeSessions{state: session.StateAwaitingScan, code: "qr-outstanding"}
	updates := &fakeUpdates{}
	r := newLinkRouter(sessions, updates)

	rec := getPath(r, "/link-device")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"QR code sent to connected clients."}`, rec.Body.String())

	require.Len(t, updates.qrs, 1)
	assert.Equal(t, "qr-outstanding", updates.qrs[0])
	// The handshake keeps running; it is not restarted underneath a code
	// somebody may be scanning.
	assert.Zero(t, sessions.initializes)
}

func TestGetLinkDeviceStartsHandshake(t *testing.T) {
	sessions := &fakeSessions{state: session.StateAbsent}
	updates := &fakeUpdates{}
	r := newLinkRouter(sessions, updates)

	rec := getPath(r, "/link-device")

	// Replies immediately; the QR arrives over Socket.IO later.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Initializing WhatsApp client. QR code will be sent shortly."}`, rec.Body.String())
	assert.Equal(t, 1, sessions.initializes)
	assert.Empty(t, updates.qrs)
}

func TestGetStatus(t *testing.T) {
	sessions := &fakeSessions{state: session.StateAwaitingScan, code: "qr"}
	updates := &fakeUpdates{observers: 3}
	r := newLinkRouter(sessions, updates)

	rec := getPath(r, "/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"awaiting_scan","linking":true,"observers":3}`, rec.Body.String())
}

func TestGetStatusReady(t *testing.T) {
	sessions := &fakeSessions{state: session.StateReady}
	updates := &fakeUpdates{}
	r := newLinkRouter(sessions, updates)

	rec := getPath(r, "/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"ready","linking":false,"observers":0}`, rec.Body.String())
}
