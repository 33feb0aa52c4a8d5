package websocket

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	code string
}

func (f *fakeSource) LinkingPayload() (string, bool) {
	return f.code, f.code != ""
}

func TestLinkingPayloadWithoutSource(t *testing.T) {
	s := NewSocketIOServer("*", nil, zerolog.Nop())
	defer s.Close()

	// Before AttachSessions there is no replay source; connections must
	// simply get no replay instead of a panic.
	code, ok := s.linkingPayload()
	assert.False(t, ok)
	assert.Empty(t, code)
}

func TestLinkingPayloadFromSource(t *testing.T) {
	s := NewSocketIOServer("*", nil, zerolog.Nop())
	defer s.Close()

	src := &fakeSource{}
	s.AttachSessions(src)

	_, ok := s.linkingPayload()
	require.False(t, ok)

	src.code = "qr-payload"
	code, ok := s.linkingPayload()
	require.True(t, ok)
	assert.Equal(t, "qr-payload", code)
}

func TestBroadcastWithoutObservers(t *testing.T) {
	s := NewSocketIOServer("*", nil, zerolog.Nop())
	defer s.Close()

	assert.NotPanics(t, func() {
		s.QR("payload")
		s.Ready()
		s.AuthFailure("authentication failed")
	})
	assert.Equal(t, 0, s.ObserverCount())
}
