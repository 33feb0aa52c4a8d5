// Package session owns the WhatsApp session lifecycle: one explicit
// Manager instance holds the current link, its state, and the linking
// payload, and serializes every mutation on a single event loop.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Manager drives the session state machine.
//
// All state transitions happen on the loop goroutine, fed by initialize
// requests and by the current link's event channel. When a link is torn
// down its channel is de-selected, so events from replaced sessions can
// never mutate state. Reads go through a snapshot guarded by an RWMutex.
type Manager struct {
	// OnStateChange, when set before Start, observes every state
	// transition. It is called from the event loop and must not block or
	// call back into the Manager. Used to keep the state gauge current.
	OnStateChange func(State)

	backend Backend
	sink    Sink
	log     zerolog.Logger

	cmds  chan struct{}
	opens chan openResult
	done  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu           sync.RWMutex
	state        State
	initializing bool
	code         string
	link         Link
}

type openResult struct {
	link Link
	err  error
}

// NewManager creates a Manager for the given backend. A nil sink is
// allowed and discards notifications.
func NewManager(backend Backend, sink Sink, log zerolog.Logger) *Manager {
	if sink == nil {
		sink = noopSink{}
	}
	return &Manager{
		backend: backend,
		sink:    sink,
		log:     log.With().Str("component", "session").Logger(),
		cmds:    make(chan struct{}, 8),
		opens:   make(chan openResult, 1),
		done:    make(chan struct{}),
	}
}

// Start launches the event loop. It must be called exactly once before
// any other method; later calls are no-ops.
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		ctx, m.cancel = context.WithCancel(ctx)
		go m.loop(ctx)
	})
}

// Shutdown stops the loop, closes any live or half-opened link, and waits
// for background work to finish or ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.cancel == nil {
		return nil
	}
	m.stopOnce.Do(m.cancel)

	select {
	case <-m.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.wg.Wait()

	// An open may have completed after the loop exited; its result is
	// parked in the buffered channel and still holds a connection.
	select {
	case res := <-m.opens:
		if res.link != nil {
			_ = res.link.Close()
		}
	default:
	}
	return nil
}

// RequestInitialize asks for a fresh session handshake. While one is
// already in progress the request is dropped, so rapid successive calls
// collapse into a single handshake. The method never blocks and never
// waits for the handshake to finish.
func (m *Manager) RequestInitialize() {
	m.mu.RLock()
	busy := m.initializing
	m.mu.RUnlock()
	if busy {
		m.log.Debug().Msg("initialize request ignored: handshake in progress")
		return
	}

	select {
	case m.cmds <- struct{}{}:
	default:
		m.log.Warn().Msg("initialize queue full; dropping request")
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// LinkingPayload returns the outstanding linking payload, if any. It is
// the source of truth for QR replays.
func (m *Manager) LinkingPayload() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.code, m.code != ""
}

// SendText delivers one text message through the current session. Unless
// the session is ready it returns ErrNotReady without any network side
// effect.
func (m *Manager) SendText(ctx context.Context, recipient, body string) error {
	m.mu.RLock()
	state, link := m.state, m.link
	m.mu.RUnlock()

	if state != StateReady || link == nil {
		return ErrNotReady
	}
	return link.SendText(ctx, recipient, body)
}

func (m *Manager) loop(ctx context.Context) {
	defer close(m.done)

	var linkEvents <-chan Event
	for {
		// Initialize requests outrank everything else so that rapid
		// successive requests hit the guard before any open result or
		// link event can release it.
		select {
		case <-m.cmds:
			linkEvents = m.handleInitialize(ctx, linkEvents)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			if old := m.dropLink(); old != nil {
				_ = old.Close()
			}
			return
		case <-m.cmds:
			linkEvents = m.handleInitialize(ctx, linkEvents)
		case res := <-m.opens:
			linkEvents = m.handleOpened(res)
		case evt, ok := <-linkEvents:
			if !ok {
				linkEvents = nil
				continue
			}
			linkEvents = m.handleEvent(evt, linkEvents)
		}
	}
}

// handleInitialize tears down the current link and opens a new one on a
// background goroutine. Returns the link event channel to select next:
// nil while the open is in flight, or cur unchanged when the request is a
// no-op under the guard.
func (m *Manager) handleInitialize(ctx context.Context, cur <-chan Event) <-chan Event {
	m.mu.Lock()
	if m.initializing {
		m.mu.Unlock()
		m.log.Debug().Msg("initialize already in progress")
		return cur
	}
	old := m.link
	m.link = nil
	m.code = ""
	m.initializing = true
	changed := m.setStateLocked(StateInitializing)
	m.mu.Unlock()
	m.stateChanged(StateInitializing, changed)

	m.log.Info().Msg("initializing whatsapp session")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if old != nil {
			if err := old.Close(); err != nil {
				m.log.Debug().Err(err).Msg("closing previous link")
			}
		}
		link, err := m.backend.Open(ctx)
		select {
		case m.opens <- openResult{link: link, err: err}:
		case <-ctx.Done():
			if link != nil {
				_ = link.Close()
			}
		}
	}()
	return nil
}

func (m *Manager) handleOpened(res openResult) <-chan Event {
	if res.err != nil {
		// Initialization failures are recovered here: logged, state reset,
		// never propagated to API callers.
		m.log.Error().Err(&InitError{Err: res.err}).Msg("session initialization failed")
		m.mu.Lock()
		m.link = nil
		m.code = ""
		m.initializing = false
		changed := m.setStateLocked(StateAbsent)
		m.mu.Unlock()
		m.stateChanged(StateAbsent, changed)
		return nil
	}

	m.mu.Lock()
	m.link = res.link
	m.mu.Unlock()

	m.log.Debug().Msg("link opened; waiting for handshake events")
	return res.link.Events()
}

func (m *Manager) handleEvent(evt Event, cur <-chan Event) <-chan Event {
	switch evt.Kind {
	case EventQR:
		m.mu.Lock()
		m.code = evt.Code
		m.initializing = false
		changed := m.setStateLocked(StateAwaitingScan)
		m.mu.Unlock()
		m.stateChanged(StateAwaitingScan, changed)

		m.log.Info().Msg("linking payload received; awaiting scan")
		m.sink.QR(evt.Code)
		return cur

	case EventReady:
		m.mu.Lock()
		m.code = ""
		m.initializing = false
		changed := m.setStateLocked(StateReady)
		m.mu.Unlock()
		m.stateChanged(StateReady, changed)

		m.log.Info().Msg("whatsapp session ready")
		m.sink.Ready()
		return cur

	case EventAuthFailure:
		m.log.Warn().Err(evt.Err).Msg("whatsapp authentication failed")
		if old := m.dropLink(); old != nil {
			go func() { _ = old.Close() }()
		}
		m.sink.AuthFailure(AuthFailureMessage)
		return nil

	case EventDisconnected:
		// No sink emission here: connected clients learn about the drop
		// from the status endpoint or the next qr/auth_failure.
		m.log.Warn().Err(evt.Err).Msg("whatsapp session disconnected")
		if old := m.dropLink(); old != nil {
			go func() { _ = old.Close() }()
		}
		return nil

	default:
		m.log.Warn().Int("kind", int(evt.Kind)).Msg("unknown link event")
		return cur
	}
}

// dropLink clears the session snapshot, moves to StateAbsent, and returns
// the link that was live, if any.
func (m *Manager) dropLink() Link {
	m.mu.Lock()
	old := m.link
	m.link = nil
	m.code = ""
	m.initializing = false
	changed := m.setStateLocked(StateAbsent)
	m.mu.Unlock()
	m.stateChanged(StateAbsent, changed)
	return old
}

func (m *Manager) setStateLocked(next State) bool {
	if m.state == next {
		return false
	}
	m.state = next
	return true
}

func (m *Manager) stateChanged(next State, changed bool) {
	if changed && m.OnStateChange != nil {
		m.OnStateChange(next)
	}
}
