package blast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabbir421/whatsapp-message-server/internal/session"
)

type sendRecord struct {
	recipient string
	body      string
	at        time.Time
}

type fakeSender struct {
	mu     sync.Mutex
	state  session.State
	failAt int
	calls  []sendRecord
}

func newFakeSender(state session.State) *fakeSender {
	return &fakeSender{state: state, failAt: -1}
}

func (f *fakeSender) State() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSender) SendText(_ context.Context, recipient, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.calls)
	f.calls = append(f.calls, sendRecord{recipient: recipient, body: body, at: time.Now()})
	if f.failAt >= 0 && idx == f.failAt {
		return errors.New("recipient not on whatsapp")
	}
	return nil
}

func (f *fakeSender) recorded() []sendRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendRecord(nil), f.calls...)
}

func TestRunSendsSequentiallyWithPacing(t *testing.T) {
	const delay = 30 * time.Millisecond
	sender := newFakeSender(session.StateReady)
	runner := NewRunner(sender, delay, nil, zerolog.Nop())

	recipients := []string{"111", "222", "333"}
	start := time.Now()
	res, err := runner.Run(context.Background(), recipients, "hello")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 3, res.Sent)
	assert.Equal(t, 3, res.Total)
	assert.NotEmpty(t, res.RunID)

	calls := sender.recorded()
	require.Len(t, calls, 3)
	for i, call := range calls {
		assert.Equal(t, recipients[i], call.recipient)
		assert.Equal(t, "hello", call.body)
	}

	// Three sends, two pauses. Allow a little slack for limiter rounding.
	assert.GreaterOrEqual(t, elapsed, 2*delay-5*time.Millisecond)
	for i := 1; i < len(calls); i++ {
		gap := calls[i].at.Sub(calls[i-1].at)
		assert.GreaterOrEqual(t, gap, delay-5*time.Millisecond, "gap before send %d", i+1)
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	const delay = 30 * time.Millisecond
	sender := newFakeSender(session.StateReady)
	sender.failAt = 1
	runner := NewRunner(sender, delay, nil, zerolog.Nop())

	res, err := runner.Run(context.Background(), []string{"111", "222", "333", "444"}, "hi")

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, "222", sendErr.Recipient)
	assert.Equal(t, 1, sendErr.Index)

	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 4, res.Total)
	// The failing send is issued, everything after it is not.
	assert.Len(t, sender.recorded(), 2)
}

func TestRunFailureSkipsRemainingPauses(t *testing.T) {
	// With the very first send failing no pause is ever taken, so the run
	// must finish in a fraction of the configured delay.
	const delay = 500 * time.Millisecond
	sender := newFakeSender(session.StateReady)
	sender.failAt = 0
	runner := NewRunner(sender, delay, nil, zerolog.Nop())

	start := time.Now()
	res, err := runner.Run(context.Background(), []string{"111", "222"}, "hi")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Len(t, sender.recorded(), 1)
	assert.Less(t, elapsed, delay/2)
}

func TestRunNoRecipients(t *testing.T) {
	// The empty check comes first: it wins even over a missing session.
	sender := newFakeSender(session.StateAbsent)
	runner := NewRunner(sender, time.Millisecond, nil, zerolog.Nop())

	res, err := runner.Run(context.Background(), nil, "hi")

	assert.ErrorIs(t, err, ErrNoRecipients)
	assert.Equal(t, 0, res.Sent)
	assert.Empty(t, sender.recorded())
}

func TestRunNotReady(t *testing.T) {
	for _, state := range []session.State{session.StateAbsent, session.StateInitializing, session.StateAwaitingScan} {
		t.Run(state.String(), func(t *testing.T) {
			sender := newFakeSender(state)
			runner := NewRunner(sender, time.Millisecond, nil, zerolog.Nop())

			_, err := runner.Run(context.Background(), []string{"111"}, "hi")

			assert.ErrorIs(t, err, session.ErrNotReady)
			assert.Empty(t, sender.recorded())
		})
	}
}

func TestRunPacingSpansRuns(t *testing.T) {
	// Back-to-back runs share the limiter: the second run's first send
	// still keeps its distance from the first run's last send.
	const delay = 60 * time.Millisecond
	sender := newFakeSender(session.StateReady)
	runner := NewRunner(sender, delay, nil, zerolog.Nop())

	_, err := runner.Run(context.Background(), []string{"111"}, "hi")
	require.NoError(t, err)

	start := time.Now()
	_, err = runner.Run(context.Background(), []string{"222"}, "hi")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), delay-5*time.Millisecond)
}

func TestRunContextCancelled(t *testing.T) {
	const delay = 150 * time.Millisecond
	sender := newFakeSender(session.StateReady)
	runner := NewRunner(sender, delay, nil, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	res, err := runner.Run(ctx, []string{"111", "222", "333"}, "hi")

	require.Error(t, err)
	var sendErr *SendError
	assert.False(t, errors.As(err, &sendErr), "cancellation is not a send failure")
	assert.Equal(t, 1, res.Sent)
	assert.Len(t, sender.recorded(), 1)
}
