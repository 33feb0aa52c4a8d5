// Package blast runs bulk text sends: strictly sequential, paced, and
// aborted on the first failure.
package blast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/sabbir421/whatsapp-message-server/internal/metrics"
	"github.com/sabbir421/whatsapp-message-server/internal/session"
)

// ErrNoRecipients is returned when a run is requested with an empty
// recipient list. Nothing is sent and the session is not consulted.
var ErrNoRecipients = errors.New("no valid recipients")

// SendError reports the first failing send of a run.
type SendError struct {
	Recipient string
	Index     int
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s (recipient %d): %v", e.Recipient, e.Index+1, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Sender is the slice of the session manager the pipeline needs.
type Sender interface {
	State() session.State
	SendText(ctx context.Context, recipient, body string) error
}

// Result summarizes a run.
type Result struct {
	// RunID correlates the run's log lines; empty if the run never started.
	RunID string
	// Sent is how many messages were delivered before the run ended.
	Sent int
	// Total is the number of recipients the run was asked to reach.
	Total int
}

// Runner executes blast runs one message at a time with a fixed pause
// between consecutive sends. Pacing comes from a limiter shared across
// runs, so overlapping uploads cannot drive the account past it either.
type Runner struct {
	sender  Sender
	delay   time.Duration
	limiter *rate.Limiter
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewRunner creates a Runner that pauses delay between consecutive sends.
// A zero delay disables pacing (useful in tests only; WhatsApp bans
// accounts that blast unpaced).
func NewRunner(sender Sender, delay time.Duration, m *metrics.Metrics, log zerolog.Logger) *Runner {
	return &Runner{
		sender:  sender,
		delay:   delay,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		metrics: m,
		log:     log.With().Str("component", "blast").Logger(),
	}
}

// Run sends body to every recipient in order and reports how far it got.
// The first failing send ends the run immediately: the returned error is
// a *SendError and Result.Sent holds the deliveries made before it. An
// empty recipient list yields ErrNoRecipients and a session that is not
// ready yields session.ErrNotReady, both before anything is sent.
func (r *Runner) Run(ctx context.Context, recipients []string, body string) (Result, error) {
	res := Result{Total: len(recipients)}
	if len(recipients) == 0 {
		return res, ErrNoRecipients
	}
	if r.sender.State() != session.StateReady {
		return res, session.ErrNotReady
	}

	res.RunID = uuid.NewString()
	log := r.log.With().Str("run_id", res.RunID).Logger()
	start := time.Now()
	log.Info().Int("total", res.Total).Msg("blast run started")

	for i, recipient := range recipients {
		// The first wait of an idle limiter is free, so a run of n
		// recipients pauses exactly n-1 times.
		if err := r.limiter.Wait(ctx); err != nil {
			r.metrics.ObserveRun("interrupted")
			log.Warn().Err(err).Int("sent", res.Sent).Msg("blast run interrupted")
			return res, fmt.Errorf("pacing wait: %w", err)
		}

		if err := r.sender.SendText(ctx, recipient, body); err != nil {
			r.metrics.ObserveSendFailure()
			r.metrics.ObserveRun("failed")
			log.Warn().Err(err).
				Str("recipient", recipient).
				Int("sent", res.Sent).
				Int("total", res.Total).
				Dur("elapsed", time.Since(start)).
				Msg("blast run aborted on failed send")
			return res, &SendError{Recipient: recipient, Index: i, Err: err}
		}

		res.Sent++
		r.metrics.ObserveMessageSent()
		log.Debug().Str("recipient", recipient).Int("sent", res.Sent).Msg("message sent")
	}

	r.metrics.ObserveRun("ok")
	log.Info().Int("sent", res.Sent).Dur("elapsed", time.Since(start)).Msg("blast run finished")
	return res, nil
}
