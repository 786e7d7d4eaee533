// Package retry runs calls to external services under a bounded retry
// discipline. Transient failures back off exponentially; a content-policy
// rejection gets exactly one more attempt with a simplified prompt.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrContentPolicy marks a provider refusal caused by the prompt content.
var ErrContentPolicy = errors.New("content policy rejection")

// Outcome is the classification of a single attempt.
type Outcome int

const (
	Success Outcome = iota
	Retryable
	ContentPolicy
	Terminal
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	case ContentPolicy:
		return "content-policy"
	default:
		return "terminal"
	}
}

// Classify maps an attempt error to an Outcome.
func Classify(err error) Outcome {
	if err == nil {
		return Success
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Terminal
	}
	if errors.Is(err, ErrContentPolicy) {
		return ContentPolicy
	}
	var sc interface{ HTTPStatus() int }
	if errors.As(err, &sc) {
		code := sc.HTTPStatus()
		if code == 429 || code >= 500 {
			return Retryable
		}
		return Terminal
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Retryable
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return Retryable
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return Retryable
	}
	return Terminal
}

// Policy configures the retry state machine.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
	Jitter          float64
	Classify        func(error) Outcome
}

// DefaultPolicy is three attempts starting at one second and doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		Multiplier:      2,
		MaxInterval:     10 * time.Second,
		Classify:        Classify,
	}
}

// Attempt describes the call being made.
type Attempt struct {
	Number     int  // 1-based
	Simplified bool // the caller should use its fallback prompt
}

// Action tells the runner what to do after an attempt.
type Action int

const (
	Stop Action = iota
	RetryAfter
	RetrySimplified
)

// Decision is the state machine's transition for one attempt result.
type Decision struct {
	Action  Action
	Delay   time.Duration
	Outcome Outcome
}

// Machine holds the state of one retried call.
type Machine struct {
	policy     Policy
	backoff    *backoff.ExponentialBackOff
	attempt    Attempt
	simplified bool
}

// NewMachine starts a state machine at attempt one.
func NewMachine(p Policy) *Machine {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Classify == nil {
		p.Classify = Classify
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxInterval
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()
	return &Machine{policy: p, backoff: b, attempt: Attempt{Number: 1}}
}

// Current returns the attempt to make next.
func (m *Machine) Current() Attempt {
	return m.attempt
}

// Next records the result of the current attempt and returns the transition.
func (m *Machine) Next(err error) Decision {
	outcome := m.policy.Classify(err)
	switch outcome {
	case Success, Terminal:
		return Decision{Action: Stop, Outcome: outcome}
	case ContentPolicy:
		if m.simplified {
			return Decision{Action: Stop, Outcome: Terminal}
		}
		m.simplified = true
		m.attempt = Attempt{Number: m.attempt.Number + 1, Simplified: true}
		return Decision{Action: RetrySimplified, Outcome: outcome}
	}
	if m.attempt.Number >= m.policy.MaxAttempts {
		return Decision{Action: Stop, Outcome: outcome}
	}
	delay := m.backoff.NextBackOff()
	m.attempt = Attempt{Number: m.attempt.Number + 1, Simplified: m.simplified}
	return Decision{Action: RetryAfter, Delay: delay, Outcome: outcome}
}

// Error is returned when the machine stops on a failure.
type Error struct {
	Attempts int
	Outcome  Outcome
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failure after %d attempt(s): %v", e.Outcome, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Do runs fn until it succeeds or the machine stops.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, a Attempt) error) error {
	m := NewMachine(p)
	for {
		a := m.Current()
		err := fn(ctx, a)
		d := m.Next(err)
		switch d.Action {
		case Stop:
			if err == nil {
				return nil
			}
			return &Error{Attempts: a.Number, Outcome: d.Outcome, Err: err}
		case RetryAfter:
			if d.Delay > 0 {
				t := time.NewTimer(d.Delay)
				select {
				case <-t.C:
				case <-ctx.Done():
					t.Stop()
					return &Error{Attempts: a.Number, Outcome: Terminal, Err: ctx.Err()}
				}
			}
		}
	}
}
