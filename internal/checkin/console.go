// Package checkin verifies enrollment QR payloads at the door.
package checkin

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"booking/internal/api"
	"booking/internal/logger"
	"booking/internal/ui"
)

// ErrEmptyPayload is returned for blank input. No request is sent.
var ErrEmptyPayload = errors.New("please enter QR code data")

const (
	emptyMessage    = "Please enter QR code data"
	failureFallback = "Failed to verify QR code"
	freshMessage    = "Check-in successful"
)

// Outcome distinguishes the two non-error verification results.
type Outcome int

const (
	// Fresh means this scan performed the check-in.
	Fresh Outcome = iota
	// Already means the enrollment was checked in before this scan.
	Already
)

func (o Outcome) String() string {
	if o == Already {
		return "already checked in"
	}
	return "checked in"
}

// Result is what the console shows after a successful verification.
type Result struct {
	Outcome      Outcome
	Message      string
	StudentName  string
	StudentEmail string
	CourseTitle  string
	CheckedInAt  *time.Time
	Enrollment   api.Enrollment
}

// API is the part of the client the console uses.
type API interface {
	VerifyCheckIn(ctx context.Context, payload string) (*api.CheckInResult, error)
	ScanCheckIn(ctx context.Context, payload string) (*api.ScanResult, error)
}

// OutcomeOf classifies a verification response. The server's success message
// marks a fresh check-in; otherwise the returned checked_in flag decides.
func OutcomeOf(res *api.CheckInResult) Outcome {
	if res.Message == freshMessage || !res.Enrollment.CheckedIn {
		return Fresh
	}
	return Already
}

func newResult(outcome Outcome, message string, e api.Enrollment) Result {
	r := Result{
		Outcome:      outcome,
		Message:      message,
		StudentName:  e.StudentName,
		StudentEmail: e.StudentEmail,
		CourseTitle:  e.CourseTitle,
		Enrollment:   e,
	}
	if e.CheckedInAt != nil {
		at := e.CheckedInAt.Time
		r.CheckedInAt = &at
	}
	return r
}

// Console is the single-input check-in screen.
type Console struct {
	api    API
	notify ui.Notifier
	log    zerolog.Logger

	mu     sync.Mutex
	input  string
	result *Result
	err    error
}

// New creates a console with an empty input.
func New(client API, notifier ui.Notifier) *Console {
	return &Console{api: client, notify: notifier, log: logger.Component("checkin")}
}

// SetInput replaces the input field.
func (c *Console) SetInput(s string) {
	c.mu.Lock()
	c.input = s
	c.mu.Unlock()
}

// Input returns the input field.
func (c *Console) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Submit verifies the current input.
func (c *Console) Submit(ctx context.Context) (Result, error) {
	return c.CheckIn(ctx, c.Input())
}

// CheckIn verifies payload. Success clears the input; failure leaves it for
// correction. Every non-blank payload is sent, repeats included.
func (c *Console) CheckIn(ctx context.Context, payload string) (Result, error) {
	c.mu.Lock()
	c.input = payload
	c.result = nil
	c.err = nil
	c.mu.Unlock()

	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		c.fail(emptyMessage)
		return Result{}, ErrEmptyPayload
	}

	res, err := c.api.VerifyCheckIn(ctx, trimmed)
	if err != nil {
		c.log.Warn().Err(err).Msg("verification failed")
		c.fail(api.MessageOf(err, failureFallback))
		return Result{}, err
	}

	out := newResult(OutcomeOf(res), res.Message, res.Enrollment)
	c.mu.Lock()
	c.input = ""
	c.result = &out
	c.mu.Unlock()

	level := ui.Success
	if out.Outcome == Already {
		level = ui.Info
	}
	c.notify.Notify(level, summary(out))
	c.log.Info().
		Int64("enrollment_id", out.Enrollment.ID).
		Str("outcome", out.Outcome.String()).
		Msg("check-in verified")
	return out, nil
}

// Lookup shows who a payload belongs to without checking in. The outcome is
// Already when the enrollment was checked in earlier.
func (c *Console) Lookup(ctx context.Context, payload string) (Result, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		c.notify.Notify(ui.Failure, emptyMessage)
		return Result{}, ErrEmptyPayload
	}
	res, err := c.api.ScanCheckIn(ctx, trimmed)
	if err != nil {
		c.notify.Notify(ui.Failure, api.MessageOf(err, "Failed to look up QR code"))
		return Result{}, err
	}
	outcome := Fresh
	if res.CheckedIn {
		outcome = Already
	}
	return newResult(outcome, "", res.Enrollment), nil
}

func (c *Console) fail(msg string) {
	c.mu.Lock()
	c.err = errors.New(msg)
	c.mu.Unlock()
	c.notify.Notify(ui.Failure, msg)
}

// Result returns the last successful verification.
func (c *Console) Result() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return Result{}, false
	}
	return *c.result, true
}

// Err returns the message of the last failed verification.
func (c *Console) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func summary(r Result) string {
	var b strings.Builder
	if r.Outcome == Already {
		b.WriteString("Already checked in: ")
	} else {
		b.WriteString("Checked in: ")
	}
	b.WriteString(r.StudentName)
	if r.StudentEmail != "" {
		b.WriteString(" <" + r.StudentEmail + ">")
	}
	if r.CourseTitle != "" {
		b.WriteString(" for " + r.CourseTitle)
	}
	return b.String()
}
