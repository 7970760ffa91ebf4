// Package admin is the administrator console: course management, attendance
// analytics and reminder dispatch.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"booking/internal/api"
	"booking/internal/logger"
	"booking/internal/ui"
)

const deletePrompt = "Are you sure you want to delete this course?"

var (
	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("cancelled")
	// ErrReminderInFlight is returned while reminders for the course are sending.
	ErrReminderInFlight = errors.New("reminders already sending for this course")
)

// API is the part of the client the console uses.
type API interface {
	ListCourses(ctx context.Context) ([]api.Course, error)
	Analytics(ctx context.Context) ([]api.CourseAnalytics, error)
	CreateCourse(ctx context.Context, in api.CourseInput) (*api.Course, error)
	UpdateCourse(ctx context.Context, id int64, in api.CourseUpdate) (*api.Course, error)
	DeleteCourse(ctx context.Context, id int64) error
	SendReminders(ctx context.Context, courseID int64) (*api.ReminderResult, error)
	CourseAnalytics(ctx context.Context, courseID int64) (*api.CourseAttendance, error)
}

// Row is one course with its analytics, if they were loaded.
type Row struct {
	Course    api.Course
	Analytics api.CourseAnalytics
	HasStats  bool
	Reminding bool
}

// Console holds the admin dashboard state.
type Console struct {
	api     API
	notify  ui.Notifier
	confirm ui.Confirmer
	loc     *time.Location
	log     zerolog.Logger

	mu         sync.RWMutex
	courses    []api.Course
	analytics  []api.CourseAnalytics
	err        error
	form       CourseForm
	dialogOpen bool
	sending    map[int64]bool
}

// New creates a console. loc is the viewer's zone for form times.
func New(client API, notifier ui.Notifier, confirmer ui.Confirmer, loc *time.Location) *Console {
	if loc == nil {
		loc = time.Local
	}
	return &Console{
		api:     client,
		notify:  notifier,
		confirm: confirmer,
		loc:     loc,
		log:     logger.Component("admin"),
		form:    NewForm(),
		sending: map[int64]bool{},
	}
}

// Load fetches courses and analytics in parallel. Each result is applied on
// its own; an analytics failure is only logged.
func (c *Console) Load(ctx context.Context) error {
	g := new(errgroup.Group)
	g.Go(func() error {
		courses, err := c.api.ListCourses(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.log.Error().Err(err).Msg("failed to fetch courses")
			c.err = err
			return err
		}
		c.err = nil
		c.courses = courses
		return nil
	})
	g.Go(func() error {
		stats, err := c.api.Analytics(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			c.log.Error().Err(err).Msg("failed to fetch analytics")
			return nil
		}
		c.mu.Lock()
		c.analytics = stats
		c.mu.Unlock()
		return nil
	})
	return g.Wait()
}

// OpenCreate opens the creation dialog with the current form.
func (c *Console) OpenCreate() {
	c.mu.Lock()
	c.dialogOpen = true
	c.mu.Unlock()
}

// DialogOpen reports whether the creation dialog is showing.
func (c *Console) DialogOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dialogOpen
}

// Form returns the current form contents.
func (c *Console) Form() CourseForm {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.form
}

// CreateCourse submits form. On success the dialog closes, the form resets to
// its defaults and both lists reload. On any failure the form is kept.
func (c *Console) CreateCourse(ctx context.Context, form CourseForm) (*api.Course, error) {
	c.mu.Lock()
	c.form = form
	c.mu.Unlock()

	in, err := form.Input(c.loc)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, ErrMissingField) {
			msg = "Title, start time and end time are required"
		}
		c.notify.Notify(ui.Warning, msg)
		return nil, err
	}

	created, err := c.api.CreateCourse(ctx, in)
	if err != nil {
		c.notify.Notify(ui.Failure, api.MessageOf(err, "Failed to create course"))
		return nil, err
	}

	c.mu.Lock()
	c.dialogOpen = false
	c.form = NewForm()
	c.mu.Unlock()
	c.notify.Notify(ui.Success, fmt.Sprintf("Course %q created", created.Title))
	c.reload(ctx)
	return created, nil
}

// UpdateCourse sends a partial change and reloads on success.
func (c *Console) UpdateCourse(ctx context.Context, id int64, in api.CourseUpdate) (*api.Course, error) {
	updated, err := c.api.UpdateCourse(ctx, id, in)
	if err != nil {
		c.notify.Notify(ui.Failure, api.MessageOf(err, "Failed to update course"))
		return nil, err
	}
	c.notify.Notify(ui.Success, fmt.Sprintf("Course %q updated", updated.Title))
	c.reload(ctx)
	return updated, nil
}

// DeleteCourse asks for confirmation and then deletes. Declining sends nothing.
func (c *Console) DeleteCourse(ctx context.Context, id int64) error {
	if !c.confirm.Confirm(deletePrompt) {
		return ErrCancelled
	}
	if err := c.api.DeleteCourse(ctx, id); err != nil {
		c.notify.Notify(ui.Failure, api.MessageOf(err, "Failed to delete course"))
		return err
	}
	c.notify.Notify(ui.Success, "Course deleted")
	c.reload(ctx)
	return nil
}

// SendReminders dispatches reminders for one course. Only that course is
// locked while the request is in flight. Partial delivery failure is a
// successful call.
func (c *Console) SendReminders(ctx context.Context, courseID int64) (*api.ReminderResult, error) {
	c.mu.Lock()
	if c.sending[courseID] {
		c.mu.Unlock()
		return nil, ErrReminderInFlight
	}
	c.sending[courseID] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.sending, courseID)
		c.mu.Unlock()
	}()

	res, err := c.api.SendReminders(ctx, courseID)
	if err != nil {
		c.notify.Notify(ui.Failure, api.MessageOf(err, "Failed to send reminders"))
		return nil, err
	}
	c.notify.Notify(ui.Success, fmt.Sprintf("Reminders sent: %d, Failed: %d", res.SentCount, res.FailedCount))
	return res, nil
}

// Sending reports whether reminders for the course are in flight.
func (c *Console) Sending(courseID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sending[courseID]
}

// CourseReport fetches the checked-in and missing students of one course.
func (c *Console) CourseReport(ctx context.Context, courseID int64) (*api.CourseAttendance, error) {
	report, err := c.api.CourseAnalytics(ctx, courseID)
	if err != nil {
		c.notify.Notify(ui.Failure, api.MessageOf(err, "Failed to load attendance report"))
		return nil, err
	}
	return report, nil
}

func (c *Console) reload(ctx context.Context) {
	if err := c.Load(ctx); err != nil {
		c.log.Warn().Err(err).Msg("reload after change failed")
	}
}

// Rows joins courses with their analytics in course list order.
func (c *Console) Rows() []Row {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := make(map[int64]api.CourseAnalytics, len(c.analytics))
	for _, a := range c.analytics {
		stats[a.CourseID] = a
	}
	rows := make([]Row, 0, len(c.courses))
	for _, course := range c.courses {
		a, ok := stats[course.ID]
		rows = append(rows, Row{Course: course, Analytics: a, HasStats: ok, Reminding: c.sending[course.ID]})
	}
	return rows
}

// Analytics returns the last loaded analytics.
func (c *Console) Analytics() []api.CourseAnalytics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]api.CourseAnalytics(nil), c.analytics...)
}

// Err is the course-list failure of the last Load, if any.
func (c *Console) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}
