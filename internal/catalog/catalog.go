// Package catalog is the student-facing course list with enrollment actions.
package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"booking/internal/api"
	"booking/internal/logger"
	"booking/internal/ui"
)

// Action is what a student can do with a course.
type Action int

const (
	// ActionEnroll means the enroll control is enabled.
	ActionEnroll Action = iota
	// ActionEnrolled shows the "Enrolled" badge.
	ActionEnrolled
	// ActionFull shows the "Full" badge.
	ActionFull
)

func (a Action) String() string {
	switch a {
	case ActionEnrolled:
		return "Enrolled"
	case ActionFull:
		return "Full"
	default:
		return "Enroll"
	}
}

// ActionFor applies the rendering policy: enrolled wins over full.
func ActionFor(c api.Course, enrolled bool) Action {
	switch {
	case enrolled:
		return ActionEnrolled
	case c.IsFull():
		return ActionFull
	default:
		return ActionEnroll
	}
}

// EnrolledSet projects an enrollment list onto the set of course ids.
func EnrolledSet(enrollments []api.Enrollment) map[int64]bool {
	set := make(map[int64]bool, len(enrollments))
	for _, e := range enrollments {
		set[e.CourseID] = true
	}
	return set
}

// API is the part of the client the catalog uses.
type API interface {
	ListCourses(ctx context.Context) ([]api.Course, error)
	ListEnrollments(ctx context.Context) ([]api.Enrollment, error)
	Enroll(ctx context.Context, courseID int64) (*api.EnrollResult, error)
}

// Row is one rendered course line.
type Row struct {
	Course api.Course
	Action Action
}

// View holds the catalog state between user actions.
type View struct {
	api    API
	notify ui.Notifier
	log    zerolog.Logger

	mu          sync.RWMutex
	courses     []api.Course
	enrollments []api.Enrollment
	enrolled    map[int64]bool
	err         error
}

// New creates an empty catalog view.
func New(client API, notifier ui.Notifier) *View {
	return &View{
		api:      client,
		notify:   notifier,
		log:      logger.Component("catalog"),
		enrolled: map[int64]bool{},
	}
}

// Load fetches the course list and the student's enrollments independently.
// A failed enrollment fetch is logged and leaves the enrolled set empty; a
// failed course fetch is returned and kept as the view error. Results that
// arrive after ctx is done are discarded.
func (v *View) Load(ctx context.Context) error {
	var (
		courses        []api.Course
		enrollments    []api.Enrollment
		enrollmentsErr error
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		var err error
		courses, err = v.api.ListCourses(ctx)
		return err
	})
	g.Go(func() error {
		enrollments, enrollmentsErr = v.api.ListEnrollments(ctx)
		return nil
	})
	coursesErr := g.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if enrollmentsErr != nil {
		v.log.Error().Err(enrollmentsErr).Msg("failed to fetch enrollments")
		enrollments = nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if coursesErr != nil {
		v.log.Error().Err(coursesErr).Msg("failed to fetch courses")
		v.err = coursesErr
		return coursesErr
	}
	v.err = nil
	v.courses = courses
	v.enrollments = enrollments
	v.enrolled = EnrolledSet(enrollments)
	return nil
}

// Enroll submits an enrollment. On success the new enrollment joins the local
// list and the enrolled set is recomputed; on failure nothing local changes.
func (v *View) Enroll(ctx context.Context, courseID int64) (*api.EnrollResult, error) {
	res, err := v.api.Enroll(ctx, courseID)
	if err != nil {
		v.notify.Notify(ui.Failure, api.MessageOf(err, "Failed to enroll"))
		return nil, err
	}
	if ctx.Err() != nil {
		return res, nil
	}

	v.mu.Lock()
	v.enrollments = mergeEnrollment(v.enrollments, res.Enrollment, courseID)
	v.enrolled = EnrolledSet(v.enrollments)
	v.mu.Unlock()

	v.notify.Notify(ui.Success, "Successfully enrolled!")
	return res, nil
}

func mergeEnrollment(list []api.Enrollment, e api.Enrollment, courseID int64) []api.Enrollment {
	if e.CourseID == 0 {
		e.CourseID = courseID
	}
	for _, existing := range list {
		if existing.CourseID == e.CourseID {
			return list
		}
	}
	return append(append([]api.Enrollment(nil), list...), e)
}

// IsEnrolled reports membership in the enrolled set.
func (v *View) IsEnrolled(courseID int64) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.enrolled[courseID]
}

// ActionFor returns the action to render for c.
func (v *View) ActionFor(c api.Course) Action {
	return ActionFor(c, v.IsEnrolled(c.ID))
}

// Rows returns the courses in list order with their actions.
func (v *View) Rows() []Row {
	v.mu.RLock()
	defer v.mu.RUnlock()
	rows := make([]Row, 0, len(v.courses))
	for _, c := range v.courses {
		rows = append(rows, Row{Course: c, Action: ActionFor(c, v.enrolled[c.ID])})
	}
	return rows
}

// EnrolledIDs returns the enrolled course ids in ascending order.
func (v *View) EnrolledIDs() []int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := make([]int64, 0, len(v.enrolled))
	for id := range v.enrolled {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Err is the course-list failure of the last Load, if any.
func (v *View) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}
