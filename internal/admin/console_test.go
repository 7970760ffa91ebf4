package admin

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking/internal/api"
	"booking/internal/apitest"
	"booking/internal/ui"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type fixture struct {
	srv     *apitest.Server
	admin   api.User
	console *Console
	notes   *ui.Recorder
}

func newFixture(t *testing.T, loc *time.Location) *fixture {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	f := &fixture{srv: srv, notes: &ui.Recorder{}}
	f.admin = srv.AddUser("admin@example.com", "pw", "Admin", api.RoleAdmin)
	client := srv.Client(api.WithTokenSource(staticToken(srv.TokenFor(f.admin))))
	f.console = New(client, f.notes, f.notes, loc)
	return f
}

func TestCourseForm_Input(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	tests := []struct {
		name    string
		form    CourseForm
		wantErr error
		check   func(t *testing.T, in api.CourseInput)
	}{
		{
			name: "local times become utc",
			form: CourseForm{Title: "Go", Start: "2026-11-03T09:00", End: "2026-11-03T11:30"},
			check: func(t *testing.T, in api.CourseInput) {
				assert.Equal(t, time.Date(2026, 11, 3, 14, 0, 0, 0, time.UTC), in.StartTime.Time)
				assert.Equal(t, time.Date(2026, 11, 3, 16, 30, 0, 0, time.UTC), in.EndTime.Time)
				assert.Equal(t, DefaultCapacity, in.Capacity)
			},
		},
		{
			name: "explicit capacity",
			form: CourseForm{Title: "Go", Start: "2026-11-03T09:00", End: "2026-11-03T10:00", Capacity: 12},
			check: func(t *testing.T, in api.CourseInput) {
				assert.Equal(t, 12, in.Capacity)
			},
		},
		{name: "missing title", form: CourseForm{Start: "2026-11-03T09:00", End: "2026-11-03T10:00"}, wantErr: ErrMissingField},
		{name: "missing start", form: CourseForm{Title: "Go", End: "2026-11-03T10:00"}, wantErr: ErrMissingField},
		{name: "missing end", form: CourseForm{Title: "Go", Start: "2026-11-03T10:00"}, wantErr: ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := tt.form.Input(loc)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, in)
		})
	}

	_, err := CourseForm{Title: "Go", Start: "tomorrow", End: "2026-11-03T10:00"}.Input(loc)
	assert.Error(t, err)
}

func TestConsole_LoadJoinsAnalytics(t *testing.T) {
	f := newFixture(t, time.UTC)
	student := f.srv.AddUser("s@example.com", "pw", "S", api.RoleStudent)
	c := f.srv.AddCourse(f.admin, "Go", time.Now().Add(time.Hour), 4)
	f.srv.EnrollAs(student, c.ID)

	require.NoError(t, f.console.Load(context.Background()))
	rows := f.console.Rows()
	require.Len(t, rows, 1)
	assert.True(t, rows[0].HasStats)
	assert.Equal(t, 1, rows[0].Analytics.TotalEnrolled)
	assert.Equal(t, 4, rows[0].Analytics.Capacity)
	assert.Equal(t, 0.0, rows[0].Analytics.Rate())
}

func TestConsole_AnalyticsFailureIsLoggedOnly(t *testing.T) {
	f := newFixture(t, time.UTC)
	f.srv.AddCourse(f.admin, "Go", time.Now().Add(time.Hour), 4)
	f.srv.Override("GET /api/admin/analytics", http.StatusInternalServerError, "boom")

	require.NoError(t, f.console.Load(context.Background()))
	rows := f.console.Rows()
	require.Len(t, rows, 1)
	assert.False(t, rows[0].HasStats)
	assert.Empty(t, f.notes.Notices())
}

func TestConsole_CourseFailureBlocks(t *testing.T) {
	f := newFixture(t, time.UTC)
	f.srv.Override("GET /api/courses", http.StatusBadGateway, "upstream down")

	err := f.console.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, "upstream down", api.MessageOf(f.console.Err(), ""))
	assert.Empty(t, f.console.Rows())
	assert.Equal(t, 1, f.srv.Hits("GET /api/admin/analytics"))
}

func TestConsole_CreateCourse(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	f := newFixture(t, loc)
	ctx := context.Background()
	f.console.OpenCreate()

	created, err := f.console.CreateCourse(ctx, CourseForm{
		Title: "Go", Start: "2026-11-03T09:00", End: "2026-11-03T11:00", Location: "Lab", Capacity: 10,
	})
	require.NoError(t, err)
	assert.True(t, created.StartTime.Equal(time.Date(2026, 11, 3, 7, 0, 0, 0, time.UTC)))
	assert.False(t, f.console.DialogOpen())
	assert.Equal(t, NewForm(), f.console.Form())
	require.Len(t, f.console.Rows(), 1)
	assert.Equal(t, 1, f.srv.Hits("GET /api/courses"))
}

func TestConsole_CreateCourseServerRejectionKeepsForm(t *testing.T) {
	f := newFixture(t, time.UTC)
	f.console.OpenCreate()
	form := CourseForm{Title: "Go", Start: "2026-11-03T11:00", End: "2026-11-03T09:00", Capacity: 30}

	_, err := f.console.CreateCourse(context.Background(), form)
	require.Error(t, err)
	last, _ := f.notes.Last()
	assert.Equal(t, ui.Notice{Level: ui.Failure, Message: "End time must be after start time"}, last)
	assert.Equal(t, form, f.console.Form())
	assert.True(t, f.console.DialogOpen())
}

func TestConsole_CreateCourseMissingTitleSendsNothing(t *testing.T) {
	f := newFixture(t, time.UTC)
	form := CourseForm{Start: "2026-11-03T09:00", End: "2026-11-03T11:00"}

	_, err := f.console.CreateCourse(context.Background(), form)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Equal(t, 0, f.srv.Hits("POST /api/courses"))
	assert.Equal(t, form, f.console.Form())
	last, _ := f.notes.Last()
	assert.Equal(t, ui.Warning, last.Level)
}

func TestConsole_DeleteRequiresConfirmation(t *testing.T) {
	f := newFixture(t, time.UTC)
	c := f.srv.AddCourse(f.admin, "Go", time.Now().Add(time.Hour), 4)
	ctx := context.Background()

	f.notes.Answer = false
	err := f.console.DeleteCourse(ctx, c.ID)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 0, f.srv.Hits("DELETE /api/courses/:id"))
	assert.Equal(t, []string{"Are you sure you want to delete this course?"}, f.notes.Prompts())

	f.notes.Answer = true
	require.NoError(t, f.console.DeleteCourse(ctx, c.ID))
	_, exists := f.srv.Course(c.ID)
	assert.False(t, exists)
	assert.Empty(t, f.console.Rows())
}

func TestConsole_DeleteFailureSurfacesMessage(t *testing.T) {
	f := newFixture(t, time.UTC)
	f.notes.Answer = true

	err := f.console.DeleteCourse(context.Background(), 404)
	require.Error(t, err)
	last, _ := f.notes.Last()
	assert.Equal(t, "Course not found", last.Message)
}

func TestConsole_SendRemindersReportsCounts(t *testing.T) {
	f := newFixture(t, time.UTC)
	c := f.srv.AddCourse(f.admin, "Go", time.Now().Add(time.Hour), 20)
	f.srv.OverrideBody("POST /api/admin/course/:id/reminders", http.StatusOK, api.ReminderResult{SentCount: 12, FailedCount: 1})

	res, err := f.console.SendReminders(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailedCount)
	last, _ := f.notes.Last()
	assert.Equal(t, ui.Notice{Level: ui.Success, Message: "Reminders sent: 12, Failed: 1"}, last)
	assert.False(t, f.console.Sending(c.ID))
}

func TestConsole_SendRemindersPartialFailure(t *testing.T) {
	f := newFixture(t, time.UTC)
	c := f.srv.AddCourse(f.admin, "Go", time.Now().Add(time.Hour), 20)
	ok := f.srv.AddUser("ok@example.com", "pw", "Ok", api.RoleStudent)
	bad := f.srv.AddUser("bad@example.com", "pw", "Bad", api.RoleStudent)
	f.srv.EnrollAs(ok, c.ID)
	f.srv.EnrollAs(bad, c.ID)
	f.srv.FailEmail("bad@example.com")

	res, err := f.console.SendReminders(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SentCount)
	assert.Equal(t, 1, res.FailedCount)
}

func TestConsole_SendRemindersNoEnrollments(t *testing.T) {
	f := newFixture(t, time.UTC)
	c := f.srv.AddCourse(f.admin, "Go", time.Now().Add(time.Hour), 20)

	_, err := f.console.SendReminders(context.Background(), c.ID)
	require.Error(t, err)
	last, _ := f.notes.Last()
	assert.Equal(t, "No enrollments found for this course", last.Message)
}

func TestConsole_RemindersLockOnlyTheirCourse(t *testing.T) {
	f := newFixture(t, time.UTC)
	a := f.srv.AddCourse(f.admin, "A", time.Now().Add(time.Hour), 20)
	b := f.srv.AddCourse(f.admin, "B", time.Now().Add(24*time.Hour), 20)
	f.srv.OverrideBody("POST /api/admin/course/:id/reminders", http.StatusOK, api.ReminderResult{SentCount: 1})
	release := f.srv.Hold("POST /api/admin/course/:id/reminders")
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.console.SendReminders(ctx, a.ID)
		done <- err
	}()
	require.Eventually(t, func() bool { return f.console.Sending(a.ID) }, 5*time.Second, 10*time.Millisecond)

	_, err := f.console.SendReminders(ctx, a.ID)
	assert.ErrorIs(t, err, ErrReminderInFlight)
	assert.False(t, f.console.Sending(b.ID))

	bDone := make(chan error, 1)
	go func() {
		_, err := f.console.SendReminders(ctx, b.ID)
		bDone <- err
	}()
	require.Eventually(t, func() bool { return f.console.Sending(b.ID) }, 5*time.Second, 10*time.Millisecond)

	release()
	require.NoError(t, <-done)
	require.NoError(t, <-bDone)
	assert.False(t, f.console.Sending(a.ID))
	assert.False(t, f.console.Sending(b.ID))
}

func TestConsole_CourseReport(t *testing.T) {
	f := newFixture(t, time.UTC)
	c := f.srv.AddCourse(f.admin, "Go", time.Now().Add(time.Hour), 20)
	s := f.srv.AddUser("s@example.com", "pw", "Sam", api.RoleStudent)
	f.srv.EnrollAs(s, c.ID)

	report, err := f.console.CourseReport(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalEnrolled)
	require.Len(t, report.NotCheckedInStudents, 1)
	assert.Equal(t, "Sam", report.NotCheckedInStudents[0].StudentName)
}

func TestConsole_UpdateCourse(t *testing.T) {
	f := newFixture(t, time.UTC)
	c := f.srv.AddCourse(f.admin, "Go", time.Now().Add(time.Hour), 20)
	capacity := 25

	updated, err := f.console.UpdateCourse(context.Background(), c.ID, api.CourseUpdate{Capacity: &capacity})
	require.NoError(t, err)
	assert.Equal(t, 25, updated.Capacity)
	require.Len(t, f.console.Rows(), 1)
	assert.Equal(t, 25, f.console.Rows()[0].Course.Capacity)
}
