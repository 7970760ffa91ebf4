package coursedetail

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking/internal/api"
	"booking/internal/apitest"
	"booking/internal/catalog"
	"booking/internal/ui"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func setup(t *testing.T) (*apitest.Server, api.User, api.User, *View, *ui.Recorder) {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	admin := srv.AddUser("admin@example.com", "pw", "Admin", api.RoleAdmin)
	student := srv.AddUser("sam@example.com", "pw", "Sam", api.RoleStudent)
	notes := &ui.Recorder{}
	client := srv.Client(api.WithTokenSource(staticToken(srv.TokenFor(student))))
	return srv, admin, student, New(client, notes, SiteURL(srv.BaseURL())), notes
}

func TestView_LoadNotEnrolled(t *testing.T) {
	srv, admin, _, v, _ := setup(t)
	c := srv.AddCourse(admin, "Go", time.Now().Add(time.Hour), 3)

	require.NoError(t, v.Load(context.Background(), c.ID))
	got, ok := v.Course()
	require.True(t, ok)
	assert.Equal(t, "Go", got.Title)
	_, enrolled := v.Enrollment()
	assert.False(t, enrolled)
	assert.Equal(t, catalog.ActionEnroll, v.Action())
	_, hasQR := v.QR()
	assert.False(t, hasQR)
	assert.Equal(t, 0, srv.Hits("GET /api/enrollments/:id/qr"))
}

func TestView_LoadEnrolledFetchesQR(t *testing.T) {
	srv, admin, student, v, _ := setup(t)
	c := srv.AddCourse(admin, "Go", time.Now().Add(time.Hour), 3)
	e := srv.EnrollAs(student, c.ID)

	require.NoError(t, v.Load(context.Background(), c.ID))
	assert.Equal(t, catalog.ActionEnrolled, v.Action())
	code, ok := v.QR()
	require.True(t, ok)
	assert.Equal(t, e.QRCodeData, code.Payload)
	require.NotEmpty(t, code.Image)
	assert.Equal(t, []byte("\x89PNG"), code.Image[:4])
}

func TestView_QRFailureFallsBackToPayload(t *testing.T) {
	srv, admin, student, v, notes := setup(t)
	c := srv.AddCourse(admin, "Go", time.Now().Add(time.Hour), 3)
	e := srv.EnrollAs(student, c.ID)
	srv.Override("GET /api/enrollments/:id/qr", http.StatusInternalServerError, "qr broke")

	require.NoError(t, v.Load(context.Background(), c.ID))
	code, ok := v.QR()
	require.True(t, ok)
	assert.Empty(t, code.Image)
	assert.Equal(t, e.QRCodeData, code.Payload)
	assert.Empty(t, notes.Notices())

	art, err := code.Fallback()
	require.NoError(t, err)
	assert.NotEmpty(t, art)
	png, err := code.PNG()
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestView_CourseFailureBlocks(t *testing.T) {
	_, _, _, v, _ := setup(t)

	err := v.Load(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
	_, ok := v.Course()
	assert.False(t, ok)
}

func TestView_EnrollOpensDialog(t *testing.T) {
	srv, admin, _, v, notes := setup(t)
	c := srv.AddCourse(admin, "Go", time.Now().Add(time.Hour), 3)
	ctx := context.Background()
	require.NoError(t, v.Load(ctx, c.ID))

	dialog, err := v.Enroll(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, dialog.Payload)
	assert.NotEmpty(t, dialog.Image)

	open, ok := v.Dialog()
	require.True(t, ok)
	assert.Equal(t, dialog.Payload, open.Payload)
	assert.Equal(t, catalog.ActionEnrolled, v.Action())

	got, _ := v.Course()
	assert.Equal(t, 1, got.EnrolledCount)
	last, _ := notes.Last()
	assert.Equal(t, ui.Success, last.Level)

	v.CloseDialog()
	_, ok = v.Dialog()
	assert.False(t, ok)
}

func TestView_EnrollFailureSurfacesMessage(t *testing.T) {
	srv, admin, _, v, notes := setup(t)
	c := srv.AddCourse(admin, "Go", time.Now().Add(time.Hour), 1)
	srv.FillCourse(c.ID)
	ctx := context.Background()
	require.NoError(t, v.Load(ctx, c.ID))
	assert.Equal(t, catalog.ActionFull, v.Action())

	_, err := v.Enroll(ctx)
	require.Error(t, err)
	last, _ := notes.Last()
	assert.Equal(t, ui.Notice{Level: ui.Failure, Message: "Course is full"}, last)
	_, ok := v.Dialog()
	assert.False(t, ok)
}

func TestView_EnrollWithoutLoad(t *testing.T) {
	_, _, _, v, _ := setup(t)
	_, err := v.Enroll(context.Background())
	assert.Error(t, err)
}

func TestShare(t *testing.T) {
	srv, admin, _, v, notes := setup(t)
	c := srv.AddCourse(admin, "Go", time.Now().Add(time.Hour), 3)
	require.NoError(t, v.Load(context.Background(), c.ID))

	link := v.Share()
	assert.Equal(t, srv.URL+"/courses/"+strconv.FormatInt(c.ID, 10), link)
	last, _ := notes.Last()
	assert.Contains(t, last.Message, link)
}

func TestSiteURL(t *testing.T) {
	assert.Equal(t, "http://localhost:5000", SiteURL("http://localhost:5000/api"))
	assert.Equal(t, "http://localhost:5000", SiteURL("http://localhost:5000/api/"))
	assert.Equal(t, "https://x.test", SiteURL("https://x.test"))
}
