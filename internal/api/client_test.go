package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking/internal/api"
	"booking/internal/apitest"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestClient_LoginAndRegister(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	srv.AddUser("ada@example.com", "pw", "Ada", api.RoleStudent)
	client := srv.Client()
	ctx := context.Background()

	resp, err := client.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Ada", resp.User.Name)

	_, err = client.Login(ctx, "ada@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", err.Error())
	assert.True(t, api.IsUnauthorized(err))

	reg, err := client.Register(ctx, "bob@example.com", "pw", "Bob", "")
	require.NoError(t, err)
	assert.Equal(t, api.RoleStudent, reg.User.Role)
}

func TestClient_AttachesBearerToken(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	student := srv.AddUser("s@example.com", "pw", "S", api.RoleStudent)
	ctx := context.Background()

	_, err := srv.Client().ListEnrollments(ctx)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, api.StatusOf(err))

	client := srv.Client(api.WithTokenSource(staticToken(srv.TokenFor(student))))
	list, err := client.ListEnrollments(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestClient_CourseLifecycle(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	admin := srv.AddUser("admin@example.com", "pw", "Admin", api.RoleAdmin)
	client := srv.Client(api.WithTokenSource(staticToken(srv.TokenFor(admin))))
	ctx := context.Background()

	start := time.Date(2026, 11, 3, 9, 0, 0, 0, time.UTC)
	created, err := client.CreateCourse(ctx, api.CourseInput{
		Title:     "Go Workshop",
		StartTime: api.NewTime(start),
		EndTime:   api.NewTime(start.Add(3 * time.Hour)),
		Capacity:  12,
	})
	require.NoError(t, err)
	assert.Equal(t, "Go Workshop", created.Title)
	assert.True(t, created.StartTime.Equal(start))

	title := "Advanced Go"
	updated, err := client.UpdateCourse(ctx, created.ID, api.CourseUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Advanced Go", updated.Title)
	assert.Equal(t, 12, updated.Capacity)

	got, err := client.GetCourse(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Advanced Go", got.Title)

	require.NoError(t, client.DeleteCourse(ctx, created.ID))
	_, err = client.GetCourse(ctx, created.ID)
	assert.True(t, api.IsNotFound(err))
}

func TestClient_EnrollAndCheckIn(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	admin := srv.AddUser("admin@example.com", "pw", "Admin", api.RoleAdmin)
	student := srv.AddUser("s@example.com", "pw", "Sam", api.RoleStudent)
	course := srv.AddCourse(admin, "Intro", time.Now().Add(24*time.Hour), 5)
	ctx := context.Background()

	studentClient := srv.Client(api.WithTokenSource(staticToken(srv.TokenFor(student))))
	res, err := studentClient.Enroll(ctx, course.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Enrollment.QRCodeData)
	png, err := api.DecodeImage(res.QRCodeImage)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	qr, err := studentClient.EnrollmentQR(ctx, res.Enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Enrollment.QRCodeData, qr.Data)

	adminClient := srv.Client(api.WithTokenSource(staticToken(srv.TokenFor(admin))))
	scan, err := adminClient.ScanCheckIn(ctx, qr.Data)
	require.NoError(t, err)
	assert.False(t, scan.CheckedIn)

	first, err := adminClient.VerifyCheckIn(ctx, qr.Data)
	require.NoError(t, err)
	assert.Equal(t, "Check-in successful", first.Message)
	assert.True(t, first.Enrollment.CheckedIn)
	require.NotNil(t, first.Enrollment.CheckedInAt)

	second, err := adminClient.VerifyCheckIn(ctx, qr.Data)
	require.NoError(t, err)
	assert.Equal(t, "Already checked in", second.Message)

	report, err := adminClient.CourseAnalytics(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.CheckedInCount)
	assert.InDelta(t, 100.0, report.Rate(), 0.001)
}

func TestClient_ServerMessageVerbatim(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	srv.Override("GET /api/courses", http.StatusServiceUnavailable, "Maintenance until noon")

	_, err := srv.Client().ListCourses(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Maintenance until noon", api.MessageOf(err, "fallback"))
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := api.New(url).ListCourses(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrTransport))
	assert.Equal(t, "Failed to load", api.MessageOf(err, "Failed to load"))
}

func TestClient_ErrorShapes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "error field", status: 400, body: `{"error":"Course is full"}`, want: "Course is full"},
		{name: "message field", status: 422, body: `{"message":"bad input"}`, want: "bad input"},
		{name: "jwt msg field", status: 401, body: `{"msg":"Token has expired"}`, want: "Token has expired"},
		{name: "plain text", status: 500, body: "boom", want: "boom"},
		{name: "html page", status: 502, body: "<html>bad gateway</html>", want: "502 Bad Gateway"},
		{name: "empty", status: 404, body: "", want: "404 Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := api.New(srv.URL).ListCourses(context.Background())
			require.Error(t, err)
			var apiErr *api.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestClient_SendsRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	_, err := api.New(srv.URL).ListCourses(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 36)
}
