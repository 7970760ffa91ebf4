package api

import (
	"context"
	"fmt"
	"net/http"
)

// Login exchanges credentials for a token and the user record.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. An empty role means student.
func (c *Client) Register(ctx context.Context, email, password, name, role string) (*AuthResponse, error) {
	if role == "" {
		role = RoleStudent
	}
	var out AuthResponse
	err := c.post(ctx, "/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
		"role":     role,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCourses returns all courses with their aggregate counts.
func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	var out []Course
	if err := c.get(ctx, "/courses", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCourse returns one course.
func (c *Client) GetCourse(ctx context.Context, id int64) (*Course, error) {
	var out Course
	if err := c.get(ctx, fmt.Sprintf("/courses/%d", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCourse creates a course (admin).
func (c *Client) CreateCourse(ctx context.Context, in CourseInput) (*Course, error) {
	var out Course
	if err := c.post(ctx, "/courses", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCourse changes the given fields of a course (admin).
func (c *Client) UpdateCourse(ctx context.Context, id int64, in CourseUpdate) (*Course, error) {
	var out Course
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/courses/%d", id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCourse deletes a course (admin).
func (c *Client) DeleteCourse(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/courses/%d", id), nil, nil)
}

// ListEnrollments returns the current user's enrollments.
func (c *Client) ListEnrollments(ctx context.Context) ([]Enrollment, error) {
	var out []Enrollment
	if err := c.get(ctx, "/enrollments", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CourseEnrollments returns every enrollment of a course (admin).
func (c *Client) CourseEnrollments(ctx context.Context, courseID int64) ([]Enrollment, error) {
	var out []Enrollment
	if err := c.get(ctx, fmt.Sprintf("/enrollments/course/%d", courseID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Enroll enrolls the current user in a course.
func (c *Client) Enroll(ctx context.Context, courseID int64) (*EnrollResult, error) {
	var out EnrollResult
	if err := c.post(ctx, "/enrollments", map[string]int64{"course_id": courseID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelEnrollment removes an enrollment.
func (c *Client) CancelEnrollment(ctx context.Context, enrollmentID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/enrollments/%d", enrollmentID), nil, nil)
}

// EnrollmentQR fetches the server-rendered QR image of an enrollment.
func (c *Client) EnrollmentQR(ctx context.Context, enrollmentID int64) (*QRCode, error) {
	var out QRCode
	if err := c.get(ctx, fmt.Sprintf("/enrollments/%d/qr", enrollmentID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analytics returns attendance aggregates for every course (admin).
func (c *Client) Analytics(ctx context.Context) ([]CourseAnalytics, error) {
	var out []CourseAnalytics
	if err := c.get(ctx, "/admin/analytics", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CourseAnalytics returns the attendance report of one course (admin).
func (c *Client) CourseAnalytics(ctx context.Context, courseID int64) (*CourseAttendance, error) {
	var out CourseAttendance
	if err := c.get(ctx, fmt.Sprintf("/admin/course/%d/analytics", courseID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendReminders triggers the reminder dispatch of a course (admin).
func (c *Client) SendReminders(ctx context.Context, courseID int64) (*ReminderResult, error) {
	var out ReminderResult
	if err := c.post(ctx, fmt.Sprintf("/admin/course/%d/reminders", courseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyCheckIn verifies a QR payload and checks the enrollment in.
func (c *Client) VerifyCheckIn(ctx context.Context, payload string) (*CheckInResult, error) {
	var out CheckInResult
	if err := c.post(ctx, "/checkin/verify", map[string]string{"qr_code_data": payload}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ScanCheckIn looks a QR payload up without checking in.
func (c *Client) ScanCheckIn(ctx context.Context, payload string) (*ScanResult, error) {
	var out ScanResult
	if err := c.post(ctx, "/checkin/scan", map[string]string{"qr_code_data": payload}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
