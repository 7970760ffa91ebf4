package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Roles understood by the API.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// Time is an absolute instant on the wire. The API emits RFC 3339 or
// zone-less ISO 8601 timestamps; zone-less values are UTC.
type Time struct {
	time.Time
}

var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// NewTime wraps t normalized to UTC.
func NewTime(t time.Time) Time {
	return Time{Time: t.UTC()}
}

// ParseTime parses an API timestamp.
func ParseTime(s string) (Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return NewTime(t), nil
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return NewTime(t), nil
		}
	}
	return Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func (t *Time) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// User is an account as returned by the auth endpoints.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt *Time  `json:"created_at,omitempty"`
}

// IsAdmin reports whether the user may use admin-only views.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// AuthResponse is returned by login and register.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// Course carries server-computed enrollment aggregates.
type Course struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	InstructorID   int64  `json:"instructor_id"`
	InstructorName string `json:"instructor_name"`
	StartTime      Time   `json:"start_time"`
	EndTime        Time   `json:"end_time"`
	Location       string `json:"location"`
	Capacity       int    `json:"capacity"`
	EnrolledCount  int    `json:"enrolled_count"`
	CheckedInCount int    `json:"checked_in_count"`
	CreatedAt      *Time  `json:"created_at,omitempty"`
}

// IsFull reports whether every seat is taken.
func (c Course) IsFull() bool { return c.EnrolledCount >= c.Capacity }

// SeatsLeft never goes below zero.
func (c Course) SeatsLeft() int {
	if left := c.Capacity - c.EnrolledCount; left > 0 {
		return left
	}
	return 0
}

// CourseInput is the body of a course creation.
type CourseInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   Time   `json:"start_time"`
	EndTime     Time   `json:"end_time"`
	Location    string `json:"location"`
	Capacity    int    `json:"capacity"`
}

// CourseUpdate carries only the fields being changed.
type CourseUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	StartTime   *Time   `json:"start_time,omitempty"`
	EndTime     *Time   `json:"end_time,omitempty"`
	Location    *string `json:"location,omitempty"`
	Capacity    *int    `json:"capacity,omitempty"`
}

// Enrollment is one student's registration for one course.
type Enrollment struct {
	ID           int64  `json:"id"`
	StudentID    int64  `json:"student_id"`
	CourseID     int64  `json:"course_id"`
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	CourseTitle  string `json:"course_title"`
	EnrolledAt   *Time  `json:"enrolled_at,omitempty"`
	CheckedIn    bool   `json:"checked_in"`
	CheckedInAt  *Time  `json:"checked_in_at,omitempty"`
	QRCodeData   string `json:"qr_code_data"`
}

// EnrollResult is returned when a student enrolls.
type EnrollResult struct {
	Enrollment  Enrollment `json:"enrollment"`
	QRCodeImage string     `json:"qr_code_image"`
}

// QRCode is the server-rendered check-in code of an enrollment.
type QRCode struct {
	Data  string `json:"qr_code_data"`
	Image string `json:"qr_code_image"`
}

// PNG decodes the base64 image, accepting an optional data URL prefix.
func (q QRCode) PNG() ([]byte, error) {
	return DecodeImage(q.Image)
}

// DecodeImage decodes a base64 PNG as sent by the API.
func DecodeImage(image string) ([]byte, error) {
	if image == "" {
		return nil, fmt.Errorf("no image")
	}
	if i := strings.Index(image, ","); strings.HasPrefix(image, "data:") && i >= 0 {
		image = image[i+1:]
	}
	return base64.StdEncoding.DecodeString(image)
}

// CourseAnalytics is the per-course attendance aggregate.
type CourseAnalytics struct {
	CourseID       int64   `json:"course_id"`
	CourseTitle    string  `json:"course_title"`
	TotalEnrolled  int     `json:"total_enrolled"`
	CheckedIn      int     `json:"checked_in"`
	NotCheckedIn   int     `json:"not_checked_in"`
	Capacity       int     `json:"capacity"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// Rate is the display attendance rate in percent, zero when nobody enrolled.
func (a CourseAnalytics) Rate() float64 {
	return attendanceRate(a.CheckedIn, a.TotalEnrolled)
}

// CourseAttendance is the detailed attendance report of one course.
type CourseAttendance struct {
	Course               Course       `json:"course"`
	TotalEnrolled        int          `json:"total_enrolled"`
	CheckedInCount       int          `json:"checked_in_count"`
	NotCheckedInCount    int          `json:"not_checked_in_count"`
	CheckedInStudents    []Enrollment `json:"checked_in_students"`
	NotCheckedInStudents []Enrollment `json:"not_checked_in_students"`
	AttendanceRate       float64      `json:"attendance_rate"`
}

// Rate is the display attendance rate in percent, zero when nobody enrolled.
func (a CourseAttendance) Rate() float64 {
	return attendanceRate(a.CheckedInCount, a.TotalEnrolled)
}

func attendanceRate(checkedIn, enrolled int) float64 {
	if enrolled <= 0 {
		return 0
	}
	return float64(checkedIn) / float64(enrolled) * 100
}

// ReminderResult reports a reminder dispatch. Failures are counted, not raised.
type ReminderResult struct {
	Message     string `json:"message"`
	SentCount   int    `json:"sent_count"`
	FailedCount int    `json:"failed_count"`
}

// CheckInResult is returned by QR verification.
type CheckInResult struct {
	Message    string     `json:"message"`
	Enrollment Enrollment `json:"enrollment"`
}

// ScanResult is a lookup of a QR payload that does not check in.
type ScanResult struct {
	Enrollment Enrollment `json:"enrollment"`
	CheckedIn  bool       `json:"checked_in"`
}
