// Package apitest runs an in-process fake of the workshop booking API with
// the same routes, payloads and error messages as the real backend.
package apitest

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"golang.org/x/crypto/bcrypt"

	"booking/internal/api"
	"booking/internal/auth"
)

const (
	signingKey = "apitest-signing-key"
	issuer     = "apitest"
)

type user struct {
	api.User
	passwordHash []byte
}

type enrollment struct {
	id          int64
	studentID   int64
	courseID    int64
	enrolledAt  time.Time
	checkedIn   bool
	checkedInAt time.Time
	qrData      string
}

type override struct {
	status  int
	message string
	body    any
}

// Server is a fake API. All methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	users       map[int64]*user
	courses     map[int64]*api.Course
	enrollments map[int64]*enrollment
	nextID      int64
	overrides   map[string]override
	holds       map[string]chan struct{}
	hits        map[string]int
	failEmails  map[string]bool
	tokenTTL    time.Duration
}

// New starts a fake API. Its URL (with the /api prefix) is BaseURL().
func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		users:       map[int64]*user{},
		courses:     map[int64]*api.Course{},
		enrollments: map[int64]*enrollment{},
		overrides:   map[string]override{},
		holds:       map[string]chan struct{}{},
		hits:        map[string]int{},
		failEmails:  map[string]bool{},
		tokenTTL:    time.Hour,
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

// BaseURL is the API root to hand to api.New.
func (s *Server) BaseURL() string { return s.URL + "/api" }

// Client returns an api.Client bound to this server.
func (s *Server) Client(opts ...api.Option) *api.Client {
	return api.New(s.BaseURL(), opts...)
}

// AddUser registers an account directly.
func (s *Server) AddUser(email, password, name, role string) api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password, name, role)
}

func (s *Server) addUserLocked(email, password, name, role string) api.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.nextID++
	created := api.NewTime(time.Now())
	u := &user{
		User:         api.User{ID: s.nextID, Email: email, Name: name, Role: role, CreatedAt: &created},
		passwordHash: hash,
	}
	s.users[u.ID] = u
	return u.User
}

// TokenFor mints a valid access token for a user.
func (s *Server) TokenFor(u api.User) string {
	tok, _, err := auth.Issue(strconv.FormatInt(u.ID, 10), u.Role, issuer, signingKey, s.tokenTTL)
	if err != nil {
		panic(err)
	}
	return tok
}

// AddCourse stores a course owned by instructor and returns it.
func (s *Server) AddCourse(instructor api.User, title string, start time.Time, capacity int) api.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c := &api.Course{
		ID:             s.nextID,
		Title:          title,
		InstructorID:   instructor.ID,
		InstructorName: instructor.Name,
		StartTime:      api.NewTime(start),
		EndTime:        api.NewTime(start.Add(2 * time.Hour)),
		Location:       "Room 1",
		Capacity:       capacity,
	}
	s.courses[c.ID] = c
	return s.courseLocked(c.ID)
}

// EnrollAs creates an enrollment directly and returns its QR payload.
func (s *Server) EnrollAs(student api.User, courseID int64) api.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.enrollLocked(student.ID, courseID)
	return s.enrollmentLocked(e)
}

// FillCourse adds anonymous students until the course is full.
func (s *Server) FillCourse(courseID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.courses[courseID]
	for s.countLocked(courseID, false) < c.Capacity {
		u := s.addUserLocked(fmt.Sprintf("filler-%d@example.com", s.nextID+1), "x", "Filler", api.RoleStudent)
		s.enrollLocked(u.ID, courseID)
	}
}

// FailEmail makes reminder delivery to email fail.
func (s *Server) FailEmail(email string) {
	s.mu.Lock()
	s.failEmails[email] = true
	s.mu.Unlock()
}

// Override forces the route (e.g. "GET /api/admin/analytics") to answer
// status with {"error": message}.
func (s *Server) Override(route string, status int, message string) {
	s.mu.Lock()
	s.overrides[route] = override{status: status, message: message}
	s.mu.Unlock()
}

// OverrideBody forces the route to answer status with body as JSON.
func (s *Server) OverrideBody(route string, status int, body any) {
	s.mu.Lock()
	s.overrides[route] = override{status: status, body: body}
	s.mu.Unlock()
}

// Hold blocks requests to route until the returned release is called.
func (s *Server) Hold(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[route] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.holds, route)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Hits returns how many requests reached route.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Course returns the current state of a course.
func (s *Server) Course(id int64) (api.Course, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return api.Course{}, false
	}
	return s.courseLocked(id), true
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.intercept())

	g := r.Group("/api")
	g.POST("/auth/login", s.login)
	g.POST("/auth/register", s.register)
	g.GET("/courses", s.listCourses)
	g.GET("/courses/:id", s.getCourse)
	g.POST("/checkin/scan", s.scan)

	authed := g.Group("", auth.BearerAuth(signingKey, issuer))
	authed.GET("/enrollments", s.listEnrollments)
	authed.POST("/enrollments", s.enroll)
	authed.DELETE("/enrollments/:id", s.cancelEnrollment)
	authed.GET("/enrollments/:id/qr", s.enrollmentQR)

	admin := authed.Group("", auth.RequireRole(api.RoleAdmin, "Admin access required"))
	admin.POST("/courses", s.createCourse)
	admin.PUT("/courses/:id", s.updateCourse)
	admin.DELETE("/courses/:id", s.deleteCourse)
	admin.GET("/enrollments/course/:id", s.courseEnrollments)
	admin.GET("/admin/analytics", s.analytics)
	admin.GET("/admin/course/:id/analytics", s.courseAnalytics)
	admin.POST("/admin/course/:id/reminders", s.reminders)
	admin.POST("/checkin/verify", s.verify)
	return r
}

// intercept counts hits and applies holds and overrides before routing.
func (s *Server) intercept() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.Method + " " + c.FullPath()
		s.mu.Lock()
		s.hits[route]++
		hold := s.holds[route]
		ov, forced := s.overrides[route]
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}
		if forced {
			if ov.body != nil {
				c.AbortWithStatusJSON(ov.status, ov.body)
			} else {
				c.AbortWithStatusJSON(ov.status, gin.H{"error": ov.message})
			}
			return
		}
		c.Next()
	}
}

func (s *Server) currentUserID(c *gin.Context) int64 {
	id, _ := strconv.ParseInt(auth.ClaimsFrom(c).Subject, 10, 64)
	return id
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return 0, false
	}
	return id, true
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password required"})
		return
	}
	s.mu.Lock()
	var found *user
	for _, u := range s.users {
		if u.Email == req.Email {
			found = u
			break
		}
	}
	s.mu.Unlock()
	if found == nil || bcrypt.CompareHashAndPassword(found.passwordHash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	c.JSON(http.StatusOK, api.AuthResponse{AccessToken: s.TokenFor(found.User), User: found.User})
}

func (s *Server) register(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if req.Role == "" {
		req.Role = api.RoleStudent
	}
	if req.Role != api.RoleStudent && req.Role != api.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}
	s.mu.Lock()
	for _, u := range s.users {
		if u.Email == req.Email {
			s.mu.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
			return
		}
	}
	u := s.addUserLocked(req.Email, req.Password, req.Name, req.Role)
	s.mu.Unlock()
	c.JSON(http.StatusCreated, api.AuthResponse{AccessToken: s.TokenFor(u), User: u})
}

func (s *Server) listCourses(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Course, 0, len(s.courses))
	for id := range s.courses {
		out = append(out, s.courseLocked(id))
	}
	sortCourses(out)
	c.JSON(http.StatusOK, out)
}

func (s *Server) getCourse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.courses[id]; !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	c.JSON(http.StatusOK, s.courseLocked(id))
}

type courseBody struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Location    *string `json:"location"`
	Capacity    *int    `json:"capacity"`
}

func (s *Server) createCourse(c *gin.Context) {
	var req courseBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if req.Title == nil || *req.Title == "" || req.StartTime == nil || *req.StartTime == "" || req.EndTime == nil || *req.EndTime == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	start, err1 := api.ParseTime(*req.StartTime)
	end, err2 := api.ParseTime(*req.EndTime)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
		return
	}
	if !start.Before(end.Time) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End time must be after start time"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	instructor := s.users[s.currentUserID(c)]
	s.nextID++
	course := &api.Course{
		ID:        s.nextID,
		Title:     *req.Title,
		StartTime: start,
		EndTime:   end,
		Capacity:  30,
	}
	if instructor != nil {
		course.InstructorID = instructor.ID
		course.InstructorName = instructor.Name
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Location != nil {
		course.Location = *req.Location
	}
	if req.Capacity != nil {
		course.Capacity = *req.Capacity
	}
	s.courses[course.ID] = course
	c.JSON(http.StatusCreated, s.courseLocked(course.ID))
}

func (s *Server) updateCourse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req courseBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	course, exists := s.courses[id]
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.StartTime != nil {
		t, err := api.ParseTime(*req.StartTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
			return
		}
		course.StartTime = t
	}
	if req.EndTime != nil {
		t, err := api.ParseTime(*req.EndTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
			return
		}
		course.EndTime = t
	}
	if req.Location != nil {
		course.Location = *req.Location
	}
	if req.Capacity != nil {
		course.Capacity = *req.Capacity
	}
	c.JSON(http.StatusOK, s.courseLocked(id))
}

func (s *Server) deleteCourse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.courses[id]; !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	delete(s.courses, id)
	for eid, e := range s.enrollments {
		if e.courseID == id {
			delete(s.enrollments, eid)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Course deleted"})
}

func (s *Server) listEnrollments(c *gin.Context) {
	uid := s.currentUserID(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	isAdmin := s.users[uid] != nil && s.users[uid].Role == api.RoleAdmin
	out := []api.Enrollment{}
	for _, e := range s.sortedEnrollmentsLocked() {
		if isAdmin || e.studentID == uid {
			out = append(out, s.enrollmentLocked(e))
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) courseEnrollments(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.Enrollment{}
	for _, e := range s.sortedEnrollmentsLocked() {
		if e.courseID == id {
			out = append(out, s.enrollmentLocked(e))
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) enroll(c *gin.Context) {
	uid := s.currentUserID(c)
	var req struct {
		CourseID int64 `json:"course_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CourseID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Course ID required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.users[uid]; u != nil && u.Role == api.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admins cannot enroll in courses"})
		return
	}
	course, exists := s.courses[req.CourseID]
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	for _, e := range s.enrollments {
		if e.studentID == uid && e.courseID == req.CourseID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Already enrolled in this course"})
			return
		}
	}
	if s.countLocked(course.ID, false) >= course.Capacity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Course is full"})
		return
	}
	for _, e := range s.enrollments {
		if e.studentID != uid {
			continue
		}
		other := s.courses[e.courseID]
		if other == nil {
			continue
		}
		if course.StartTime.Before(other.EndTime.Time) && other.StartTime.Before(course.EndTime.Time) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("This course overlaps with %q which you are already enrolled in", other.Title),
			})
			return
		}
	}

	e := s.enrollLocked(uid, course.ID)
	c.JSON(http.StatusCreated, api.EnrollResult{
		Enrollment:  s.enrollmentLocked(e),
		QRCodeImage: renderQR(e.qrData),
	})
}

func (s *Server) cancelEnrollment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	uid := s.currentUserID(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, exists := s.enrollments[id]
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Enrollment not found"})
		return
	}
	if e.studentID != uid && !s.isAdminLocked(uid) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		return
	}
	delete(s.enrollments, id)
	c.JSON(http.StatusOK, gin.H{"message": "Enrollment cancelled"})
}

func (s *Server) enrollmentQR(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	uid := s.currentUserID(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, exists := s.enrollments[id]
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Enrollment not found"})
		return
	}
	if e.studentID != uid && !s.isAdminLocked(uid) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, api.QRCode{Data: e.qrData, Image: renderQR(e.qrData)})
}

func (s *Server) analytics(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.CourseAnalytics{}
	courses := make([]api.Course, 0, len(s.courses))
	for id := range s.courses {
		courses = append(courses, s.courseLocked(id))
	}
	sortCourses(courses)
	for _, course := range courses {
		a := api.CourseAnalytics{
			CourseID:      course.ID,
			CourseTitle:   course.Title,
			TotalEnrolled: course.EnrolledCount,
			CheckedIn:     course.CheckedInCount,
			NotCheckedIn:  course.EnrolledCount - course.CheckedInCount,
			Capacity:      course.Capacity,
		}
		a.AttendanceRate = a.Rate()
		out = append(out, a)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) courseAnalytics(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.courses[id]; !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	report := api.CourseAttendance{
		Course:               s.courseLocked(id),
		CheckedInStudents:    []api.Enrollment{},
		NotCheckedInStudents: []api.Enrollment{},
	}
	for _, e := range s.sortedEnrollmentsLocked() {
		if e.courseID != id {
			continue
		}
		if e.checkedIn {
			report.CheckedInStudents = append(report.CheckedInStudents, s.enrollmentLocked(e))
		} else {
			report.NotCheckedInStudents = append(report.NotCheckedInStudents, s.enrollmentLocked(e))
		}
	}
	report.CheckedInCount = len(report.CheckedInStudents)
	report.NotCheckedInCount = len(report.NotCheckedInStudents)
	report.TotalEnrolled = report.CheckedInCount + report.NotCheckedInCount
	report.AttendanceRate = report.Rate()
	c.JSON(http.StatusOK, report)
}

func (s *Server) reminders(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.courses[id]; !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	if s.countLocked(id, false) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No enrollments found for this course"})
		return
	}
	sent, failed := 0, 0
	for _, e := range s.enrollments {
		if e.courseID != id || e.checkedIn {
			continue
		}
		if s.failEmails[s.users[e.studentID].Email] {
			failed++
		} else {
			sent++
		}
	}
	c.JSON(http.StatusOK, api.ReminderResult{
		Message:     fmt.Sprintf("Reminders sent: %d, Failed: %d", sent, failed),
		SentCount:   sent,
		FailedCount: failed,
	})
}

func (s *Server) verify(c *gin.Context) {
	var req struct {
		QRCodeData string `json:"qr_code_data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.QRCodeData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "QR code data required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.byQRLocked(req.QRCodeData)
	if e == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid QR code"})
		return
	}
	if e.checkedIn {
		c.JSON(http.StatusOK, api.CheckInResult{Message: "Already checked in", Enrollment: s.enrollmentLocked(e)})
		return
	}
	e.checkedIn = true
	e.checkedInAt = time.Now().UTC()
	c.JSON(http.StatusOK, api.CheckInResult{Message: "Check-in successful", Enrollment: s.enrollmentLocked(e)})
}

func (s *Server) scan(c *gin.Context) {
	var req struct {
		QRCodeData string `json:"qr_code_data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.QRCodeData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "QR code data required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.byQRLocked(req.QRCodeData)
	if e == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid QR code"})
		return
	}
	c.JSON(http.StatusOK, api.ScanResult{Enrollment: s.enrollmentLocked(e), CheckedIn: e.checkedIn})
}

func (s *Server) enrollLocked(studentID, courseID int64) *enrollment {
	s.nextID++
	e := &enrollment{
		id:         s.nextID,
		studentID:  studentID,
		courseID:   courseID,
		enrolledAt: time.Now().UTC(),
	}
	e.qrData = fmt.Sprintf("ENROLL:%d:%d:%d:%s", e.id, courseID, studentID, strings.ReplaceAll(uuid.NewString(), "-", ""))
	s.enrollments[e.id] = e
	return e
}

func (s *Server) countLocked(courseID int64, checkedInOnly bool) int {
	n := 0
	for _, e := range s.enrollments {
		if e.courseID == courseID && (!checkedInOnly || e.checkedIn) {
			n++
		}
	}
	return n
}

func (s *Server) courseLocked(id int64) api.Course {
	c := *s.courses[id]
	c.EnrolledCount = s.countLocked(id, false)
	c.CheckedInCount = s.countLocked(id, true)
	return c
}

func (s *Server) enrollmentLocked(e *enrollment) api.Enrollment {
	enrolledAt := api.NewTime(e.enrolledAt)
	out := api.Enrollment{
		ID:         e.id,
		StudentID:  e.studentID,
		CourseID:   e.courseID,
		EnrolledAt: &enrolledAt,
		CheckedIn:  e.checkedIn,
		QRCodeData: e.qrData,
	}
	if u := s.users[e.studentID]; u != nil {
		out.StudentName = u.Name
		out.StudentEmail = u.Email
	}
	if c := s.courses[e.courseID]; c != nil {
		out.CourseTitle = c.Title
	}
	if e.checkedIn {
		at := api.NewTime(e.checkedInAt)
		out.CheckedInAt = &at
	}
	return out
}

func (s *Server) sortedEnrollmentsLocked() []*enrollment {
	out := make([]*enrollment, 0, len(s.enrollments))
	for _, e := range s.enrollments {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (s *Server) byQRLocked(data string) *enrollment {
	for _, e := range s.enrollments {
		if e.qrData == data {
			return e
		}
	}
	return nil
}

func (s *Server) isAdminLocked(uid int64) bool {
	u := s.users[uid]
	return u != nil && u.Role == api.RoleAdmin
}

func sortCourses(cs []api.Course) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].StartTime.Before(cs[j].StartTime.Time) })
}

func renderQR(data string) string {
	png, err := qrcode.Encode(data, qrcode.Medium, 256)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(png)
}
