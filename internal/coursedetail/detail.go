// Package coursedetail shows one course and the signed-in student's
// enrollment in it, including the check-in QR code.
package coursedetail

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"booking/internal/api"
	"booking/internal/catalog"
	"booking/internal/logger"
	"booking/internal/qr"
	"booking/internal/ui"
)

// API is the part of the client the detail view uses.
type API interface {
	GetCourse(ctx context.Context, id int64) (*api.Course, error)
	ListEnrollments(ctx context.Context) ([]api.Enrollment, error)
	EnrollmentQR(ctx context.Context, enrollmentID int64) (*api.QRCode, error)
	Enroll(ctx context.Context, courseID int64) (*api.EnrollResult, error)
}

// QRDialog is the check-in code shown after enrolling or on request.
// Image is the server PNG when one was received.
type QRDialog struct {
	Image   []byte
	Payload string
}

// Fallback renders the raw payload for terminals when no image is available.
func (d QRDialog) Fallback() (string, error) {
	return qr.Terminal(d.Payload)
}

// PNG returns the server image, or renders one locally from the payload.
func (d QRDialog) PNG() ([]byte, error) {
	if len(d.Image) > 0 {
		return d.Image, nil
	}
	return qr.PNG(d.Payload, 256)
}

// View is the state of one course page.
type View struct {
	api     API
	notify  ui.Notifier
	log     zerolog.Logger
	siteURL string

	mu         sync.RWMutex
	courseID   int64
	course     *api.Course
	enrollment *api.Enrollment
	qrImage    []byte
	dialog     *QRDialog
}

// New creates a detail view. siteURL is the root that share links point at.
func New(client API, notifier ui.Notifier, siteURL string) *View {
	return &View{
		api:     client,
		notify:  notifier,
		log:     logger.Component("coursedetail"),
		siteURL: strings.TrimRight(siteURL, "/"),
	}
}

// SiteURL derives the web root from an API base URL ending in /api.
func SiteURL(apiBase string) string {
	return strings.TrimSuffix(strings.TrimRight(apiBase, "/"), "/api")
}

// Load fetches the course, then locates the student's enrollment and its QR
// image. Only the course fetch can fail the view.
func (v *View) Load(ctx context.Context, courseID int64) error {
	course, err := v.api.GetCourse(ctx, courseID)
	if err != nil {
		v.log.Error().Err(err).Int64("course_id", courseID).Msg("failed to fetch course")
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	v.mu.Lock()
	v.courseID = courseID
	v.course = course
	v.enrollment = nil
	v.qrImage = nil
	v.mu.Unlock()

	v.loadEnrollment(ctx, courseID)
	return nil
}

func (v *View) loadEnrollment(ctx context.Context, courseID int64) {
	list, err := v.api.ListEnrollments(ctx)
	if err != nil {
		v.log.Error().Err(err).Msg("failed to fetch enrollment")
		return
	}
	var mine *api.Enrollment
	for i := range list {
		if list[i].CourseID == courseID {
			mine = &list[i]
			break
		}
	}
	if mine == nil || ctx.Err() != nil {
		return
	}

	v.mu.Lock()
	v.enrollment = mine
	v.mu.Unlock()

	code, err := v.api.EnrollmentQR(ctx, mine.ID)
	if err != nil {
		v.log.Warn().Err(err).Int64("enrollment_id", mine.ID).Msg("failed to fetch QR code")
		return
	}
	img, err := code.PNG()
	if err != nil {
		v.log.Warn().Err(err).Int64("enrollment_id", mine.ID).Msg("undecodable QR image")
		return
	}
	if ctx.Err() != nil {
		return
	}
	v.mu.Lock()
	v.qrImage = img
	v.mu.Unlock()
}

// Enroll enrolls in the loaded course and opens the QR dialog.
func (v *View) Enroll(ctx context.Context) (*QRDialog, error) {
	v.mu.RLock()
	id := v.courseID
	v.mu.RUnlock()
	if id == 0 {
		return nil, fmt.Errorf("no course loaded")
	}

	res, err := v.api.Enroll(ctx, id)
	if err != nil {
		v.notify.Notify(ui.Failure, api.MessageOf(err, "Failed to enroll"))
		return nil, err
	}

	dialog := &QRDialog{Payload: res.Enrollment.QRCodeData}
	if res.QRCodeImage != "" {
		if img, derr := api.DecodeImage(res.QRCodeImage); derr == nil {
			dialog.Image = img
		} else {
			v.log.Warn().Err(derr).Msg("undecodable QR image")
		}
	}
	enrollment := res.Enrollment
	if enrollment.CourseID == 0 {
		enrollment.CourseID = id
	}

	v.mu.Lock()
	v.enrollment = &enrollment
	v.qrImage = dialog.Image
	v.dialog = dialog
	v.mu.Unlock()

	v.notify.Notify(ui.Success, "Successfully enrolled!")

	if course, cerr := v.api.GetCourse(ctx, id); cerr == nil {
		v.mu.Lock()
		v.course = course
		v.mu.Unlock()
	} else {
		v.log.Warn().Err(cerr).Int64("course_id", id).Msg("failed to refresh course")
	}
	return dialog, nil
}

// Course returns the loaded course.
func (v *View) Course() (api.Course, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.course == nil {
		return api.Course{}, false
	}
	return *v.course, true
}

// Enrollment returns the student's enrollment in the course, if any.
func (v *View) Enrollment() (api.Enrollment, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.enrollment == nil {
		return api.Enrollment{}, false
	}
	return *v.enrollment, true
}

// Action mirrors the catalog rules for the loaded course.
func (v *View) Action() catalog.Action {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.course == nil {
		return catalog.ActionEnroll
	}
	return catalog.ActionFor(*v.course, v.enrollment != nil)
}

// QR returns the code of the current enrollment.
func (v *View) QR() (QRDialog, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.enrollment == nil || v.enrollment.QRCodeData == "" {
		return QRDialog{}, false
	}
	return QRDialog{Image: v.qrImage, Payload: v.enrollment.QRCodeData}, true
}

// Dialog returns the dialog opened by the last successful Enroll.
func (v *View) Dialog() (QRDialog, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.dialog == nil {
		return QRDialog{}, false
	}
	return *v.dialog, true
}

// CloseDialog dismisses the QR dialog.
func (v *View) CloseDialog() {
	v.mu.Lock()
	v.dialog = nil
	v.mu.Unlock()
}

// Share returns the link to this course page and tells the user.
func (v *View) Share() string {
	v.mu.RLock()
	id := v.courseID
	v.mu.RUnlock()
	link := fmt.Sprintf("%s/courses/%d", v.siteURL, id)
	v.notify.Notify(ui.Info, "Link: "+link)
	return link
}
