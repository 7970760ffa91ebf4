package admin

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"booking/internal/api"
)

// LocalLayout is how start and end times are typed, in the viewer's zone.
const LocalLayout = "2006-01-02T15:04"

// DefaultCapacity seeds a fresh creation form.
const DefaultCapacity = 30

// ErrMissingField is returned when a required form field is blank.
var ErrMissingField = errors.New("missing required field")

// CourseForm is the course creation dialog. Times are local wall-clock text.
type CourseForm struct {
	Title       string
	Description string
	Start       string
	End         string
	Location    string
	Capacity    int
}

// NewForm returns the form defaults.
func NewForm() CourseForm {
	return CourseForm{Capacity: DefaultCapacity}
}

// ParseLocal reads a LocalLayout value in loc and returns the instant in UTC.
func ParseLocal(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(LocalLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, want YYYY-MM-DDTHH:MM", value)
	}
	return t.UTC(), nil
}

// Input validates the required fields and converts the times to instants.
// Start-before-end is left to the server.
func (f CourseForm) Input(loc *time.Location) (api.CourseInput, error) {
	var missing []string
	if strings.TrimSpace(f.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(f.Start) == "" {
		missing = append(missing, "start time")
	}
	if strings.TrimSpace(f.End) == "" {
		missing = append(missing, "end time")
	}
	if len(missing) > 0 {
		return api.CourseInput{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	start, err := ParseLocal(f.Start, loc)
	if err != nil {
		return api.CourseInput{}, err
	}
	end, err := ParseLocal(f.End, loc)
	if err != nil {
		return api.CourseInput{}, err
	}
	capacity := f.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return api.CourseInput{
		Title:       strings.TrimSpace(f.Title),
		Description: f.Description,
		StartTime:   api.NewTime(start),
		EndTime:     api.NewTime(end),
		Location:    f.Location,
		Capacity:    capacity,
	}, nil
}
