package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"booking/internal/admin"
	"booking/internal/api"
	"booking/internal/catalog"
	"booking/internal/checkin"
)

const displayLayout = "Jan 2, 2006 3:04 PM"

func local(t api.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(loc).Format(displayLayout)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderCatalog(w io.Writer, rows []catalog.Row, loc *time.Location) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No courses available")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tSTARTS\tLOCATION\tSEATS\tSTATUS")
	for _, r := range rows {
		c := r.Course
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d/%d\t%s\n",
			c.ID, c.Title, local(c.StartTime, loc), c.Location, c.EnrolledCount, c.Capacity, r.Action)
	}
	tw.Flush()
}

func renderCourse(w io.Writer, c api.Course, action catalog.Action, e api.Enrollment, enrolled bool, loc *time.Location) {
	fmt.Fprintln(w, c.Title)
	if c.Description != "" {
		fmt.Fprintln(w, c.Description)
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "Instructor:\t%s\n", c.InstructorName)
	fmt.Fprintf(tw, "Starts:\t%s\n", local(c.StartTime, loc))
	fmt.Fprintf(tw, "Ends:\t%s\n", local(c.EndTime, loc))
	fmt.Fprintf(tw, "Location:\t%s\n", c.Location)
	fmt.Fprintf(tw, "Enrolled:\t%d/%d (%d seats left)\n", c.EnrolledCount, c.Capacity, c.SeatsLeft())
	fmt.Fprintf(tw, "Status:\t%s\n", action)
	if enrolled {
		state := "not checked in"
		if e.CheckedIn {
			state = "checked in"
			if e.CheckedInAt != nil {
				state += " at " + local(*e.CheckedInAt, loc)
			}
		}
		fmt.Fprintf(tw, "Attendance:\t%s\n", state)
	}
	tw.Flush()
}

func renderAdmin(w io.Writer, rows []admin.Row, loc *time.Location) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No courses yet")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tSTARTS\tENROLLED\tCHECKED IN\tATTENDANCE")
	for _, r := range rows {
		c := r.Course
		attendance := "-"
		enrolled := fmt.Sprintf("%d/%d", c.EnrolledCount, c.Capacity)
		checked := fmt.Sprintf("%d", c.CheckedInCount)
		if r.HasStats {
			enrolled = fmt.Sprintf("%d/%d", r.Analytics.TotalEnrolled, r.Analytics.Capacity)
			checked = fmt.Sprintf("%d", r.Analytics.CheckedIn)
			attendance = fmt.Sprintf("%.1f%%", r.Analytics.Rate())
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Title, local(c.StartTime, loc), enrolled, checked, attendance)
	}
	tw.Flush()
}

func renderReport(w io.Writer, r *api.CourseAttendance, loc *time.Location) {
	fmt.Fprintf(w, "%s: %d/%d checked in (%.1f%%)\n", r.Course.Title, r.CheckedInCount, r.TotalEnrolled, r.Rate())
	tw := newTable(w)
	fmt.Fprintln(tw, "STUDENT\tEMAIL\tCHECKED IN")
	for _, e := range r.CheckedInStudents {
		at := "yes"
		if e.CheckedInAt != nil {
			at = local(*e.CheckedInAt, loc)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.StudentName, e.StudentEmail, at)
	}
	for _, e := range r.NotCheckedInStudents {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.StudentName, e.StudentEmail, "no")
	}
	tw.Flush()
}

func renderCheckIn(w io.Writer, r checkin.Result, loc *time.Location) {
	heading := "CHECKED IN"
	if r.Outcome == checkin.Already {
		heading = "ALREADY CHECKED IN"
	}
	fmt.Fprintln(w, heading)
	renderResult(w, r, loc)
}

func renderLookup(w io.Writer, r checkin.Result, loc *time.Location) {
	if r.Enrollment.CheckedIn {
		fmt.Fprintln(w, "Checked in")
	} else {
		fmt.Fprintln(w, "Not checked in yet")
	}
	renderResult(w, r, loc)
}

func renderResult(w io.Writer, r checkin.Result, loc *time.Location) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Student:\t%s\n", r.StudentName)
	fmt.Fprintf(tw, "Email:\t%s\n", r.StudentEmail)
	fmt.Fprintf(tw, "Course:\t%s\n", r.CourseTitle)
	if r.CheckedInAt != nil {
		fmt.Fprintf(tw, "Checked in at:\t%s\n", r.CheckedInAt.In(loc).Format(displayLayout))
	}
	tw.Flush()
}
