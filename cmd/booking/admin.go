package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"booking/internal/admin"
	"booking/internal/api"
	"booking/internal/ui"
)

func adminCommand(rt *runtime) *cli.Command {
	console := func(confirm ui.Confirmer) *admin.Console {
		return admin.New(rt.client, rt.term, confirm, rt.loc)
	}
	return &cli.Command{
		Name:  "admin",
		Usage: "course management and attendance (admins only)",
		Before: func(*cli.Context) error {
			_, err := rt.requireAdmin()
			return err
		},
		Subcommands: []*cli.Command{
			{
				Name:  "courses",
				Usage: "list courses with attendance analytics",
				Action: func(c *cli.Context) error {
					con := console(rt.term)
					if err := con.Load(rt.ctx(c)); err != nil {
						return fmt.Errorf("failed to load courses: %w", err)
					}
					renderAdmin(rt.out, con.Rows(), rt.loc)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "create a course; times are local, YYYY-MM-DDTHH:MM",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "start"},
					&cli.StringFlag{Name: "end"},
					&cli.StringFlag{Name: "location"},
					&cli.IntFlag{Name: "capacity", Value: admin.DefaultCapacity},
				},
				Action: func(c *cli.Context) error {
					con := console(rt.term)
					con.OpenCreate()
					created, err := con.CreateCourse(rt.ctx(c), admin.CourseForm{
						Title:       c.String("title"),
						Description: c.String("description"),
						Start:       c.String("start"),
						End:         c.String("end"),
						Location:    c.String("location"),
						Capacity:    c.Int("capacity"),
					})
					if err != nil {
						return errReported
					}
					fmt.Fprintf(rt.out, "id: %d\n", created.ID)
					return nil
				},
			},
			{
				Name:      "update",
				Usage:     "change fields of a course",
				ArgsUsage: "<course-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "start"},
					&cli.StringFlag{Name: "end"},
					&cli.StringFlag{Name: "location"},
					&cli.IntFlag{Name: "capacity"},
				},
				Action: func(c *cli.Context) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					patch, err := updateFromFlags(c, rt)
					if err != nil {
						return err
					}
					if _, err := console(rt.term).UpdateCourse(rt.ctx(c), id, patch); err != nil {
						return errReported
					}
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "delete a course after confirmation",
				ArgsUsage: "<course-id>",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask"}},
				Action: func(c *cli.Context) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					rt.term.AssumeYes = c.Bool("yes")
					err = console(rt.term).DeleteCourse(rt.ctx(c), id)
					if errors.Is(err, admin.ErrCancelled) {
						rt.term.Notify(ui.Info, "Cancelled")
						return nil
					}
					if err != nil {
						return errReported
					}
					return nil
				},
			},
			{
				Name:      "remind",
				Usage:     "email enrolled students who have not checked in",
				ArgsUsage: "<course-id>",
				Action: func(c *cli.Context) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					if _, err := console(rt.term).SendReminders(rt.ctx(c), id); err != nil {
						return errReported
					}
					return nil
				},
			},
			{
				Name:      "report",
				Usage:     "attendance of one course",
				ArgsUsage: "<course-id>",
				Action: func(c *cli.Context) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					report, err := console(rt.term).CourseReport(rt.ctx(c), id)
					if err != nil {
						return errReported
					}
					renderReport(rt.out, report, rt.loc)
					return nil
				},
			},
		},
	}
}

func updateFromFlags(c *cli.Context, rt *runtime) (api.CourseUpdate, error) {
	var patch api.CourseUpdate
	str := func(name string) *string {
		if !c.IsSet(name) {
			return nil
		}
		v := c.String(name)
		return &v
	}
	patch.Title = str("title")
	patch.Description = str("description")
	patch.Location = str("location")
	if c.IsSet("capacity") {
		v := c.Int("capacity")
		patch.Capacity = &v
	}
	for _, f := range []struct {
		name string
		dst  **api.Time
	}{{"start", &patch.StartTime}, {"end", &patch.EndTime}} {
		if !c.IsSet(f.name) {
			continue
		}
		t, err := admin.ParseLocal(c.String(f.name), rt.loc)
		if err != nil {
			return api.CourseUpdate{}, err
		}
		at := api.NewTime(t)
		*f.dst = &at
	}
	if patch == (api.CourseUpdate{}) {
		return patch, fmt.Errorf("nothing to update")
	}
	return patch, nil
}
