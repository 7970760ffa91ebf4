package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"booking/internal/catalog"
	"booking/internal/coursedetail"
	"booking/internal/qr"
	"booking/internal/ui"
)

func coursesCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "courses",
		Usage: "list courses and what you can do with each",
		Action: func(c *cli.Context) error {
			if _, err := rt.requireUser(); err != nil {
				return err
			}
			view := catalog.New(rt.client, rt.term)
			if err := view.Load(rt.ctx(c)); err != nil {
				return fmt.Errorf("failed to load courses: %w", err)
			}
			renderCatalog(rt.out, view.Rows(), rt.loc)
			return nil
		},
	}
}

func enrollCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "enroll",
		Usage:     "enroll in a course",
		ArgsUsage: "<course-id>",
		Action: func(c *cli.Context) error {
			if _, err := rt.requireUser(); err != nil {
				return err
			}
			id, err := idArg(c)
			if err != nil {
				return err
			}
			view := catalog.New(rt.client, rt.term)
			res, err := view.Enroll(rt.ctx(c), id)
			if err != nil {
				return errReported
			}
			printQR(rt, coursedetail.QRDialog{Payload: res.Enrollment.QRCodeData})
			return nil
		},
	}
}

func courseCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "course",
		Usage:     "show one course, your enrollment and check-in code",
		ArgsUsage: "<course-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "enroll", Usage: "enroll before showing"},
			&cli.StringFlag{Name: "qr-out", Usage: "write the check-in code as PNG to this file"},
			&cli.BoolFlag{Name: "share", Usage: "print the link to this course"},
		},
		Action: func(c *cli.Context) error {
			if _, err := rt.requireUser(); err != nil {
				return err
			}
			id, err := idArg(c)
			if err != nil {
				return err
			}
			ctx := rt.ctx(c)
			view := coursedetail.New(rt.client, rt.term, coursedetail.SiteURL(rt.cfg.APIURL))
			if err := view.Load(ctx, id); err != nil {
				return fmt.Errorf("failed to load course: %w", err)
			}
			if c.Bool("enroll") {
				if _, err := view.Enroll(ctx); err != nil {
					return errReported
				}
			}

			course, _ := view.Course()
			enrollment, enrolled := view.Enrollment()
			renderCourse(rt.out, course, view.Action(), enrollment, enrolled, rt.loc)

			if code, ok := view.QR(); ok {
				printQR(rt, code)
				if path := c.String("qr-out"); path != "" {
					png, err := code.PNG()
					if err != nil {
						return fmt.Errorf("render QR code: %w", err)
					}
					if err := qr.WriteFile(path, png); err != nil {
						return fmt.Errorf("write QR code: %w", err)
					}
					rt.term.Notify(ui.Info, "QR code saved to "+path)
				}
			}
			if c.Bool("share") {
				view.Share()
			}
			return nil
		},
	}
}

func printQR(rt *runtime, code coursedetail.QRDialog) {
	art, err := code.Fallback()
	if err != nil {
		rt.log.Warn().Err(err).Msg("could not render QR code")
		return
	}
	fmt.Fprintln(rt.out, "Show this code at check-in:")
	fmt.Fprint(rt.out, art)
	fmt.Fprintf(rt.out, "Code: %s\n", code.Payload)
}
