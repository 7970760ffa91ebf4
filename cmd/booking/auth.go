package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"booking/internal/api"
	"booking/internal/ui"
)

func loginCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in and remember the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email"},
			&cli.StringFlag{Name: "password"},
		},
		Action: func(c *cli.Context) error {
			email, err := rt.prompt(c, "email", "Email")
			if err != nil {
				return err
			}
			password, err := rt.prompt(c, "password", "Password")
			if err != nil {
				return err
			}
			u, err := rt.session.Login(rt.ctx(c), email, password)
			if err != nil {
				rt.term.Notify(ui.Failure, api.MessageOf(err, "Login failed"))
				return errReported
			}
			rt.term.Notify(ui.Success, fmt.Sprintf("Signed in as %s (%s)", u.Name, u.Role))
			return nil
		},
	}
}

func registerCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email"},
			&cli.StringFlag{Name: "password"},
			&cli.StringFlag{Name: "name"},
			&cli.StringFlag{Name: "role", Usage: "student or admin", Value: api.RoleStudent},
		},
		Action: func(c *cli.Context) error {
			name, err := rt.prompt(c, "name", "Name")
			if err != nil {
				return err
			}
			email, err := rt.prompt(c, "email", "Email")
			if err != nil {
				return err
			}
			password, err := rt.prompt(c, "password", "Password")
			if err != nil {
				return err
			}
			u, err := rt.session.Register(rt.ctx(c), email, password, name, c.String("role"))
			if err != nil {
				rt.term.Notify(ui.Failure, api.MessageOf(err, "Registration failed"))
				return errReported
			}
			rt.term.Notify(ui.Success, fmt.Sprintf("Welcome, %s! Signed in as %s", u.Name, u.Role))
			return nil
		},
	}
}

func logoutCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "forget the stored session",
		Action: func(c *cli.Context) error {
			if err := rt.session.Logout(rt.ctx(c)); err != nil {
				return err
			}
			rt.term.Notify(ui.Info, "Signed out")
			return nil
		},
	}
}

func whoamiCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the signed-in user",
		Action: func(c *cli.Context) error {
			u, ok := rt.session.CurrentUser()
			if !ok {
				rt.term.Notify(ui.Info, "Not signed in")
				return nil
			}
			fmt.Fprintf(rt.out, "%s <%s> (%s)\n", u.Name, u.Email, u.Role)
			return nil
		},
	}
}
