package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"booking/internal/checkin"
)

func checkinCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "checkin",
		Usage:     "verify QR payloads; without an argument reads one per line until EOF",
		ArgsUsage: "[payload]",
		Action: func(c *cli.Context) error {
			if _, err := rt.requireAdmin(); err != nil {
				return err
			}
			console := checkin.New(rt.client, rt.term)
			ctx := rt.ctx(c)

			if c.Args().Present() {
				console.SetInput(strings.Join(c.Args().Slice(), " "))
				res, err := console.Submit(ctx)
				if err != nil {
					return errReported
				}
				renderCheckIn(rt.out, res, rt.loc)
				return nil
			}

			for {
				line, err := rt.term.Prompt("QR code: ")
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				console.SetInput(line)
				if res, err := console.Submit(ctx); err == nil {
					renderCheckIn(rt.out, res, rt.loc)
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
		},
	}
}

func lookupCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "show who a QR payload belongs to without checking in",
		ArgsUsage: "<payload>",
		Action: func(c *cli.Context) error {
			if !c.Args().Present() {
				return fmt.Errorf("missing payload argument")
			}
			res, err := checkin.New(rt.client, rt.term).Lookup(rt.ctx(c), strings.Join(c.Args().Slice(), " "))
			if err != nil {
				return errReported
			}
			renderLookup(rt.out, res, rt.loc)
			return nil
		},
	}
}
