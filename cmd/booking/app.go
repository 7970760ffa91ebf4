package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"booking/internal/api"
	"booking/internal/config"
	"booking/internal/logger"
	"booking/internal/session"
	"booking/internal/store"
	"booking/internal/ui"
)

// errReported marks failures the views already showed to the user.
var errReported = errors.New("request failed")

// runtime is everything a command needs, built once per invocation.
type runtime struct {
	cfg     config.App
	loc     *time.Location
	client  *api.Client
	session *session.Manager
	term    *ui.Terminal
	out     io.Writer
	log     zerolog.Logger
	closers []func() error
}

func (rt *runtime) close() {
	for _, c := range rt.closers {
		if err := c(); err != nil {
			rt.log.Warn().Err(err).Msg("close failed")
		}
	}
}

func newApp(in io.Reader, out, errOut io.Writer) *cli.App {
	rt := &runtime{out: out}
	term := ui.NewTerminal(in, out)
	rt.term = term

	return &cli.App{
		Name:      "booking",
		Usage:     "browse and book workshops, manage courses and check students in",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Usage: "API base URL", EnvVars: []string{"BOOKING_API_URL"}},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		},
		Before: func(c *cli.Context) error {
			return rt.init(c, errOut)
		},
		After: func(*cli.Context) error {
			rt.close()
			return nil
		},
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			loginCommand(rt),
			registerCommand(rt),
			logoutCommand(rt),
			whoamiCommand(rt),
			coursesCommand(rt),
			enrollCommand(rt),
			courseCommand(rt),
			adminCommand(rt),
			checkinCommand(rt),
			lookupCommand(rt),
		},
	}
}

func (rt *runtime) init(c *cli.Context, errOut io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if v := c.String("api"); v != "" {
		cfg.APIURL = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	rt.cfg = cfg
	rt.log = logger.Configure(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: errOut})

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	rt.loc = loc

	var opts []api.Option
	if cfg.Timeout > 0 {
		opts = append(opts, api.WithTimeout(cfg.Timeout))
	}
	rt.client = api.New(cfg.APIURL, opts...)

	st, err := rt.sessionStore()
	if err != nil {
		return err
	}
	rt.session = session.NewManager(st, rt.client)
	rt.client.UseTokens(rt.session)
	if err := rt.session.Restore(c.Context); err != nil {
		rt.log.Warn().Err(err).Msg("could not restore session, continuing signed out")
	}
	return nil
}

func (rt *runtime) sessionStore() (session.Store, error) {
	switch rt.cfg.SessionBackend {
	case "redis":
		r := store.NewRedis(store.RedisOptions{
			Addr:     rt.cfg.RedisAddr,
			Password: rt.cfg.RedisPassword,
			DB:       rt.cfg.RedisDB,
		})
		rt.closers = append(rt.closers, r.Close)
		return session.NewRedisStore(r, rt.cfg.SessionKey), nil
	default:
		return session.NewFileStore(rt.cfg.SessionDir), nil
	}
}

func (rt *runtime) requireUser() (api.User, error) {
	u, err := rt.session.RequireUser()
	if err != nil {
		return api.User{}, fmt.Errorf("%w, run 'booking login' first", err)
	}
	return u, nil
}

func (rt *runtime) requireAdmin() (api.User, error) {
	if _, err := rt.requireUser(); err != nil {
		return api.User{}, err
	}
	return rt.session.RequireAdmin()
}

func (rt *runtime) ctx(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}

func idArg(c *cli.Context) (int64, error) {
	raw := c.Args().First()
	if raw == "" {
		return 0, fmt.Errorf("missing id argument")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// prompt returns the flag value or asks for it.
func (rt *runtime) prompt(c *cli.Context, flag, label string) (string, error) {
	if v := c.String(flag); v != "" {
		return v, nil
	}
	v, err := rt.term.Prompt(label + ": ")
	if err != nil {
		return "", fmt.Errorf("%s is required", flag)
	}
	return v, nil
}
