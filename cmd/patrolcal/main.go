package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"patrolcal/internal/agenda"
	"patrolcal/internal/capture"
	"patrolcal/internal/config"
	"patrolcal/internal/ics"
	appLog "patrolcal/internal/log"
	"patrolcal/internal/patrol"
	"patrolcal/internal/refresh"
	"patrolcal/internal/web"
)

const version = "0.1.0"

func main() {
	// .env is optional.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "patrolcal",
		Usage:   "Show patrol session schedules as day, week, month and agenda calendars.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "./patrolcal.yaml", Usage: "Path to config file", EnvVars: []string{"PATROLCAL_CONFIG"}},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			agendaCommand(),
			exportCommand(),
			captureCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		appLog.Error("patrolcal failed", err)
		appLog.Sync()
		os.Exit(1)
	}
	appLog.Sync()
}

// setup loads config and initializes logging for every command.
func setup(c *cli.Context) (*config.Config, error) {
	conf, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", c.String("config"), err)
	}
	if err := appLog.Init(conf.Env); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if c.Bool("debug") {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("effective config",
		"version", version,
		"env", conf.Env,
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"hour_height", conf.HourHeight,
		"locale", conf.Locale,
		"api_path", conf.API.Path,
	)
	return conf, nil
}

func newClient(conf *config.Config) (*patrol.Client, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return patrol.NewClient(conf.API.BaseURL, conf.API.Path, conf.API.Token), nil
}

func newExpander(conf *config.Config) agenda.Expander {
	return agenda.NewExpander(conf.Location(), agenda.LocaleByName(conf.Locale))
}

// fetchDays runs one fetch and groups the result.
func fetchDays(ctx context.Context, conf *config.Config) (agenda.DayMap, error) {
	client, err := newClient(conf)
	if err != nil {
		return nil, err
	}
	sessions, err := client.FetchSessions(ctx)
	if err != nil {
		return nil, err
	}
	return agenda.Group(newExpander(conf), sessions), nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Fetch sessions on a schedule and serve the calendar UI and API.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config if set)"},
		},
		Action: func(c *cli.Context) error {
			conf, err := setup(c)
			if err != nil {
				return err
			}
			if l := c.String("listen"); l != "" {
				conf.Listen = l
			}

			client, err := newClient(conf)
			if err != nil {
				return err
			}

			// Root context with cancellation on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store := refresh.NewStore()
			refresher, err := refresh.NewRefresher(client, newExpander(conf), store, conf.RefreshCron)
			if err != nil {
				return err
			}

			// A failed first fetch is not fatal; the UI shows an empty calendar
			// until the next scheduled refresh succeeds.
			_ = refresher.Refresh(ctx)

			if err := refresher.Start(ctx); err != nil {
				return err
			}
			defer refresher.Stop()

			srv, err := web.NewServer(conf, store, refresher)
			if err != nil {
				return err
			}
			err = srv.Run(ctx)
			appLog.Info("patrolcal exiting")
			return err
		},
	}
}

func agendaCommand() *cli.Command {
	return &cli.Command{
		Name:  "agenda",
		Usage: "Fetch once and print events grouped by day.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "First day key (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "to", Usage: "Last day key (YYYY-MM-DD)"},
			&cli.BoolFlag{Name: "by-time", Usage: "Order each day by start time instead of session order"},
		},
		Action: func(c *cli.Context) error {
			conf, err := setup(c)
			if err != nil {
				return err
			}
			days, err := fetchDays(c.Context, conf)
			if err != nil {
				return err
			}
			days = days.Range(c.String("from"), c.String("to"))
			if c.Bool("by-time") {
				days = days.SortChronological()
			}
			printAgenda(c.App.Writer, days, agenda.Timeline{HourHeight: conf.HourHeight})
			return nil
		},
	}
}

func printAgenda(w io.Writer, days agenda.DayMap, tl agenda.Timeline) {
	for _, key := range days.Keys() {
		fmt.Fprintln(w, key)
		for _, ev := range days.Events(key) {
			box := tl.Layout(ev.LayoutTime)
			fmt.Fprintf(w, "  %-13s %-30s %s  [%s] top=%g height=%g\n",
				ev.LayoutTime, ev.Title, ev.Location, ev.DisplayTime, box.Top, box.Height)
		}
	}
	fmt.Fprintf(w, "%d events on %d days\n", days.Total(), len(days))
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Fetch once and write the per-day events as an iCalendar file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "patrols.ics", Usage: "Output path, - for stdout"},
			&cli.StringFlag{Name: "name", Value: "Patrol sessions", Usage: "Calendar name"},
		},
		Action: func(c *cli.Context) error {
			conf, err := setup(c)
			if err != nil {
				return err
			}
			days, err := fetchDays(c.Context, conf)
			if err != nil {
				return err
			}

			body := ics.Export(days, ics.ExportOptions{
				CalendarName: c.String("name"),
				Location:     conf.Location(),
			})

			out := c.String("out")
			if out == "-" {
				_, err := io.WriteString(c.App.Writer, body)
				return err
			}
			if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
				return err
			}
			appLog.Info("ics written", "path", out, "events", days.Total())
			return nil
		},
	}
}

func captureCommand() *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Screenshot a calendar view of a running server to PNG.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "view", Value: "week", Usage: "day, week, month or agenda"},
			&cli.StringFlag{Name: "date", Usage: "Day key to show (default today)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "preview.png", Usage: "Output PNG path"},
			&cli.IntFlag{Name: "width", Usage: "Viewport width"},
			&cli.IntFlag{Name: "height", Usage: "Viewport height"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second},
		},
		Action: func(c *cli.Context) error {
			conf, err := setup(c)
			if err != nil {
				return err
			}

			opts := captureOptions(conf, c.String("view"), c.String("date"))
			opts.OutputPath = c.String("out")
			opts.Width = c.Int("width")
			opts.Height = c.Int("height")
			opts.Timeout = c.Duration("timeout")
			url := opts.URL

			if err := capture.CapturePNG(c.Context, opts); err != nil {
				return err
			}
			appLog.Info("capture written", "url", url, "path", c.String("out"))
			return nil
		},
	}
}

// captureOptions points a capture at the local server, passing its basic
// auth credentials when they are set.
func captureOptions(conf *config.Config, view, date string) capture.Options {
	opts := capture.Options{URL: capture.ViewURL(conf.Listen, view, date)}
	if ba := conf.BasicAuth; ba != nil && ba.Username != "" && ba.Password != "" {
		opts.Headers = capture.BasicAuthHeader(ba.Username, ba.Password)
	}
	return opts
}
