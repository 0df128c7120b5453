package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/ExclusiveAccount/homemon/pkg/api"
	"github.com/ExclusiveAccount/homemon/pkg/home"
	"github.com/ExclusiveAccount/homemon/pkg/monitor"
	"github.com/ExclusiveAccount/homemon/pkg/statuslog"
)

// commandRun returns the monitor loop command
func commandRun() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Poll every device each interval and append to the status log",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "status-log",
				Aliases: []string{"o"},
				Usage:   "Append the status timeline to `FILE`",
			},
			&cli.StringFlag{
				Name:  "error-log-dir",
				Usage: "Write probe failures to a per-run file in `DIR`",
			},
			&cli.IntFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Seconds between rounds",
			},
			&cli.StringFlag{
				Name:  "dashboard",
				Usage: "Serve the JSON dashboard on `ADDR`, e.g. :8080",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.IsSet("status-log") {
				cfg.StatusLog = c.String("status-log")
			}
			if c.IsSet("error-log-dir") {
				cfg.ErrorLogDir = c.String("error-log-dir")
			}
			if c.IsSet("interval") {
				cfg.IntervalSeconds = c.Int("interval")
			}
			if c.IsSet("dashboard") {
				cfg.DashboardAddr = c.String("dashboard")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			h, err := loadHome(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, err := statuslog.Open(cfg.StatusLog)
			if err != nil {
				return err
			}
			defer w.Close()

			opts := []monitor.Option{
				monitor.WithInterval(cfg.Interval()),
				monitor.WithLogger(log),
			}

			if cfg.ErrorLogDir != "" {
				f, err := statuslog.OpenErrorLog(cfg.ErrorLogDir, time.Now())
				if err != nil {
					log.WithError(err).Warn("Probe failures will not be recorded")
				} else {
					defer f.Close()
					opts = append(opts, monitor.WithErrorSink(f))
					log.WithField("file", f.Name()).Info("Recording probe failures")
				}
			}

			if cfg.DashboardAddr != "" {
				board := api.NewBoard(log)
				opts = append(opts, monitor.WithObserver(board))
				go func() {
					if err := board.Start(cfg.DashboardAddr); err != nil {
						log.WithError(err).Error("Dashboard stopped")
					}
				}()
				color.Green("Dashboard on http://%s/api/status", cfg.DashboardAddr)
			}

			color.Green("Monitoring %d devices in %s every %v", h.Len(), h.Name(), cfg.Interval())
			color.Yellow("Status log: %s (Ctrl+C to stop)", cfg.StatusLog)

			return monitor.New(h, w, opts...).Run(ctx)
		},
	}
}

// commandCheck returns the one-shot check command
func commandCheck() *cli.Command {
	return &cli.Command{
		Name:    "check",
		Aliases: []string{"c"},
		Usage:   "Probe every device once and print the result; exits 1 when a device is down",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "errors",
				Usage: "Print probe failures to stderr",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			h, err := loadHome(cfg)
			if err != nil {
				return err
			}

			var sink io.Writer
			if c.Bool("errors") {
				sink = os.Stderr
			}

			down, err := checkHome(c.App.Writer, h, sink)
			if err != nil {
				return err
			}

			if down > 0 {
				return cli.Exit(color.RedString("%d of %d devices down", down, h.Len()), 1)
			}
			return nil
		},
	}
}

// commandHeader returns the command printing the status log header
func commandHeader() *cli.Command {
	return &cli.Command{
		Name:  "header",
		Usage: "Print the status log header for the configured devices",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			h, err := loadHome(cfg)
			if err != nil {
				return err
			}

			header, err := statuslog.Header(h.Devices())
			if err != nil {
				return err
			}
			fmt.Fprint(c.App.Writer, header)
			return nil
		},
	}
}

// checkHome runs one round over h and prints the device table followed by the
// header and the row the status log would get. The header is rendered first
// so an unloggable registry is rejected before any device is probed.
func checkHome(w io.Writer, h *home.Home, errSink io.Writer) (int, error) {
	header, err := statuslog.Header(h.Devices())
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	m := monitor.New(h, statuslog.NewWriter(&buf),
		monitor.WithErrorSink(errSink),
		monitor.WithLogger(log),
	)
	round, err := m.Cycle()
	if err != nil {
		return 0, err
	}

	down := printStatuses(w, h)

	fmt.Fprintln(w)
	fmt.Fprint(w, header+round.Row)
	return down, nil
}

// printStatuses writes one line per device and returns how many are down.
func printStatuses(w io.Writer, h *home.Home) int {
	up := color.New(color.FgGreen, color.Bold).SprintFunc()
	down := color.New(color.FgRed, color.Bold).SprintFunc()

	count := 0
	statuses := h.Statuses()
	for i, d := range h.Devices() {
		state := up("UP  ")
		detail := ""
		if statuses[i].Healthy() {
			if r, ok := statuses[i].LastProbe(); ok {
				detail = r.RTTAvg.String()
			}
		} else {
			state = down("DOWN")
			count++
		}
		fmt.Fprintf(w, "%s  %s  %-32s %-16s %s\n", statuslog.Label(i), state, d, d.Address(), detail)
	}
	return count
}
