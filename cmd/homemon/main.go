package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ExclusiveAccount/homemon/pkg/config"
	"github.com/ExclusiveAccount/homemon/pkg/fingerprint"
	"github.com/ExclusiveAccount/homemon/pkg/home"
	"github.com/ExclusiveAccount/homemon/pkg/probe"
)

const (
	appName    = "homemon"
	appVersion = "1.0.0"
)

var log = logrus.New()

func main() {
	app := &cli.App{
		Name:    appName,
		Usage:   "Poll home network devices and keep a status timeline",
		Version: appVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "homemon.json",
				Usage:   "Load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load HOMEMON_* variables from `FILE` (default ./.env when present)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"HOMEMON_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "devices",
				Aliases: []string{"d"},
				Usage:   "Device descriptor `FILE` (.json, .yaml or .yml)",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Concurrent probes per round (0 means one per CPU)",
			},
			&cli.StringFlag{
				Name:  "probe",
				Usage: "Probe transport (exec or icmp)",
			},
		},
		Before: func(c *cli.Context) error {
			log.SetFormatter(&logrus.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: "2006-01-02 15:04:05",
			})
			setLogLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			commandRun(),
			commandCheck(),
			commandHeader(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setLogLevel(name string) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
}

// loadConfig layers the config file, the environment and the command line,
// in that order.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.DefaultConfig()

	path := c.String("config")
	loaded, err := config.LoadConfigFromFile(path)
	switch {
	case err == nil:
		cfg = loaded
	case errors.Is(err, fs.ErrNotExist) && !c.IsSet("config"):
		log.WithField("config", path).Debug("No config file, using defaults")
	default:
		return cfg, err
	}

	if err := cfg.ApplyEnv(c.String("env-file"), log); err != nil {
		return cfg, err
	}

	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("devices") {
		cfg.DevicesFile = c.String("devices")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("probe") {
		cfg.Probe = c.String("probe")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	setLogLevel(cfg.LogLevel)

	return cfg, nil
}

// loadHome builds the registry described by cfg.
func loadHome(cfg config.Config) (*home.Home, error) {
	var vendors config.VendorLookup
	if cfg.OUIFile != "" {
		db, err := fingerprint.LoadMacVendorDB(cfg.OUIFile, log)
		if err != nil {
			log.WithError(err).Warn("Manufacturer lookup disabled")
		} else {
			log.WithField("entries", db.Count()).Debug("MAC vendor database loaded")
			vendors = db
		}
	}

	devices, err := config.LoadDevices(cfg.DevicesFile, vendors)
	if err != nil {
		return nil, err
	}

	prober, err := probe.New(cfg.Probe, cfg.ProbeOptions())
	if err != nil {
		return nil, err
	}

	return home.New(cfg.HomeName, devices, prober,
		home.WithWorkers(cfg.Workers),
		home.WithLogger(log),
	), nil
}
