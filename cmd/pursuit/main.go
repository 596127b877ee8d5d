// Package main runs a pure pursuit controller against a simulated base.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/pursuit/config"
	"go.viam.com/pursuit/control"
	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/robot"
)

const (
	flagConfig   = "config"
	flagDebug    = "debug"
	flagDuration = "duration"
	flagNoWatch  = "no-watch"

	statusInterval = 5 * time.Second
)

func main() {
	var logger logging.Logger

	app := &cli.App{
		Name:  "pursuit",
		Usage: "follow a path with a pure pursuit controller on a simulated base",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     flagConfig,
				Aliases:  []string{"c"},
				Usage:    "Load configuration from `FILE`",
				Required: true,
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("pursuit")
			} else {
				logger = logging.NewLogger("pursuit")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the control loop until interrupted or the path is complete",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  flagDuration,
						Usage: "stop after `DURATION` even if the goal was not reached, 0 runs until done",
					},
					&cli.BoolFlag{
						Name:  flagNoWatch,
						Usage: "do not reconfigure when the config file changes",
					},
				},
				Action: func(c *cli.Context) error {
					return runAction(c, logger)
				},
			},
			{
				Name:  "validate",
				Usage: "read and validate the config, then exit",
				Action: func(c *cli.Context) error {
					cfg, err := config.Read(c.Context, c.String(flagConfig), logger)
					if err != nil {
						return err
					}
					path := cfg.Path.Build(time.Time{})
					fmt.Fprintf(c.App.Writer, "config %q is valid: controller %s (%s), %d path poses in %q\n",
						cfg.ConfigFilePath, cfg.Controller.Name, cfg.Controller.Model, path.Len(), path.Frame)
					fmt.Fprintf(c.App.Writer, "registered models: %s\n", strings.Join(control.RegisteredModels(), ", "))
					return nil
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func runAction(c *cli.Context, logger logging.Logger) (err error) {
	ctx := c.Context
	if d := c.Duration(flagDuration); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	cfg, err := config.Read(ctx, c.String(flagConfig), logger)
	if err != nil {
		return err
	}
	clk := clock.New()
	myRobot, err := robot.New(ctx, cfg, logger.Sublogger("robot"), robot.WithClock(clk))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, myRobot.Close(context.Background()))
	}()

	var updates <-chan *config.Config
	if !c.Bool(flagNoWatch) {
		watcher, watchErr := config.NewWatcher(ctx, cfg, logger.Sublogger("config"))
		if watchErr != nil {
			return watchErr
		}
		defer func() {
			err = multierr.Combine(err, watcher.Close(context.Background()))
		}()
		updates = watcher.Config()
	}

	myRobot.Start()
	status := clk.Ticker(statusInterval)
	defer status.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case newCfg := <-updates:
			if err := myRobot.Reconfigure(ctx, newCfg); err != nil {
				logger.Errorw("error reconfiguring", "error", err)
			}
		case <-status.C:
			st := myRobot.Status()
			logger.Infow("status",
				"ticks", st.Ticks, "failures", st.Failures, "goal_reached", st.GoalReached,
				"linear", st.LastCommand.Linear, "angular", st.LastCommand.Angular, "last_error", st.LastError)
			if st.GoalReached && c.Bool(flagNoWatch) {
				logger.Info("goal reached")
				return nil
			}
		}
	}
}
