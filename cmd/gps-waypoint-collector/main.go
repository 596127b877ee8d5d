// Package main logs GPS waypoints from a receiver and an IMU, one line per interval, in the form
// gps-waypoint-follower reads back.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/pursuit/gps/collector"
	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/publisher"
	"go.viam.com/pursuit/utils"
)

const (
	flagDebug            = "debug"
	flagInterval         = "interval"
	flagSyncSlop         = "sync-slop"
	flagSerial           = "serial"
	flagBaud             = "baud"
	flagBroker           = "broker"
	flagClientID         = "client-id"
	flagTopicPrefix      = "topic-prefix"
	flagFixTopic         = "fix-topic"
	flagOrientationTopic = "orientation-topic"
)

func main() {
	var logger logging.Logger

	app := &cli.App{
		Name:  "gps-waypoint-collector",
		Usage: "log the current gps position and heading as numbered waypoints",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: flagDebug, Aliases: []string{"vvv"}, Usage: "enable debug logging"},
			&cli.DurationFlag{Name: flagInterval, Value: collector.DefaultInterval, Usage: "log a waypoint every `INTERVAL`"},
			&cli.DurationFlag{Name: flagSyncSlop, Value: collector.DefaultSyncSlop, Usage: "pair fixes and orientations stamped within `SLOP`"},
			&cli.StringFlag{Name: flagSerial, Usage: "read NMEA GGA and HDT sentences from serial `PORT` instead of mqtt"},
			&cli.UintFlag{Name: flagBaud, Value: collector.DefaultBaudRate, Usage: "serial baud rate"},
			&cli.StringFlag{Name: flagBroker, EnvVars: []string{"PURSUIT_MQTT_BROKER"}, Usage: "mqtt broker `URL`, e.g. tcp://localhost:1883"},
			&cli.StringFlag{Name: flagClientID, Value: "gps-waypoint-collector", Usage: "mqtt client id"},
			&cli.StringFlag{Name: flagTopicPrefix, Usage: "prefix of both mqtt topics"},
			&cli.StringFlag{Name: flagFixTopic, Value: collector.DefaultFixTopic, Usage: "mqtt topic of gps fixes"},
			&cli.StringFlag{Name: flagOrientationTopic, Value: collector.DefaultOrientationTopic, Usage: "mqtt topic of imu orientations"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("collector")
			} else {
				logger = logging.NewLogger("collector")
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return collect(c, logger)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func collect(c *cli.Context, logger logging.Logger) (err error) {
	ctx := c.Context
	col := collector.New(collector.Config{
		Interval: c.Duration(flagInterval),
		SyncSlop: c.Duration(flagSyncSlop),
	}, clock.New(), logger)
	col.Start()
	defer col.Close()

	if port := c.String(flagSerial); port != "" {
		return readSerial(ctx, col, collector.SerialConfig{Port: port, BaudRate: c.Uint(flagBaud)}, logger)
	}

	if c.String(flagBroker) == "" {
		return errors.Errorf("either --%s or --%s is required", flagSerial, flagBroker)
	}
	src, err := collector.NewMQTTSource(publisher.MQTTConfig{
		Broker:      c.String(flagBroker),
		ClientID:    c.String(flagClientID),
		TopicPrefix: c.String(flagTopicPrefix),
	}, c.String(flagFixTopic), c.String(flagOrientationTopic), col, logger.Sublogger("mqtt"))
	if err != nil {
		return err
	}
	if err := src.Open(ctx); err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, src.Close(context.Background()))
	}()
	<-ctx.Done()
	return nil
}

func readSerial(ctx context.Context, col *collector.Collector, cfg collector.SerialConfig, logger logging.Logger) error {
	port, err := collector.OpenSerial(cfg)
	if err != nil {
		return err
	}
	logger.Infow("reading nmea", "port", cfg.Port, "baud", cfg.BaudRate)

	// Closing the port is the only way to unblock a pending read.
	closer := utils.NewStoppableWorkers(func(workerCtx context.Context) {
		select {
		case <-ctx.Done():
		case <-workerCtx.Done():
		}
		if err := port.Close(); err != nil {
			logger.Debugw("error closing serial port", "error", err)
		}
	})
	defer closer.Stop()

	err = col.ReadNMEA(ctx, port)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
