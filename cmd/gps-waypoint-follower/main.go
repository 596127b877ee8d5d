// Package main sends the GPS waypoints of a config file to a waypoint following server and waits
// for its answer.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/pursuit/gps/waypoints"
	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/publisher"
)

const (
	flagConfig      = "config"
	flagDebug       = "debug"
	flagBroker      = "broker"
	flagClientID    = "client-id"
	flagTopicPrefix = "topic-prefix"
	flagAction      = "action"
)

func main() {
	var logger logging.Logger

	app := &cli.App{
		Name:  "gps-waypoint-follower",
		Usage: "ask a navigation server to drive through gps waypoints",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     flagConfig,
				Aliases:  []string{"c"},
				Usage:    "Load waypoints from `FILE`",
				Required: true,
			},
			&cli.BoolFlag{Name: flagDebug, Aliases: []string{"vvv"}, Usage: "enable debug logging"},
			&cli.StringFlag{
				Name:     flagBroker,
				EnvVars:  []string{"PURSUIT_MQTT_BROKER"},
				Usage:    "mqtt broker `URL`, e.g. tcp://localhost:1883",
				Required: true,
			},
			&cli.StringFlag{Name: flagClientID, Value: "gps-waypoint-follower", Usage: "mqtt client id"},
			&cli.StringFlag{Name: flagTopicPrefix, Usage: "prefix of every mqtt topic"},
			&cli.StringFlag{Name: flagAction, Value: waypoints.DefaultAction, Usage: "action `NAME` the server listens on"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("follower")
			} else {
				logger = logging.NewLogger("follower")
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return follow(c, logger)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func follow(c *cli.Context, logger logging.Logger) (err error) {
	ctx := c.Context
	wps, err := waypoints.ReadFile(ctx, c.String(flagConfig), logger)
	if err != nil {
		return err
	}

	client, err := waypoints.NewMQTTActionClient(publisher.MQTTConfig{
		Broker:      c.String(flagBroker),
		ClientID:    c.String(flagClientID),
		TopicPrefix: c.String(flagTopicPrefix),
	}, c.String(flagAction), logger.Sublogger("mqtt"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, client.Close(context.Background()))
	}()

	req, err := waypoints.Follow(ctx, client, wps, clock.New(), logger)
	if err != nil {
		return err
	}
	if req.Status() != waypoints.StatusSucceeded {
		return cli.Exit(fmt.Sprintf("goal %s finished as %s, missed waypoints %v", req.Goal.ID, req.Status(), req.Missed()), 1)
	}
	return nil
}
