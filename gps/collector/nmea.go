package collector

import (
	"bufio"
	"context"
	"io"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"

	"go.viam.com/pursuit/gps"
	"go.viam.com/pursuit/utils"
)

const (
	// DefaultSerialPort is where the GPS receiver is usually attached.
	DefaultSerialPort = "/dev/serial0"
	// DefaultBaudRate is the rate most receivers ship with.
	DefaultBaudRate = 9600
)

// SerialConfig names the serial port a GPS receiver talks on.
type SerialConfig struct {
	Port     string
	BaudRate uint
}

// OpenSerial opens the receiver's port as 8N1.
func OpenSerial(cfg SerialConfig) (io.ReadWriteCloser, error) {
	if cfg.Port == "" {
		cfg.Port = DefaultSerialPort
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	port, err := serial.Open(serial.OpenOptions{
		PortName:        cfg.Port,
		BaudRate:        cfg.BaudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", cfg.Port)
	}
	return port, nil
}

// ReadNMEA feeds the collector from NMEA sentences read from r until EOF or ctx is done. GGA
// sentences with a fix become fixes and HDT sentences become level orientations, both stamped on
// arrival. Anything else is skipped. A blocked read only returns once r is closed.
func (c *Collector) ReadNMEA(ctx context.Context, r io.Reader) error {
	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			c.handleSentence(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "failed to read nmea sentence")
		}
	}
}

func (c *Collector) handleSentence(line string) {
	if !strings.HasPrefix(line, "$") {
		c.logger.Debugw("skipping non nmea line", "line", line)
		return
	}
	sentence, err := nmea.Parse(line)
	if err != nil {
		c.logger.Debugw("skipping malformed nmea sentence", "line", line, "error", err)
		return
	}

	now := c.clk.Now()
	switch sentence.DataType() {
	case nmea.TypeGGA:
		gga := sentence.(nmea.GGA)
		if gga.FixQuality == nmea.Invalid {
			c.logger.Debug("gps has no fix yet")
			return
		}
		c.AddFix(gps.Fix{Stamp: now, Latitude: gga.Latitude, Longitude: gga.Longitude, Altitude: gga.Altitude})
	case nmea.TypeHDT:
		hdt := sentence.(nmea.HDT)
		c.AddOrientation(gps.NewOrientationFromYaw(now, headingToYaw(hdt.Heading)))
	}
}

// headingToYaw converts a compass heading in degrees, clockwise from north, to radians
// counterclockwise from east.
func headingToYaw(heading float64) float64 {
	return utils.DegToRad(90 - heading)
}
