// Package waypoints reads a list of GPS waypoints and asks a remote navigation server to follow
// them, tracking the request until the server reports a final result.
package waypoints

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/a8m/envsubst"
	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/utils"
)

const countKey = "number_of_gps_waypoints"

// Waypoint is a GPS position to drive through.
type Waypoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Altitude  float64 `json:"alt"`
}

// Point returns the waypoint's horizontal position.
func (w Waypoint) Point() *geo.Point {
	return geo.NewPoint(w.Latitude, w.Longitude)
}

func waypointKey(i int) string {
	return fmt.Sprintf("gps_waypoint%d", i)
}

// Load reads number_of_gps_waypoints and then gps_waypoint0, gps_waypoint1 and so on, each a list
// of latitude, longitude and altitude. Entries that are missing, not numeric or shorter than three
// values are logged and skipped; extra values, such as a collected yaw, are ignored.
func Load(attrs utils.AttributeMap, logger logging.Logger) ([]Waypoint, error) {
	if !attrs.Has(countKey) {
		return nil, goutils.NewConfigValidationFieldRequiredError("", countKey)
	}
	count, err := attrs.Int(countKey, 0)
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, errors.Errorf("%s cannot be negative, got %d", countKey, count)
	}

	wps := make([]Waypoint, 0, count)
	for i := 0; i < count; i++ {
		key := waypointKey(i)
		values, err := attrs.Float64Slice(key)
		if err != nil {
			logger.Errorw("skipping waypoint", "key", key, "error", err)
			continue
		}
		if len(values) < 3 {
			logger.Errorw("skipping waypoint, it needs latitude, longitude and altitude", "key", key, "values", values)
			continue
		}
		wps = append(wps, Waypoint{Latitude: values[0], Longitude: values[1], Altitude: values[2]})
	}
	if len(wps) == 0 {
		return nil, errors.New("no valid gps waypoints")
	}
	logger.Infow("loaded gps waypoints", "count", len(wps), "skipped", count-len(wps))
	return wps, nil
}

// ReadFile loads waypoints from a JSON file after expanding environment variables in it.
func ReadFile(ctx context.Context, path string, logger logging.Logger) ([]Waypoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var attrs utils.AttributeMap
	if err := json.Unmarshal(buf, &attrs); err != nil {
		return nil, errors.Wrapf(err, "failed to decode waypoints from %s", path)
	}
	return Load(attrs, logger)
}

// LogSpacing logs the great circle distance and initial bearing between consecutive waypoints.
func LogSpacing(wps []Waypoint, logger logging.Logger) {
	for i := 1; i < len(wps); i++ {
		from, to := wps[i-1].Point(), wps[i].Point()
		logger.Debugw("waypoint leg",
			"from", i-1, "to", i,
			"distance_m", from.GreatCircleDistance(to)*1000,
			"bearing_degs", from.BearingTo(to))
	}
}
