package purepursuit

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"go.viam.com/pursuit/costmap"
	"go.viam.com/pursuit/utils"
)

// Config holds the pure pursuit parameters. Per-axis limits, collision options and the collaborator
// timeout are optional; the rest must be present in the attributes given to Configure.
type Config struct {
	DesiredLinearVel               float64 `json:"desired_linear_vel"`
	MaxAccel                       float64 `json:"max_accel"`
	MaxDecel                       float64 `json:"max_decel"`
	LookaheadDist                  float64 `json:"lookahead_dist"`
	MinLookaheadDist               float64 `json:"min_lookahead_dist"`
	MaxLookaheadDist               float64 `json:"max_lookahead_dist"`
	LookaheadGain                  float64 `json:"lookahead_gain"`
	MaxAngularVel                  float64 `json:"max_angular_vel"`
	TransformTolerance             float64 `json:"transform_tolerance"`
	UseVelocityScaledLookaheadDist bool    `json:"use_velocity_scaled_lookahead_dist"`

	MaxLinearAccel  *float64 `json:"max_linear_accel,omitempty"`
	MaxLinearDecel  *float64 `json:"max_linear_decel,omitempty"`
	MaxAngularAccel *float64 `json:"max_angular_accel,omitempty"`
	MaxAngularDecel *float64 `json:"max_angular_decel,omitempty"`

	UseCollisionDetection *bool    `json:"use_collision_detection,omitempty"`
	LethalCostThreshold   *int     `json:"lethal_cost_threshold,omitempty"`
	CollaboratorTimeout   *float64 `json:"collaborator_timeout,omitempty"`
}

var requiredAttributes = []string{
	"desired_linear_vel",
	"max_accel",
	"max_decel",
	"lookahead_dist",
	"min_lookahead_dist",
	"max_lookahead_dist",
	"lookahead_gain",
	"max_angular_vel",
	"transform_tolerance",
	"use_velocity_scaled_lookahead_dist",
}

const defaultCollaboratorTimeout = 0.05

// DefaultConfig returns the stock parameters.
func DefaultConfig() Config {
	return Config{
		DesiredLinearVel:   0.5,
		MaxAccel:           1.0,
		MaxDecel:           1.0,
		LookaheadDist:      0.4,
		MinLookaheadDist:   0.3,
		MaxLookaheadDist:   0.6,
		LookaheadGain:      1.5,
		MaxAngularVel:      1.0,
		TransformTolerance: 0.1,
	}
}

// ConfigFromAttributes decodes and validates attributes. All required parameters must be present.
func ConfigFromAttributes(attrs utils.AttributeMap) (*Config, error) {
	if missing := attrs.Missing(requiredAttributes...); len(missing) > 0 {
		return nil, &ConfigError{Param: strings.Join(missing, ", "), Reason: "required parameter missing"}
	}
	var cfg Config
	if err := utils.TransformAttributeMapToStruct(&cfg, attrs); err != nil {
		return nil, &ConfigError{Param: "attributes", Reason: err.Error()}
	}
	if err := cfg.Validate("pure_pursuit"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AttributeMap converts the config back to attributes, for hosts that build a config in code.
func (cfg Config) AttributeMap() (utils.AttributeMap, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var attrs utils.AttributeMap
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

func positive(param string, v float64) error {
	// Negated so that NaN fails.
	if !(v > 0) || math.IsInf(v, 1) {
		return &ConfigError{Param: param, Value: v, Reason: "must be a finite number greater than 0"}
	}
	return nil
}

// Validate ensures all parts of the config are valid. Errors are *ConfigError.
func (cfg *Config) Validate(path string) error {
	checks := []struct {
		name string
		v    float64
	}{
		{"desired_linear_vel", cfg.DesiredLinearVel},
		{"max_accel", cfg.MaxAccel},
		{"max_decel", cfg.MaxDecel},
		{"lookahead_dist", cfg.LookaheadDist},
		{"min_lookahead_dist", cfg.MinLookaheadDist},
		{"max_lookahead_dist", cfg.MaxLookaheadDist},
		{"max_angular_vel", cfg.MaxAngularVel},
	}
	for _, c := range checks {
		if err := positive(path+"."+c.name, c.v); err != nil {
			return err
		}
	}
	optional := []struct {
		name string
		v    *float64
	}{
		{"max_linear_accel", cfg.MaxLinearAccel},
		{"max_linear_decel", cfg.MaxLinearDecel},
		{"max_angular_accel", cfg.MaxAngularAccel},
		{"max_angular_decel", cfg.MaxAngularDecel},
		{"collaborator_timeout", cfg.CollaboratorTimeout},
	}
	for _, c := range optional {
		if c.v == nil {
			continue
		}
		if err := positive(path+"."+c.name, *c.v); err != nil {
			return err
		}
	}
	if cfg.MinLookaheadDist > cfg.MaxLookaheadDist {
		return &ConfigError{
			Param:  path + ".min_lookahead_dist",
			Value:  cfg.MinLookaheadDist,
			Reason: "must not exceed max_lookahead_dist",
		}
	}
	if !(cfg.LookaheadGain >= 0) || math.IsInf(cfg.LookaheadGain, 1) {
		return &ConfigError{Param: path + ".lookahead_gain", Value: cfg.LookaheadGain, Reason: "must be a finite number >= 0"}
	}
	if !(cfg.TransformTolerance >= 0) || math.IsInf(cfg.TransformTolerance, 1) {
		return &ConfigError{
			Param: path + ".transform_tolerance", Value: cfg.TransformTolerance, Reason: "must be a finite number >= 0",
		}
	}
	if cfg.LethalCostThreshold != nil && (*cfg.LethalCostThreshold < 1 || *cfg.LethalCostThreshold > 255) {
		return &ConfigError{
			Param: path + ".lethal_cost_threshold", Value: *cfg.LethalCostThreshold, Reason: "must be within [1, 255]",
		}
	}
	return nil
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// LinearLimits returns the linear axis limits, falling back to the shared values.
func (cfg *Config) LinearLimits() AxisLimits {
	return AxisLimits{
		Accel: orDefault(cfg.MaxLinearAccel, cfg.MaxAccel),
		Decel: orDefault(cfg.MaxLinearDecel, cfg.MaxDecel),
	}
}

// AngularLimits returns the angular axis limits, falling back to the shared values.
func (cfg *Config) AngularLimits() AxisLimits {
	return AxisLimits{
		Accel: orDefault(cfg.MaxAngularAccel, cfg.MaxAccel),
		Decel: orDefault(cfg.MaxAngularDecel, cfg.MaxDecel),
	}
}

// CollisionDetection reports whether the interlock samples the cost grid.
func (cfg *Config) CollisionDetection() bool {
	return cfg.UseCollisionDetection == nil || *cfg.UseCollisionDetection
}

// LethalCost returns the cost at or above which a sample is a collision.
func (cfg *Config) LethalCost() uint8 {
	if cfg.LethalCostThreshold == nil {
		return costmap.InscribedInflatedObstacle
	}
	return uint8(*cfg.LethalCostThreshold)
}

// Tolerance returns the transform staleness tolerance.
func (cfg *Config) Tolerance() time.Duration {
	return utils.SecondsToDuration(cfg.TransformTolerance)
}

// Timeout returns the deadline applied to every collaborator call.
func (cfg *Config) Timeout() time.Duration {
	return utils.SecondsToDuration(orDefault(cfg.CollaboratorTimeout, defaultCollaboratorTimeout))
}
