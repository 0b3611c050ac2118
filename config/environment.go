// Package config contains the configuration documents consumed by the
// RAPID v2 simulation layer: the environment settings, the sensor suite,
// and the ROS 2 bridge topic list. Documents are YAML on disk and are
// validated once at load time; they are read-only for the rest of the
// session.
package config

import (
	"math"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Defaults for the environment document. These match the rates the data
// pipeline downstream expects (100 Hz physics, 20 Hz render/log).
const (
	DefaultPhysicsDT   = 0.01
	DefaultRenderingDT = 0.05
	DefaultDevice      = "cuda:0"
)

// DefaultGravity is standard gravity, z-down.
var DefaultGravity = [3]float64{0, 0, -9.81}

// EnvironmentConfig holds the simulation parameters for one session.
type EnvironmentConfig struct {
	PhysicsDT   float64        `yaml:"physics_dt"`
	RenderingDT float64        `yaml:"rendering_dt"`
	Gravity     *[3]float64    `yaml:"gravity"`
	Device      string         `yaml:"device"`
	Viewport    ViewportConfig `yaml:"viewport"`
}

// ViewportConfig sets the window size used when not running headless.
type ViewportConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Validate ensures all parts of the config are valid and fills in
// documented defaults for absent fields.
func (config *EnvironmentConfig) Validate(path string) error {
	if config.PhysicsDT == 0 {
		config.PhysicsDT = DefaultPhysicsDT
	}
	if config.PhysicsDT < 0 {
		return utils.NewConfigValidationError(path, errors.New("physics_dt must be positive"))
	}
	if config.RenderingDT == 0 {
		config.RenderingDT = DefaultRenderingDT
	}
	if config.RenderingDT < config.PhysicsDT {
		return utils.NewConfigValidationError(path,
			errors.Errorf("rendering_dt %f must be >= physics_dt %f", config.RenderingDT, config.PhysicsDT))
	}
	if config.Gravity == nil {
		g := DefaultGravity
		config.Gravity = &g
	}
	if config.Device == "" {
		config.Device = DefaultDevice
	}
	if config.Viewport.Width == 0 {
		config.Viewport.Width = 1280
	}
	if config.Viewport.Height == 0 {
		config.Viewport.Height = 720
	}
	if _, err := config.RenderInterval(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// renderIntervalTol is the relative tolerance used to decide whether the
// rendering/physics timestep ratio is integral.
const renderIntervalTol = 1e-9

// RenderInterval returns how many physics steps elapse per render. The
// configured ratio must be a positive integer; a non-integral ratio is
// rejected rather than silently rounded.
func (config *EnvironmentConfig) RenderInterval() (int, error) {
	ratio := config.RenderingDT / config.PhysicsDT
	interval := math.Round(ratio)
	if interval < 1 {
		return 0, errors.Errorf("rendering_dt/physics_dt ratio %f must be at least 1", ratio)
	}
	if math.Abs(ratio-interval) > renderIntervalTol*math.Max(math.Abs(ratio), 1) {
		return 0, errors.Errorf(
			"rendering_dt %f is not an integer multiple of physics_dt %f (ratio %f)",
			config.RenderingDT, config.PhysicsDT, ratio)
	}
	return int(interval), nil
}
