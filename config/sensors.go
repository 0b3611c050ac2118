package config

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// SensorsConfig describes the fixed sensor suite: a depth camera, an IMU,
// and ground-truth odometry. Each block carries its own enabled flag; a
// disabled sensor is simply never registered with the session.
type SensorsConfig struct {
	DepthCamera DepthCameraConfig `yaml:"depth_camera"`
	IMU         IMUConfig         `yaml:"imu"`
	Odometry    OdometryConfig    `yaml:"odometry"`
}

// DepthCameraConfig configures the stereo depth camera.
type DepthCameraConfig struct {
	Enabled      *bool       `yaml:"enabled"`
	Resolution   Resolution  `yaml:"resolution"`
	FOVDegrees   float64     `yaml:"fov_degrees"`
	MinDepthM    float64     `yaml:"min_depth_m"`
	MaxDepthM    float64     `yaml:"max_depth_m"`
	Mount        MountConfig `yaml:"mount"`
	UpdateRateHz float64     `yaml:"update_rate_hz"`
	Noise        NoiseConfig `yaml:"noise"`
}

// IMUConfig configures the inertial measurement unit.
type IMUConfig struct {
	Enabled      *bool       `yaml:"enabled"`
	Mount        MountConfig `yaml:"mount"`
	UpdateRateHz float64     `yaml:"update_rate_hz"`
	LogRateHz    float64     `yaml:"log_rate_hz"`
	Noise        NoiseConfig `yaml:"noise"`
}

// OdometryConfig configures ground-truth odometry.
type OdometryConfig struct {
	Enabled        *bool       `yaml:"enabled"`
	UpdateRateHz   float64     `yaml:"update_rate_hz"`
	ReferenceFrame string      `yaml:"reference_frame"`
	Noise          NoiseConfig `yaml:"noise"`
}

// Resolution is an image width/height pair in pixels.
type Resolution struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// MountConfig is a sensor mount offset relative to the tracked body.
// Rotation is a scalar-first quaternion.
type MountConfig struct {
	Position [3]float64 `yaml:"position"`
	Rotation [4]float64 `yaml:"rotation"`
}

// NoiseConfig is an optional additive Gaussian noise block. The simulator
// applies it; we only carry it through.
type NoiseConfig struct {
	Enabled bool    `yaml:"enabled"`
	StdDev  float64 `yaml:"std"`
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// DepthEnabled reports whether the depth camera should be registered.
// Absent flags default to enabled, matching the sensors document contract.
func (config *SensorsConfig) DepthEnabled() bool { return boolOrDefault(config.DepthCamera.Enabled, true) }

// IMUEnabled reports whether the IMU should be registered.
func (config *SensorsConfig) IMUEnabled() bool { return boolOrDefault(config.IMU.Enabled, true) }

// OdometryEnabled reports whether odometry should be registered.
func (config *SensorsConfig) OdometryEnabled() bool { return boolOrDefault(config.Odometry.Enabled, true) }

// Validate ensures all parts of the config are valid and fills in
// documented defaults for absent fields.
func (config *SensorsConfig) Validate(path string) error {
	if err := config.DepthCamera.Validate(path + ".depth_camera"); err != nil {
		return err
	}
	if err := config.IMU.Validate(path + ".imu"); err != nil {
		return err
	}
	if err := config.Odometry.Validate(path + ".odometry"); err != nil {
		return err
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (config *DepthCameraConfig) Validate(path string) error {
	if config.Resolution.Width == 0 {
		config.Resolution.Width = 640
	}
	if config.Resolution.Height == 0 {
		config.Resolution.Height = 480
	}
	if config.Resolution.Width < 0 || config.Resolution.Height < 0 {
		return utils.NewConfigValidationError(path, errors.New("resolution must be positive"))
	}
	if config.FOVDegrees == 0 {
		config.FOVDegrees = 90
	}
	if config.MinDepthM == 0 {
		config.MinDepthM = 0.1
	}
	if config.MaxDepthM == 0 {
		config.MaxDepthM = 30.0
	}
	if config.MaxDepthM <= config.MinDepthM {
		return utils.NewConfigValidationError(path,
			errors.Errorf("max_depth_m %f must exceed min_depth_m %f", config.MaxDepthM, config.MinDepthM))
	}
	if config.UpdateRateHz == 0 {
		config.UpdateRateHz = 20
	}
	if config.UpdateRateHz < 0 {
		return utils.NewConfigValidationError(path, errors.New("update_rate_hz must be positive"))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (config *IMUConfig) Validate(path string) error {
	if config.UpdateRateHz == 0 {
		config.UpdateRateHz = 100
	}
	if config.UpdateRateHz < 0 {
		return utils.NewConfigValidationError(path, errors.New("update_rate_hz must be positive"))
	}
	if config.LogRateHz == 0 {
		config.LogRateHz = 20
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (config *OdometryConfig) Validate(path string) error {
	if config.UpdateRateHz == 0 {
		config.UpdateRateHz = 20
	}
	if config.UpdateRateHz < 0 {
		return utils.NewConfigValidationError(path, errors.New("update_rate_hz must be positive"))
	}
	if config.ReferenceFrame == "" {
		config.ReferenceFrame = "world"
	}
	return nil
}
