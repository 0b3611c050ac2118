package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Default on-disk locations for the three documents, relative to the
// project root.
const (
	DefaultEnvironmentPath = "config/env/environment.yaml"
	DefaultSensorsPath     = "config/env/sensors.yaml"
	DefaultBridgePath      = "config/ros2/bridge_topics.yaml"
)

// ReadEnvironment reads and validates the environment document at the
// given path.
func ReadEnvironment(path string) (*EnvironmentConfig, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "cannot read environment config")
	}
	defer f.Close() //nolint:errcheck
	return EnvironmentFromReader(f, path)
}

// EnvironmentFromReader decodes and validates an environment document.
// The path is used only for error messages.
func EnvironmentFromReader(r io.Reader, path string) (*EnvironmentConfig, error) {
	var cfg EnvironmentConfig
	if err := decodeStrict(r, &cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse environment config %q", path)
	}
	if err := cfg.Validate("environment"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReadSensors reads and validates the sensors document at the given path.
func ReadSensors(path string) (*SensorsConfig, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "cannot read sensors config")
	}
	defer f.Close() //nolint:errcheck
	return SensorsFromReader(f, path)
}

// SensorsFromReader decodes and validates a sensors document.
func SensorsFromReader(r io.Reader, path string) (*SensorsConfig, error) {
	var cfg SensorsConfig
	if err := decodeStrict(r, &cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse sensors config %q", path)
	}
	if err := cfg.Validate("sensors"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReadBridge reads and validates the bridge topics document at the given
// path.
func ReadBridge(path string) (*BridgeConfig, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "cannot read bridge config")
	}
	defer f.Close() //nolint:errcheck
	return BridgeFromReader(f, path)
}

// BridgeFromReader decodes and validates a bridge topics document.
func BridgeFromReader(r io.Reader, path string) (*BridgeConfig, error) {
	var cfg BridgeConfig
	if err := decodeStrict(r, &cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse bridge config %q", path)
	}
	if err := cfg.Validate("bridge"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeStrict(r io.Reader, out interface{}) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			// an empty document is all defaults
			return nil
		}
		return err
	}
	return nil
}
