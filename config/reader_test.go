package config

import (
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestEnvironmentDefaults(t *testing.T) {
	cfg, err := EnvironmentFromReader(strings.NewReader(""), "empty.yaml")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.PhysicsDT, test.ShouldEqual, 0.01)
	test.That(t, cfg.RenderingDT, test.ShouldEqual, 0.05)
	test.That(t, cfg.Device, test.ShouldEqual, "cuda:0")
	test.That(t, *cfg.Gravity, test.ShouldResemble, [3]float64{0, 0, -9.81})

	interval, err := cfg.RenderInterval()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, interval, test.ShouldEqual, 5)
}

func TestEnvironmentRenderInterval(t *testing.T) {
	cfg := EnvironmentConfig{PhysicsDT: 0.01, RenderingDT: 0.05}
	interval, err := cfg.RenderInterval()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, interval, test.ShouldEqual, 5)

	cfg = EnvironmentConfig{PhysicsDT: 0.01, RenderingDT: 0.025}
	_, err = cfg.RenderInterval()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not an integer multiple")

	// a ratio off by float error only should still pass
	cfg = EnvironmentConfig{PhysicsDT: 0.01, RenderingDT: 0.01 * 3}
	interval, err = cfg.RenderInterval()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, interval, test.ShouldEqual, 3)
}

func TestEnvironmentRejectsRenderFasterThanPhysics(t *testing.T) {
	doc := "physics_dt: 0.05\nrendering_dt: 0.01\n"
	_, err := EnvironmentFromReader(strings.NewReader(doc), "bad.yaml")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "rendering_dt")
}

func TestSensorsDefaults(t *testing.T) {
	cfg, err := SensorsFromReader(strings.NewReader(""), "empty.yaml")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.DepthEnabled(), test.ShouldBeTrue)
	test.That(t, cfg.IMUEnabled(), test.ShouldBeTrue)
	test.That(t, cfg.OdometryEnabled(), test.ShouldBeTrue)
	test.That(t, cfg.DepthCamera.Resolution.Width, test.ShouldEqual, 640)
	test.That(t, cfg.DepthCamera.Resolution.Height, test.ShouldEqual, 480)
	test.That(t, cfg.DepthCamera.UpdateRateHz, test.ShouldEqual, 20)
	test.That(t, cfg.IMU.UpdateRateHz, test.ShouldEqual, 100)
	test.That(t, cfg.Odometry.ReferenceFrame, test.ShouldEqual, "world")
}

func TestSensorsDisabledFlag(t *testing.T) {
	doc := `
depth_camera:
  enabled: false
imu:
  enabled: true
`
	cfg, err := SensorsFromReader(strings.NewReader(doc), "sensors.yaml")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.DepthEnabled(), test.ShouldBeFalse)
	test.That(t, cfg.IMUEnabled(), test.ShouldBeTrue)
	// absent block defaults to enabled
	test.That(t, cfg.OdometryEnabled(), test.ShouldBeTrue)
}

func TestSensorsDepthRangeValidation(t *testing.T) {
	doc := `
depth_camera:
  min_depth_m: 5.0
  max_depth_m: 1.0
`
	_, err := SensorsFromReader(strings.NewReader(doc), "sensors.yaml")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_depth_m")
}

func TestBridgeEnabledPublishTopics(t *testing.T) {
	doc := `
topics:
  - name: /camera/depth
    direction: publish
    enabled: true
  - name: /odom
    direction: publish
    enabled: false
  - name: /cmd_vel
    direction: subscribe
    enabled: true
  - name: /clock
    direction: publish
`
	cfg, err := BridgeFromReader(strings.NewReader(doc), "bridge.yaml")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.EnabledPublishTopics(), test.ShouldResemble, []string{"/camera/depth", "/clock"})
	test.That(t, cfg.TFEnabled(), test.ShouldBeTrue)
}

func TestBridgeValidation(t *testing.T) {
	doc := `
topics:
  - name: /camera/depth
  - name: /camera/depth
`
	_, err := BridgeFromReader(strings.NewReader(doc), "bridge.yaml")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "duplicate topic")

	doc = `
topics:
  - direction: publish
`
	_, err = BridgeFromReader(strings.NewReader(doc), "bridge.yaml")
	test.That(t, err, test.ShouldNotBeNil)

	doc = `
topics:
  - name: /imu/data
    direction: sideways
`
	_, err = BridgeFromReader(strings.NewReader(doc), "bridge.yaml")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown direction")
}

func TestReadMissingFile(t *testing.T) {
	_, err := ReadEnvironment("does/not/exist.yaml")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ReadSensors("does/not/exist.yaml")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ReadBridge("does/not/exist.yaml")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBridgeTFFlagIndependent(t *testing.T) {
	doc := `
topics: []
tf:
  enabled: false
`
	cfg, err := BridgeFromReader(strings.NewReader(doc), "bridge.yaml")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.TFEnabled(), test.ShouldBeFalse)
	test.That(t, cfg.EnabledPublishTopics(), test.ShouldBeEmpty)
}
