package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/rapid-robotics/rapidsim/sim"
)

func writeConfigTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"config/env/environment.yaml": "physics_dt: 0.01\nrendering_dt: 0.05\n",
		"config/env/sensors.yaml":     "{}\n",
		"config/ros2/bridge_topics.yaml": "topics:\n" +
			"  - name: /camera/depth\n" +
			"  - name: /camera/depth/camera_info\n" +
			"  - name: /imu/data\n" +
			"  - name: /odom\n" +
			"  - name: /clock\n",
	}
	for rel, body := range files {
		path := filepath.Join(root, rel)
		test.That(t, os.MkdirAll(filepath.Dir(path), 0o755), test.ShouldBeNil)
		test.That(t, os.WriteFile(path, []byte(body), 0o644), test.ShouldBeNil)
	}
	return root
}

func TestSmokeRunCompletes(t *testing.T) {
	root := writeConfigTree(t)
	var buf bytes.Buffer
	err := runSmoke(context.Background(), &buf, golog.NewTestLogger(t), smokeOptions{
		Root:        root,
		Headless:    true,
		NumSteps:    40,
		SceneFamily: "office",
		SceneSeed:   42,
	})
	test.That(t, err, test.ShouldBeNil)
	out := buf.String()
	test.That(t, out, test.ShouldContainSubstring, "step 20 ok")
	test.That(t, out, test.ShouldContainSubstring, "step 40 ok")
	test.That(t, out, test.ShouldContainSubstring, "smoke run complete: 40 steps")
}

func TestSmokeRunConfigDirOverride(t *testing.T) {
	cfgRoot := writeConfigTree(t)
	dataRoot := t.TempDir()
	var buf bytes.Buffer
	err := runSmoke(context.Background(), &buf, golog.NewTestLogger(t), smokeOptions{
		Root:        dataRoot,
		ConfigRoot:  cfgRoot,
		Headless:    true,
		NumSteps:    5,
		SceneFamily: "office",
		SceneSeed:   1,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "smoke run complete: 5 steps")
}

func TestSmokeRunInterruptCleansUp(t *testing.T) {
	root := writeConfigTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	err := runSmoke(ctx, &buf, golog.NewTestLogger(t), smokeOptions{
		Root:        root,
		Headless:    true,
		NumSteps:    40,
		SceneFamily: "office",
		SceneSeed:   42,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "interrupted after 0 steps")
}

func TestBridgeTestReportsSteps(t *testing.T) {
	var buf bytes.Buffer
	err := runBridgeTest(context.Background(), &buf, golog.NewTestLogger(t),
		t.TempDir(), 50*time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "bridge test complete:")
}

func TestValidateObservation(t *testing.T) {
	accel := r3.Vector{Z: -9.81}
	gyro := r3.Vector{}
	obs := sim.Observation{Timestamp: 1, IMUAccel: &accel, IMUGyro: &gyro}

	test.That(t, validateObservation(obs, []string{sim.SensorKeyIMU}), test.ShouldBeNil)

	err := validateObservation(obs, []string{sim.SensorKeyIMU, sim.SensorKeyDepth})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "depth")

	// a faulted sensor is excused from contributing its key
	obs.Faults = []sim.SensorFault{{Sensor: sim.SensorKeyDepth, Op: "read", Error: "boom"}}
	test.That(t, validateObservation(obs, []string{sim.SensorKeyIMU, sim.SensorKeyDepth}), test.ShouldBeNil)
}

func TestAppCommands(t *testing.T) {
	app := NewApp()
	test.That(t, app.Name, test.ShouldEqual, "rapidsim")
	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	test.That(t, names, test.ShouldResemble, []string{"verify", "test", "bridge-test"})
}
