package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/rapid-robotics/rapidsim/bridge"
	"github.com/rapid-robotics/rapidsim/companion"
	"github.com/rapid-robotics/rapidsim/config"
	"github.com/rapid-robotics/rapidsim/sim"
	"github.com/rapid-robotics/rapidsim/sim/fake"
)

const (
	// observationCheckInterval is how often the step loop validates the
	// assembled observation.
	observationCheckInterval = 20

	defaultBridgeTestDuration = 5 * time.Second
)

type smokeOptions struct {
	Root        string
	ConfigRoot  string
	Headless    bool
	NumSteps    int
	SceneFamily string
	SceneSeed   int64
	WithDocker  bool

	// test seams; nil means production defaults
	Backend sim.Backend
	Clock   clock.Clock
}

// runSmoke drives one full session: initialize, sensors, bridge,
// optional companion, scene load and reset, then the step loop. An
// interrupt during the loop stops stepping and proceeds to cleanup.
func runSmoke(ctx context.Context, w io.Writer, logger golog.Logger, opts smokeOptions) (err error) {
	simOpts := sim.Options{
		Root:     opts.Root,
		Headless: opts.Headless,
		Clock:    opts.Clock,
	}
	if opts.ConfigRoot != "" {
		envCfg, cfgErr := config.ReadEnvironment(
			configPath(opts.ConfigRoot, config.DefaultEnvironmentPath))
		if cfgErr != nil {
			return cfgErr
		}
		sensorsCfg, cfgErr := config.ReadSensors(
			configPath(opts.ConfigRoot, config.DefaultSensorsPath))
		if cfgErr != nil {
			return cfgErr
		}
		bridgeCfg, cfgErr := config.ReadBridge(
			configPath(opts.ConfigRoot, config.DefaultBridgePath))
		if cfgErr != nil {
			return cfgErr
		}
		simOpts.Environment = envCfg
		simOpts.Sensors = sensorsCfg
		simOpts.Bridge = bridgeCfg
	}

	backend := opts.Backend
	if backend == nil {
		backend = fake.NewBackend(logger)
	}

	env, err := sim.NewEnvironment(backend, simOpts, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, env.Close(context.Background()))
	}()

	fmt.Fprintf(w, "[1/6] initializing simulation (headless=%v)\n", opts.Headless)
	if err := env.Initialize(ctx); err != nil {
		return err
	}

	fmt.Fprintln(w, "[2/6] setting up sensors")
	if err := env.SetupSensors(ctx); err != nil {
		return err
	}
	fmt.Fprintf(w, "      active sensors: %v\n", env.SensorKeys())

	fmt.Fprintln(w, "[3/6] setting up bridge")
	if err := env.SetupBridge(ctx); err != nil {
		return err
	}
	fmt.Fprintf(w, "      publishers: %d\n", env.GraphSpec().PublisherCount())

	var comp *companion.Manager
	if opts.WithDocker {
		fmt.Fprintln(w, "[4/6] starting companion container")
		comp = companion.NewManager(companion.Config{}, logger)
		if err := comp.Start(ctx); err != nil {
			return err
		}
		defer comp.Stop(context.Background())
		if err := comp.VerifyTopics(ctx); err != nil {
			return err
		}
		fmt.Fprintln(w, "      bridge topics visible in container")
	} else {
		fmt.Fprintln(w, "[4/6] skipping companion container (enable with --with-docker)")
	}

	scene := sim.Scene{Family: opts.SceneFamily, Seed: opts.SceneSeed}
	fmt.Fprintf(w, "[5/6] resetting into scene %s\n", scene.CacheKey())
	obs, err := env.Reset(ctx, &scene)
	if err != nil {
		return err
	}
	reportFaults(w, logger, 0, obs.Faults)

	fmt.Fprintf(w, "[6/6] stepping %d times\n", opts.NumSteps)
	steps := 0
	for i := 0; i < opts.NumSteps; i++ {
		if ctx.Err() != nil {
			logger.Infow("interrupted; cleaning up", "completed_steps", steps)
			fmt.Fprintf(w, "interrupted after %d steps\n", steps)
			break
		}
		obs, err := env.Step(ctx)
		if err != nil {
			return errors.Wrapf(err, "step %d failed", i+1)
		}
		steps++
		if steps%observationCheckInterval == 0 {
			if err := validateObservation(obs, env.SensorKeys()); err != nil {
				return errors.Wrapf(err, "observation invalid at step %d", steps)
			}
			fmt.Fprintf(w, "      step %d ok (t=%.3f, keys=%v)\n",
				steps, obs.Timestamp, obs.PresentKeys())
		}
		reportFaults(w, logger, steps, obs.Faults)
	}

	fmt.Fprintf(w, "smoke run complete: %d steps\n", steps)
	return nil
}

// validateObservation checks the contract every step observation must
// satisfy: each registered sensor contributes its key unless it faulted
// this step.
func validateObservation(obs sim.Observation, sensorKeys []string) error {
	faulted := map[string]bool{}
	for _, f := range obs.Faults {
		faulted[f.Sensor] = true
	}
	for _, key := range sensorKeys {
		if faulted[key] {
			continue
		}
		switch key {
		case sim.SensorKeyDepth:
			if !obs.Depth.HasData() {
				return errors.New("depth sensor registered but frame absent")
			}
		case sim.SensorKeyIMU:
			if obs.IMUAccel == nil || obs.IMUGyro == nil {
				return errors.New("imu sensor registered but reading absent")
			}
		case sim.SensorKeyOdom:
			if obs.OdomPos == nil || obs.OdomQuat == nil {
				return errors.New("odometry sensor registered but reading absent")
			}
		}
	}
	return nil
}

func reportFaults(w io.Writer, logger golog.Logger, step int, faults []sim.SensorFault) {
	for _, f := range faults {
		logger.Warnw("sensor fault", "step", step, "sensor", f.Sensor, "op", f.Op, "error", f.Error)
		fmt.Fprintf(w, "      fault: sensor=%s op=%s err=%s\n", f.Sensor, f.Op, f.Error)
	}
}

// runBridgeTest runs a minimal depth+clock bridge session for a bounded
// duration and reports how many steps completed.
func runBridgeTest(ctx context.Context, w io.Writer, logger golog.Logger, root string, duration time.Duration) (err error) {
	enabled := true
	bridgeCfg := &config.BridgeConfig{
		Topics: []config.TopicConfig{
			{Name: bridge.TopicDepth, Direction: config.DirectionPublish, Enabled: &enabled},
			{Name: bridge.TopicClock, Direction: config.DirectionPublish, Enabled: &enabled},
		},
	}
	disabled := false
	sensorsCfg := &config.SensorsConfig{
		IMU:      config.IMUConfig{Enabled: &disabled},
		Odometry: config.OdometryConfig{Enabled: &disabled},
	}

	env, err := sim.NewEnvironment(fake.NewBackend(logger), sim.Options{
		Root:        root,
		Headless:    true,
		Environment: &config.EnvironmentConfig{},
		Sensors:     sensorsCfg,
		Bridge:      bridgeCfg,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, env.Close(context.Background()))
	}()

	if err := env.Initialize(ctx); err != nil {
		return err
	}
	if err := env.SetupSensors(ctx); err != nil {
		return err
	}
	if err := env.SetupBridge(ctx); err != nil {
		return err
	}
	if _, err := env.Reset(ctx, &sim.Scene{Family: "empty", Seed: 0}); err != nil {
		return err
	}

	fmt.Fprintf(w, "bridge up: %d publishers, stepping for %s\n",
		env.GraphSpec().PublisherCount(), duration)

	steps := 0
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		if _, err := env.Step(ctx); err != nil {
			return errors.Wrapf(err, "step %d failed", steps+1)
		}
		steps++
	}

	fmt.Fprintf(w, "bridge test complete: %d steps\n", steps)
	return nil
}

func configPath(root, rel string) string {
	return filepath.Join(root, rel)
}
