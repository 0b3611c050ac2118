package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/rapid-robotics/rapidsim/bridge"
	"github.com/rapid-robotics/rapidsim/config"
	"github.com/rapid-robotics/rapidsim/data"
)

// Options configures a session. Config documents may be supplied directly
// (tests) or by path; paths default to the standard project layout.
type Options struct {
	// Root is the project root all data paths are relative to.
	Root     string
	Headless bool

	Environment     *config.EnvironmentConfig
	EnvironmentPath string
	Sensors         *config.SensorsConfig
	SensorsPath     string
	Bridge          *config.BridgeConfig
	BridgePath      string

	// Clock supplies wall time when no physics clock is available yet.
	Clock clock.Clock
}

// Scene selects a scene family and generation seed.
type Scene struct {
	Family string
	Seed   int64
}

// CacheKey is the deterministic artifact key for this scene.
func (s Scene) CacheKey() string {
	return fmt.Sprintf("%s_seed%d", s.Family, s.Seed)
}

// Spawn bounds for the tracked body's randomized reset pose.
const (
	spawnXYBound = 2.0
	spawnZMin    = 1.0
	spawnZMax    = 3.0
)

// Environment owns one simulation session from Initialize to Close. It is
// not safe for concurrent use; the caller serializes all operations.
type Environment struct {
	id      uuid.UUID
	backend Backend
	logger  golog.Logger
	clk     clock.Clock
	opts    Options

	cfg *config.EnvironmentConfig

	state State

	app     App
	physics Physics

	sensors map[string]Sensor

	graphSpec *bridge.GraphSpec

	sceneLog *data.Writer
	scene    *Scene
	rng      *rand.Rand

	obsLogger ObservationLogger
}

var sensorOrder = []string{SensorKeyDepth, SensorKeyIMU, SensorKeyOdom}

// NewEnvironment loads and validates the environment document and returns
// a session in the uninitialized state.
func NewEnvironment(backend Backend, opts Options, logger golog.Logger) (*Environment, error) {
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	cfg := opts.Environment
	if cfg == nil {
		path := opts.EnvironmentPath
		if path == "" {
			path = config.DefaultEnvironmentPath
		}
		var err error
		cfg, err = config.ReadEnvironment(filepath.Join(opts.Root, path))
		if err != nil {
			return nil, err
		}
	} else if err := cfg.Validate("environment"); err != nil {
		return nil, err
	}

	e := &Environment{
		id:      uuid.New(),
		backend: backend,
		logger:  logger,
		clk:     opts.Clock,
		opts:    opts,
		cfg:     cfg,
		sensors: map[string]Sensor{},
	}
	logger.Infow("environment created", "session", e.id.String(), "headless", opts.Headless)
	return e, nil
}

// ID returns the session identifier.
func (e *Environment) ID() uuid.UUID { return e.id }

// State returns the current lifecycle state.
func (e *Environment) State() State { return e.state }

// Config returns the validated environment document.
func (e *Environment) Config() *config.EnvironmentConfig { return e.cfg }

// GraphSpec returns the publishing graph applied by SetupBridge, or nil
// before then.
func (e *Environment) GraphSpec() *bridge.GraphSpec { return e.graphSpec }

// SensorKeys lists registered sensors in their fixed order.
func (e *Environment) SensorKeys() []string {
	var keys []string
	for _, key := range sensorOrder {
		if _, ok := e.sensors[key]; ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// AttachLogger attaches an observation logger. Logger failures never
// propagate out of Step.
func (e *Environment) AttachLogger(l ObservationLogger) { e.obsLogger = l }

// Initialize constructs the simulator application context and physics
// with the configured timestep pair.
func (e *Environment) Initialize(ctx context.Context) error {
	if err := e.expectState("initialize", StateUninitialized); err != nil {
		return err
	}

	interval, err := e.cfg.RenderInterval()
	if err != nil {
		return err
	}

	app, err := e.backend.NewApp(ctx, AppConfig{
		Headless: e.opts.Headless,
		Width:    e.cfg.Viewport.Width,
		Height:   e.cfg.Viewport.Height,
	})
	if err != nil {
		return errors.Wrap(err, "cannot create simulation app")
	}
	e.app = app

	physics, err := e.backend.NewPhysics(ctx, PhysicsConfig{
		DT:             e.cfg.PhysicsDT,
		RenderInterval: interval,
		Gravity:        *e.cfg.Gravity,
		Device:         e.cfg.Device,
	})
	if err != nil {
		return multierr.Combine(
			errors.Wrap(err, "cannot create physics context"),
			e.app.Close(ctx))
	}
	e.physics = physics

	e.state = StateInitialized
	e.logger.Infow("simulation initialized",
		"physics_dt", e.cfg.PhysicsDT,
		"rendering_dt", e.cfg.RenderingDT,
		"render_interval", interval,
		"device", e.cfg.Device)
	return nil
}

// SetupSensors registers every enabled sensor from the sensors document
// under its stable key. Disabled sensors are omitted from the registry
// entirely.
func (e *Environment) SetupSensors(ctx context.Context) error {
	if err := e.expectState("setup sensors", StateInitialized); err != nil {
		return err
	}

	cfg := e.opts.Sensors
	if cfg == nil {
		path := e.opts.SensorsPath
		if path == "" {
			path = config.DefaultSensorsPath
		}
		var err error
		cfg, err = config.ReadSensors(filepath.Join(e.opts.Root, path))
		if err != nil {
			return err
		}
	} else if err := cfg.Validate("sensors"); err != nil {
		return err
	}

	if cfg.DepthEnabled() {
		s, err := e.backend.NewDepthCamera(ctx, cfg.DepthCamera)
		if err != nil {
			return errors.Wrap(err, "cannot create depth camera")
		}
		e.sensors[SensorKeyDepth] = s
	}
	if cfg.IMUEnabled() {
		s, err := e.backend.NewIMU(ctx, cfg.IMU)
		if err != nil {
			return errors.Wrap(err, "cannot create imu")
		}
		e.sensors[SensorKeyIMU] = s
	}
	if cfg.OdometryEnabled() {
		s, err := e.backend.NewOdometry(ctx, cfg.Odometry)
		if err != nil {
			return errors.Wrap(err, "cannot create odometry")
		}
		e.sensors[SensorKeyOdom] = s
	}

	e.state = StateSensorsReady
	e.logger.Infow("sensors ready", "active", e.SensorKeys())
	return nil
}

// SetupBridge enables the bridge extension (a no-op when already
// enabled) and applies the publishing graph built from the topics
// document.
func (e *Environment) SetupBridge(ctx context.Context) error {
	if err := e.expectState("setup bridge", StateSensorsReady); err != nil {
		return err
	}

	cfg := e.opts.Bridge
	if cfg == nil {
		path := e.opts.BridgePath
		if path == "" {
			path = config.DefaultBridgePath
		}
		var err error
		cfg, err = config.ReadBridge(filepath.Join(e.opts.Root, path))
		if err != nil {
			return err
		}
	} else if err := cfg.Validate("bridge"); err != nil {
		return err
	}

	exts := e.backend.Extensions()
	if !exts.IsEnabled(BridgeExtensionID) {
		if err := exts.Enable(BridgeExtensionID); err != nil {
			return errors.Wrapf(err, "cannot enable extension %q", BridgeExtensionID)
		}
		e.logger.Infow("bridge extension enabled", "extension", BridgeExtensionID)
	} else {
		e.logger.Debugw("bridge extension already enabled", "extension", BridgeExtensionID)
	}

	spec := bridge.Build(cfg)
	if err := e.backend.Graph().Apply(ctx, spec); err != nil {
		return errors.Wrap(err, "cannot build publishing graph")
	}
	e.graphSpec = &spec
	for _, name := range spec.Skipped {
		e.logger.Warnw("no publisher for enabled topic", "topic", name)
	}

	e.state = StateBridgeReady
	e.logger.Infow("bridge ready", "publishers", spec.PublisherCount())
	return nil
}

// sceneEvent is one scene-load record in the append-only scenes log.
type sceneEvent struct {
	Timestamp      float64 `json:"timestamp"`
	SceneFamily    string  `json:"scene_family"`
	Seed           int64   `json:"seed"`
	FromCache      bool    `json:"from_cache"`
	CacheAvailable bool    `json:"cache_available"`
}

// LoadScene loads (or builds) a scene and appends exactly one record to
// the scenes log, cache hit or not.
func (e *Environment) LoadScene(ctx context.Context, scene Scene, fromCache bool) error {
	if err := e.expectState("load scene", StateBridgeReady, StateSceneLoaded); err != nil {
		return err
	}

	cachePath := filepath.Join(e.opts.Root, data.SceneCacheDir, scene.CacheKey()+".usd")
	_, statErr := os.Stat(cachePath)
	cacheAvailable := statErr == nil

	cachedUSD := ""
	if fromCache && cacheAvailable {
		cachedUSD = cachePath
	}
	if err := e.backend.BuildScene(ctx, scene.Family, scene.Seed, cachedUSD); err != nil {
		return errors.Wrapf(err, "cannot load scene %q", scene.CacheKey())
	}

	if e.sceneLog == nil {
		dir := filepath.Join(e.opts.Root, data.RuntimeDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "cannot create runtime dir")
		}
		w, err := data.NewWriter(filepath.Join(e.opts.Root, data.SceneLogFile))
		if err != nil {
			return err
		}
		e.sceneLog = w
	}
	event := sceneEvent{
		Timestamp:      float64(e.clk.Now().UnixNano()) / 1e9,
		SceneFamily:    scene.Family,
		Seed:           scene.Seed,
		FromCache:      fromCache,
		CacheAvailable: cacheAvailable,
	}
	if err := e.sceneLog.Write(event); err != nil {
		return err
	}
	if err := e.sceneLog.Flush(); err != nil {
		return err
	}

	e.scene = &scene
	e.rng = rand.New(rand.NewSource(scene.Seed)) //nolint:gosec
	e.logger.Infow("scene loaded",
		"family", scene.Family, "seed", scene.Seed,
		"from_cache", fromCache, "cache_available", cacheAvailable)
	return nil
}

// Reset loads the requested scene if one is given, resets physics, draws
// a bounded-random pose for the tracked body and clears sensor buffers.
// It returns the post-reset observation; buffer-clear failures appear in
// its fault list rather than aborting the reset.
func (e *Environment) Reset(ctx context.Context, scene *Scene) (Observation, error) {
	if err := e.expectState("reset", StateBridgeReady, StateSceneLoaded); err != nil {
		return Observation{}, err
	}

	if scene != nil {
		if err := e.LoadScene(ctx, *scene, true); err != nil {
			return Observation{}, err
		}
	} else if e.scene == nil {
		return Observation{}, errors.New("reset: no scene loaded; supply a scene family and seed")
	}

	if err := e.physics.Reset(ctx); err != nil {
		return Observation{}, errors.Wrap(err, "cannot reset physics")
	}

	pose := e.drawSpawnPose()
	if err := e.physics.SetPose(ctx, pose); err != nil {
		return Observation{}, errors.Wrap(err, "cannot set spawn pose")
	}
	e.logger.Debugw("spawn pose randomized",
		"x", pose.Position.X, "y", pose.Position.Y, "z", pose.Position.Z)

	faults := e.clearSensorBuffers(ctx)

	e.state = StateSceneLoaded
	obs := e.assembleObservation(ctx)
	obs.Faults = append(faults, obs.Faults...)
	return obs, nil
}

// drawSpawnPose samples a position uniform in the spawn box and a yaw
// uniform in [-pi, pi).
func (e *Environment) drawSpawnPose() Pose {
	rng := e.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(e.clk.Now().UnixNano())) //nolint:gosec
	}
	yaw := -math.Pi + 2*math.Pi*rng.Float64()
	return Pose{
		Position: r3Vec(
			-spawnXYBound+2*spawnXYBound*rng.Float64(),
			-spawnXYBound+2*spawnXYBound*rng.Float64(),
			spawnZMin+(spawnZMax-spawnZMin)*rng.Float64(),
		),
		Orientation: yawToQuat(yaw),
	}
}

// clearSensorBuffers invokes each sensor's reset hook, or forces a
// zero-duration update for sensors without one. Failures are isolated
// and reported as faults; not every sensor kind supports forced updates.
func (e *Environment) clearSensorBuffers(ctx context.Context) []SensorFault {
	var faults []SensorFault
	for _, key := range sensorOrder {
		s, ok := e.sensors[key]
		if !ok {
			continue
		}
		if r, ok := s.(Resetter); ok {
			if err := r.Reset(ctx); err != nil {
				faults = append(faults, SensorFault{key, "reset", err.Error()})
			}
			continue
		}
		if err := s.Update(ctx, 0); err != nil {
			faults = append(faults, SensorFault{key, "flush", err.Error()})
		}
	}
	return faults
}

// Step advances physics by one timestep, polls every registered sensor
// with the elapsed dt and returns the assembled observation. One broken
// sensor never aborts the step; its failure lands in the fault list.
func (e *Environment) Step(ctx context.Context) (Observation, error) {
	if err := e.expectState("step", StateSceneLoaded); err != nil {
		return Observation{}, err
	}

	if err := e.physics.Step(ctx, true); err != nil {
		return Observation{}, errors.Wrap(err, "physics step failed")
	}
	dt := e.physics.DT()

	var faults []SensorFault
	for _, key := range sensorOrder {
		s, ok := e.sensors[key]
		if !ok {
			continue
		}
		if err := s.Update(ctx, dt); err != nil {
			faults = append(faults, SensorFault{key, "update", err.Error()})
		}
	}

	obs := e.assembleObservation(ctx)
	obs.Faults = append(faults, obs.Faults...)

	if e.obsLogger != nil {
		if err := e.obsLogger.Log(obs); err != nil {
			// logging is opportunistic; a broken logger never fails a step
			e.logger.Debugw("observation logger failed", "error", err)
		}
	}
	return obs, nil
}

// Close shuts the session down best-effort: logger flush, bridge, then
// the application context. Each stage's failure is reported and does not
// block the next stage. Safe to call multiple times and from any state.
func (e *Environment) Close(ctx context.Context) error {
	if e.state == StateClosed {
		return nil
	}
	var errs error

	if e.obsLogger != nil {
		if err := e.obsLogger.Flush(); err != nil {
			e.logger.Warnw("cannot flush observation logger", "error", err)
			errs = multierr.Combine(errs, err)
		}
		if err := e.obsLogger.Close(); err != nil {
			e.logger.Warnw("cannot close observation logger", "error", err)
			errs = multierr.Combine(errs, err)
		}
		e.obsLogger = nil
	}

	if e.sceneLog != nil {
		if err := e.sceneLog.Close(); err != nil {
			e.logger.Warnw("cannot close scene log", "error", err)
			errs = multierr.Combine(errs, err)
		}
		e.sceneLog = nil
	}

	// the bridge extension's lifetime belongs to the host application;
	// no explicit teardown
	e.graphSpec = nil

	if e.app != nil {
		if err := e.app.Close(ctx); err != nil {
			e.logger.Warnw("cannot close simulation app", "error", err)
			errs = multierr.Combine(errs, err)
		}
		e.app = nil
	}

	e.state = StateClosed
	e.logger.Infow("environment closed", "session", e.id.String())
	return errs
}

// now returns the session clock when physics is up, else wall time.
func (e *Environment) now() float64 {
	if e.physics != nil {
		return e.physics.CurrentTime()
	}
	return float64(e.clk.Now().UnixNano()) / 1e9
}
