// Package fake is a deterministic in-process simulator backend for
// testing and smoke runs. It produces synthetic sensor readings and
// performs no physics beyond advancing a clock.
package fake

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/rapid-robotics/rapidsim/bridge"
	"github.com/rapid-robotics/rapidsim/config"
	"github.com/rapid-robotics/rapidsim/sim"
)

// Backend implements sim.Backend. The handles it produces are exported
// so tests can inspect them and inject failures.
type Backend struct {
	Logger golog.Logger

	App         *App
	Physics     *Physics
	Exts        *ExtensionManager
	GraphCtrl   *GraphController
	TrackedBody *Body

	Depth *DepthCamera
	IMU   *IMU
	Odom  *Odometry

	// SceneBuilds records every BuildScene call.
	SceneBuilds []SceneBuild
	// SceneErr makes BuildScene fail.
	SceneErr error
	// PhysicsErr makes NewPhysics fail.
	PhysicsErr error
}

// SceneBuild is one recorded BuildScene invocation.
type SceneBuild struct {
	Family    string
	Seed      int64
	CachedUSD string
}

// NewBackend returns a backend with fresh extension and graph state.
func NewBackend(logger golog.Logger) *Backend {
	b := &Backend{
		Logger:    logger,
		Exts:      &ExtensionManager{enabled: map[string]bool{}},
		GraphCtrl: &GraphController{},
	}
	b.TrackedBody = &Body{}
	return b
}

// NewApp implements sim.Backend.
func (b *Backend) NewApp(ctx context.Context, cfg sim.AppConfig) (sim.App, error) {
	b.App = &App{Config: cfg}
	return b.App, nil
}

// NewPhysics implements sim.Backend.
func (b *Backend) NewPhysics(ctx context.Context, cfg sim.PhysicsConfig) (sim.Physics, error) {
	if b.PhysicsErr != nil {
		return nil, b.PhysicsErr
	}
	b.Physics = &Physics{Config: cfg, body: b.TrackedBody}
	return b.Physics, nil
}

// NewDepthCamera implements sim.Backend.
func (b *Backend) NewDepthCamera(ctx context.Context, cfg config.DepthCameraConfig) (sim.Sensor, error) {
	b.Depth = &DepthCamera{Config: cfg}
	return b.Depth, nil
}

// NewIMU implements sim.Backend.
func (b *Backend) NewIMU(ctx context.Context, cfg config.IMUConfig) (sim.Sensor, error) {
	b.IMU = &IMU{Config: cfg}
	return b.IMU, nil
}

// NewOdometry implements sim.Backend.
func (b *Backend) NewOdometry(ctx context.Context, cfg config.OdometryConfig) (sim.Sensor, error) {
	b.Odom = &Odometry{Config: cfg, body: b.TrackedBody}
	return b.Odom, nil
}

// Body implements sim.Backend.
func (b *Backend) Body() sim.TrackedBody { return b.TrackedBody }

// Extensions implements sim.Backend.
func (b *Backend) Extensions() sim.ExtensionManager { return b.Exts }

// Graph implements sim.Backend.
func (b *Backend) Graph() sim.GraphController { return b.GraphCtrl }

// BuildScene implements sim.Backend.
func (b *Backend) BuildScene(ctx context.Context, family string, seed int64, cachedUSD string) error {
	if b.SceneErr != nil {
		return b.SceneErr
	}
	b.SceneBuilds = append(b.SceneBuilds, SceneBuild{family, seed, cachedUSD})
	return nil
}

// App is a fake application context.
type App struct {
	Config   sim.AppConfig
	Closed   bool
	CloseErr error
}

// Close implements sim.App.
func (a *App) Close(ctx context.Context) error {
	a.Closed = true
	return a.CloseErr
}

// Physics is a fake physics context: stepping only advances a clock.
type Physics struct {
	Config sim.PhysicsConfig

	Steps   int
	Resets  int
	time    float64
	body    *Body
	StepErr error
}

// Reset implements sim.Physics.
func (p *Physics) Reset(ctx context.Context) error {
	p.Resets++
	p.time = 0
	return nil
}

// Step implements sim.Physics.
func (p *Physics) Step(ctx context.Context, render bool) error {
	if p.StepErr != nil {
		return p.StepErr
	}
	p.Steps++
	p.time += p.Config.DT
	return nil
}

// DT implements sim.Physics.
func (p *Physics) DT() float64 { return p.Config.DT }

// CurrentTime implements sim.Physics.
func (p *Physics) CurrentTime() float64 { return p.time }

// SetPose implements sim.Physics.
func (p *Physics) SetPose(ctx context.Context, pose sim.Pose) error {
	p.body.State = sim.BodyState{
		Position:    pose.Position,
		Orientation: pose.Orientation,
	}
	return nil
}

// Body is the fake tracked rigid body.
type Body struct {
	State    sim.BodyState
	StateErr error
}

// RootState implements sim.TrackedBody.
func (b *Body) RootState(ctx context.Context) (sim.BodyState, error) {
	if b.StateErr != nil {
		return sim.BodyState{}, b.StateErr
	}
	return b.State, nil
}

// ExtensionManager is a fake extension registry.
type ExtensionManager struct {
	enabled     map[string]bool
	EnableCalls int
}

// IsEnabled implements sim.ExtensionManager.
func (m *ExtensionManager) IsEnabled(id string) bool { return m.enabled[id] }

// Enable implements sim.ExtensionManager.
func (m *ExtensionManager) Enable(id string) error {
	m.EnableCalls++
	m.enabled[id] = true
	return nil
}

// GraphController records applied graph specs.
type GraphController struct {
	Applied  []bridge.GraphSpec
	ApplyErr error
}

// Apply implements sim.GraphController.
func (g *GraphController) Apply(ctx context.Context, spec bridge.GraphSpec) error {
	if g.ApplyErr != nil {
		return g.ApplyErr
	}
	g.Applied = append(g.Applied, spec)
	return nil
}

// DepthCamera yields a deterministic gradient frame once updated.
type DepthCamera struct {
	Config config.DepthCameraConfig

	Updates   int
	UpdateErr error
	ReadErr   error
	frame     *sim.DepthFrame
}

// Update implements sim.Sensor.
func (c *DepthCamera) Update(ctx context.Context, dt float64) error {
	if c.UpdateErr != nil {
		return c.UpdateErr
	}
	c.Updates++
	if c.frame == nil {
		frame, err := sim.NewDepthFrame(c.Config.Resolution.Width, c.Config.Resolution.Height)
		if err != nil {
			return err
		}
		c.frame = frame
	}
	span := c.Config.MaxDepthM - c.Config.MinDepthM
	for y := 0; y < c.frame.Height(); y++ {
		d := c.Config.MinDepthM + span*float64(y)/float64(c.frame.Height())
		for x := 0; x < c.frame.Width(); x++ {
			c.frame.Set(x, y, float32(d))
		}
	}
	return nil
}

// Reset implements sim.Resetter by discarding the buffered frame.
func (c *DepthCamera) Reset(ctx context.Context) error {
	c.frame = nil
	return nil
}

// DepthFrame implements sim.DepthSource. A camera that has not produced
// data yet returns no frame and no error.
func (c *DepthCamera) DepthFrame(ctx context.Context) (*sim.DepthFrame, error) {
	if c.ReadErr != nil {
		return nil, c.ReadErr
	}
	return c.frame, nil
}

// IMU yields a constant gravity reading and zero angular velocity.
type IMU struct {
	Config config.IMUConfig

	Updates   int
	UpdateErr error
	ReadErr   error
}

// Update implements sim.Sensor. The fake IMU has no reset hook, so the
// session flushes it with a zero-duration update.
func (i *IMU) Update(ctx context.Context, dt float64) error {
	if i.UpdateErr != nil {
		return i.UpdateErr
	}
	i.Updates++
	return nil
}

// LinearAcceleration implements sim.IMUSource.
func (i *IMU) LinearAcceleration(ctx context.Context) (r3.Vector, error) {
	if i.ReadErr != nil {
		return r3.Vector{}, i.ReadErr
	}
	return r3.Vector{Z: -9.81}, nil
}

// AngularVelocity implements sim.IMUSource.
func (i *IMU) AngularVelocity(ctx context.Context) (r3.Vector, error) {
	if i.ReadErr != nil {
		return r3.Vector{}, i.ReadErr
	}
	return r3.Vector{}, nil
}

// Odometry reads the tracked body's ground-truth state.
type Odometry struct {
	Config config.OdometryConfig

	Updates int
	// NoReading makes the dedicated reads fail so the session exercises
	// its tracked-body fallback.
	NoReading bool
	body      *Body
}

// Update implements sim.Sensor.
func (o *Odometry) Update(ctx context.Context, dt float64) error {
	o.Updates++
	return nil
}

// Reset implements sim.Resetter.
func (o *Odometry) Reset(ctx context.Context) error { return nil }

var errNoOdomReading = errors.New("no odometry reading available")

// Position implements sim.OdometrySource.
func (o *Odometry) Position(ctx context.Context) (r3.Vector, error) {
	if o.NoReading {
		return r3.Vector{}, errNoOdomReading
	}
	return o.body.State.Position, nil
}

// LinearVelocity implements sim.OdometrySource.
func (o *Odometry) LinearVelocity(ctx context.Context) (r3.Vector, error) {
	if o.NoReading {
		return r3.Vector{}, errNoOdomReading
	}
	return o.body.State.LinearVelocity, nil
}

// Orientation implements sim.OdometrySource.
func (o *Odometry) Orientation(ctx context.Context) (quat.Number, error) {
	if o.NoReading {
		return quat.Number{}, errNoOdomReading
	}
	return o.body.State.Orientation, nil
}
