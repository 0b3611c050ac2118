// Package sim owns the lifecycle of one simulation session for the RAPID
// v2 data-collection pipeline. All physics, rendering and message
// publishing is delegated to an external simulator reached through the
// opaque handles below; this package contributes the session state
// machine, sensor registry, bridge wiring and observation assembly.
package sim

import (
	"context"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/rapid-robotics/rapidsim/bridge"
	"github.com/rapid-robotics/rapidsim/config"
)

// AppConfig configures the simulator application context.
type AppConfig struct {
	Headless bool
	Width    int
	Height   int
}

// PhysicsConfig configures the physics/render stepping of a session.
type PhysicsConfig struct {
	DT             float64
	RenderInterval int
	Gravity        [3]float64
	Device         string
}

// App is the simulator application context handle.
type App interface {
	Close(ctx context.Context) error
}

// Pose is a rigid-body pose; orientation is a scalar-first quaternion.
type Pose struct {
	Position    r3.Vector
	Orientation quat.Number
}

// BodyState is the full state vector of the tracked rigid body.
type BodyState struct {
	Position       r3.Vector
	Orientation    quat.Number
	LinearVelocity r3.Vector
}

// Physics is the simulator's physics context handle.
type Physics interface {
	// Reset restores the physics state for a freshly loaded scene.
	Reset(ctx context.Context) error
	// Step advances physics by one configured timestep, rendering when
	// asked.
	Step(ctx context.Context, render bool) error
	// DT reports the physics timestep actually in effect.
	DT() float64
	// CurrentTime reports the session clock in seconds.
	CurrentTime() float64
	// SetPose teleports the tracked body.
	SetPose(ctx context.Context, pose Pose) error
}

// Sensor is a registered sensor handle. Update is polled once per step
// with the elapsed physics dt.
type Sensor interface {
	Update(ctx context.Context, dt float64) error
}

// Resetter is implemented by sensors with an explicit buffer-reset hook.
// Sensors without one get a zero-duration update instead.
type Resetter interface {
	Reset(ctx context.Context) error
}

// DepthSource is a sensor that yields 2-D distance fields.
type DepthSource interface {
	DepthFrame(ctx context.Context) (*DepthFrame, error)
}

// IMUSource is a sensor that yields body-frame acceleration and angular
// velocity.
type IMUSource interface {
	LinearAcceleration(ctx context.Context) (r3.Vector, error)
	AngularVelocity(ctx context.Context) (r3.Vector, error)
}

// OdometrySource is a sensor that yields the tracked body's pose and
// velocity in the configured reference frame.
type OdometrySource interface {
	Position(ctx context.Context) (r3.Vector, error)
	LinearVelocity(ctx context.Context) (r3.Vector, error)
	Orientation(ctx context.Context) (quat.Number, error)
}

// TrackedBody exposes the body's full state vector; the odometry read
// path falls back to it when the dedicated source has no reading.
type TrackedBody interface {
	RootState(ctx context.Context) (BodyState, error)
}

// ExtensionManager manages simulator extensions. Enable must be
// idempotent.
type ExtensionManager interface {
	IsEnabled(id string) bool
	Enable(id string) error
}

// GraphController applies a declarative publishing graph.
type GraphController interface {
	Apply(ctx context.Context, spec bridge.GraphSpec) error
}

// Backend constructs all simulator handles for a session. The production
// backend binds to the actual simulator process; sim/fake provides a
// deterministic in-process one.
type Backend interface {
	NewApp(ctx context.Context, cfg AppConfig) (App, error)
	NewPhysics(ctx context.Context, cfg PhysicsConfig) (Physics, error)

	NewDepthCamera(ctx context.Context, cfg config.DepthCameraConfig) (Sensor, error)
	NewIMU(ctx context.Context, cfg config.IMUConfig) (Sensor, error)
	NewOdometry(ctx context.Context, cfg config.OdometryConfig) (Sensor, error)

	// Body returns the tracked rigid body, or nil when none is spawned.
	Body() TrackedBody

	Extensions() ExtensionManager
	Graph() GraphController

	// BuildScene populates the stage for a scene family and seed.
	// cachedUSD is the path of a cached scene artifact to import, or
	// empty to build the basic scene.
	BuildScene(ctx context.Context, family string, seed int64, cachedUSD string) error
}

// BridgeExtensionID is the simulator extension providing ROS 2
// publishing.
const BridgeExtensionID = "isaacsim.ros2.bridge"

// Stable registry keys for the fixed sensor suite.
const (
	SensorKeyDepth = "depth"
	SensorKeyIMU   = "imu"
	SensorKeyOdom  = "odom"
)
