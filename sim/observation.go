package sim

import (
	"context"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Observation is the per-step sensor snapshot returned to the caller.
// Timestamp is always set; every other field is nil unless the matching
// sensor is registered and its read succeeded this step. A nil field
// means "not configured or no reading", never a zero value.
type Observation struct {
	Timestamp float64

	Depth *DepthFrame

	IMUAccel *r3.Vector
	IMUGyro  *r3.Vector

	OdomPos  *r3.Vector
	OdomVel  *r3.Vector
	OdomQuat *quat.Number

	// Faults records per-sensor read/update failures for this step.
	// A fault never removes another sensor's contribution.
	Faults []SensorFault
}

// SensorFault is one isolated per-sensor failure during a step.
type SensorFault struct {
	Sensor string `json:"sensor"`
	Op     string `json:"op"`
	Error  string `json:"error"`
}

// PresentKeys lists the optional observation keys carrying data, in a
// fixed order.
func (o *Observation) PresentKeys() []string {
	var keys []string
	if o.Depth != nil {
		keys = append(keys, "depth")
	}
	if o.IMUAccel != nil {
		keys = append(keys, "imu_accel")
	}
	if o.IMUGyro != nil {
		keys = append(keys, "imu_gyro")
	}
	if o.OdomPos != nil {
		keys = append(keys, "odom_pos")
	}
	if o.OdomVel != nil {
		keys = append(keys, "odom_vel")
	}
	if o.OdomQuat != nil {
		keys = append(keys, "odom_quat")
	}
	return keys
}

// assembleObservation collects every registered sensor's contribution.
// Each sensor is read independently; failures are recorded as faults and
// never disturb keys already assembled for other sensors.
func (e *Environment) assembleObservation(ctx context.Context) Observation {
	obs := Observation{Timestamp: e.now()}

	if s, ok := e.sensors[SensorKeyDepth]; ok {
		e.collectDepth(ctx, s, &obs)
	}
	if s, ok := e.sensors[SensorKeyIMU]; ok {
		e.collectIMU(ctx, s, &obs)
	}
	if s, ok := e.sensors[SensorKeyOdom]; ok {
		e.collectOdometry(ctx, s, &obs)
	}
	return obs
}

func (e *Environment) collectDepth(ctx context.Context, s Sensor, obs *Observation) {
	src, ok := s.(DepthSource)
	if !ok {
		return
	}
	frame, err := src.DepthFrame(ctx)
	if err != nil {
		obs.Faults = append(obs.Faults, SensorFault{SensorKeyDepth, "read", err.Error()})
		return
	}
	if frame.HasData() {
		obs.Depth = frame
	}
}

func (e *Environment) collectIMU(ctx context.Context, s Sensor, obs *Observation) {
	src, ok := s.(IMUSource)
	if !ok {
		return
	}
	accel, err := src.LinearAcceleration(ctx)
	if err != nil {
		obs.Faults = append(obs.Faults, SensorFault{SensorKeyIMU, "read", err.Error()})
		return
	}
	gyro, err := src.AngularVelocity(ctx)
	if err != nil {
		obs.Faults = append(obs.Faults, SensorFault{SensorKeyIMU, "read", err.Error()})
		return
	}
	obs.IMUAccel = &accel
	obs.IMUGyro = &gyro
}

func (e *Environment) collectOdometry(ctx context.Context, s Sensor, obs *Observation) {
	if src, ok := s.(OdometrySource); ok {
		pos, posErr := src.Position(ctx)
		vel, velErr := src.LinearVelocity(ctx)
		orient, orientErr := src.Orientation(ctx)
		if posErr == nil && velErr == nil && orientErr == nil {
			obs.OdomPos = &pos
			obs.OdomVel = &vel
			obs.OdomQuat = &orient
			return
		}
	}

	// no dedicated reading; derive from the tracked body's state vector
	body := e.backend.Body()
	if body == nil {
		obs.Faults = append(obs.Faults, SensorFault{SensorKeyOdom, "read", "no odometry reading and no tracked body"})
		return
	}
	state, err := body.RootState(ctx)
	if err != nil {
		obs.Faults = append(obs.Faults, SensorFault{SensorKeyOdom, "read", err.Error()})
		return
	}
	obs.OdomPos = &state.Position
	obs.OdomVel = &state.LinearVelocity
	obs.OdomQuat = &state.Orientation
}
