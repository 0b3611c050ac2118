package sim

import (
	"github.com/rapid-robotics/rapidsim/data"
)

// ObservationLogger receives each step's observation when attached to an
// environment. Implementations must tolerate being closed twice; errors
// they return are reported and dropped, never propagated out of Step.
type ObservationLogger interface {
	Log(obs Observation) error
	Flush() error
	Close() error
}

// stepRecord is the JSONL summary of one step: which sensors reported,
// and what faulted. Raw sensor payloads go to the capture tree, not this
// log.
type stepRecord struct {
	Timestamp float64       `json:"timestamp"`
	Keys      []string      `json:"keys"`
	Faults    []SensorFault `json:"faults,omitempty"`
}

// JSONLObservationLogger appends one summary line per step.
type JSONLObservationLogger struct {
	w *data.Writer
}

// NewJSONLObservationLogger opens an append-only step log at path.
func NewJSONLObservationLogger(path string) (*JSONLObservationLogger, error) {
	w, err := data.NewWriter(path)
	if err != nil {
		return nil, err
	}
	return &JSONLObservationLogger{w: w}, nil
}

// Log appends the observation's summary record.
func (l *JSONLObservationLogger) Log(obs Observation) error {
	return l.w.Write(stepRecord{
		Timestamp: obs.Timestamp,
		Keys:      obs.PresentKeys(),
		Faults:    obs.Faults,
	})
}

// Flush forces buffered records to disk.
func (l *JSONLObservationLogger) Flush() error { return l.w.Flush() }

// Close flushes and closes the underlying log.
func (l *JSONLObservationLogger) Close() error { return l.w.Close() }
