// Package bridge builds the declarative publishing graph handed to the
// simulator's ROS 2 bridge extension. The builder is pure: given a bridge
// topic configuration it produces an order-stable node/connection spec
// that the session applies through its graph controller.
package bridge

import (
	"github.com/rapid-robotics/rapidsim/config"
)

// Simulator-defined node type identifiers. These strings are the bridge
// extension's contract; this code does not interpret them.
const (
	NodeTypeOnPlaybackTick = "omni.graph.action.OnPlaybackTick"
	NodeTypePublishImage   = "isaacsim.ros2.bridge.ROS2PublishImage"
	NodeTypePublishCamInfo = "isaacsim.ros2.bridge.ROS2PublishCameraInfo"
	NodeTypePublishIMU     = "isaacsim.ros2.bridge.ROS2PublishImu"
	NodeTypePublishOdom    = "isaacsim.ros2.bridge.ROS2PublishOdometry"
	NodeTypePublishClock   = "isaacsim.ros2.bridge.ROS2PublishClock"
	NodeTypePublishTF      = "isaacsim.ros2.bridge.ROS2PublishTransformTree"
)

// Well-known topic names the builder knows how to bind.
const (
	TopicDepth      = "/camera/depth"
	TopicCameraInfo = "/camera/depth/camera_info"
	TopicIMU        = "/imu/data"
	TopicOdom       = "/odom"
	TopicClock      = "/clock"
	TopicTF         = "/tf"
)

// DefaultGraphPath is where the publishing graph lives on the simulator's
// stage.
const DefaultGraphPath = "/World/ROS2_Bridge"

// Node is one node to create, named within the graph.
type Node struct {
	Name string
	Type string
}

// Value is one attribute to set after node creation.
type Value struct {
	Attr  string
	Value string
}

// Connection wires one node output to another node's input.
type Connection struct {
	From string
	To   string
}

// GraphSpec is the complete declarative description of the publishing
// graph. It is consumed once by the session's graph controller.
type GraphSpec struct {
	Path      string
	Evaluator string

	Nodes       []Node
	Values      []Value
	Connections []Connection

	// Skipped lists enabled publish topics the builder has no publisher
	// node for. They are reported, not errors.
	Skipped []string
}

// publisherBinding maps a known topic to its publisher node. The slice
// fixes the node ordering: same input topic set, same topology.
type publisherBinding struct {
	topic    string
	nodeName string
	nodeType string
	// extraValues are attributes beyond the topic name.
	extraValues []Value
}

var bindings = []publisherBinding{
	{TopicDepth, "PublishDepth", NodeTypePublishImage, []Value{{"PublishDepth.inputs:type", "depth"}}},
	{TopicCameraInfo, "PublishCameraInfo", NodeTypePublishCamInfo, nil},
	{TopicIMU, "PublishIMU", NodeTypePublishIMU, nil},
	{TopicOdom, "PublishOdom", NodeTypePublishOdom, nil},
	{TopicClock, "PublishClock", NodeTypePublishClock, nil},
}

// Build translates the bridge configuration into a graph spec: one
// trigger node, one publisher node per enabled publish topic, each wired
// from the trigger's tick output, plus a /tf publisher when the TF flag
// is set. The result depends only on the configuration.
func Build(cfg *config.BridgeConfig) GraphSpec {
	spec := GraphSpec{
		Path:      DefaultGraphPath,
		Evaluator: "push",
		Nodes:     []Node{{"OnPlaybackTick", NodeTypeOnPlaybackTick}},
	}

	enabled := make(map[string]bool)
	for _, name := range cfg.EnabledPublishTopics() {
		enabled[name] = true
	}

	for _, b := range bindings {
		if !enabled[b.topic] {
			continue
		}
		delete(enabled, b.topic)
		spec.Nodes = append(spec.Nodes, Node{b.nodeName, b.nodeType})
		spec.Values = append(spec.Values, Value{b.nodeName + ".inputs:topicName", b.topic})
		spec.Values = append(spec.Values, b.extraValues...)
		spec.Connections = append(spec.Connections,
			Connection{"OnPlaybackTick.outputs:tick", b.nodeName + ".inputs:execIn"})
	}

	// report unknown-but-enabled topics in document order
	for _, name := range cfg.EnabledPublishTopics() {
		if enabled[name] {
			spec.Skipped = append(spec.Skipped, name)
		}
	}

	if cfg.TFEnabled() {
		spec.Nodes = append(spec.Nodes, Node{"PublishTF", NodeTypePublishTF})
		spec.Values = append(spec.Values, Value{"PublishTF.inputs:topicName", TopicTF})
		spec.Connections = append(spec.Connections,
			Connection{"OnPlaybackTick.outputs:tick", "PublishTF.inputs:execIn"})
	}

	return spec
}

// PublisherCount returns how many publisher nodes the spec contains (the
// trigger node excluded).
func (s *GraphSpec) PublisherCount() int {
	return len(s.Nodes) - 1
}
