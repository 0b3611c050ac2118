package bridge

import (
	"testing"

	"go.viam.com/test"

	"github.com/rapid-robotics/rapidsim/config"
)

func boolPtr(b bool) *bool { return &b }

func TestBuildDepthOnly(t *testing.T) {
	cfg := &config.BridgeConfig{
		Topics: []config.TopicConfig{
			{Name: TopicDepth, Direction: config.DirectionPublish, Enabled: boolPtr(true)},
			{Name: TopicOdom, Direction: config.DirectionPublish, Enabled: boolPtr(false)},
		},
		TF: config.TFConfig{Enabled: boolPtr(false)},
	}
	spec := Build(cfg)

	test.That(t, spec.Nodes, test.ShouldHaveLength, 2)
	test.That(t, spec.Nodes[0], test.ShouldResemble, Node{"OnPlaybackTick", NodeTypeOnPlaybackTick})
	test.That(t, spec.Nodes[1], test.ShouldResemble, Node{"PublishDepth", NodeTypePublishImage})
	test.That(t, spec.PublisherCount(), test.ShouldEqual, 1)

	test.That(t, spec.Values, test.ShouldResemble, []Value{
		{"PublishDepth.inputs:topicName", TopicDepth},
		{"PublishDepth.inputs:type", "depth"},
	})
	test.That(t, spec.Connections, test.ShouldResemble, []Connection{
		{"OnPlaybackTick.outputs:tick", "PublishDepth.inputs:execIn"},
	})
}

func TestBuildAllTopics(t *testing.T) {
	cfg := &config.BridgeConfig{
		Topics: []config.TopicConfig{
			// intentionally out of builder order; output order must not
			// depend on document order
			{Name: TopicClock, Direction: config.DirectionPublish},
			{Name: TopicOdom, Direction: config.DirectionPublish},
			{Name: TopicIMU, Direction: config.DirectionPublish},
			{Name: TopicCameraInfo, Direction: config.DirectionPublish},
			{Name: TopicDepth, Direction: config.DirectionPublish},
		},
	}
	spec := Build(cfg)

	var names []string
	for _, n := range spec.Nodes {
		names = append(names, n.Name)
	}
	test.That(t, names, test.ShouldResemble, []string{
		"OnPlaybackTick", "PublishDepth", "PublishCameraInfo", "PublishIMU",
		"PublishOdom", "PublishClock", "PublishTF",
	})

	// order-stable: building twice yields the identical topology
	again := Build(cfg)
	test.That(t, again, test.ShouldResemble, spec)
}

func TestBuildTFIndependentOfTopics(t *testing.T) {
	cfg := &config.BridgeConfig{}
	spec := Build(cfg)
	test.That(t, spec.Nodes, test.ShouldHaveLength, 2)
	test.That(t, spec.Nodes[1].Type, test.ShouldEqual, NodeTypePublishTF)

	cfg = &config.BridgeConfig{TF: config.TFConfig{Enabled: boolPtr(false)}}
	spec = Build(cfg)
	test.That(t, spec.Nodes, test.ShouldHaveLength, 1)
	test.That(t, spec.PublisherCount(), test.ShouldEqual, 0)
}

func TestBuildSkipsUnknownTopics(t *testing.T) {
	cfg := &config.BridgeConfig{
		Topics: []config.TopicConfig{
			{Name: "/camera/rgb", Direction: config.DirectionPublish},
			{Name: TopicIMU, Direction: config.DirectionPublish},
		},
		TF: config.TFConfig{Enabled: boolPtr(false)},
	}
	spec := Build(cfg)
	test.That(t, spec.Skipped, test.ShouldResemble, []string{"/camera/rgb"})
	test.That(t, spec.Nodes, test.ShouldHaveLength, 2)
	test.That(t, spec.Nodes[1].Name, test.ShouldEqual, "PublishIMU")
}

func TestBuildIgnoresSubscribeTopics(t *testing.T) {
	cfg := &config.BridgeConfig{
		Topics: []config.TopicConfig{
			{Name: TopicDepth, Direction: config.DirectionSubscribe},
		},
		TF: config.TFConfig{Enabled: boolPtr(false)},
	}
	spec := Build(cfg)
	test.That(t, spec.PublisherCount(), test.ShouldEqual, 0)
	test.That(t, spec.Skipped, test.ShouldBeEmpty)
}
