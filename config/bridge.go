package config

import (
	"fmt"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// TopicDirection says whether a topic is published by the simulator or
// subscribed to from the outside.
type TopicDirection string

// The two directions a topic descriptor may declare.
const (
	DirectionPublish   = TopicDirection("publish")
	DirectionSubscribe = TopicDirection("subscribe")
)

// BridgeConfig is the ordered topic list consumed once to build the
// publishing graph, plus the independent TF-publishing flag.
type BridgeConfig struct {
	Topics []TopicConfig `yaml:"topics"`
	TF     TFConfig      `yaml:"tf"`
}

// TopicConfig describes one topic on the external transport.
type TopicConfig struct {
	Name      string         `yaml:"name"`
	Direction TopicDirection `yaml:"direction"`
	Enabled   *bool          `yaml:"enabled"`
}

// TFConfig controls transform-tree publishing, independent of the topic
// list.
type TFConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// TFEnabled reports whether the /tf publisher should be created. Defaults
// to enabled when the block is absent.
func (config *BridgeConfig) TFEnabled() bool { return boolOrDefault(config.TF.Enabled, true) }

// EnabledPublishTopics returns, in document order, the names of topics
// that are both enabled and published by the simulator.
func (config *BridgeConfig) EnabledPublishTopics() []string {
	var names []string
	for _, t := range config.Topics {
		if t.Direction == DirectionPublish && boolOrDefault(t.Enabled, true) {
			names = append(names, t.Name)
		}
	}
	return names
}

// Validate ensures all parts of the config are valid.
func (config *BridgeConfig) Validate(path string) error {
	seen := make(map[string]struct{}, len(config.Topics))
	for idx, t := range config.Topics {
		if err := t.Validate(fmtTopicPath(path, idx)); err != nil {
			return err
		}
		if _, ok := seen[t.Name]; ok {
			return utils.NewConfigValidationError(fmtTopicPath(path, idx),
				errors.Errorf("duplicate topic %q", t.Name))
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (config *TopicConfig) Validate(path string) error {
	if config.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	switch config.Direction {
	case DirectionPublish, DirectionSubscribe:
	case "":
		config.Direction = DirectionPublish
	default:
		return utils.NewConfigValidationError(path,
			errors.Errorf("unknown direction %q", config.Direction))
	}
	return nil
}

func fmtTopicPath(path string, idx int) string {
	return fmt.Sprintf("%s.topics.%d", path, idx)
}
