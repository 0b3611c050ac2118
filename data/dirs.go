package data

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Well-known locations within the data tree.
const (
	RuntimeDir    = "data/raw/runtime"
	SceneCacheDir = "data/raw/scenes/cache"
	SceneLogFile  = "data/raw/runtime/scenes.jsonl"
)

// RequiredDirs returns the directory tree a collection run expects,
// relative to the project root.
func RequiredDirs() []string {
	return []string{
		"data/raw/runtime",
		"data/raw/runtime/sensors",
		"data/raw/runtime/sensors/depth",
		"data/raw/runtime/sensors/imu",
		"data/raw/runtime/sensors/odom",
		"data/raw/scenes",
		"data/raw/scenes/cache",
		"data/dataset/shards",
	}
}

// EnsureDirs creates any missing required directories under root.
// Creation is idempotent.
func EnsureDirs(root string) error {
	for _, dir := range RequiredDirs() {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return errors.Wrapf(err, "cannot create %q", dir)
		}
	}
	return nil
}
