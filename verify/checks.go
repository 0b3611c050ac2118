package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/rapid-robotics/rapidsim/config"
	"github.com/rapid-robotics/rapidsim/data"
)

// Version expectations for the toolchain and the external collaborators.
const (
	MinGoVersion        = "1.21.0"
	SimulatorConstraint = "~5.0.0"
	SimulatorMajorMinor = "5.x"
)

// Probe timeouts. The smoke launch gets longer because a first run may
// download assets.
const (
	probeTimeout       = 10 * time.Second
	smokeLaunchTimeout = 30 * time.Second
)

// Options configures a check suite.
type Options struct {
	// Root is the project root for filesystem checks.
	Root string
	// FixDirs makes the directory check create what is missing.
	FixDirs bool

	// Command runs external probes; defaults to ExecCommander.
	Command Commander
	// Getenv reads environment variables; defaults to os.Getenv.
	Getenv func(string) string
	// GoVersion is the runtime version string; defaults to
	// runtime.Version().
	GoVersion string
}

func (o *Options) fillDefaults() {
	if o.Root == "" {
		o.Root = "."
	}
	if o.Command == nil {
		o.Command = ExecCommander
	}
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
	if o.GoVersion == "" {
		o.GoVersion = runtime.Version()
	}
}

// Checks returns the full prerequisite suite in its fixed order.
func Checks(opts Options) []Check {
	opts.fillDefaults()
	return []Check{
		{"Go Runtime", checkGoRuntime(opts)},
		{"Simulator Installation", checkSimulator(opts)},
		{"GPU Driver", checkGPUDriver(opts)},
		{"ROS 2 Installation", checkROS2(opts)},
		{"ROS 2 Environment", checkROS2Env(opts)},
		{"Directory Structure", checkDirectories(opts)},
		{"Configuration Files", checkConfigFiles(opts)},
		{"Simulator Launch", checkSmokeLaunch(opts)},
	}
}

func checkGoRuntime(opts Options) func(ctx context.Context) Result {
	return func(ctx context.Context) Result {
		raw := strings.TrimPrefix(opts.GoVersion, "go")
		ver, err := semver.NewVersion(raw)
		if err != nil {
			return warn(fmt.Sprintf("unparseable go version %q", opts.GoVersion), "")
		}
		minVer := semver.MustParse(MinGoVersion)
		if ver.LessThan(minVer) {
			return fail(fmt.Sprintf("go %s too old", ver),
				fmt.Sprintf("install go >= %s", MinGoVersion))
		}
		return pass("go %s", ver)
	}
}

func checkSimulator(opts Options) func(ctx context.Context) Result {
	return func(ctx context.Context) Result {
		out, err := opts.Command(ctx, probeTimeout, "pip", "show", "isaacsim")
		if err != nil {
			return fail("isaacsim package not installed",
				`pip install "isaacsim[all,extscache]==5.0.0" --extra-index-url https://pypi.nvidia.com`)
		}
		version := ""
		for _, line := range strings.Split(out, "\n") {
			if strings.HasPrefix(line, "Version:") {
				version = strings.TrimSpace(strings.TrimPrefix(line, "Version:"))
				break
			}
		}
		if version == "" {
			return fail("isaacsim installed but version not reported", "reinstall isaacsim")
		}
		ver, err := semver.NewVersion(version)
		if err != nil {
			return warn(fmt.Sprintf("isaacsim version %q unparseable", version), "")
		}
		constraint := semver.MustParse("5.0.0")
		if ver.Major() != constraint.Major() {
			return fail(fmt.Sprintf("isaacsim %s (expected %s)", ver, SimulatorMajorMinor),
				"install isaacsim 5.0.0")
		}
		if ver.Minor() != constraint.Minor() {
			return warn(fmt.Sprintf("isaacsim %s (expected %s)", ver, SimulatorConstraint),
				"5.0.x is the validated series")
		}
		return pass("isaacsim %s", ver)
	}
}

func checkGPUDriver(opts Options) func(ctx context.Context) Result {
	return func(ctx context.Context) Result {
		out, err := opts.Command(ctx, probeTimeout,
			"nvidia-smi", "--query-gpu=driver_version", "--format=csv,noheader")
		if err != nil {
			return fail("no NVIDIA driver detected",
				"install the NVIDIA driver and CUDA 12.x")
		}
		driver := strings.TrimSpace(strings.Split(out, "\n")[0])
		if driver == "" {
			return fail("nvidia-smi reported no driver version", "reinstall the NVIDIA driver")
		}
		return pass("driver %s", driver)
	}
}

func checkROS2(opts Options) func(ctx context.Context) Result {
	return func(ctx context.Context) Result {
		out, err := opts.Command(ctx, probeTimeout, "ros2", "--version")
		if err != nil {
			return fail("ros2 command not found",
				"install ROS 2 Jazzy and source /opt/ros/jazzy/setup.bash")
		}
		version := strings.TrimSpace(out)
		lower := strings.ToLower(version)
		switch {
		case strings.Contains(lower, "jazzy"):
			return pass("%s", version)
		case strings.Contains(lower, "humble"):
			return warn(fmt.Sprintf("%s (expected jazzy)", version),
				"consider upgrading to ROS 2 Jazzy")
		default:
			return warn(fmt.Sprintf("%s (expected jazzy)", version), "")
		}
	}
}

// checkROS2Env verifies the middleware environment is sourced. This is
// independent of the ros2 binary existing: a present binary with an
// unsourced shell still breaks DDS discovery.
func checkROS2Env(opts Options) func(ctx context.Context) Result {
	return func(ctx context.Context) Result {
		distro := opts.Getenv("ROS_DISTRO")
		if distro == "" {
			return fail("ROS environment not sourced (ROS_DISTRO unset)",
				"source /opt/ros/jazzy/setup.bash")
		}
		return pass("ROS_DISTRO=%s", distro)
	}
}

func checkDirectories(opts Options) func(ctx context.Context) Result {
	return func(ctx context.Context) Result {
		var missing []string
		for _, dir := range data.RequiredDirs() {
			if _, err := os.Stat(filepath.Join(opts.Root, dir)); err != nil {
				missing = append(missing, dir)
			}
		}
		if len(missing) == 0 {
			return pass("all %d directories present", len(data.RequiredDirs()))
		}
		if opts.FixDirs {
			if err := data.EnsureDirs(opts.Root); err != nil {
				return fail(errors.Wrap(err, "cannot create directories").Error(), "")
			}
			return pass("created %d missing directories", len(missing))
		}
		return fail(fmt.Sprintf("missing directories: %s", strings.Join(missing, ", ")),
			"rerun with --fix-dirs")
	}
}

func checkConfigFiles(opts Options) func(ctx context.Context) Result {
	required := []string{
		config.DefaultEnvironmentPath,
		config.DefaultSensorsPath,
		"config/env/scenes_config.yaml",
		config.DefaultBridgePath,
	}
	return func(ctx context.Context) Result {
		var missing []string
		for _, path := range required {
			if _, err := os.Stat(filepath.Join(opts.Root, path)); err != nil {
				missing = append(missing, path)
			}
		}
		if len(missing) > 0 {
			return fail(fmt.Sprintf("missing configs: %s", strings.Join(missing, ", ")),
				"restore the configuration files from version control")
		}
		return pass("all %d configs present", len(required))
	}
}

func checkSmokeLaunch(opts Options) func(ctx context.Context) Result {
	return func(ctx context.Context) Result {
		_, err := opts.Command(ctx, smokeLaunchTimeout, "isaacsim", "--help")
		switch {
		case err == nil:
			return pass("simulator launch command works")
		case errors.Is(err, context.DeadlineExceeded):
			// a first launch may spend minutes fetching extensions
			return warn("simulator launch timed out (may be downloading assets)", "")
		default:
			return fail("simulator launch failed",
				"activate the simulator environment before running")
		}
	}
}
