// Package companion manages the ROS 2 companion container that sits on
// the other side of the bridge during a smoke run. It owns the docker
// lifecycle of the container and can confirm the bridge topics are
// visible from inside it.
package companion

import (
	"context"
	"strings"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
	"go.viam.com/utils/pexec"

	"github.com/rapid-robotics/rapidsim/bridge"
	"github.com/rapid-robotics/rapidsim/verify"
)

// Defaults for container lifecycle handling.
const (
	DefaultImage = "rapid-ros2-companion:jazzy"
	DefaultName  = "rapid_companion"

	dockerProbeTimeout = 10 * time.Second
	startupTimeout     = 60 * time.Second
	stopTimeout        = 30 * time.Second

	// topicSettleDelay gives DDS discovery time to converge before the
	// first topic poll.
	topicSettleDelay = 2 * time.Second
	topicPollRetries = 3
	topicPollBackoff = time.Second
)

// Config describes the companion container to run.
type Config struct {
	// Image is the container image; defaults to DefaultImage.
	Image string
	// Name is the container name used for exec and stop; defaults to
	// DefaultName.
	Name string
	// RequiredTopics must be visible inside the container for
	// VerifyTopics to succeed. Defaults to the always-on bridge topics.
	RequiredTopics []string
}

func (c *Config) fillDefaults() {
	if c.Image == "" {
		c.Image = DefaultImage
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	if len(c.RequiredTopics) == 0 {
		c.RequiredTopics = []string{
			bridge.TopicDepth,
			bridge.TopicIMU,
			bridge.TopicOdom,
			bridge.TopicClock,
		}
	}
}

// Manager runs and supervises one companion container.
type Manager struct {
	cfg     Config
	logger  golog.Logger
	pm      pexec.ProcessManager
	command verify.Commander

	settleDelay time.Duration
	pollBackoff time.Duration

	started bool
}

// NewManager returns a manager for the given container config.
func NewManager(cfg Config, logger golog.Logger) *Manager {
	cfg.fillDefaults()
	return &Manager{
		cfg:         cfg,
		logger:      logger,
		pm:          pexec.NewProcessManager(logger),
		command:     verify.ExecCommander,
		settleDelay: topicSettleDelay,
		pollBackoff: topicPollBackoff,
	}
}

// CheckDocker verifies docker is installed and its daemon is responding.
func (m *Manager) CheckDocker(ctx context.Context) error {
	if _, err := m.command(ctx, dockerProbeTimeout, "docker", "--version"); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.New("docker command timed out; check whether docker is responding")
		}
		return errors.New("docker is not available; install docker and ensure it is running")
	}
	if _, err := m.command(ctx, dockerProbeTimeout, "docker", "ps"); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.New("docker daemon is not responding; it may still be starting up")
		}
		return errors.New("docker daemon is not running; start docker and try again")
	}
	return nil
}

// Start probes docker and launches the container. The container run is
// supervised; its output goes to the logger.
func (m *Manager) Start(ctx context.Context) error {
	if m.started {
		return nil
	}
	if err := m.CheckDocker(ctx); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	proc := pexec.ProcessConfig{
		ID:   "companion",
		Name: "docker",
		Args: []string{
			"run", "--rm",
			"--name", m.cfg.Name,
			"--network", "host",
			m.cfg.Image,
		},
		Log:     true,
		OneShot: false,
	}
	if _, err := m.pm.AddProcessFromConfig(startCtx, proc); err != nil {
		return errors.Wrap(err, "cannot add companion container process")
	}
	m.logger.Debugw("starting companion container", "image", m.cfg.Image, "name", m.cfg.Name)
	if err := m.pm.Start(startCtx); err != nil {
		return errors.Wrap(err, "cannot start companion container")
	}
	m.started = true
	return nil
}

// Stop asks the container to stop and releases the supervised process.
// Failures stopping are logged, not returned; teardown keeps going.
func (m *Manager) Stop(ctx context.Context) {
	if !m.started {
		return
	}
	m.started = false

	if _, err := m.command(ctx, stopTimeout, "docker", "stop", m.cfg.Name); err != nil {
		m.logger.Warnw("companion container did not stop cleanly", "name", m.cfg.Name, "error", err)
	}
	if err := m.pm.Stop(); err != nil {
		m.logger.Warnw("companion process supervisor stop failed", "error", err)
	}
}

// VerifyTopics waits for DDS discovery to settle and then confirms every
// required topic is listed inside the container, retrying a few times
// before giving up.
func (m *Manager) VerifyTopics(ctx context.Context) error {
	if !m.started {
		return errors.New("companion container is not running")
	}
	if !goutils.SelectContextOrWait(ctx, m.settleDelay) {
		return ctx.Err()
	}

	var missing []string
	for attempt := 0; attempt < topicPollRetries; attempt++ {
		if attempt > 0 && !goutils.SelectContextOrWait(ctx, m.pollBackoff) {
			return ctx.Err()
		}
		out, err := m.command(ctx, dockerProbeTimeout,
			"docker", "exec", m.cfg.Name, "ros2", "topic", "list")
		if err != nil {
			m.logger.Debugw("topic list poll failed", "attempt", attempt+1, "error", err)
			continue
		}
		missing = missingTopics(out, m.cfg.RequiredTopics)
		if len(missing) == 0 {
			return nil
		}
		m.logger.Debugw("topics not yet visible", "attempt", attempt+1, "missing", missing)
	}
	if len(missing) == 0 {
		return errors.New("cannot list topics inside companion container")
	}
	return errors.Errorf("bridge topics not visible in companion container: %s",
		strings.Join(missing, ", "))
}

func missingTopics(listing string, required []string) []string {
	seen := map[string]bool{}
	for _, line := range strings.Split(listing, "\n") {
		seen[strings.TrimSpace(line)] = true
	}
	var missing []string
	for _, topic := range required {
		if !seen[topic] {
			missing = append(missing, topic)
		}
	}
	return missing
}
