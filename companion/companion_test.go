package companion

import (
	"context"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

type call struct {
	name string
	args []string
}

type scriptedCommander struct {
	// outputs are consumed in order per command name.
	outputs map[string][]string
	errs    map[string]error
	calls   []call
}

func (s *scriptedCommander) run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	s.calls = append(s.calls, call{name, args})
	if err, ok := s.errs[name]; ok {
		return "", err
	}
	queue := s.outputs[name]
	if len(queue) == 0 {
		return "", nil
	}
	out := queue[0]
	if len(queue) > 1 {
		s.outputs[name] = queue[1:]
	}
	return out, nil
}

func newTestManager(t *testing.T, cmd *scriptedCommander) *Manager {
	t.Helper()
	m := NewManager(Config{}, golog.NewTestLogger(t))
	m.command = cmd.run
	m.settleDelay = time.Millisecond
	m.pollBackoff = time.Millisecond
	return m
}

func TestCheckDockerMissing(t *testing.T) {
	cmd := &scriptedCommander{errs: map[string]error{"docker": context.Canceled}}
	m := newTestManager(t, cmd)
	err := m.CheckDocker(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not available")
}

func TestCheckDockerTimeout(t *testing.T) {
	cmd := &scriptedCommander{errs: map[string]error{"docker": context.DeadlineExceeded}}
	m := newTestManager(t, cmd)
	err := m.CheckDocker(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "timed out")
}

func TestCheckDockerOK(t *testing.T) {
	cmd := &scriptedCommander{}
	m := newTestManager(t, cmd)
	test.That(t, m.CheckDocker(context.Background()), test.ShouldBeNil)
	test.That(t, len(cmd.calls), test.ShouldEqual, 2)
	test.That(t, cmd.calls[0].args, test.ShouldResemble, []string{"--version"})
	test.That(t, cmd.calls[1].args, test.ShouldResemble, []string{"ps"})
}

func TestStartFailsFastWithoutDocker(t *testing.T) {
	cmd := &scriptedCommander{errs: map[string]error{"docker": context.Canceled}}
	m := newTestManager(t, cmd)
	err := m.Start(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, m.started, test.ShouldBeFalse)
}

func TestVerifyTopicsRequiresRunningContainer(t *testing.T) {
	m := newTestManager(t, &scriptedCommander{})
	err := m.VerifyTopics(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not running")
}

func TestVerifyTopicsRetriesUntilVisible(t *testing.T) {
	cmd := &scriptedCommander{outputs: map[string][]string{
		"docker": {
			"/clock\n/camera/depth\n",
			"/clock\n/camera/depth\n/imu/data\n/odom\n",
		},
	}}
	m := newTestManager(t, cmd)
	m.started = true
	test.That(t, m.VerifyTopics(context.Background()), test.ShouldBeNil)
	test.That(t, len(cmd.calls), test.ShouldEqual, 2)
}

func TestVerifyTopicsReportsMissing(t *testing.T) {
	cmd := &scriptedCommander{outputs: map[string][]string{
		"docker": {"/clock\n/camera/depth\n/imu/data\n"},
	}}
	m := newTestManager(t, cmd)
	m.started = true
	err := m.VerifyTopics(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "/odom")
	test.That(t, len(cmd.calls), test.ShouldEqual, 3)
}

func TestMissingTopics(t *testing.T) {
	missing := missingTopics("/a\n /b \n", []string{"/a", "/b", "/c"})
	test.That(t, missing, test.ShouldResemble, []string{"/c"})
	test.That(t, missingTopics("/a\n", []string{"/a"}), test.ShouldBeNil)
}
