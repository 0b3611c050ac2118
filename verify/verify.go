// Package verify runs the environment prerequisite checks for a
// collection run: toolchain, simulator, GPU driver, middleware,
// filesystem layout and a smoke launch. Checks are independent; every
// external failure is mapped to a fail or warn result with a remediation
// hint, never an error escaping the check.
package verify

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// Status is a single check's outcome.
type Status int

// A check passes, passes with a warning, or fails.
const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Result is a check's outcome plus its user-facing explanation.
type Result struct {
	Status  Status
	Message string
	// Hint tells the user how to remediate a warn/fail.
	Hint string
}

func pass(format string, args ...interface{}) Result {
	return Result{Status: StatusPass, Message: fmt.Sprintf(format, args...)}
}

func warn(message, hint string) Result {
	return Result{Status: StatusWarn, Message: message, Hint: hint}
}

func fail(message, hint string) Result {
	return Result{Status: StatusFail, Message: message, Hint: hint}
}

// Check is one named prerequisite probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) Result
}

// Commander runs an external command and returns its combined output.
// Injectable so checks are testable without the real binaries.
type Commander func(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error)

// ExecCommander is the production Commander. A deadline is reported as a
// context.DeadlineExceeded error so checks can treat timeouts specially.
func ExecCommander(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	//nolint:gosec
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if ctx.Err() != nil {
		return string(out), ctx.Err()
	}
	if err != nil {
		return string(out), errors.Wrapf(err, "%s failed", name)
	}
	return string(out), nil
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	bold   = color.New(color.Bold)
)

// Summary aggregates a run of checks.
type Summary struct {
	Passed int
	Total  int
	// Failed lists the names of failed checks in run order.
	Failed []string
}

// Ok reports whether every check passed (warnings count as passes).
func (s Summary) Ok() bool { return len(s.Failed) == 0 }

// Run executes the checks in order, printing each result to w, and
// returns the aggregate. No check aborts the run.
func Run(ctx context.Context, w io.Writer, checks []Check, verbose bool) Summary {
	summary := Summary{Total: len(checks)}
	for _, check := range checks {
		res := check.Run(ctx)
		printResult(w, check.Name, res, verbose)
		switch res.Status {
		case StatusPass, StatusWarn:
			summary.Passed++
		case StatusFail:
			summary.Failed = append(summary.Failed, check.Name)
		}
	}

	fmt.Fprintln(w)
	bold.Fprintf(w, "Result: %d/%d checks passed\n", summary.Passed, summary.Total) //nolint:errcheck
	if summary.Ok() {
		green.Fprintln(w, "Environment setup complete.") //nolint:errcheck
	} else {
		red.Fprintf(w, "Environment setup incomplete: %s\n", strings.Join(summary.Failed, ", ")) //nolint:errcheck
	}
	return summary
}

func printResult(w io.Writer, name string, res Result, verbose bool) {
	switch res.Status {
	case StatusPass:
		green.Fprintf(w, "✓ %s: %s\n", name, res.Message) //nolint:errcheck
	case StatusWarn:
		yellow.Fprintf(w, "⚠ %s: %s\n", name, res.Message) //nolint:errcheck
	case StatusFail:
		red.Fprintf(w, "✗ %s: %s\n", name, res.Message) //nolint:errcheck
	}
	if res.Hint != "" && (verbose || res.Status != StatusPass) {
		fmt.Fprintf(w, "  fix: %s\n", res.Hint)
	}
}
