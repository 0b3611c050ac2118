// Package cli implements the rapidsim command line tool: environment
// verification, the end-to-end smoke run and a bridge-only publisher
// check.
package cli

import (
	"github.com/edaniels/golog"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/rapid-robotics/rapidsim/verify"
)

// Flag names shared across commands.
const (
	rootFlag        = "root"
	verboseFlag     = "verbose"
	fixDirsFlag     = "fix-dirs"
	headlessFlag    = "headless"
	numStepsFlag    = "num-steps"
	configFlag      = "config"
	sceneFamilyFlag = "scene-family"
	sceneSeedFlag   = "scene-seed"
	withDockerFlag  = "with-docker"
	durationFlag    = "duration"
)

// NewApp builds the rapidsim CLI application.
func NewApp() *cli.App {
	var logger golog.Logger

	app := &cli.App{
		Name:  "rapidsim",
		Usage: "set up and exercise the simulation environment",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  rootFlag,
				Value: ".",
				Usage: "project root directory",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				logger = golog.NewDebugLogger("rapidsim")
			} else {
				logger = zap.NewNop().Sugar()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "verify",
				Usage: "check every prerequisite for a collection run",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    verboseFlag,
						Aliases: []string{"v"},
						Usage:   "print remediation hints for passing checks too",
					},
					&cli.BoolFlag{
						Name:  fixDirsFlag,
						Usage: "create any missing data directories",
					},
				},
				Action: func(c *cli.Context) error {
					checks := verify.Checks(verify.Options{
						Root:    c.String(rootFlag),
						FixDirs: c.Bool(fixDirsFlag),
					})
					summary := verify.Run(c.Context, c.App.Writer, checks, c.Bool(verboseFlag))
					if !summary.Ok() {
						return cli.Exit("", 1)
					}
					return nil
				},
			},
			{
				Name:  "test",
				Usage: "run the full smoke sequence against the simulation backend",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  headlessFlag,
						Value: true,
						Usage: "run without a viewport",
					},
					&cli.IntFlag{
						Name:  numStepsFlag,
						Value: 100,
						Usage: "number of simulation steps to run",
					},
					&cli.StringFlag{
						Name:    configFlag,
						Aliases: []string{"c"},
						Usage:   "directory holding the config tree (defaults to the project root)",
					},
					&cli.StringFlag{
						Name:  sceneFamilyFlag,
						Value: "office",
						Usage: "scene family to load",
					},
					&cli.Int64Flag{
						Name:  sceneSeedFlag,
						Value: 42,
						Usage: "scene generation seed",
					},
					&cli.BoolFlag{
						Name:  withDockerFlag,
						Usage: "also start the companion container and verify topics",
					},
				},
				Action: func(c *cli.Context) error {
					opts := smokeOptions{
						Root:        c.String(rootFlag),
						ConfigRoot:  c.String(configFlag),
						Headless:    c.Bool(headlessFlag),
						NumSteps:    c.Int(numStepsFlag),
						SceneFamily: c.String(sceneFamilyFlag),
						SceneSeed:   c.Int64(sceneSeedFlag),
						WithDocker:  c.Bool(withDockerFlag),
					}
					if err := runSmoke(c.Context, c.App.Writer, logger, opts); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return nil
				},
			},
			{
				Name:  "bridge-test",
				Usage: "run a minimal depth+clock bridge and report the step count",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  durationFlag,
						Value: defaultBridgeTestDuration,
						Usage: "how long to keep stepping",
					},
				},
				Action: func(c *cli.Context) error {
					if err := runBridgeTest(c.Context, c.App.Writer, logger,
						c.String(rootFlag), c.Duration(durationFlag)); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return nil
				},
			},
		},
	}
	return app
}
