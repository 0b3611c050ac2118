// Package main is the rapidsim command itself.
package main

import (
	"context"

	"github.com/edaniels/golog"
	"go.viam.com/utils"

	rapidcli "github.com/rapid-robotics/rapidsim/cli"
)

var logger = golog.NewDevelopmentLogger("rapidsim")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	return rapidcli.NewApp().RunContext(ctx, args)
}
