package main

import (
	"context"

	"github.com/nektos/cache-multi/cmd"
	"github.com/nektos/cache-multi/pkg/common"
)

var version string

func main() {
	ctx, cancel := common.CreateSignalContext(context.Background())
	defer cancel()

	// run the command
	cmd.Execute(ctx, version)
}
