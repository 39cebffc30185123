// main is the entry point of the smellscan CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/smellscan/cmd"
	"github.com/huangsam/smellscan/core"
	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/internal/iocache"
)

func main() {
	os.Exit(run())
}

// run executes the CLI and maps its outcome to a process exit code.
func run() int {
	cmd.SetCacheManager(iocache.Manager)
	defer iocache.CloseCaching()
	defer contract.SyncLogger()
	defer func() {
		if err := cmd.StopProfiling(); err != nil {
			contract.LogWarn("Failed to stop profiling", err)
		}
	}()

	err := cmd.Execute()
	if err == nil {
		return core.ExitClean
	}

	var exit *core.ExitStatusError
	if errors.As(err, &exit) {
		return exit.Code
	}
	_, _ = fmt.Fprintln(os.Stderr, "❌", err)
	return core.ExitError
}
