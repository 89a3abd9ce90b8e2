// Command reviewctl inspects and exports the reviewed dataset without running
// the server. It reads the same environment as the server and applies the
// overrides persisted in the configured store.
package main

import (
	"os"

	"qareview/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Log.Sync()
		os.Exit(1)
	}
	logger.Log.Sync()
}
