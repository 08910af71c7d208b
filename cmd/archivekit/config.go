package main

import (
	"encoding/json"
	"os"

	"archivekit/pkg/config"
	"archivekit/pkg/logger"
)

// runConfigCmd prints the effective, post-override configuration as
// JSON — the same record Load persisted to LoadedPath.
func runConfigCmd(cfg *config.Config) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		logger.Error("config: cannot encode configuration", "err", err)
		return 2
	}
	return 0
}
