package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"archivekit/pkg/config"
	"archivekit/pkg/container"
	"archivekit/pkg/inspect"
	"archivekit/pkg/logger"
)

func runInspect(cfg *config.Config, args []string) int {
	_ = cfg
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: archivekit inspect <archive>")
		return 3
	}
	archivePath := args[0]

	if inspect.IsRARName(filepath.Base(archivePath)) {
		listing, err := inspect.InspectRAR(archivePath)
		if err != nil {
			logger.Error("inspect: rar probe failed", "err", err)
			return 2
		}
		return printListing(listing)
	}

	in, err := os.Open(archivePath)
	if err != nil {
		logger.Error("inspect: cannot open archive", "err", err)
		return 2
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		logger.Error("inspect: cannot stat archive", "err", err)
		return 2
	}

	format, _ := container.DetectFormat(archivePath, nil)
	reader, err := openReader(in, info.Size(), format, archivePath)
	if err != nil {
		logger.Error("inspect: cannot open container reader", "err", err)
		return 2
	}

	listing, err := inspect.Inspect(reader, format)
	if err != nil {
		logger.Error("inspect failed", "err", err)
		return 2
	}
	return printListing(listing)
}

func printListing(listing inspect.Listing) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(listing); err != nil {
		logger.Error("inspect: cannot encode listing", "err", err)
		return 2
	}
	return 0
}
