package main

import (
	"fmt"
	"os"

	"archivekit/pkg/archiveerr"
	"archivekit/pkg/codec"
	"archivekit/pkg/config"
	"archivekit/pkg/container"
	"archivekit/pkg/extract"
	"archivekit/pkg/logger"
)

func runExtract(cfg *config.Config, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: archivekit extract <archive> <output-dir>")
		return 3
	}
	archivePath, outputRoot := args[0], args[1]

	in, err := os.Open(archivePath)
	if err != nil {
		logger.Error("extract: cannot open archive", "err", err)
		return 2
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		logger.Error("extract: cannot stat archive", "err", err)
		return 2
	}

	format, _ := container.DetectFormat(archivePath, nil)

	if info.IsDir() {
		fmt.Fprintln(os.Stderr, "extract: archive path is a directory")
		return 3
	}

	reader, err := openReader(in, info.Size(), format, archivePath)
	if err != nil {
		logger.Error("extract: cannot open container reader", "err", err)
		return 2
	}

	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		logger.Error("extract: cannot create output dir", "err", err)
		return 2
	}

	opts := extract.Options{
		OutputRoot: outputRoot,
		Policy: extract.Policy{
			OnConflict: extract.ParseConflictPolicy(cfg.ConflictPolicy),
			Hoist:      cfg.Hoist,
		},
		MaxCompressionRatio: cfg.MaxCompressionRatio,
		MaxExtractionBytes:  cfg.MaxExtractionBytes,
	}

	agg, err := extract.Extract(reader, info.Size(), opts)
	if err != nil && !archiveerr.Is(err, archiveerr.PartialFailure) {
		logger.Error("extract failed", "err", err)
		return 2
	}

	logger.Info("extract complete", "output", outputRoot, "succeeded", agg.Succeeded, "skipped", agg.Skipped, "failed", len(agg.Failures))
	if len(agg.Failures) > 0 {
		return 4
	}
	return 0
}

// openReader builds a container.Reader for one of the three
// pack/extract-capable formats. Zip and SevenZip index the file
// directly (they need random access); Tar streams through whatever
// codec its suffix names.
func openReader(f *os.File, size int64, format container.ContainerFormat, name string) (container.Reader, error) {
	switch format {
	case container.Zip:
		return container.NewZipReader(f, size)
	case container.SevenZip:
		return container.NewSevenZipReader(f, size)
	default:
		alg, _ := codec.DetectBySuffix(name)
		dec, err := codec.NewDecoder(f, alg)
		if err != nil {
			return nil, err
		}
		return container.NewTarReader(dec), nil
	}
}
