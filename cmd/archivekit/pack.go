package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"archivekit/pkg/codec"
	"archivekit/pkg/config"
	"archivekit/pkg/container"
	"archivekit/pkg/logger"
	"archivekit/pkg/manifest"
	"archivekit/pkg/pack"
	"archivekit/pkg/strategy"
)

type osSniffer struct{}

func (osSniffer) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (osSniffer) Sample(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}

func runPack(cfg *config.Config, args []string) int {
	sourceDir, outPath, incrementalPath, ok := parsePackArgs(args)
	if !ok {
		fmt.Fprintln(os.Stderr, "usage: archivekit pack <source-dir> <output-archive> [--incremental <prior-manifest>]")
		return 3
	}

	var baseManifest *manifest.Manifest
	if incrementalPath != "" {
		m, err := manifest.Load(incrementalPath)
		if err != nil {
			logger.Error("pack: cannot load prior manifest for incremental pack", "err", err)
			return 2
		}
		baseManifest = m
	}

	format, _ := container.DetectFormat(outPath, nil)
	eng := strategy.New(cfg, osSniffer{})

	out, err := os.Create(outPath)
	if err != nil {
		logger.Error("pack: cannot create output", "err", err)
		return 2
	}
	defer out.Close()

	// The outer codec for a TAR stream must be fixed before any
	// entry is written, so it is taken from the output filename's
	// suffix (the user's explicit choice). When the name carries no
	// compression suffix at all (a bare ".tar"), SmartForDirectory is
	// called with a placeholder one-file DirStats, which yields Zstd
	// level 1; pack.Pack's own directory-wide OuterSpec is not used.
	var sink codec.WriteCloser
	var writer container.Writer
	var outerSpec codec.Spec

	switch format {
	case container.Zip:
		writer = container.NewZipWriter(out)
	default:
		if alg, ok := codec.DetectBySuffix(filepath.Base(outPath)); ok {
			outerSpec = codec.Spec{Algorithm: alg, Level: 3, Threads: cfg.Threads}.Normalize()
		} else {
			outerSpec = eng.SmartForDirectory(strategy.DirStats{FileCount: 1})
		}
		enc, encErr := codec.NewEncoder(out, outerSpec)
		if encErr != nil {
			logger.Error("pack: cannot open codec encoder", "err", encErr)
			return 2
		}
		sink = enc
		writer = container.NewTarWriter(enc)
	}

	result, err := pack.Pack(writer, pack.Options{
		SourceDir:    sourceDir,
		Format:       format,
		Strategy:     eng,
		BaseManifest: baseManifest,
	})

	if cerr := writer.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if sink != nil {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		logger.Error("pack failed", "err", err)
		return 2
	}

	if m, merr := manifest.FromDirectory(sourceDir, time.Now()); merr == nil {
		if serr := m.Save(outPath + ".manifest.json"); serr != nil {
			logger.Warn("failed to save manifest", "err", serr)
		}
	}

	if baseManifest != nil {
		if derr := writeDeletionList(outPath+".deletions.json", result.Deleted); derr != nil {
			logger.Warn("failed to save deletion list", "err", derr)
		}
	}

	agg := result.Aggregate
	logger.Info("pack complete", "output", outPath, "succeeded", agg.Succeeded, "skipped", agg.Skipped, "failed", len(agg.Failures), "deleted", len(result.Deleted))
	if len(agg.Failures) > 0 {
		return 4
	}
	return 0
}

// parsePackArgs reads the positional source/output pair plus the
// optional "--incremental <prior-manifest>" flag in either order
// around the positionals.
func parsePackArgs(args []string) (sourceDir, outPath, incrementalPath string, ok bool) {
	var positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--incremental" {
			if i+1 >= len(args) {
				return "", "", "", false
			}
			incrementalPath = args[i+1]
			i++
			continue
		}
		positional = append(positional, args[i])
	}
	if len(positional) < 2 {
		return "", "", "", false
	}
	return positional[0], positional[1], incrementalPath, true
}

// writeDeletionList persists the paths an incremental pack found
// deleted relative to its prior manifest, per spec.md §4.5 step 3 and
// §8 scenario 4's deletion-list requirement.
func writeDeletionList(path string, deleted []string) error {
	if deleted == nil {
		deleted = []string{}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(deleted)
}
