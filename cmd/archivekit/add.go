package main

import (
	"fmt"
	"os"
	"path/filepath"

	"archivekit/pkg/codec"
	"archivekit/pkg/config"
	"archivekit/pkg/container"
	"archivekit/pkg/logger"
	"archivekit/pkg/modify"
)

func runAdd(cfg *config.Config, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: archivekit add <archive> <file>...")
		return 3
	}
	return runModify(cfg, args[0], func(src container.Reader, dst container.Writer) (modify.Result, error) {
		baseDir := "."
		return modify.Add(src, dst, baseDir, args[1:], modify.Options{PreservePermissions: true, PreserveTimestamps: true})
	})
}

func runRemove(cfg *config.Config, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: archivekit remove <archive> <pattern>...")
		return 3
	}
	return runModify(cfg, args[0], func(src container.Reader, dst container.Writer) (modify.Result, error) {
		return modify.Remove(src, dst, args[1:])
	})
}

// runModify opens archivePath for reading, runs op against a freshly
// built container.Writer wrapping a temp file with the same outer
// codec, and atomically replaces the archive on success, per spec.md
// §4.7's "preserve original compression, never transcode unless asked."
func runModify(cfg *config.Config, archivePath string, op func(container.Reader, container.Writer) (modify.Result, error)) int {
	_ = cfg
	format, _ := container.DetectFormat(archivePath, nil)
	if format == container.SevenZip {
		fmt.Fprintln(os.Stderr, "modify: 7z archives are read-only")
		return 3
	}

	res, err := modify.ReplaceAtomic(archivePath, func(tempPath string) (modify.Result, error) {
		in, err := os.Open(archivePath)
		if err != nil {
			return modify.Result{}, err
		}
		defer in.Close()

		info, err := in.Stat()
		if err != nil {
			return modify.Result{}, err
		}

		src, err := openReader(in, info.Size(), format, archivePath)
		if err != nil {
			return modify.Result{}, err
		}

		out, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return modify.Result{}, err
		}
		defer out.Close()

		dst, sink, err := openWriterForModify(out, format, archivePath)
		if err != nil {
			return modify.Result{}, err
		}

		result, opErr := op(src, dst)

		if cerr := dst.Close(); cerr != nil && opErr == nil {
			opErr = cerr
		}
		if sink != nil {
			if cerr := sink.Close(); cerr != nil && opErr == nil {
				opErr = cerr
			}
		}
		return result, opErr
	})

	if err != nil {
		logger.Error("modify failed", "err", err)
		return 2
	}

	logger.Info("modify complete", "archive", archivePath, "added", res.Added, "removed", res.Removed, "updated", res.Updated, "copied", res.Copied)
	return 0
}

// openWriterForModify mirrors openReader's format dispatch, wrapping
// out in whatever outer codec archivePath's suffix already names so
// the replacement keeps the archive's original compression.
func openWriterForModify(out *os.File, format container.ContainerFormat, archivePath string) (container.Writer, codec.WriteCloser, error) {
	switch format {
	case container.Zip:
		return container.NewZipWriter(out), nil, nil
	default:
		alg, _ := codec.DetectBySuffix(filepath.Base(archivePath))
		enc, err := codec.NewEncoder(out, codec.Spec{Algorithm: alg, Level: 3, Threads: 1}.Normalize())
		if err != nil {
			return nil, nil, err
		}
		return container.NewTarWriter(enc), enc, nil
	}
}
