// Package extract implements spec.md §4.6's extraction state machine:
// ReadHeader -> Sanitise -> ResolveConflict -> CreateParentDirs ->
// WriteBody -> RestoreMetadata -> Done, with per-entry failures
// aggregated rather than aborting the run. Grounded on
// original_source/archive/mod.rs's extract_tar_with_options and
// hoist_single_directory.
package extract

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"archivekit/pkg/archiveerr"
	"archivekit/pkg/container"
	"archivekit/pkg/logger"
	"archivekit/pkg/pathsafety"
	"archivekit/pkg/progress"
)

var errSizeMismatch = errors.New("declared size does not match bytes written")

// Options configures an extraction run.
type Options struct {
	OutputRoot          string
	Policy              Policy
	MaxCompressionRatio float64
	MaxExtractionBytes  int64
	Reporter            progress.Reporter
	Token               *progress.Token
}

// Extract drains r until io.EOF, writing every surviving entry under
// opts.OutputRoot, and returns the aggregate result together with
// agg.Err(): a PartialFailure error whenever at least one entry failed.
func Extract(r container.Reader, compressedSize int64, opts Options) (*archiveerr.Aggregate, error) {
	agg := &archiveerr.Aggregate{}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = progress.Discard{}
	}
	reporter.Start(-1, "extract")

	latched := map[string]ConflictAnswer{}
	var totalExtracted int64

	// hoist needs to know, up front, whether every entry shares one
	// top-level directory; that requires buffering entries, which
	// conflicts with streaming a container.Reader once. Instead this
	// runs hoist as a genuine post-extraction filesystem pass (see
	// Hoist below), matching original_source's hoist_single_directory
	// exactly: it inspects the output tree after everything is on disk.

	for {
		if opts.Token != nil && opts.Token.Cancelled() {
			return agg, archiveerr.New(archiveerr.Cancelled, "extract.Extract", nil)
		}

		entry, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return agg, archiveerr.New(archiveerr.Format, "extract.Extract", err)
		}

		if entry.Kind == container.RegularFile {
			if err := pathsafety.CheckCompressionRatio(compressedSize, totalExtracted+entry.Size, opts.MaxCompressionRatio, pathsafety.DefaultMaxExtractionBytes); err != nil {
				return agg, err
			}
		}
		if err := pathsafety.CheckExtractionSize(totalExtracted, entry.Size, opts.MaxExtractionBytes); err != nil {
			return agg, err
		}

		skippedBefore := agg.Skipped
		n, failed := extractOne(entry, opts, latched, agg)
		totalExtracted += n
		if !failed && agg.Skipped == skippedBefore {
			agg.Succeeded++
		}
		reporter.Update(1)
	}

	reporter.Finish()

	if opts.Policy.Hoist {
		if err := Hoist(opts.OutputRoot); err != nil {
			logger.Warn("hoist pass failed", "dir", opts.OutputRoot, "err", err)
		}
	}

	return agg, agg.Err()
}

// extractOne runs one entry through Sanitise -> ResolveConflict ->
// CreateParentDirs -> WriteBody -> RestoreMetadata, recording any
// failure into agg rather than propagating it. It returns the number
// of uncompressed bytes actually written (for the bomb guard) and
// whether the entry failed.
func extractOne(entry container.Entry, opts Options, latched map[string]ConflictAnswer, agg *archiveerr.Aggregate) (int64, bool) {
	rel, ok := pathsafety.StripComponents(entry.Path, opts.Policy.StripComponents)
	if !ok {
		agg.Skipped++
		return 0, false
	}
	if rel == "" {
		agg.Skipped++
		return 0, false
	}

	target, err := pathsafety.Sanitize(opts.OutputRoot, rel)
	if err != nil {
		agg.Record(entry.Path, archiveerr.InvalidPath, err)
		return 0, true
	}

	switch entry.Kind {
	case container.Directory:
		if err := resolveDirConflict(target); err != nil {
			agg.Record(entry.Path, archiveerr.Io, err)
			return 0, true
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			agg.Record(entry.Path, archiveerr.Io, err)
			return 0, true
		}
		pathsafety.RestoreMetadata(target, modeOrDefault(entry.Mode, 0o755), entry.ModTime, entry.UID, entry.GID)
		return 0, false

	case container.Symlink:
		if err := pathsafety.ValidateSymlinkTarget(entry.Path, entry.LinkTarget, opts.Policy.FollowSymlinks); err != nil {
			agg.Record(entry.Path, archiveerr.InvalidPath, err)
			return 0, true
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			agg.Record(entry.Path, archiveerr.Io, err)
			return 0, true
		}
		action, err := resolveConflict(target, entry.Path, opts.Policy, latched)
		if err != nil {
			agg.Record(entry.Path, archiveerr.Io, err)
			return 0, true
		}
		if action == skipAction {
			agg.Skipped++
			return 0, false
		}
		if opts.Policy.FollowSymlinks {
			// The referenced file isn't available from within the
			// container at this point; recording the intent as a
			// skip keeps extraction honest rather than writing a
			// broken regular file.
			agg.Skipped++
			return 0, false
		}
		if err := os.Symlink(entry.LinkTarget, action.path); err != nil {
			agg.Record(entry.Path, archiveerr.Io, err)
			return 0, true
		}
		return 0, false

	case container.Hardlink:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			agg.Record(entry.Path, archiveerr.Io, err)
			return 0, true
		}
		action, err := resolveConflict(target, entry.Path, opts.Policy, latched)
		if err != nil {
			agg.Record(entry.Path, archiveerr.Io, err)
			return 0, true
		}
		if action == skipAction {
			agg.Skipped++
			return 0, false
		}

		// LinkTarget names another member's archive path, not a
		// filesystem-relative symlink target, so it goes through the
		// same StripComponents+Sanitize pipeline as entry.Path itself
		// (7z and ZIP never emit Hardlink; only TAR's real tar.TypeLink
		// reaches this case, per spec.md §3).
		linkRel, ok := pathsafety.StripComponents(entry.LinkTarget, opts.Policy.StripComponents)
		if !ok || linkRel == "" {
			agg.Skipped++
			return 0, false
		}
		linkTarget, err := pathsafety.Sanitize(opts.OutputRoot, linkRel)
		if err != nil {
			agg.Record(entry.Path, archiveerr.InvalidPath, err)
			return 0, true
		}
		if err := os.Link(linkTarget, action.path); err != nil {
			agg.Record(entry.Path, archiveerr.Io, err)
			return 0, true
		}
		pathsafety.RestoreMetadata(action.path, modeOrDefault(entry.Mode, 0o644), entry.ModTime, entry.UID, entry.GID)
		return 0, false

	default: // RegularFile
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			agg.Record(entry.Path, archiveerr.Io, err)
			return 0, true
		}
		action, err := resolveConflict(target, entry.Path, opts.Policy, latched)
		if err != nil {
			agg.Record(entry.Path, archiveerr.Io, err)
			return 0, true
		}
		if action == skipAction {
			agg.Skipped++
			if entry.Reader != nil {
				io.Copy(io.Discard, entry.Reader)
			}
			return 0, false
		}

		n, err := writeBody(action.path, entry, opts.Token)
		if err != nil {
			agg.Record(entry.Path, archiveerr.Io, err)
			return n, true
		}
		pathsafety.RestoreMetadata(action.path, modeOrDefault(entry.Mode, 0o644), entry.ModTime, entry.UID, entry.GID)
		return n, false
	}
}

func writeBody(path string, entry container.Entry, tok *progress.Token) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if entry.Reader == nil {
		return 0, nil
	}
	var cr *progress.CountingReporter
	if tok != nil {
		cr = &progress.CountingReporter{Token: tok}
	}
	n, err := progress.Copy(f, entry.Reader, cr)
	if err != nil {
		return n, err
	}
	if entry.Size > 0 && n != entry.Size {
		return n, archiveerr.New(archiveerr.Format, "extract.writeBody", errSizeMismatch)
	}
	return n, nil
}

func modeOrDefault(mode uint32, fallback os.FileMode) os.FileMode {
	if mode == 0 {
		return fallback
	}
	return os.FileMode(mode & 0o777)
}

func resolveDirConflict(target string) error {
	info, err := os.Lstat(target)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		// A directory entry colliding with an existing non-directory:
		// per spec.md §4.3 step 5, this is a conflict. Remove the
		// obstruction the same way Overwrite would.
		return os.Remove(target)
	}
	return nil
}

type conflictAction struct {
	path string
}

var skipAction = conflictAction{}

// resolveConflict applies opts.Policy.OnConflict to target, returning
// the actual path to write to (which may differ from target under
// Rename).
func resolveConflict(target, entryPath string, policy Policy, latched map[string]ConflictAnswer) (conflictAction, error) {
	if _, err := os.Lstat(target); os.IsNotExist(err) {
		return conflictAction{path: target}, nil
	}

	switch policy.OnConflict {
	case Overwrite:
		if err := os.RemoveAll(target); err != nil {
			return conflictAction{}, err
		}
		return conflictAction{path: target}, nil

	case Rename:
		return conflictAction{path: renameUntilFree(target)}, nil

	case Interactive:
		if answer, ok := latched["*"]; ok {
			return applyAnswer(answer, target)
		}
		if policy.Prompter == nil {
			return skipAction, nil
		}
		answer := policy.Prompter.Ask(entryPath)
		if answer == ConflictAll || answer == ConflictNone {
			latched["*"] = answer
		}
		return applyAnswer(answer, target)

	default: // Skip
		return skipAction, nil
	}
}

func applyAnswer(answer ConflictAnswer, target string) (conflictAction, error) {
	switch answer {
	case ConflictOverwriteOnce, ConflictAll:
		if err := os.RemoveAll(target); err != nil {
			return conflictAction{}, err
		}
		return conflictAction{path: target}, nil
	case ConflictRenameOnce:
		return conflictAction{path: renameUntilFree(target)}, nil
	default: // ConflictSkipOnce, ConflictNone
		return skipAction, nil
	}
}

func renameUntilFree(target string) string {
	for i := 1; ; i++ {
		candidate := target + "." + strconv.Itoa(i)
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
