// Package pack implements spec.md §4.5's archive creation pipeline:
// walk a source tree in lexicographic order, decide each entry's
// compression via pkg/strategy, and stream the result into a
// pkg/container writer. The entry-gathering phase fans out across a
// bounded worker pool (the same semaphore/WaitGroup/mutex/recover
// shape as the teacher's ScanArchive in pkg/unpack/archive.go);
// writing a single output stream is inherently sequential, so only
// the gather phase is concurrent.
package pack

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"archivekit/pkg/archiveerr"
	"archivekit/pkg/codec"
	"archivekit/pkg/container"
	"archivekit/pkg/logger"
	"archivekit/pkg/manifest"
	"archivekit/pkg/progress"
	"archivekit/pkg/strategy"

	"github.com/gobwas/glob"
)

// Options configures a pack run.
type Options struct {
	// SourceDir is the tree to archive.
	SourceDir string
	// Format selects the output container.
	Format container.ContainerFormat
	// Excludes are glob patterns matched against each entry's
	// relative, slash-separated path; a match skips the entry.
	Excludes []string
	// Strategy decides the codec per entry; required.
	Strategy *strategy.Engine
	// BaseManifest, when non-nil, restricts the walk to paths the
	// manifest diff reports as added or modified relative to it,
	// per spec.md §4.6's incremental-backup mode.
	BaseManifest *manifest.Manifest
	Reporter     progress.Reporter
	Token        *progress.Token
	// Concurrency bounds the gather-phase worker pool; <=0 means 4.
	Concurrency int
}

// gathered is one entry plus the codec decision and open file handle
// needed to stream it, produced by the concurrent gather phase and
// consumed in order by the sequential write phase.
type gathered struct {
	relPath string
	absPath string
	info    os.FileInfo
	spec    codec.Spec
	err     error
}

// Result carries everything a Pack call produced beyond the written
// container bytes themselves.
type Result struct {
	Aggregate *archiveerr.Aggregate
	// OuterSpec is the single stream-level codec
	// strategy.Engine.SmartForDirectory picks from the packed entries'
	// statistics (TAR cannot vary codec per entry the way ZIP does).
	// Pack only reports it: it is computed after w was handed in, and
	// Pack never applies it to w's sink.
	OuterSpec codec.Spec
	// Deleted lists paths present in opts.BaseManifest but absent from
	// the current walk, per spec.md §4.5 step 3's incremental-pack
	// deletion list. Empty unless opts.BaseManifest is set.
	Deleted []string
}

// Pack walks opts.SourceDir and writes every surviving entry, in
// lexicographic path order, into w via a container.Writer for
// opts.Format.
func Pack(w container.Writer, opts Options) (Result, error) {
	w.SetToken(opts.Token)

	excludes := compileGlobs(opts.Excludes)
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	paths, err := walkSorted(opts.SourceDir, excludes)
	if err != nil {
		return Result{}, archiveerr.WithPath(archiveerr.Io, "pack.Pack", opts.SourceDir, err)
	}

	var deleted []string
	if opts.BaseManifest != nil {
		paths, deleted = restrictToChanged(opts.SourceDir, paths, opts.BaseManifest)
	}

	results := gatherConcurrently(opts.SourceDir, paths, opts.Strategy, concurrency)
	outerSpec := directoryOuterSpec(results, opts.Strategy)

	agg := &archiveerr.Aggregate{}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = progress.Discard{}
	}
	reporter.Start(int64(len(results)), "pack")

	for i := range results {
		g := results[i]
		if opts.Token != nil && opts.Token.Cancelled() {
			return Result{Aggregate: agg, OuterSpec: outerSpec, Deleted: deleted}, archiveerr.New(archiveerr.Cancelled, "pack.Pack", nil)
		}
		if g.err != nil {
			agg.Record(g.relPath, archiveerr.Io, g.err)
			continue
		}
		if !g.info.IsDir() && g.info.Mode()&os.ModeSymlink == 0 {
			g.spec = strategy.AdjustForParallel(g.spec, g.info.Size(), g.spec.Threads)
		}
		if err := writeEntry(w, g, opts, agg); err != nil {
			return Result{Aggregate: agg, OuterSpec: outerSpec, Deleted: deleted}, err
		}
		agg.Succeeded++
		reporter.Update(1)
	}

	reporter.Finish()
	return Result{Aggregate: agg, OuterSpec: outerSpec, Deleted: deleted}, nil
}

// directoryOuterSpec aggregates the gather phase's per-file stats
// into strategy.DirStats and asks the engine for a single outer
// codec, used by TAR/7z packs.
func directoryOuterSpec(results []gathered, eng *strategy.Engine) codec.Spec {
	var stats strategy.DirStats
	for _, g := range results {
		if g.err != nil || g.info == nil || g.info.IsDir() || g.info.Mode()&os.ModeSymlink != 0 {
			continue
		}
		stats.FileCount++
		stats.TotalSize += g.info.Size()
		if g.spec.Algorithm == codec.Store {
			stats.CompressedCount++
		}
		if ext := strings.TrimPrefix(filepath.Ext(g.relPath), "."); strategy.IsTextExtension(ext) {
			stats.TextFileCount++
		}
	}
	return eng.SmartForDirectory(stats)
}

func writeEntry(w container.Writer, g gathered, opts Options, agg *archiveerr.Aggregate) error {
	entry := container.Entry{
		Path:    filepath.ToSlash(g.relPath),
		ModTime: g.info.ModTime(),
		Mode:    posixMode(g.info),
	}

	switch {
	case g.info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(g.absPath)
		if err != nil {
			agg.Record(g.relPath, archiveerr.Io, err)
			return nil
		}
		entry.Kind = container.Symlink
		entry.LinkTarget = target
		return w.WriteEntry(entry)

	case g.info.IsDir():
		entry.Kind = container.Directory
		return w.WriteEntry(entry)

	default:
		entry.Kind = container.RegularFile
		entry.Size = g.info.Size()

		file, err := os.Open(g.absPath)
		if err != nil {
			agg.Record(g.relPath, archiveerr.Io, err)
			return nil
		}
		defer file.Close()

		if opts.Format == container.Zip {
			if err := container.ValidateCodecForContainer(opts.Format, g.spec.Algorithm); err != nil {
				agg.Record(g.relPath, archiveerr.Unsupported, err)
				return nil
			}
			entry.ZipMethod = zipMethodFor(g.spec.Algorithm)
			entry.Reader = file
			return w.WriteEntry(entry)
		}

		// TAR (and 7z, written the same way) carry compression as an
		// outer stream over the whole container, not per entry, so
		// the codec here only governs how the body bytes are framed
		// when the caller wraps the sink itself; pack always hands the
		// container writer raw entry bytes and lets the outer pipeline
		// decide the stream-level codec (see cmd/archivekit).
		entry.Reader = file
		return w.WriteEntry(entry)
	}
}

func posixMode(info os.FileInfo) uint32 {
	return uint32(info.Mode().Perm())
}

func zipMethodFor(alg codec.Algorithm) uint16 {
	if alg == codec.Store {
		return 0 // zip.Store
	}
	return 8 // zip.Deflate
}

// gatherConcurrently runs opts.Strategy.Decide and os.Lstat for every
// path across a bounded worker pool, then returns results in the
// same order as paths so the write phase stays deterministic.
func gatherConcurrently(baseDir string, paths []string, eng *strategy.Engine, concurrency int) []gathered {
	results := make([]gathered, len(paths))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, rel := range paths {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, rel string) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic in pack gather worker", "path", rel, "recover", r)
					results[i] = gathered{relPath: rel, err: errPanic}
				}
			}()

			abs := filepath.Join(baseDir, rel)
			info, err := os.Lstat(abs)
			if err != nil {
				results[i] = gathered{relPath: rel, err: err}
				return
			}

			var spec codec.Spec
			if !info.IsDir() && info.Mode()&os.ModeSymlink == 0 {
				spec = eng.Decide(abs, info.Size())
			}

			results[i] = gathered{relPath: rel, absPath: abs, info: info, spec: spec}
		}(i, rel)
	}

	wg.Wait()
	return results
}

var errPanic = archiveerr.New(archiveerr.Io, "pack.gather", nil)

// walkSorted lists every path under root (relative, slash-separated),
// excluding directories/files matched by excludes, in lexicographic
// order — spec.md §4.5 requires deterministic ordering so two packs
// of an unchanged tree produce byte-identical archives modulo
// timestamps.
func walkSorted(root string, excludes []glob.Glob) ([]string, error) {
	var rels []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if matchesAny(excludes, rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(rels)
	return rels, nil
}

func matchesAny(excludes []glob.Glob, rel string) bool {
	for _, g := range excludes {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func compileGlobs(patterns []string) []glob.Glob {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			logger.Warn("ignoring invalid exclude pattern", "pattern", p, "err", err)
			continue
		}
		globs = append(globs, g)
	}
	return globs
}

// restrictToChanged keeps only the paths manifest.FromDirectory(root)
// would report as added or modified relative to base, and returns the
// paths base has that the current walk does not (spec.md §4.5 step 3's
// deletion list), implementing spec.md §4.6's incremental pack mode.
func restrictToChanged(root string, paths []string, base *manifest.Manifest) ([]string, []string) {
	current, err := manifest.FromDirectory(root, time.Now())
	if err != nil {
		logger.Warn("incremental diff failed, falling back to full pack", "err", err)
		return paths, nil
	}
	diff := base.Diff(current)
	changed := make(map[string]bool, len(diff.Added)+len(diff.Modified))
	for _, p := range diff.Added {
		changed[p] = true
	}
	for _, p := range diff.Modified {
		changed[p] = true
	}

	// Always keep directory entries so the restored tree's structure
	// is intact even when only leaf files changed.
	kept := make([]string, 0, len(paths))
	for _, p := range paths {
		if changed[p] || isAncestorOfAny(p, changed) {
			kept = append(kept, p)
			continue
		}
		if info, ok := current.Files[p]; ok && info.IsDir {
			kept = append(kept, p)
		}
	}
	return kept, diff.Deleted
}

func isAncestorOfAny(dir string, changed map[string]bool) bool {
	for p := range changed {
		if strings.HasPrefix(p, dir+"/") {
			return true
		}
	}
	return false
}
