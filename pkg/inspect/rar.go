package inspect

import (
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/javi11/rardecode/v2"
)

// rarInfoCache memoises ListArchiveInfo per archive path: inspect may
// be called repeatedly against the same RAR set (e.g. a GUI
// re-rendering a listing), and re-parsing every volume's headers each
// time is wasted work, per the teacher's own caching of scan results
// in pkg/unpack's blueprint types.
var rarInfoCache, _ = lru.New[string, []rardecode.ArchiveFileInfo](32)

// InspectRAR best-effort lists a RAR archive's logical files by
// reading volume headers only, per spec.md §4.10's "enumerate
// without extracting." RAR is read-only and not one of the container
// formats pkg/container models (it's excluded from pack/modify by
// spec.md's non-goals), so this path returns a Listing directly
// rather than going through container.Reader.
func InspectRAR(path string) (Listing, error) {
	if infos, ok := rarInfoCache.Get(path); ok {
		return listingFromRARInfo(infos), nil
	}

	infos, err := rardecode.ListArchiveInfo(path, rardecode.ParallelRead(true))
	if err != nil {
		return Listing{}, err
	}
	rarInfoCache.Add(path, infos)
	return listingFromRARInfo(infos), nil
}

func listingFromRARInfo(infos []rardecode.ArchiveFileInfo) Listing {
	listing := Listing{Format: "rar"}
	for _, info := range infos {
		listing.Entries = append(listing.Entries, EntryInfo{
			Path: filepath.ToSlash(info.Name),
			Kind: "file",
			Size: info.TotalUnpackedSize,
		})
	}
	return listing
}

// IsRARName reports whether name looks like a RAR archive or one of
// its volume members, using the same suffix rules the teacher applies
// in pkg/unpack before attempting a RAR scan.
func IsRARName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".rar") || strings.Contains(lower, ".part") || isRarVolume(lower)
}

func isRarVolume(lower string) bool {
	if len(lower) < 4 {
		return false
	}
	ext := lower[len(lower)-4:]
	return ext[0] == '.' && ext[1] == 'r' && isDigit(ext[2]) && isDigit(ext[3])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
