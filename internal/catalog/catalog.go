// Package catalog knows which applications are installed and corrects the
// application ids windows report against that set.
//
// Ids come from the names of the .desktop files under the XDG data
// directories. Lookups are map reads and never touch the filesystem.
package catalog

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// DefaultVendors are the reverse-DNS prefixes tried when an id is unknown.
var DefaultVendors = []string{"org.kde", "org.gnome", "org.freedesktop"}

// Catalog is a set of installed application ids. It is not safe for
// concurrent use; refreshes are applied on the event loop.
type Catalog struct {
	dirs    []string
	vendors []string
	ids     map[string]struct{}
}

// ApplicationDirs returns the applications/ directories of the XDG data
// home and data dirs, most important first.
func ApplicationDirs() []string {
	dirs := []string{filepath.Join(xdg.DataHome, "applications")}
	for _, d := range xdg.DataDirs {
		dirs = append(dirs, filepath.Join(d, "applications"))
	}
	return dirs
}

// New scans dirs and returns the catalog. Missing directories are skipped.
func New(dirs, vendors []string) *Catalog {
	if vendors == nil {
		vendors = DefaultVendors
	}
	return &Catalog{dirs: dirs, vendors: vendors, ids: scan(dirs)}
}

// Len returns the number of known ids.
func (c *Catalog) Len() int { return len(c.ids) }

// Contains reports whether id names an installed application.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.ids[id]
	return ok
}

// Correct maps a reported application id onto an installed one. It tries,
// in order: the id itself, its lower-case form, each vendor namespace
// prefixed to the lower-case form, and the lower-case part before the first
// '-'. An id matching none of them is returned unchanged.
func (c *Catalog) Correct(appID string) string {
	if appID == "" || c.Contains(appID) {
		return appID
	}
	lower := strings.ToLower(appID)
	if c.Contains(lower) {
		return lower
	}
	for _, v := range c.vendors {
		if candidate := v + "." + lower; c.Contains(candidate) {
			return candidate
		}
	}
	if i := strings.IndexByte(lower, '-'); i > 0 {
		if candidate := lower[:i]; c.Contains(candidate) {
			return candidate
		}
	}
	return appID
}

// replace swaps in a freshly scanned id set.
func (c *Catalog) replace(ids map[string]struct{}) { c.ids = ids }

// scan collects desktop-file ids. Files in subdirectories get the
// directory names joined with '-', as the desktop entry spec prescribes.
// Earlier directories win, which only matters for counting.
func scan(dirs []string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, dir := range dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".desktop") {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return nil
			}
			id := strings.TrimSuffix(rel, ".desktop")
			id = strings.ReplaceAll(id, string(os.PathSeparator), "-")
			ids[id] = struct{}{}
			return nil
		})
	}
	return ids
}

func existingDirs(dirs []string, logger *slog.Logger) []string {
	var out []string
	for _, d := range dirs {
		if info, err := os.Stat(d); err == nil && info.IsDir() {
			out = append(out, d)
		} else {
			logger.Debug("catalog: directory not watched", "dir", d)
		}
	}
	return out
}
