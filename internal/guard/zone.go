package guard

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Zones holds the resolved trust roots for one invocation. All roots must be
// absolute with symlinks resolved; classification is pure given that.
type Zones struct {
	// Workspace is the workspace root.
	Workspace string
	// Whitelist roots in configuration order; first match wins.
	Whitelist []string
	// TmpRoots are the platform temp directories.
	TmpRoots []string
}

// Classify assigns a resolved absolute path to a zone and returns the backup
// root it belongs to. The workspace root itself is Outside: deleting the
// root is never auto-approved. Tmp and Outside carry no backup root.
func (z Zones) Classify(path string) (Zone, string) {
	if path == z.Workspace {
		return ZoneOutside, ""
	}
	if isInside(path, z.Workspace) {
		return ZoneWorkspace, z.Workspace
	}
	for _, wl := range z.Whitelist {
		if isInside(path, wl) {
			return ZoneWhitelist, wl
		}
	}
	for _, tmp := range z.TmpRoots {
		if isInside(path, tmp) {
			return ZoneTmp, ""
		}
	}
	return ZoneOutside, ""
}

// isInside reports whether p is root or a descendant of root. Containment is
// computed on path components, so /tmp2 is not inside /tmp.
func isInside(p, root string) bool {
	if root == "" {
		return false
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// DefaultTmpRoots returns the resolved temp-directory roots for this
// platform. Symlinks are resolved so that e.g. a /tmp that is really
// /private/tmp compares correctly against resolved targets.
func DefaultTmpRoots() []string {
	var candidates []string
	if runtime.GOOS == "windows" {
		for _, v := range []string{"TEMP", "TMP", "TMPDIR"} {
			if val := os.Getenv(v); val != "" {
				candidates = append(candidates, val)
			}
		}
	} else {
		candidates = append(candidates, "/tmp", "/var/tmp", "/private/tmp")
	}
	candidates = append(candidates, os.TempDir())

	var roots []string
	for _, c := range candidates {
		abs, err := filepath.Abs(c)
		if err != nil {
			continue
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		roots = append(roots, filepath.Clean(abs))
	}
	return roots
}
