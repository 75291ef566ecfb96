package backup

import (
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// skipNames are directory names that are never worth backing up: VCS
// metadata, environments, caches, and build output. Deleting these is
// routine and copying them would swamp the backup store.
var skipNames = map[string]bool{
	// VCS
	".git": true, ".svn": true, ".hg": true,
	// Python environments & caches
	"venv": true, ".venv": true, "env": true, "__pypackages__": true,
	"__pycache__": true, ".pytest_cache": true, ".mypy_cache": true, ".ruff_cache": true,
	// Node
	"node_modules": true,
	// Build outputs
	"dist": true, "build": true, "out": true, "target": true, ".output": true,
	".next": true, ".nuxt": true, ".svelte-kit": true, ".astro": true,
	// Mobile / JVM
	"Pods": true, ".gradle": true,
	// Coverage
	"coverage": true, ".nyc_output": true,
	// Temp
	"tmp": true, "temp": true, ".tmp": true,
}

// skipSuffixGlobs match packaging-metadata directory names.
var skipSuffixGlobs = []glob.Glob{
	glob.MustCompile("*.egg-info"),
	glob.MustCompile("*.dist-info"),
}

// HasSkipComponent reports whether any component of path is in the skip set
// or matches a packaging-metadata pattern.
func HasSkipComponent(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" {
			continue
		}
		if skipNames[part] {
			return true
		}
		for _, g := range skipSuffixGlobs {
			if g.Match(part) {
				return true
			}
		}
	}
	return false
}
