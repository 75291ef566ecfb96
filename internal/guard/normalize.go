package guard

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalizer resolves command-line path tokens to absolute filesystem paths.
// It is pure given its construction inputs, so tests can inject a fixed
// home, working directory, and environment.
type Normalizer struct {
	home string
	cwd  string
	env  map[string]string
}

// NewNormalizer creates a Normalizer for the given working directory using
// the process environment.
func NewNormalizer(cwd string) *Normalizer {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	env := make(map[string]string)
	for _, e := range os.Environ() {
		if key, value, ok := strings.Cut(e, "="); ok {
			env[key] = value
		}
	}
	return NewNormalizerWithEnv(home, cwd, env)
}

// NewNormalizerWithEnv creates a Normalizer with a controlled home directory,
// working directory, and environment. Used by tests.
func NewNormalizerWithEnv(home, cwd string, env map[string]string) *Normalizer {
	if env == nil {
		env = make(map[string]string)
	}
	return &Normalizer{home: home, cwd: cwd, env: env}
}

// Cwd returns the working directory this normalizer resolves against.
func (n *Normalizer) Cwd() string { return n.cwd }

// ExpandToken prepares a raw command token for path resolution: strips null
// bytes and invisible Unicode, applies NFKC so fullwidth/decomposed forms
// cannot dodge classification, then expands ~ and environment variables.
// Unknown variables are kept literal, matching how an unset $VAR would reach
// the filesystem as text rather than silently collapsing to the cwd.
func (n *Normalizer) ExpandToken(tok string) string {
	tok = strings.ReplaceAll(tok, "\x00", "")
	tok = strings.ToValidUTF8(tok, "\uFFFD")
	tok = norm.NFKC.String(tok)
	tok = stripInvisible(tok)
	tok = n.expandTilde(tok)
	tok = n.expandEnvVars(tok)
	return tok
}

// Absolutize resolves a path against the working directory and cleans it.
func (n *Normalizer) Absolutize(p string) string {
	if p == "" {
		return n.cwd
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(n.cwd, p)
	}
	return filepath.Clean(p)
}

// ResolveBestEffort resolves symlinks in a path. When the full path does not
// exist, the nearest existing ancestor is resolved and the remaining
// components are reattached, so a nonexistent target under a symlinked
// directory still classifies against the real location.
func (n *Normalizer) ResolveBestEffort(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	dir := p
	var tail []string
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		tail = append([]string{filepath.Base(dir)}, tail...)
		dir = parent
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...)
		}
	}
	return p
}

func (n *Normalizer) expandTilde(p string) string {
	if n.home == "" {
		return p
	}
	if p == "~" {
		return n.home
	}
	if strings.HasPrefix(p, "~/") {
		return n.home + p[1:]
	}
	return p
}

// expandEnvVars expands $VAR and ${VAR} in a single pass. Unknown variables
// stay in $VAR form.
func (n *Normalizer) expandEnvVars(p string) string {
	return os.Expand(p, func(key string) string {
		if val, ok := n.env[key]; ok {
			return val
		}
		return "$" + key
	})
}

// invisibleRunes are zero-width and directional formatting characters that
// are invisible in a terminal but change the byte form of a path, letting a
// name like ".env" hide an extra code point. Written as escapes: a literal
// U+FEFF is not legal Go source past the first byte of a file, and the rest
// would be unreviewable.
var invisibleRunes = map[rune]bool{
	'\u200B': true, // zero-width space
	'\u200C': true, // zero-width non-joiner
	'\u200D': true, // zero-width joiner
	'\uFEFF': true, // zero-width no-break space (BOM)
	'\u00AD': true, // soft hyphen
	'\u2060': true, // word joiner
	'\u200E': true, // left-to-right mark
	'\u200F': true, // right-to-left mark
	'\u202A': true, // left-to-right embedding
	'\u202B': true, // right-to-left embedding
	'\u202C': true, // pop directional formatting
	'\u202D': true, // left-to-right override
	'\u202E': true, // right-to-left override
}

func stripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		if invisibleRunes[r] {
			return -1
		}
		return r
	}, s)
}
