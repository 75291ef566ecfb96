package guard

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Shell operators that terminate a simple command's argument list.
var shellOperators = map[string]bool{
	";": true, "&&": true, "||": true, "|": true, "&": true,
}

// Flags that consume a following value argument.
var valueFlags = map[string]bool{
	"-t":                 true,
	"--target-directory": true,
}

// Extractor performs Tier-1 target extraction: explicit path arguments of a
// deletion verb, with glob expansion.
type Extractor struct {
	norm    *Normalizer
	windows bool
}

// NewExtractor creates an Extractor resolving paths through norm.
func NewExtractor(norm *Normalizer) *Extractor {
	return &Extractor{norm: norm, windows: runtime.GOOS == "windows"}
}

// Targets parses explicit path arguments from a deletion command.
//
// Tokens before the deletion verb are ignored. Scanning stops at the first
// shell operator, including a ";" the fallback tokenizer left attached to
// the preceding word, so a compound command never bleeds the second
// command's arguments into the first one's target list. Flags are skipped
// ("--" ends flag parsing; -t/--target-directory also consume a value).
// Each remaining argument is expanded, resolved against the working
// directory, and glob-expanded; a glob with no matches still emits the
// literal resolved path so nonexistent targets can be classified.
func (e *Extractor) Targets(command string) []Target {
	tokens := shellTokens(command)

	var targets []Target
	inArgs := false
	endOfFlags := false
	skipNext := false

	for _, tok := range tokens {
		hasSemi := strings.HasSuffix(tok, ";")
		tok = strings.TrimRight(tok, ";")
		if tok == "" {
			if hasSemi {
				break
			}
			continue
		}
		if skipNext {
			skipNext = false
			if hasSemi {
				break
			}
			continue
		}
		if shellOperators[tok] {
			break
		}
		if !inArgs {
			if isDeleteVerb(tok) {
				inArgs = true
			}
			if hasSemi {
				break
			}
			continue
		}
		if tok == "--" {
			endOfFlags = true
			if hasSemi {
				break
			}
			continue
		}
		if !endOfFlags && (strings.HasPrefix(tok, "-") || (e.windows && strings.HasPrefix(tok, "/"))) {
			if valueFlags[tok] {
				skipNext = true
			}
			if hasSemi {
				break
			}
			continue
		}

		targets = append(targets, e.expand(tok)...)
		if hasSemi {
			break
		}
	}

	return targets
}

// expand turns one path argument into resolved targets.
func (e *Extractor) expand(tok string) []Target {
	expanded := e.norm.ExpandToken(tok)
	pattern := e.norm.Absolutize(expanded)

	matches, err := doublestar.FilepathGlob(filepath.ToSlash(pattern))
	if err != nil || len(matches) == 0 {
		// No matches (or not a valid pattern): keep the literal path so it
		// can still be classified and, if outside, blocked.
		return []Target{{Raw: tok, Path: pattern}}
	}

	targets := make([]Target, 0, len(matches))
	for _, m := range matches {
		targets = append(targets, Target{Raw: tok, Path: filepath.Clean(m), Exists: true})
	}
	return targets
}
