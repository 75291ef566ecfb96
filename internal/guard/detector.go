package guard

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Deletion verbs recognized at the token level, by platform family.
var (
	unixDeleteVerbs = []string{"rm", "rmdir", "unlink", "shred", "trash", "rimraf"}
	winDeleteVerbs  = []string{"del", "erase", "rd"}
	psDeleteVerbs   = []string{"remove-item", "ri"}
)

var deleteVerbs = func() map[string]bool {
	m := make(map[string]bool)
	for _, set := range [][]string{unixDeleteVerbs, winDeleteVerbs, psDeleteVerbs} {
		for _, v := range set {
			m[v] = true
		}
	}
	return m
}()

// Regex-tier detection. findDeleteRe and gitCleanForceRe also gate the
// dry-run discoverer; gitCleanForceRe requires a flag cluster containing f
// (not preceded by another dash) or a literal --force, so "git clean -n"
// does not register as a deletion.
var (
	findDeleteRe    = regexp.MustCompile(`\bfind\b.*(?:-delete|-exec\s+rm\b)`)
	gitCleanForceRe = regexp.MustCompile(`\bgit\s+clean\b.*(?:(?:^|[^-])-[a-z]*f[a-z]*\b|--force\b)`)
	xargsDeleteRe   = regexp.MustCompile(`\bxargs\s+(?:sudo\s+)?(?:rm|unlink)\b`)
)

// Patterns that defeat static target extraction. Any match routes the
// command straight to interactive confirmation.
var unresolvablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\(`),                  // $(...) subshell
	regexp.MustCompile("`"),                     // backtick subshell
	regexp.MustCompile(`\beval\b`),               // eval keyword
	regexp.MustCompile(`base64.*\|\s*(?:ba)?sh`), // base64 piped into a shell
	regexp.MustCompile(`os\.remove\(`),           // Python inline deletion
	regexp.MustCompile(`os\.unlink\(`),
	regexp.MustCompile(`shutil\.rmtree\(`),
	regexp.MustCompile(`\.unlink\(\)`),
	regexp.MustCompile(`fs\.unlinkSync\(`), // Node inline deletion
	regexp.MustCompile(`fs\.rmdirSync\(`),
	regexp.MustCompile(`fs\.rmSync\(`),
	regexp.MustCompile(`fs\.promises\.unlink\(`),
}

// HasDeletion reports whether the command contains any deletion verb.
func HasDeletion(command string) bool {
	if findDeleteRe.MatchString(command) ||
		gitCleanForceRe.MatchString(command) ||
		xargsDeleteRe.MatchString(command) {
		return true
	}
	for _, tok := range shellTokens(command) {
		if isDeleteVerb(tok) {
			return true
		}
	}
	return false
}

// HasUnresolvable reports whether the command contains constructs that
// prevent safe static parsing.
func HasUnresolvable(command string) bool {
	for _, pat := range unresolvablePatterns {
		if pat.MatchString(command) {
			return true
		}
	}
	return false
}

// isDeleteVerb tests a token's base name, case-insensitively, against the
// deletion verb set. A trailing ";" from the fallback tokenizer is ignored.
func isDeleteVerb(tok string) bool {
	tok = strings.TrimSuffix(tok, ";")
	if tok == "" {
		return false
	}
	base := path.Base(filepath.ToSlash(tok))
	return deleteVerbs[strings.ToLower(base)]
}
