package guard

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/delguard/delguard/internal/logger"
)

var discoverLog = logger.New("discover")

// dryRunTimeout bounds each dry-run subprocess.
const dryRunTimeout = 10 * time.Second

// DiscoverOutcome distinguishes a dry run that ran and found nothing from
// one that could not run at all. Collapsing the two would either spuriously
// prompt on a legitimately empty `find -delete` or silently allow a command
// whose targets could not be enumerated.
type DiscoverOutcome int

const (
	// Found means the dry run enumerated at least one target.
	Found DiscoverOutcome = iota
	// FoundNone means the dry run executed successfully and the command
	// would delete nothing.
	FoundNone
	// CouldNotRun means no information was gained (rewrite failed, spawn
	// error, timeout, or the command failed producing no output).
	CouldNotRun
)

// Discovery is the result of Tier-2 dry-run discovery.
type Discovery struct {
	Outcome DiscoverOutcome
	Targets []Target
}

// Runner executes a shell command and returns its stdout. Stdout must be
// returned even when the command exits nonzero.
type Runner interface {
	Output(ctx context.Context, dir, command string) (string, error)
}

// ShellRunner runs commands through the platform shell.
type ShellRunner struct{}

// Output implements Runner.
func (ShellRunner) Output(ctx context.Context, dir, command string) (string, error) {
	cmd := newShellCmd(ctx, command)
	cmd.Dir = dir
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard
	err := cmd.Run()
	return stdout.String(), err
}

// Discoverer rewrites a destructive command into its non-destructive
// equivalent and executes it to enumerate the targets textually. The
// rewritten command is read-only probing; when a rewrite leaves the command
// unchanged nothing is executed.
type Discoverer struct {
	runner Runner
}

// NewDiscoverer creates a Discoverer. A nil runner gets the platform shell.
func NewDiscoverer(runner Runner) *Discoverer {
	if runner == nil {
		runner = ShellRunner{}
	}
	return &Discoverer{runner: runner}
}

// Discover attempts dry-run discovery for find-delete and git-clean style
// commands. Commands matching neither pattern yield CouldNotRun.
func (d *Discoverer) Discover(command, cwd string) Discovery {
	if findDeleteRe.MatchString(command) {
		return d.dryRunFind(command, cwd)
	}
	if gitCleanForceRe.MatchString(command) {
		return d.dryRunGitClean(command, cwd)
	}
	return Discovery{Outcome: CouldNotRun}
}

var (
	findDeleteFlagRe = regexp.MustCompile(`\s+-delete\b`)
	findExecRmRe     = regexp.MustCompile(`\s+-exec\s+rm\b[^;+]*[;+]`)
	wouldRemoveRe    = regexp.MustCompile(`^Would remove (.+)`)
	gitForceFlagRe   = regexp.MustCompile(`(^|[^-])(-[a-z]*)f([a-z]*)\b`)
)

// rewriteFindDryRun strips -delete and -exec rm clauses from a find command.
// Returns ok=false when the command is unchanged, meaning the destructive
// part could not be isolated.
func rewriteFindDryRun(command string) (string, bool) {
	stripped := findDeleteFlagRe.ReplaceAllString(command, "")
	stripped = findExecRmRe.ReplaceAllString(stripped, "")
	stripped = strings.TrimSpace(stripped)
	if stripped == "" || stripped == command {
		return "", false
	}
	return stripped, true
}

// rewriteGitCleanDryRun maps force flags to their dry-run equivalents:
// --force becomes -n and the f inside a flag cluster becomes n (-fdx → -ndx).
func rewriteGitCleanDryRun(command string) (string, bool) {
	dry := strings.ReplaceAll(command, "--force", "-n")
	dry = gitForceFlagRe.ReplaceAllString(dry, "${1}${2}n${3}")
	if dry == command {
		return "", false
	}
	return dry, true
}

func (d *Discoverer) dryRunFind(command, cwd string) Discovery {
	dry, ok := rewriteFindDryRun(command)
	if !ok {
		return Discovery{Outcome: CouldNotRun}
	}
	out, ok := d.run(dry, cwd)
	if !ok {
		return Discovery{Outcome: CouldNotRun}
	}

	var targets []Target
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		p := line
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		targets = append(targets, Target{Raw: line, Path: filepath.Clean(p)})
	}
	if len(targets) == 0 {
		return Discovery{Outcome: FoundNone}
	}
	return Discovery{Outcome: Found, Targets: targets}
}

func (d *Discoverer) dryRunGitClean(command, cwd string) Discovery {
	dry, ok := rewriteGitCleanDryRun(command)
	if !ok {
		return Discovery{Outcome: CouldNotRun}
	}
	out, ok := d.run(dry, cwd)
	if !ok {
		return Discovery{Outcome: CouldNotRun}
	}

	var targets []Target
	for _, line := range strings.Split(out, "\n") {
		m := wouldRemoveRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		targets = append(targets, Target{Raw: m[1], Path: filepath.Clean(filepath.Join(cwd, m[1]))})
	}
	if len(targets) == 0 {
		return Discovery{Outcome: FoundNone}
	}
	return Discovery{Outcome: Found, Targets: targets}
}

// run executes the rewritten command with a bounded timeout. A nonzero exit
// with output still counts (find prints matches before erroring on an
// unreadable directory); a nonzero exit with no output does not.
func (d *Discoverer) run(command, cwd string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), dryRunTimeout)
	defer cancel()

	out, err := d.runner.Output(ctx, cwd, command)
	if ctx.Err() != nil {
		discoverLog.Debug("dry run timed out: %s", command)
		return "", false
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && strings.TrimSpace(out) != "" {
			return out, true
		}
		discoverLog.Debug("dry run failed: %v", err)
		return "", false
	}
	return out, true
}
