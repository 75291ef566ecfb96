package guard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/delguard/delguard/internal/logger"
)

var log = logger.New("engine")

// Options configures an Engine. Workspace, Prompter, and Store are required;
// TmpRoots and Runner default to the platform values. Home and Env override
// the process environment for path expansion (tests use this).
type Options struct {
	Workspace string
	Whitelist []string
	TmpRoots  []string
	Prompter  Confirmer
	Store     Store
	Runner    Runner
	Home      string
	Env       map[string]string
}

// Engine orchestrates the detection-and-decision pipeline for one command.
// It holds no mutable state across evaluations; everything is derived fresh
// from the command and working directory.
type Engine struct {
	zones      Zones
	prompter   Confirmer
	store      Store
	discoverer *Discoverer
	home       string
	env        map[string]string
}

// NewEngine creates an Engine. The workspace and whitelist roots are
// resolved once here; classification later compares resolved paths only.
func NewEngine(opts Options) *Engine {
	tmpRoots := opts.TmpRoots
	if tmpRoots == nil {
		tmpRoots = DefaultTmpRoots()
	}
	workspace := filepath.Clean(opts.Workspace)
	if resolved, err := filepath.EvalSymlinks(workspace); err == nil {
		workspace = resolved
	}
	return &Engine{
		zones: Zones{
			Workspace: workspace,
			Whitelist: opts.Whitelist,
			TmpRoots:  tmpRoots,
		},
		prompter:   opts.Prompter,
		store:      opts.Store,
		discoverer: NewDiscoverer(opts.Runner),
		home:       opts.Home,
		env:        opts.Env,
	}
}

// rootGroup collects the targets that back up under one root, preserving
// first-seen order of both roots and targets.
type rootGroup struct {
	root    string
	targets []Target
}

// Evaluate runs the full pipeline for one command and working directory.
// Any unexpected internal failure resolves to Allow: the guard must never
// be the reason a legitimate operation is stuck. The failure is still
// reported through the error channel.
func (e *Engine) Evaluate(command, cwd string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("unhandled error (failing open): %v", r)
			res = Result{Decision: Allow, Reason: fmt.Sprintf("internal error (failing open): %v", r)}
		}
	}()

	if strings.TrimSpace(command) == "" {
		return Result{Decision: Allow, Reason: "empty command"}
	}

	if !HasDeletion(command) {
		return Result{Decision: Allow, Reason: "no deletion detected"}
	}
	log.Debug("deletion detected: %s", command)

	if HasUnresolvable(command) {
		if e.prompter.Confirm(unresolvableMessage(command)) {
			// Targets were never enumerated, so nothing can be backed up.
			return Result{Decision: Allow, Reason: "unresolvable command confirmed by user"}
		}
		return Result{
			Decision: Block,
			Reason:   "unresolvable command denied",
			Message:  unresolvableBlockText,
		}
	}

	norm := e.normalizer(cwd)
	targets := NewExtractor(norm).Targets(command)

	if len(targets) == 0 {
		disc := e.discoverer.Discover(command, cwd)
		switch disc.Outcome {
		case Found:
			targets = disc.Targets
			log.Debug("dry run enumerated %d targets", len(targets))
		case FoundNone:
			return Result{Decision: Allow, Reason: "dry run enumerated no targets"}
		case CouldNotRun:
			// fall through to the cannot-enumerate prompt
		}
	}

	if len(targets) == 0 {
		if e.prompter.Confirm(cannotEnumerateMessage(command)) {
			return Result{Decision: Allow, Reason: "unenumerable command confirmed by user"}
		}
		return Result{
			Decision: Block,
			Reason:   "cannot enumerate targets",
			Message:  cannotEnumerateBlockText,
		}
	}

	var (
		groups   []rootGroup
		groupIdx = make(map[string]int)
		outside  []Target
		tmpCount int
	)
	for _, t := range targets {
		t.Path = norm.ResolveBestEffort(t.Path)
		_, err := os.Lstat(t.Path)
		t.Exists = err == nil

		zone, root := e.zones.Classify(t.Path)
		log.Trace("classified %s as %s", t.Path, zone)
		switch zone {
		case ZoneWorkspace, ZoneWhitelist:
			i, ok := groupIdx[root]
			if !ok {
				i = len(groups)
				groupIdx[root] = i
				groups = append(groups, rootGroup{root: root})
			}
			groups[i].targets = append(groups[i].targets, t)
		case ZoneTmp:
			tmpCount++ // allowed silently, never backed up
		case ZoneOutside:
			outside = append(outside, t)
		}
	}

	if len(outside) > 0 {
		if !e.prompter.Confirm(outsideMessage(outside)) {
			return Result{
				Decision: Block,
				Reason:   "outside targets denied",
				Message:  outsideBlockText(outside),
				Outside:  outside,
			}
		}
		// Confirmed Outside targets are permitted, never backed up.
	}

	var records []BackupRecord
	for _, g := range groups {
		records = append(records, e.store.Store(g.targets, g.root, command)...)
	}

	if len(groups) == 0 {
		return Result{Decision: Allow, Reason: "no targets require backup", Outside: outside}
	}
	return Result{
		Decision: AllowWithBackup,
		Reason:   fmt.Sprintf("backed up %d of %d targets", len(records), len(targets)-tmpCount-len(outside)),
		Outside:  outside,
		Records:  records,
	}
}

func (e *Engine) normalizer(cwd string) *Normalizer {
	if e.home != "" || e.env != nil {
		return NewNormalizerWithEnv(e.home, cwd, e.env)
	}
	return NewNormalizer(cwd)
}

const unresolvableBlockText = "Deletion guard: Unable to verify whether target paths are inside the " +
	"workspace or /tmp. Rewrite using explicit file paths (avoid $(...), " +
	"backtick subshells, eval, or base64-piped commands)."

const cannotEnumerateBlockText = "Deletion guard: Unable to verify whether target paths are inside the " +
	"workspace or /tmp. Rewrite using explicit file paths."

func unresolvableMessage(command string) string {
	return fmt.Sprintf("\nDeletion guard: Command contains unresolvable paths:\n  %s\nAllow this deletion? [y/N] ", command)
}

func cannotEnumerateMessage(command string) string {
	return fmt.Sprintf("\nDeletion guard: Cannot enumerate deletion targets for:\n  %s\nAllow this deletion? [y/N] ", command)
}

func outsideMessage(outside []Target) string {
	var sb strings.Builder
	sb.WriteString("\nDeletion guard: The following paths are outside the workspace:\n")
	for _, t := range outside {
		fmt.Fprintf(&sb, "  %s\n", t.Path)
	}
	sb.WriteString("Allow deletion? [y/N] ")
	return sb.String()
}

func outsideBlockText(outside []Target) string {
	paths := make([]string, len(outside))
	for i, t := range outside {
		paths[i] = t.Path
	}
	return "Deletion guard: Deleting files outside the workspace or /tmp is not " +
		"allowed and the user has not confirmed this operation.\n" +
		"Blocked: " + strings.Join(paths, ", ")
}
