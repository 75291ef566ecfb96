// delguard is a command-interception hook: it reads one tool invocation from
// stdin, decides whether the command deletes files, backs up what it can, and
// answers with its exit code (0 allow, 2 block).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/delguard/delguard/internal/backup"
	"github.com/delguard/delguard/internal/config"
	"github.com/delguard/delguard/internal/guard"
	"github.com/delguard/delguard/internal/logger"
	"github.com/delguard/delguard/internal/prompt"
)

// Version is set at build time via ldflags: -X main.Version=x.y.z
var Version = "1.0.0"

var mainLog = logger.New("main")

// hookInput is the message the caller writes to stdin.
type hookInput struct {
	ToolName  string `json:"tool_name"`
	ToolInput struct {
		Command string `json:"command"`
	} `json:"tool_input"`
	Cwd string `json:"cwd"`
}

func main() {
	// Fail open on any unhandled error: the guard must never wedge the
	// caller. The reason still goes to stderr before exiting successfully.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "[delguard] unhandled error (failing open): %v\n", r)
			os.Exit(0)
		}
	}()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "check":
			runCheck(os.Args[2:])
		case "backups":
			runBackups(os.Args[2:])
		case "version", "--version", "-v":
			fmt.Printf("delguard %s\n", Version)
		case "help", "--help", "-h":
			printUsage()
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
			printUsage()
			os.Exit(1)
		}
		return
	}

	runHook()
}

// runHook is the default mode: one decision per process, driven by stdin.
func runHook() {
	var in hookInput
	if err := json.NewDecoder(os.Stdin).Decode(&in); err != nil {
		os.Exit(0) // not a hook message; nothing to guard
	}
	if in.ToolName != "Bash" || strings.TrimSpace(in.ToolInput.Command) == "" {
		os.Exit(0)
	}

	cfg := loadConfig("")

	if !prompt.Interactive() {
		mainLog.Debug("no controlling terminal; confirmations will deny")
	}

	cwd := in.Cwd
	if cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		}
	}

	eng := guard.NewEngine(guard.Options{
		Workspace: resolveWorkspace(cfg.Workspace, cwd),
		Whitelist: cfg.WhitelistRoots(),
		Prompter:  prompt.New(prompt.DefaultTimeout),
		Store:     newStore(cfg),
	})

	res := eng.Evaluate(in.ToolInput.Command, cwd)
	if res.Decision == guard.Block {
		fmt.Fprintln(os.Stderr, res.Message)
		os.Exit(2)
	}
	os.Exit(0)
}

// runCheck evaluates a command without prompting or writing backups.
// Prompts resolve as denials, so anything that would require confirmation
// reports as blocked.
func runCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	cwd := fs.String("cwd", "", "working directory for path resolution (default: current directory)")
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	command := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(command) == "" {
		fmt.Fprintln(os.Stderr, "usage: delguard check [-cwd DIR] -- COMMAND")
		os.Exit(1)
	}
	if *cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			*cwd = wd
		}
	}

	cfg := loadConfig(*configPath)
	eng := guard.NewEngine(guard.Options{
		Workspace: resolveWorkspace(cfg.Workspace, *cwd),
		Whitelist: cfg.WhitelistRoots(),
		Prompter:  prompt.Static(false),
		Store:     backup.Discard{},
	})

	res := eng.Evaluate(command, *cwd)
	fmt.Printf("decision: %s\n", res.Decision)
	fmt.Printf("reason:   %s\n", res.Reason)
	for _, t := range res.Outside {
		fmt.Printf("outside:  %s\n", t.Path)
	}
	if res.Decision == guard.Block {
		os.Exit(2)
	}
}

// runBackups lists the centralized store's manifest.
func runBackups(args []string) {
	fs := flag.NewFlagSet("backups", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	cfg := loadConfig(*configPath)
	records, err := backup.ReadManifest(cfg.ResolvedBackupRoot())
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no backups recorded")
			return
		}
		fmt.Fprintf(os.Stderr, "cannot read manifest: %v\n", err)
		os.Exit(1)
	}
	for _, r := range records {
		fmt.Printf("%s  %-8s  %10s  %s\n",
			r.BackedUpAt.Format(time.DateTime), r.ID,
			humanize.IBytes(uint64(r.SizeBytes)), r.OriginalPath)
	}
}

// loadConfig loads the config file, applies DELGUARD_* overrides, and wires
// up the logger. Config problems degrade to defaults with a warning; they
// never fail the invocation.
func loadConfig(path string) *config.Config {
	env := config.LoadEnv()
	if path == "" {
		path = env.ConfigPath
	}
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		mainLog.Warn("config load failed, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}
	cfg.ApplyEnv(env)

	logger.SetGlobalLevelFromString(cfg.LogLevel)
	logger.SetColored(!cfg.NoColor)

	if err := cfg.Validate(); err != nil {
		mainLog.Warn("%v", err)
		cfg.BackupMode = config.BackupModeCentralized
	}
	return cfg
}

// resolveWorkspace picks the workspace root: explicit config/env value
// first, then the hook's working directory.
func resolveWorkspace(explicit, cwd string) string {
	root := explicit
	if root == "" {
		root = cwd
	}
	root = config.ExpandHome(root)
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return root
}

func newStore(cfg *config.Config) guard.Store {
	if cfg.BackupMode == config.BackupModePerFolder {
		return backup.NewPerFolder(os.Stdout)
	}
	return backup.NewCentralized(cfg.ResolvedBackupRoot(), cfg.Compress, os.Stdout)
}

func printUsage() {
	fmt.Print(`delguard - deletion guard hook for agent-executed shell commands

Usage:
  delguard                 Run as a hook: read one JSON message from stdin,
                           decide, and exit 0 (allow) or 2 (block).
  delguard check [flags] -- COMMAND
                           Evaluate COMMAND without prompting or backing up.
  delguard backups         List recorded backups from the manifest.
  delguard version         Print version.
  delguard help            Show this help.

Check flags:
  -cwd DIR                 Working directory for path resolution
  -config FILE             Config file (default ~/.delguard/config.yaml)

Environment:
  DELGUARD_PROJECT_DIR     Workspace root override
  DELGUARD_CONFIG          Config file override
  DELGUARD_LOG_LEVEL       trace, debug, info, warn, error
  DELGUARD_NO_COLOR        Disable colored log output
`)
}
