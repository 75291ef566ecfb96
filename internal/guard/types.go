package guard

import "time"

// Zone is the trust classification of a path relative to the configured roots.
type Zone int

const (
	// ZoneWorkspace is strictly inside the workspace root.
	ZoneWorkspace Zone = iota
	// ZoneWhitelist is inside one of the configured whitelisted folders.
	ZoneWhitelist
	// ZoneTmp is inside a platform temp directory.
	ZoneTmp
	// ZoneOutside is everything else, including the workspace root itself.
	ZoneOutside
)

func (z Zone) String() string {
	switch z {
	case ZoneWorkspace:
		return "workspace"
	case ZoneWhitelist:
		return "whitelist"
	case ZoneTmp:
		return "tmp"
	case ZoneOutside:
		return "outside"
	}
	return "unknown"
}

// Target is a single path a command would delete. Targets are produced by
// the extractor or the dry-run discoverer and never mutated afterwards;
// duplicates are allowed and processed independently.
type Target struct {
	// Raw is the argument as it appeared in the command.
	Raw string
	// Path is the resolved absolute form.
	Path string
	// Exists records whether the path existed at classification time.
	// Nonexistent targets are still classified so they can be blocked.
	Exists bool
}

// Decision is the engine's verdict for one command.
type Decision int

const (
	// Allow permits the command with no further action.
	Allow Decision = iota
	// AllowWithBackup permits the command after backing up its targets.
	AllowWithBackup
	// Block rejects the command.
	Block
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case AllowWithBackup:
		return "allow-with-backup"
	case Block:
		return "block"
	}
	return "unknown"
}

// BackupRecord describes one successfully stored backup. Failed copies
// produce no record and do not abort the remaining backups.
type BackupRecord struct {
	ID           string    `json:"id"`
	BackupName   string    `json:"backup_filename"`
	OriginalPath string    `json:"original_path"`
	BackedUpAt   time.Time `json:"backed_up_at"`
	ZoneRoot     string    `json:"zone_root"`
	IsDir        bool      `json:"is_dir"`
	SizeBytes    int64     `json:"size_bytes"`
	Command      string    `json:"command"`
}

// Store is the backup collaborator. One call covers all targets sharing a
// backup root, so each record is attributed to the owning root.
type Store interface {
	Store(targets []Target, zoneRoot string, command string) []BackupRecord
}

// Confirmer asks the user a yes/no question. Implementations must not block
// indefinitely; no answer is a denial.
type Confirmer interface {
	Confirm(message string) bool
}

// Result is the outcome of evaluating one command.
type Result struct {
	Decision Decision
	// Reason is a short diagnostic for logs and the check subcommand.
	Reason string
	// Message is the human-readable explanation written to stderr on Block.
	Message string
	// Outside lists targets classified outside the workspace, tmp, and
	// whitelist roots.
	Outside []Target
	// Records are the backups taken before allowing the command.
	Records []BackupRecord
}
