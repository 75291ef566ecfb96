// Package backup implements the durable-copy collaborator of the deletion
// guard. Stores copy targets aside before a deletion is allowed and append
// one immutable manifest record per stored item. A failed copy is logged
// and skipped; it never aborts the remaining backups and never blocks the
// underlying deletion.
package backup

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/delguard/delguard/internal/guard"
	"github.com/delguard/delguard/internal/logger"
)

var log = logger.New("backup")

const (
	// warnBytes is the centralized-store size past which a cleanup warning
	// is emitted.
	warnBytes = 500 * 1024 * 1024
	// capBytes is the per-folder per-operation hard cap: above it the whole
	// backup is skipped rather than taken partially.
	capBytes = 10 * 1024 * 1024

	manifestName  = "manifest.jsonl"
	perFolderDir  = ".delguard-backups"
	gitignoreLine = perFolderDir + "/"
)

// shortID returns a collision-resistant identifier for one stored item.
func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// backupName builds a collision-safe name: stem_<id><ext> for files,
// name_<id> for directories.
func backupName(path string, isDir bool, id string) string {
	base := filepath.Base(path)
	if isDir {
		return base + "_" + id
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return stem + "_" + id + ext
}

// Centralized stores backups under a single root shared by all workspaces:
// copies in <root>/files/, one JSONL record per item in <root>/manifest.jsonl.
type Centralized struct {
	root     string
	compress bool
	out      io.Writer
}

// NewCentralized creates a centralized store rooted at root. Progress lines
// go to out (the hook's stdout). compress stores regular files
// zstd-compressed.
func NewCentralized(root string, compress bool, out io.Writer) *Centralized {
	if out == nil {
		out = os.Stdout
	}
	return &Centralized{root: root, compress: compress, out: out}
}

// Store implements guard.Store.
func (s *Centralized) Store(targets []guard.Target, zoneRoot, command string) []guard.BackupRecord {
	filesDir := filepath.Join(s.root, "files")
	if err := os.MkdirAll(filesDir, 0o755); err != nil {
		log.Error("cannot create backup dir %s: %v", filesDir, err)
		return nil
	}

	var records []guard.BackupRecord
	for _, t := range targets {
		info, err := os.Stat(t.Path)
		if err != nil {
			continue // already gone or unreadable; nothing to preserve
		}
		if HasSkipComponent(zoneRel(zoneRoot, t.Path)) {
			fmt.Fprintf(s.out, "  Skip (skip list): %s\n", t.Path)
			continue
		}

		id := shortID()
		name := backupName(t.Path, info.IsDir(), id)
		dest := filepath.Join(filesDir, name)
		for pathExists(dest) {
			id = shortID()
			name = backupName(t.Path, info.IsDir(), id)
			dest = filepath.Join(filesDir, name)
		}

		var size int64
		if info.IsDir() {
			size, err = copyTree(t.Path, dest)
		} else if s.compress {
			name += ".zst"
			dest += ".zst"
			size, err = copyFileZstd(t.Path, dest)
		} else {
			size, err = copyFile(t.Path, dest)
		}
		if err != nil {
			fmt.Fprintf(s.out, "  Backup failed (%v): %s\n", err, t.Path)
			continue
		}

		rec := guard.BackupRecord{
			ID:           id,
			BackupName:   name,
			OriginalPath: t.Path,
			BackedUpAt:   time.Now(),
			ZoneRoot:     zoneRoot,
			IsDir:        info.IsDir(),
			SizeBytes:    size,
			Command:      command,
		}
		if err := s.appendManifest(rec); err != nil {
			log.Warn("manifest append failed: %v", err)
		}
		records = append(records, rec)
		fmt.Fprintf(s.out, "  Backed up: %s  ->  %s\n", filepath.Base(t.Path), filepath.Join("files", name))
	}

	s.warnIfLarge()
	return records
}

// appendManifest writes one immutable JSONL record.
func (s *Centralized) appendManifest(rec guard.BackupRecord) error {
	f, err := os.OpenFile(filepath.Join(s.root, manifestName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(rec)
}

// warnIfLarge emits a non-fatal warning once the backup root grows past the
// threshold. Backups are never pruned automatically.
func (s *Centralized) warnIfLarge() {
	total := treeSize(s.root)
	if total > warnBytes {
		log.Warn("backup folder is %s (%s); consider clearing old backups",
			humanize.IBytes(uint64(total)), s.root)
	}
}

// ReadManifest returns all records from a centralized store's manifest.
func ReadManifest(root string) ([]guard.BackupRecord, error) {
	f, err := os.Open(filepath.Join(root, manifestName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []guard.BackupRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec guard.BackupRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			log.Warn("skipping malformed manifest line: %v", err)
			continue
		}
		records = append(records, rec)
	}
	return records, sc.Err()
}

// PerFolder stores backups inside each zone root, under
// <root>/.delguard-backups/<timestamp>_<pid>/, preserving relative layout.
// The whole operation is skipped when the candidates exceed the size cap.
type PerFolder struct {
	out io.Writer
}

// NewPerFolder creates a per-folder store writing progress lines to out.
func NewPerFolder(out io.Writer) *PerFolder {
	if out == nil {
		out = os.Stdout
	}
	return &PerFolder{out: out}
}

// Store implements guard.Store.
func (s *PerFolder) Store(targets []guard.Target, zoneRoot, command string) []guard.BackupRecord {
	ensureGitignore(zoneRoot)

	var total int64
	for _, t := range targets {
		if HasSkipComponent(zoneRel(zoneRoot, t.Path)) {
			continue
		}
		total += candidateSize(t.Path)
	}
	if total > capBytes {
		fmt.Fprintf(s.out, "  Skip (>%s): total backup size %s, skipping backup\n",
			humanize.IBytes(capBytes), humanize.IBytes(uint64(total)))
		return nil
	}

	stamp := time.Now().Format("2006-01-02_15-04-05")
	backupRoot := filepath.Join(zoneRoot, perFolderDir, fmt.Sprintf("%s_%d", stamp, os.Getpid()))

	var records []guard.BackupRecord
	for _, t := range targets {
		info, err := os.Stat(t.Path)
		if err != nil {
			continue
		}
		if HasSkipComponent(zoneRel(zoneRoot, t.Path)) {
			fmt.Fprintf(s.out, "  Skip (skip list): %s\n", t.Path)
			continue
		}

		rel, err := filepath.Rel(zoneRoot, t.Path)
		if err != nil || strings.HasPrefix(rel, "..") {
			rel = filepath.Base(t.Path)
		}
		dest := filepath.Join(backupRoot, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			fmt.Fprintf(s.out, "  Backup failed (%v): %s\n", err, rel)
			continue
		}

		var size int64
		if info.IsDir() {
			size, err = copyTree(t.Path, dest)
		} else {
			size, err = copyFile(t.Path, dest)
		}
		if err != nil {
			fmt.Fprintf(s.out, "  Backup failed (%v): %s\n", err, rel)
			continue
		}

		records = append(records, guard.BackupRecord{
			ID:           shortID(),
			BackupName:   rel,
			OriginalPath: t.Path,
			BackedUpAt:   time.Now(),
			ZoneRoot:     zoneRoot,
			IsDir:        info.IsDir(),
			SizeBytes:    size,
			Command:      command,
		})
		fmt.Fprintf(s.out, "  Backed up: %s  ->  %s\n", rel, filepath.Join(perFolderDir, filepath.Base(backupRoot), rel))
	}
	return records
}

// Discard is a Store that stores nothing. Used by the check subcommand.
type Discard struct{}

// Store implements guard.Store.
func (Discard) Store([]guard.Target, string, string) []guard.BackupRecord { return nil }

// ensureGitignore keeps the per-folder backup directory out of version
// control: appends the entry to .gitignore if missing, creating the file if
// the zone root has none. Failures are ignored; the backup still proceeds.
func ensureGitignore(zoneRoot string) {
	gitignore := filepath.Join(zoneRoot, ".gitignore")
	data, err := os.ReadFile(gitignore)
	if err != nil && !os.IsNotExist(err) {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == gitignoreLine || trimmed == perFolderDir {
			return
		}
	}
	content := strings.TrimRight(string(data), "\n")
	if content != "" {
		content += "\n"
	}
	content += gitignoreLine + "\n"
	_ = os.WriteFile(gitignore, []byte(content), 0o644)
}

func pathExists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}

// zoneRel returns path relative to the zone root when it is inside it, so
// skip-list matching only sees components below the root. A zone root that
// itself lives under a directory named like a skip entry must not poison
// every path inside it.
func zoneRel(zoneRoot, path string) string {
	rel, err := filepath.Rel(zoneRoot, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return rel
}

// candidateSize computes the total size of a file or tree, skipping
// components on the skip list.
func candidateSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	if !info.IsDir() {
		return info.Size()
	}
	var total int64
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries just don't count
		}
		rel, relErr := filepath.Rel(path, p)
		if relErr != nil {
			return nil
		}
		skip := rel != "." && HasSkipComponent(rel)
		if d.IsDir() && skip {
			return filepath.SkipDir
		}
		if !d.IsDir() && !skip {
			if fi, err := d.Info(); err == nil {
				total += fi.Size()
			}
		}
		return nil
	})
	return total
}

// treeSize sums all regular file sizes under root.
func treeSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += fi.Size()
		}
		return nil
	})
	return total
}
