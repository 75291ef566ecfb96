package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/delguard/delguard/internal/guard"
)

func TestHasSkipComponent(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"node_modules", true},
		{"pkg/node_modules/left-pad", true},
		{"src/__pycache__", true},
		{".git", true},
		{"sub/.git/objects", true},
		{"delguard.egg-info", true},
		{"wheel/setuptools.dist-info/METADATA", true},
		{"dist", true},
		{"my-dist", false},
		{"src/main.go", false},
		{"docs/tmpfiles.md", false},
		{"tmp/scratch", true},
	}
	for _, tt := range tests {
		if got := HasSkipComponent(tt.path); got != tt.want {
			t.Errorf("HasSkipComponent(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestBackupName(t *testing.T) {
	tests := []struct {
		path  string
		isDir bool
		want  string
	}{
		{"/ws/report.csv", false, "report_abc123ff.csv"},
		{"/ws/README", false, "README_abc123ff"},
		{"/ws/archive.tar.gz", false, "archive.tar_abc123ff.gz"},
		{"/ws/build-out", true, "build-out_abc123ff"},
	}
	for _, tt := range tests {
		if got := backupName(tt.path, tt.isDir, "abc123ff"); got != tt.want {
			t.Errorf("backupName(%q, %v) = %q, want %q", tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestZoneRel(t *testing.T) {
	if got := zoneRel("/ws", "/ws/sub/a.txt"); got != filepath.Join("sub", "a.txt") {
		t.Errorf("zoneRel inside = %q", got)
	}
	if got := zoneRel("/ws", "/elsewhere/a.txt"); got != "a.txt" {
		t.Errorf("zoneRel outside = %q", got)
	}
	if got := zoneRel("/ws", "/ws"); got != "ws" {
		t.Errorf("zoneRel root = %q", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCentralizedStore(t *testing.T) {
	root := t.TempDir()
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, "a.txt"), "hello")
	writeFile(t, filepath.Join(ws, "node_modules", "dep.js"), "junk")
	writeFile(t, filepath.Join(ws, "dir", "b.txt"), "nested")

	var out bytes.Buffer
	s := NewCentralized(root, false, &out)

	targets := []guard.Target{
		{Path: filepath.Join(ws, "a.txt"), Exists: true},
		{Path: filepath.Join(ws, "node_modules"), Exists: true},
		{Path: filepath.Join(ws, "dir"), Exists: true},
		{Path: filepath.Join(ws, "missing.txt")},
	}
	records := s.Store(targets, ws, "rm -rf stuff")

	if len(records) != 2 {
		t.Fatalf("records = %+v", records)
	}
	if records[0].IsDir || !records[1].IsDir {
		t.Errorf("IsDir flags wrong: %+v", records)
	}
	for _, rec := range records {
		if rec.ZoneRoot != ws || rec.Command != "rm -rf stuff" {
			t.Errorf("record attribution wrong: %+v", rec)
		}
		stored := filepath.Join(root, "files", rec.BackupName)
		if _, err := os.Stat(stored); err != nil {
			t.Errorf("stored copy missing: %v", err)
		}
	}
	if !strings.Contains(out.String(), "Skip (skip list)") {
		t.Errorf("skip not reported: %q", out.String())
	}

	manifest, err := ReadManifest(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(manifest) != 2 {
		t.Fatalf("manifest = %+v", manifest)
	}
}

func TestCentralizedStoreDistinctNames(t *testing.T) {
	root := t.TempDir()
	ws := t.TempDir()
	p := filepath.Join(ws, "a.txt")
	writeFile(t, p, "v1")

	s := NewCentralized(root, false, &bytes.Buffer{})
	targets := []guard.Target{{Path: p, Exists: true}}

	first := s.Store(targets, ws, "rm a.txt")
	second := s.Store(targets, ws, "rm a.txt")
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("records = %+v / %+v", first, second)
	}
	if first[0].BackupName == second[0].BackupName {
		t.Fatalf("repeated backup reused name %q", first[0].BackupName)
	}

	manifest, err := ReadManifest(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(manifest) != 2 {
		t.Fatalf("manifest = %+v", manifest)
	}
}

func TestCentralizedStoreCompress(t *testing.T) {
	root := t.TempDir()
	ws := t.TempDir()
	p := filepath.Join(ws, "big.log")
	writeFile(t, p, strings.Repeat("log line\n", 1000))

	s := NewCentralized(root, true, &bytes.Buffer{})
	records := s.Store([]guard.Target{{Path: p, Exists: true}}, ws, "rm big.log")

	if len(records) != 1 {
		t.Fatalf("records = %+v", records)
	}
	if !strings.HasSuffix(records[0].BackupName, ".zst") {
		t.Errorf("name = %q", records[0].BackupName)
	}
	stored := filepath.Join(root, "files", records[0].BackupName)
	info, err := os.Stat(stored)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() >= int64(len("log line\n")*1000) {
		t.Errorf("compressed size %d not smaller than input", info.Size())
	}
	if records[0].SizeBytes != info.Size() {
		t.Errorf("record size %d != on-disk %d", records[0].SizeBytes, info.Size())
	}
}

func TestPerFolderStore(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, "sub", "a.txt"), "hello")

	var out bytes.Buffer
	s := NewPerFolder(&out)
	records := s.Store([]guard.Target{{Path: filepath.Join(ws, "sub", "a.txt"), Exists: true}}, ws, "rm sub/a.txt")

	if len(records) != 1 {
		t.Fatalf("records = %+v", records)
	}
	if records[0].BackupName != filepath.Join("sub", "a.txt") {
		t.Errorf("backup name = %q", records[0].BackupName)
	}

	// The copy lands under <ws>/.delguard-backups/<run>/sub/a.txt.
	entries, err := os.ReadDir(filepath.Join(ws, perFolderDir))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("backup runs = %v", entries)
	}
	copied := filepath.Join(ws, perFolderDir, entries[0].Name(), "sub", "a.txt")
	data, err := os.ReadFile(copied)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("copied content = %q", data)
	}

	// .gitignore gained the backup dir entry.
	gi, err := os.ReadFile(filepath.Join(ws, ".gitignore"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(gi), gitignoreLine) {
		t.Errorf(".gitignore = %q", gi)
	}
}

func TestPerFolderStoreSizeCap(t *testing.T) {
	ws := t.TempDir()
	big := filepath.Join(ws, "huge.bin")
	if err := os.WriteFile(big, bytes.Repeat([]byte{0}, capBytes+1), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	s := NewPerFolder(&out)
	records := s.Store([]guard.Target{{Path: big, Exists: true}}, ws, "rm huge.bin")

	if records != nil {
		t.Fatalf("records = %+v, want none above the cap", records)
	}
	if !strings.Contains(out.String(), "skipping backup") {
		t.Errorf("cap not reported: %q", out.String())
	}
	if _, err := os.Stat(filepath.Join(ws, perFolderDir)); !os.IsNotExist(err) {
		t.Errorf("backup dir created despite cap: %v", err)
	}
}

func TestEnsureGitignore(t *testing.T) {
	ws := t.TempDir()

	ensureGitignore(ws)
	data, err := os.ReadFile(filepath.Join(ws, ".gitignore"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != gitignoreLine+"\n" {
		t.Fatalf(".gitignore = %q", data)
	}

	// Idempotent.
	ensureGitignore(ws)
	data2, err := os.ReadFile(filepath.Join(ws, ".gitignore"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data2) != string(data) {
		t.Fatalf("second ensure changed file: %q", data2)
	}

	// Appends after existing content.
	writeFile(t, filepath.Join(ws, ".gitignore"), "vendor/\n")
	ensureGitignore(ws)
	data3, err := os.ReadFile(filepath.Join(ws, ".gitignore"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data3) != "vendor/\n"+gitignoreLine+"\n" {
		t.Fatalf("appended .gitignore = %q", data3)
	}
}

func TestCopyTreeSkipsComponents(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "keep.txt"), "keep")
	writeFile(t, filepath.Join(src, "node_modules", "dep.js"), "junk")

	dst := filepath.Join(t.TempDir(), "copy")
	n, err := copyTree(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len("keep")) {
		t.Errorf("bytes copied = %d", n)
	}
	if _, err := os.Stat(filepath.Join(dst, "keep.txt")); err != nil {
		t.Errorf("keep.txt not copied: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "node_modules")); !os.IsNotExist(err) {
		t.Errorf("node_modules copied: %v", err)
	}
}
