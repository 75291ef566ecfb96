package guard

import (
	"context"
	"errors"
	"testing"
)

func TestRewriteFindDryRun(t *testing.T) {
	tests := []struct {
		command string
		want    string
		ok      bool
	}{
		{"find . -name '*.log' -delete", "find . -name '*.log'", true},
		{"find /data -type f -delete", "find /data -type f", true},
		{"find . -name '*.o' -exec rm {} \\;", "find . -name '*.o'", true},
		{"find . -name '*.o' -exec rm -f {} +", "find . -name '*.o'", true},
		{"find . -name '*.log'", "", false}, // nothing destructive to strip
	}
	for _, tt := range tests {
		got, ok := rewriteFindDryRun(tt.command)
		if ok != tt.ok || got != tt.want {
			t.Errorf("rewriteFindDryRun(%q) = (%q, %v), want (%q, %v)",
				tt.command, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRewriteGitCleanDryRun(t *testing.T) {
	tests := []struct {
		command string
		want    string
		ok      bool
	}{
		{"git clean -f", "git clean -n", true},
		{"git clean -fd", "git clean -nd", true},
		{"git clean -fdx", "git clean -ndx", true},
		{"git clean -xdf", "git clean -xdn", true},
		{"git clean --force", "git clean -n", true},
		{"git clean -n", "", false}, // already a dry run
	}
	for _, tt := range tests {
		got, ok := rewriteGitCleanDryRun(tt.command)
		if ok != tt.ok || got != tt.want {
			t.Errorf("rewriteGitCleanDryRun(%q) = (%q, %v), want (%q, %v)",
				tt.command, got, ok, tt.want, tt.ok)
		}
	}
}

// scriptedRunner returns canned output instead of spawning a shell.
type scriptedRunner struct {
	out string
	err error
	ran string
}

func (r *scriptedRunner) Output(_ context.Context, _ string, command string) (string, error) {
	r.ran = command
	return r.out, r.err
}

func TestDiscoverFind(t *testing.T) {
	r := &scriptedRunner{out: "./a.log\n./sub/b.log\n/abs/c.log\n"}
	d := NewDiscoverer(r)

	disc := d.Discover("find . -name '*.log' -delete", "/repo")
	if disc.Outcome != Found {
		t.Fatalf("outcome = %v", disc.Outcome)
	}
	want := []string{"/repo/a.log", "/repo/sub/b.log", "/abs/c.log"}
	if len(disc.Targets) != len(want) {
		t.Fatalf("targets = %+v", disc.Targets)
	}
	for i, tg := range disc.Targets {
		if tg.Path != want[i] {
			t.Errorf("target[%d] = %q, want %q", i, tg.Path, want[i])
		}
	}
	if r.ran != "find . -name '*.log'" {
		t.Errorf("ran %q", r.ran)
	}
}

func TestDiscoverFindEmpty(t *testing.T) {
	d := NewDiscoverer(&scriptedRunner{out: "\n"})
	disc := d.Discover("find . -name '*.tmp' -delete", "/repo")
	if disc.Outcome != FoundNone {
		t.Fatalf("outcome = %v, want FoundNone", disc.Outcome)
	}
}

func TestDiscoverFindSpawnError(t *testing.T) {
	d := NewDiscoverer(&scriptedRunner{err: errors.New("spawn failed")})
	disc := d.Discover("find . -name '*.tmp' -delete", "/repo")
	if disc.Outcome != CouldNotRun {
		t.Fatalf("outcome = %v, want CouldNotRun", disc.Outcome)
	}
}

func TestDiscoverGitClean(t *testing.T) {
	r := &scriptedRunner{out: "Would remove build/\nWould remove tmp.txt\nSkipping repository x\n"}
	d := NewDiscoverer(r)

	disc := d.Discover("git clean -fdx", "/repo")
	if disc.Outcome != Found {
		t.Fatalf("outcome = %v", disc.Outcome)
	}
	want := []string{"/repo/build", "/repo/tmp.txt"}
	if len(disc.Targets) != len(want) {
		t.Fatalf("targets = %+v", disc.Targets)
	}
	for i, tg := range disc.Targets {
		if tg.Path != want[i] {
			t.Errorf("target[%d] = %q, want %q", i, tg.Path, want[i])
		}
	}
	if r.ran != "git clean -ndx" {
		t.Errorf("ran %q", r.ran)
	}
}

func TestDiscoverGitCleanNothing(t *testing.T) {
	d := NewDiscoverer(&scriptedRunner{out: ""})
	disc := d.Discover("git clean -fd", "/repo")
	if disc.Outcome != FoundNone {
		t.Fatalf("outcome = %v, want FoundNone", disc.Outcome)
	}
}

func TestDiscoverUnsupported(t *testing.T) {
	d := NewDiscoverer(&scriptedRunner{out: "a\n"})
	disc := d.Discover("rm -rf build", "/repo")
	if disc.Outcome != CouldNotRun {
		t.Fatalf("outcome = %v, want CouldNotRun", disc.Outcome)
	}
}
