package guard

import "testing"

func TestClassify(t *testing.T) {
	z := Zones{
		Workspace: "/repo",
		Whitelist: []string{"/scratch", "/repo-extras"},
		TmpRoots:  []string{"/tmp", "/var/tmp"},
	}

	tests := []struct {
		path     string
		wantZone Zone
		wantRoot string
	}{
		{"/repo/file.txt", ZoneWorkspace, "/repo"},
		{"/repo/deep/nested/dir", ZoneWorkspace, "/repo"},
		{"/scratch/a.txt", ZoneWhitelist, "/scratch"},
		{"/scratch", ZoneWhitelist, "/scratch"},
		{"/repo-extras/x", ZoneWhitelist, "/repo-extras"},
		{"/tmp/a.txt", ZoneTmp, ""},
		{"/var/tmp/build/cache", ZoneTmp, ""},
		{"/etc/passwd", ZoneOutside, ""},
		{"/home/u/other.txt", ZoneOutside, ""},

		// The workspace root itself is never auto-approved.
		{"/repo", ZoneOutside, ""},

		// Prefix similarity is not containment.
		{"/repository/a.txt", ZoneOutside, ""},
		{"/tmp2/a.txt", ZoneOutside, ""},
	}
	for _, tt := range tests {
		zone, root := z.Classify(tt.path)
		if zone != tt.wantZone || root != tt.wantRoot {
			t.Errorf("Classify(%q) = (%v, %q), want (%v, %q)",
				tt.path, zone, root, tt.wantZone, tt.wantRoot)
		}
	}
}

func TestClassifyWhitelistOrder(t *testing.T) {
	// First whitelist match wins when roots nest.
	z := Zones{
		Workspace: "/repo",
		Whitelist: []string{"/data", "/data/sub"},
	}
	zone, root := z.Classify("/data/sub/a.txt")
	if zone != ZoneWhitelist || root != "/data" {
		t.Fatalf("Classify = (%v, %q), want whitelist /data", zone, root)
	}
}

func TestIsInside(t *testing.T) {
	tests := []struct {
		path, root string
		want       bool
	}{
		{"/repo/a.txt", "/repo", true},
		{"/repo", "/repo", true},
		{"/repo/../etc", "/repo", false},
		{"/other", "/repo", false},
		{"/repofake/x", "/repo", false},
	}
	for _, tt := range tests {
		if got := isInside(tt.path, tt.root); got != tt.want {
			t.Errorf("isInside(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
		}
	}
}

func TestZoneString(t *testing.T) {
	tests := []struct {
		zone Zone
		want string
	}{
		{ZoneWorkspace, "workspace"},
		{ZoneWhitelist, "whitelist"},
		{ZoneTmp, "tmp"},
		{ZoneOutside, "outside"},
	}
	for _, tt := range tests {
		if got := tt.zone.String(); got != tt.want {
			t.Errorf("Zone(%d).String() = %q, want %q", tt.zone, got, tt.want)
		}
	}
}
