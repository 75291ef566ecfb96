package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHookInputDecode(t *testing.T) {
	msg := `{
		"tool_name": "Bash",
		"tool_input": {"command": "rm -rf ./build"},
		"cwd": "/projects/app"
	}`
	var in hookInput
	if err := json.NewDecoder(strings.NewReader(msg)).Decode(&in); err != nil {
		t.Fatal(err)
	}
	if in.ToolName != "Bash" {
		t.Errorf("ToolName = %q", in.ToolName)
	}
	if in.ToolInput.Command != "rm -rf ./build" {
		t.Errorf("Command = %q", in.ToolInput.Command)
	}
	if in.Cwd != "/projects/app" {
		t.Errorf("Cwd = %q", in.Cwd)
	}

	// Unknown fields from a richer hook payload are tolerated.
	var in2 hookInput
	err := json.NewDecoder(strings.NewReader(`{"tool_name":"Bash","session_id":"x","tool_input":{"command":"ls","timeout":5}}`)).Decode(&in2)
	if err != nil {
		t.Fatal(err)
	}
	if in2.ToolInput.Command != "ls" {
		t.Errorf("Command = %q", in2.ToolInput.Command)
	}
}

func TestResolveWorkspace(t *testing.T) {
	if got := resolveWorkspace("/projects/app", "/elsewhere"); got != "/projects/app" {
		t.Errorf("explicit = %q", got)
	}
	if got := resolveWorkspace("", "/projects/app"); got != "/projects/app" {
		t.Errorf("cwd fallback = %q", got)
	}
}
